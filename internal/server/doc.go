// Package server provides the HTTP surface of itemsync.
//
// It handles all HTTP concerns:
//
//   - Dashboard serving: the embedded HTML dashboard at "/"
//   - Producers: POST/PUT/DELETE on "/api/records" publish Create, Update and
//     Delete events; "/api/source" and "/api/wipe" publish SetDataSource and
//     WipeDataList. Publishing is asynchronous, so these answer 202 Accepted.
//   - Consumers: the cache snapshot at "/api/records", store reads at
//     "/api/records/{id}", load control at "/api/refresh"
//   - Change streams: Server-Sent Events at "/api/sse" and WebSocket at
//     "/api/ws"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
