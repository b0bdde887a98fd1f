// Package store defines the backing store contract used by the itemsync
// controller, along with the two interchangeable implementations it ships
// with.
//
// The main components are:
//
//   - [Record]: The unit of data, identified by its ID
//   - [Store]: Interface every backing store implements
//   - [MemoryStore]: Transient in-memory store (data source 0)
//   - [SQLStore]: Persistent SQLite store (data source 1)
//
// Stores are safe for concurrent use. "Not found" is never reported as an
// error: [Store.Read] returns a nil record, and Update/Delete return false.
// Errors are reserved for I/O failures.
package store
