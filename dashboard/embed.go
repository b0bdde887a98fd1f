// Package dashboard provides the embedded web UI for itemsync.
//
// The dashboard is a single HTML page that lists the cached records, follows
// the change stream over Server-Sent Events and drives the REST API. It is
// compiled into the binary, so deployment needs no asset files.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Dashboard page with inline CSS and JavaScript
//
// The page contains a {{.Title}} placeholder that the server replaces.
//
//go:embed assets/*
var Assets embed.FS
