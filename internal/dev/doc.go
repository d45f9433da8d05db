// Package dev provides the development server.
//
// The server previews the pages of a local directory or S3 prefix. Each
// preview is hydrated server side and rendered with a data-hid attribute
// on every element, plus a small client script. The script opens a live
// session over WebSocket: browser events are forwarded to a runtime owned
// by that connection and the resulting DOM patches are streamed back.
//
// # Routes
//
//	GET /                          page index
//	GET /pages/{name}              hydrated preview
//	GET /_interactivity/live?page= live session (WebSocket)
//	GET /metrics                   Prometheus metrics, when enabled
//
// # Usage
//
//	srv, err := dev.NewServer(dev.Options{
//	    Config: cfg,
//	    Setup:  lightbox.Register,
//	    Watch:  true,
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
//
// # Live Protocol
//
// Messages are JSON encoded. The browser sends:
//
//	{"type": "event", "hid": "h3", "event": "keydown", "key": "Escape", "keyCode": 27}
//	{"type": "ping"}
//
// The server replies with:
//
//	{"type": "ready", "page": "gallery.html"}
//	{"type": "patches", "patches": [{"op": "SetAttr", "hid": "h4", "key": "class", "value": "active"}]}
//	{"type": "error", "code": "E040", "error": "..."}
//	{"type": "reload", "page": "gallery.html"}   // page file changed
//	{"type": "pong"}
//
// Hydration IDs are assigned in document order before hydration, so the
// preview and the live session agree on them.
package dev
