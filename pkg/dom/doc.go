// Package dom provides the document the interactivity runtime drives: a
// parsed HTML tree with attributes, classes, focus, event listeners and
// stable hydration IDs.
//
// A Document is owned by a single event loop and is not safe for concurrent
// use. Every mutation is recorded as a vdom.Patch so callers can assert
// idempotence or forward changes to a live browser session.
package dom
