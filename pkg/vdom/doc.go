// Package vdom holds the element prop model shared by the directive handlers
// and the rendering layer.
//
// A VNode describes one element: its tag, the props directives computed for
// it, and the document node it is bound to. The rendering layer compares two
// renders of the same element with DiffProps and applies the resulting
// patches. Child lists are never diffed; the document's structure comes from
// the server markup.
//
// # Patches
//
// Every change applied to a document is described by a Patch addressed by
// hydration ID (HID):
//
//	SetAttr      set or update an attribute
//	RemoveAttr   remove an attribute
//	InsertNode   move a node under a portal container
//	RemoveNode   detach a node
//	Focus, Blur  move or drop focus
//	SetInnerHTML restore preserved inner markup
//
// Patches are logged by the document and streamed to live dev sessions.
package vdom
