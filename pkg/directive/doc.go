// Package directive mounts data-wp-* directives onto a parsed document.
//
// A directive attribute has the form data-<prefix>-<kind>[-<sub>], where kind
// is one of context, body, bind, class, on, effect, init or ignore. The
// Dispatcher walks a subtree in document order, builds the scope chain from
// context directives and applies the remaining kinds in that fixed order:
//
//	d := directive.New(directive.Config{Document: doc, Evaluator: ev})
//	if err := d.Mount(doc.Root()); err != nil {
//	    log.Println(err) // invalid subtrees were skipped
//	}
//
// Every evaluation failure is isolated to its binding: it is logged, passed
// to the Observer, and the rest of the document keeps working.
package directive
