// Package expr evaluates directive expressions.
//
// An expression names a namespace and a dotted member:
//
//	core::image.showLightbox
//
// Resolution tries the namespace's actions, then its effects, and finally
// reads the state leaf "core.image.showLightbox" from the scope's merged
// context tree. The read is tracked, so an expression evaluated inside a
// reactive effect subscribes that effect to every cell on the path.
//
// The older "actions.ns.member", "effects.ns.member" and
// "context.ns.member" forms restrict resolution to one category.
//
// Handlers never propagate panics: a panic or returned error becomes a
// *HandlerError that matches ErrHandlerThrow.
package expr
