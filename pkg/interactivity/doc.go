// Package interactivity is the entry point of the directive engine.
//
// A Runtime owns the reactive runtime, the store, the event loop and, once a
// document is hydrated, the directive dispatcher for it:
//
//	rt := interactivity.New()
//	lightbox.Register(rt.Store())
//
//	doc, _ := dom.ParseString(page)
//	if err := rt.Hydrate(ctx, doc); err != nil {
//	    // invalid subtrees were skipped; everything else is live
//	}
//	rt.Fire(ctx, button, "click", interactivity.EventInit{})
//	rt.Settle(10)
//
// Everything the Runtime touches is owned by the goroutine that calls it.
package interactivity
