// Package reactive provides the reactive cell layer used by the directive engine.
//
// The package is built around an explicit Runtime. A Runtime is the tracking
// context: it knows which listener is currently collecting dependencies, how
// deep the current batch is, and which effects are waiting to re-run. Every
// Signal is bound to the Runtime that created it, so reading a signal inside
// an effect subscribes that effect without any goroutine-local state.
//
// # Core Types
//
//   - Signal[T]: a mutable value that records its readers and notifies them on write
//   - Effect: a side effect that re-runs when the signals it read change
//   - Owner: a disposal scope for effects, cleanups and child owners
//
// # Scheduling
//
// A write never re-runs an effect inline. It marks the effect dirty, which
// queues it once on the Runtime; Flush runs the queue. This gives two
// guarantees the engine depends on:
//
//   - any number of writes inside one turn cause a single re-run per effect
//   - an effect that writes to its own dependency is queued again rather than
//     re-entered
//
// A Runtime is not safe for concurrent use. It is owned by one event loop.
//
// # Example
//
//	rt := reactive.NewRuntime()
//	owner := reactive.NewOwner(nil)
//	count := reactive.NewSignal(rt, 0)
//
//	rt.CreateEffect(owner, func() reactive.Cleanup {
//	    fmt.Println("count is", count.Get())
//	    return nil
//	})
//
//	count.Set(1)
//	rt.Flush() // prints "count is 1"
package reactive
