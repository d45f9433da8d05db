package reactive

// Effect represents a reactive side effect that runs when its dependencies change.
//
// Effects run immediately when created, and re-run on Flush whenever any
// signal they read during their last run changed. They can return a Cleanup
// function that will be called before the effect re-runs or when the effect
// is disposed.
type Effect struct {
	id uint64
	rt *Runtime

	// fn is the effect function to run.
	fn func() Cleanup

	// cleanup is the cleanup function from the last run.
	cleanup Cleanup

	// sources are the signals this effect read during its last run.
	sources []*signalBase

	owner *Owner

	// pending indicates the effect is queued for re-run.
	pending bool

	disposed bool

	runs int
}

// MarkDirty marks the effect as needing to re-run.
// Implements the Listener interface. An effect is queued at most once.
func (e *Effect) MarkDirty() {
	if e.disposed || e.pending {
		return
	}
	e.pending = true
	e.rt.schedule(e)
}

// ID returns the unique identifier for this effect.
func (e *Effect) ID() uint64 {
	return e.id
}

// Runs returns how many times the effect body has executed.
func (e *Effect) Runs() int {
	return e.runs
}

// Sources returns the number of signals read during the last run.
func (e *Effect) Sources() int {
	return len(e.sources)
}

// Disposed reports whether the effect has been disposed.
func (e *Effect) Disposed() bool {
	return e.disposed
}

func (e *Effect) track(source *signalBase) {
	source.subscribe(e)
	for _, s := range e.sources {
		if s == source {
			return
		}
	}
	e.sources = append(e.sources, source)
}

// run executes the effect function.
// A panic in the body is reported; the signals read before the panic stay
// subscribed so the effect runs again on the next change.
func (e *Effect) run() {
	if e.disposed {
		return
	}
	e.pending = false

	if e.cleanup != nil {
		cleanup := e.cleanup
		e.cleanup = nil
		e.rt.guard(cleanup)
	}

	for _, source := range e.sources {
		source.unsubscribe(e)
	}
	e.sources = e.sources[:0]

	e.runs++
	old := e.rt.setListener(e)
	defer e.rt.setListener(old)

	e.rt.guard(func() {
		e.cleanup = e.fn()
	})
}

// Dispose cleans up the effect and unsubscribes from all sources.
func (e *Effect) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.pending = false

	if e.cleanup != nil {
		cleanup := e.cleanup
		e.cleanup = nil
		e.rt.guard(cleanup)
	}

	for _, source := range e.sources {
		source.unsubscribe(e)
	}
	e.sources = nil
}

// CreateEffect creates and runs a new effect owned by owner.
// The effect function runs immediately and re-runs when any signal it reads
// changes. A nil owner creates an effect that lives until Dispose is called.
//
// Example:
//
//	rt.CreateEffect(owner, func() reactive.Cleanup {
//	    fmt.Println("Count is:", count.Get())
//	    return func() { fmt.Println("Cleanup") }
//	})
func (rt *Runtime) CreateEffect(owner *Owner, fn func() Cleanup) *Effect {
	e := &Effect{
		id:    nextID(),
		rt:    rt,
		fn:    fn,
		owner: owner,
	}
	if owner != nil {
		if owner.disposed {
			e.disposed = true
			return e
		}
		owner.registerEffect(e)
	}

	e.run()
	return e
}
