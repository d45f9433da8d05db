package reactive

// Listener is anything that can be notified when a dependency changes.
// Effects implement it; the engine's element renders are effects too.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies has changed.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication during batch processing.
	ID() uint64
}

// tracker is implemented by listeners that collect the signals read while
// they are the current listener.
type tracker interface {
	track(source *signalBase)
}

// Cleanup is a function returned by effects to clean up resources.
// It is called before the effect re-runs and when the effect is disposed.
type Cleanup func()
