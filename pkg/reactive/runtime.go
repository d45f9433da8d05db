package reactive

import (
	"log/slog"
	"runtime/debug"
)

// Runtime is the explicit tracking context shared by a group of signals and
// effects. It replaces implicit "current listener" state: signals consult the
// Runtime they were created with when they are read.
type Runtime struct {
	// listener is what's currently tracking dependencies.
	// nil means no tracking (reads don't create subscriptions).
	listener Listener

	// batchDepth tracks nested Batch() calls.
	batchDepth int

	// pendingUpdates accumulates listeners to notify when a batch completes.
	pendingUpdates []Listener

	// queue holds effects marked dirty and waiting for Flush.
	queue    []*Effect
	flushing bool

	// turnDepth counts open BeginTurn windows.
	turnDepth int

	budget  *Budget
	onError func(error)
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithBudget sets the effect run budget. It covers one turn, or one Flush
// outside a turn. A nil budget disables the limit.
func WithBudget(b *Budget) Option {
	return func(rt *Runtime) {
		rt.budget = b
	}
}

// WithErrorHandler sets the function that receives effect panics and budget
// violations. The default logs through slog.
func WithErrorHandler(fn func(error)) Option {
	return func(rt *Runtime) {
		rt.onError = fn
	}
}

// NewRuntime creates a Runtime with the default budget.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		budget: NewBudget(DefaultMaxEffectRuns),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.onError == nil {
		logger := slog.Default().With("component", "reactive")
		rt.onError = func(err error) {
			logger.Error("reactive error", "error", err)
		}
	}
	return rt
}

// setListener sets the current listener and returns the previous one.
func (rt *Runtime) setListener(l Listener) Listener {
	old := rt.listener
	rt.listener = l
	return old
}

// track records a read of source against the current listener.
func (rt *Runtime) track(source *signalBase) {
	if rt.listener == nil {
		return
	}
	if t, ok := rt.listener.(tracker); ok {
		t.track(source)
	}
}

// WithListener runs fn with l as the current listener.
func (rt *Runtime) WithListener(l Listener, fn func()) {
	old := rt.setListener(l)
	defer rt.setListener(old)
	fn()
}

// Untracked runs fn without tracking signal reads as dependencies.
//
// For single signal reads, prefer signal.Peek().
func (rt *Runtime) Untracked(fn func()) {
	rt.WithListener(nil, fn)
}

// Collect runs fn and returns the IDs of the signals it read, in first-read
// order. Nothing is subscribed, so Collect is safe for inspection in tests
// and tooling.
func (rt *Runtime) Collect(fn func()) []uint64 {
	rec := &recorder{id: nextID(), seen: make(map[uint64]bool)}
	rt.WithListener(rec, fn)
	return rec.ids
}

// recorder is a listener that only records reads.
type recorder struct {
	id   uint64
	ids  []uint64
	seen map[uint64]bool
}

func (r *recorder) MarkDirty() {}

func (r *recorder) ID() uint64 { return r.id }

func (r *recorder) track(source *signalBase) {
	if r.seen[source.id] {
		return
	}
	r.seen[source.id] = true
	r.ids = append(r.ids, source.id)
}

// schedule queues a dirty effect for the next Flush.
func (rt *Runtime) schedule(e *Effect) {
	rt.queue = append(rt.queue, e)
}

// Pending returns the number of effects waiting to run.
func (rt *Runtime) Pending() int {
	n := 0
	for _, e := range rt.queue {
		if e.pending && !e.disposed {
			n++
		}
	}
	return n
}

// BeginTurn opens a budget window that spans every Flush until the matching
// EndTurn, so effects that re-dirty each other through microtasks still
// exhaust the budget. Windows nest; only the outermost resets the budget.
func (rt *Runtime) BeginTurn() {
	if rt.turnDepth == 0 {
		rt.budget.reset()
	}
	rt.turnDepth++
}

// EndTurn closes the window opened by BeginTurn.
func (rt *Runtime) EndTurn() {
	if rt.turnDepth > 0 {
		rt.turnDepth--
	}
}

// Flush runs queued effects until the queue is empty. Effects queued while
// flushing (including an effect that dirtied itself) run in the same flush.
// Nested calls are no-ops.
//
// If the budget is exceeded the remaining runs are dropped and
// ErrBudgetExceeded is returned and reported.
func (rt *Runtime) Flush() error {
	if rt.flushing {
		return nil
	}
	rt.flushing = true
	defer func() { rt.flushing = false }()

	if rt.turnDepth == 0 {
		rt.budget.reset()
	}
	for len(rt.queue) > 0 {
		e := rt.queue[0]
		rt.queue = rt.queue[1:]
		if !e.pending || e.disposed {
			continue
		}
		if err := rt.budget.take(); err != nil {
			e.pending = false
			for _, rest := range rt.queue {
				rest.pending = false
			}
			rt.queue = nil
			rt.report(err)
			return err
		}
		e.run()
	}
	return nil
}

// report hands err to the error handler.
func (rt *Runtime) report(err error) {
	if err != nil && rt.onError != nil {
		rt.onError(err)
	}
}

// guard runs fn and converts a panic into a reported PanicError.
func (rt *Runtime) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rt.report(&PanicError{Value: r, Stack: debug.Stack()})
		}
	}()
	fn()
}
