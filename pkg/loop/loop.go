// Package loop provides the cooperative, single-threaded event loop that the
// directive engine runs on.
//
// A Loop owns a task queue, a microtask queue and an animation frame queue.
// Each task runs as a turn: the task body inside a reactive batch, then every
// microtask, then every dirty effect, repeated until nothing is left. Nothing
// in a turn blocks; asynchronous completion is expressed with Promise and
// resumes on the microtask queue.
//
// A Loop is not safe for concurrent use. Callers that receive work from other
// goroutines (the dev server's WebSocket reader, for example) hand it to the
// goroutine that owns the loop.
package loop

import (
	"log/slog"
	"runtime/debug"

	"github.com/vango-dev/interactivity/pkg/reactive"
)

// Loop is a cooperative event loop bound to one reactive runtime.
type Loop struct {
	rt *reactive.Runtime

	tasks      []func()
	microtasks []func()
	frames     []func()

	frame   int
	inTurn  bool
	logger  *slog.Logger
	onPanic func(any)
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the loop's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithPanicHandler sets the function that receives values recovered from
// panicking tasks, microtasks and frame callbacks.
func WithPanicHandler(fn func(any)) Option {
	return func(l *Loop) {
		l.onPanic = fn
	}
}

// New creates a Loop for rt.
func New(rt *reactive.Runtime, opts ...Option) *Loop {
	l := &Loop{rt: rt}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default().With("component", "loop")
	}
	return l
}

// Runtime returns the reactive runtime the loop flushes.
func (l *Loop) Runtime() *reactive.Runtime {
	return l.rt
}

// Queue schedules fn as a task.
func (l *Loop) Queue(fn func()) {
	l.tasks = append(l.tasks, fn)
}

// QueueMicrotask schedules fn to run at the end of the current turn, or at
// the end of the next turn if no turn is running.
func (l *Loop) QueueMicrotask(fn func()) {
	l.microtasks = append(l.microtasks, fn)
}

// RequestAnimationFrame schedules fn for the next animation frame.
func (l *Loop) RequestAnimationFrame(fn func()) {
	l.frames = append(l.frames, fn)
}

// Frames returns the number of animation frames run so far.
func (l *Loop) Frames() int {
	return l.frame
}

// InTurn reports whether a turn is currently running.
func (l *Loop) InTurn() bool {
	return l.inTurn
}

// Idle reports whether no task, microtask, frame callback or effect is waiting.
func (l *Loop) Idle() bool {
	return len(l.tasks) == 0 && len(l.microtasks) == 0 && len(l.frames) == 0 && l.rt.Pending() == 0
}

// Run executes fn as one turn. Called inside a running turn, fn simply runs
// as part of that turn.
func (l *Loop) Run(fn func()) {
	if l.inTurn {
		l.guard(fn)
		return
	}
	l.inTurn = true
	l.rt.BeginTurn()
	defer func() {
		l.rt.EndTurn()
		l.inTurn = false
	}()

	l.rt.Batch(func() {
		l.guard(fn)
	})
	l.settleTurn()
}

// settleTurn runs microtasks and effects until both queues are empty. The
// effect budget spans the whole turn, so a cycle through microtasks stops
// once it is spent.
func (l *Loop) settleTurn() {
	for {
		if len(l.microtasks) > 0 {
			micro := l.microtasks
			l.microtasks = nil
			l.rt.Batch(func() {
				for _, fn := range micro {
					l.guard(fn)
				}
			})
			continue
		}
		if l.rt.Pending() > 0 {
			if err := l.rt.Flush(); err != nil {
				l.logger.Warn("effect flush stopped", "error", err)
			}
			continue
		}
		return
	}
}

// Drain runs queued tasks, including tasks queued while draining.
func (l *Loop) Drain() {
	for len(l.tasks) > 0 {
		task := l.tasks[0]
		l.tasks = l.tasks[1:]
		l.Run(task)
	}
	if !l.inTurn && (len(l.microtasks) > 0 || l.rt.Pending() > 0) {
		l.Run(func() {})
	}
}

// Frame runs one animation frame: every callback requested before the frame
// started, each as its own turn. Returns the number of callbacks run.
func (l *Loop) Frame() int {
	callbacks := l.frames
	l.frames = nil
	l.frame++
	for _, cb := range callbacks {
		l.Run(cb)
	}
	return len(callbacks)
}

// Settle drains tasks and runs up to maxFrames animation frames until the
// loop is idle. Returns the number of frames run.
func (l *Loop) Settle(maxFrames int) int {
	l.Drain()
	ran := 0
	for ran < maxFrames && len(l.frames) > 0 {
		l.Frame()
		l.Drain()
		ran++
	}
	return ran
}

// guard runs fn, recovering a panic so one failing callback cannot stop the loop.
func (l *Loop) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if l.onPanic != nil {
				l.onPanic(r)
				return
			}
			l.logger.Error("loop callback panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}
