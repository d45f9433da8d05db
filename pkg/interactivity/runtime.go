package interactivity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/net/html"

	ierrors "github.com/vango-dev/interactivity/internal/errors"
	"github.com/vango-dev/interactivity/pkg/directive"
	"github.com/vango-dev/interactivity/pkg/dom"
	"github.com/vango-dev/interactivity/pkg/expr"
	"github.com/vango-dev/interactivity/pkg/loop"
	"github.com/vango-dev/interactivity/pkg/reactive"
	"github.com/vango-dev/interactivity/pkg/render"
	"github.com/vango-dev/interactivity/pkg/store"
)

// ErrNotHydrated is returned by operations that need a hydrated document.
var ErrNotHydrated = errors.New("interactivity: no document hydrated")

// =============================================================================
// Configuration
// =============================================================================

// Config holds the runtime settings.
type Config struct {
	// Prefix is the directive attribute prefix. Default: "wp".
	Prefix string

	// MaxEffectRuns caps effect runs per loop turn. Zero uses
	// reactive.DefaultMaxEffectRuns; negative disables the cap.
	MaxEffectRuns int
}

// DefaultConfig returns the default runtime settings.
func DefaultConfig() Config {
	return Config{
		Prefix:        directive.DefaultPrefix,
		MaxEffectRuns: reactive.DefaultMaxEffectRuns,
	}
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithConfig sets the runtime settings.
func WithConfig(cfg Config) Option {
	return func(r *Runtime) {
		r.config = cfg
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithObserver sets the observer notified of hydration, events and
// directive outcomes.
func WithObserver(o directive.Observer) Option {
	return func(r *Runtime) {
		r.observer = o
	}
}

// WithRenderer replaces the default reconciler. The factory is called once
// per hydrated document.
func WithRenderer(fn func(*dom.Document) render.Renderer) Option {
	return func(r *Runtime) {
		r.newRenderer = fn
	}
}

// WithStore uses an existing store. Its reactive runtime becomes the
// Runtime's; MaxEffectRuns is then ignored and effect failures go to
// that runtime's own error handler.
func WithStore(st *store.Store) Option {
	return func(r *Runtime) {
		r.store = st
	}
}

// =============================================================================
// Runtime
// =============================================================================

// Runtime wires the store, loop and dispatcher for one document at a time.
type Runtime struct {
	config      Config
	logger      *slog.Logger
	observer    directive.Observer
	newRenderer func(*dom.Document) render.Renderer

	rt    *reactive.Runtime
	store *store.Store
	loop  *loop.Loop

	doc        *dom.Document
	dispatcher *directive.Dispatcher

	// turnErrs collects reactive failures of the turn in progress.
	turnErrs []error
}

// New creates a Runtime.
func New(opts ...Option) *Runtime {
	r := &Runtime{config: DefaultConfig()}
	for _, opt := range opts {
		opt(r)
	}
	if r.config.Prefix == "" {
		r.config.Prefix = directive.DefaultPrefix
	}
	if r.config.MaxEffectRuns == 0 {
		r.config.MaxEffectRuns = reactive.DefaultMaxEffectRuns
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.observer == nil {
		r.observer = directive.NopObserver{}
	}

	if r.store == nil {
		var budget *reactive.Budget
		if r.config.MaxEffectRuns > 0 {
			budget = reactive.NewBudget(r.config.MaxEffectRuns)
		}
		r.rt = reactive.NewRuntime(
			reactive.WithBudget(budget),
			reactive.WithErrorHandler(r.reactiveError),
		)
		r.store = store.New(r.rt, store.WithLogger(r.logger.With("component", "store")))
	} else {
		r.rt = r.store.Runtime()
	}

	r.loop = loop.New(r.rt,
		loop.WithLogger(r.logger.With("component", "loop")),
		loop.WithPanicHandler(func(v any) {
			r.logger.Error("task panicked", "component", "loop", "panic", v)
		}),
	)
	return r
}

// reactiveError logs failures the reactive runtime reports outside any
// handler: an exhausted effect budget or a panicking effect body.
func (r *Runtime) reactiveError(err error) {
	r.turnErrs = append(r.turnErrs, err)
	if errors.Is(err, reactive.ErrBudgetExceeded) {
		ve := ierrors.New(ierrors.CodeBudgetExceeded).
			WithDetailf("more than %d effect runs in one turn", r.config.MaxEffectRuns).
			Wrap(err)
		r.logger.Error("effect budget exceeded", ve.Attrs()...)
		return
	}
	r.logger.Error("effect failed", "component", "reactive", "error", err)
}

// Store returns the store handlers are registered on.
func (r *Runtime) Store() *store.Store {
	return r.store
}

// Loop returns the event loop.
func (r *Runtime) Loop() *loop.Loop {
	return r.loop
}

// Document returns the hydrated document, or nil.
func (r *Runtime) Document() *dom.Document {
	return r.doc
}

// Dispatcher returns the dispatcher of the hydrated document, or nil.
func (r *Runtime) Dispatcher() *directive.Dispatcher {
	return r.dispatcher
}

// Hydrate mounts every directive-bearing node of doc in one pass and flushes
// the resulting effects. A previously hydrated document is unmounted first.
// The returned error joins the failures of subtrees that were skipped.
func (r *Runtime) Hydrate(ctx context.Context, doc *dom.Document) error {
	ctx, done := r.observer.OnHydrate(ctx)
	start := time.Now()

	if r.dispatcher != nil {
		r.loop.Run(r.dispatcher.Close)
	}

	r.doc = doc
	logger := r.logger.With("component", "directive")
	var renderer render.Renderer
	if r.newRenderer != nil {
		renderer = r.newRenderer(doc)
	}
	r.dispatcher = directive.New(directive.Config{
		Prefix:   r.config.Prefix,
		Document: doc,
		Evaluator: expr.New(r.store,
			expr.WithLoop(r.loop),
			expr.WithDocument(doc),
			expr.WithLogger(logger),
		),
		Renderer: renderer,
		Logger:   logger,
		Observer: r.observer,
	})

	var mountErr error
	err := r.turn(func() {
		mountErr = r.dispatcher.Mount(doc.Root())
	})
	err = errors.Join(mountErr, err)

	r.logger.InfoContext(ctx, "interactivity started",
		"namespaces", len(r.store.Namespaces()),
		"nodes", r.dispatcher.Instances(),
		"duration", time.Since(start),
	)
	done(err)
	return err
}

// EventInit carries the optional fields of a fired event.
type EventInit struct {
	Key     string         `json:"key,omitempty"`
	KeyCode int            `json:"keyCode,omitempty"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// Fire dispatches an event of eventType at node in its own loop turn and
// settles the turn. It reports whether the default action is still allowed.
// The error joins effect failures that happened during the turn.
func (r *Runtime) Fire(ctx context.Context, node *html.Node, eventType string, init EventInit) (bool, error) {
	if r.doc == nil {
		return false, ErrNotHydrated
	}
	_, done := r.observer.OnEvent(ctx, eventType)

	ev := &dom.Event{
		Type:    eventType,
		Key:     init.Key,
		KeyCode: init.KeyCode,
		Detail:  init.Detail,
	}
	allowed := true
	err := r.turn(func() {
		allowed = r.doc.Dispatch(node, ev)
	})
	done(err)
	return allowed, err
}

// Unmount disposes the directives under node. Returns the number of
// mounted roots disposed.
func (r *Runtime) Unmount(node *html.Node) int {
	if r.dispatcher == nil {
		return 0
	}
	n := 0
	r.loop.Run(func() { n = r.dispatcher.Unmount(node) })
	return n
}

// Refresh re-reads the directives of node after its attributes changed.
// Reports whether node's scope was reused.
func (r *Runtime) Refresh(node *html.Node) (bool, error) {
	if r.dispatcher == nil {
		return false, ErrNotHydrated
	}
	var (
		reused bool
		err    error
	)
	turnErr := r.turn(func() { reused, err = r.dispatcher.Refresh(node) })
	return reused, errors.Join(err, turnErr)
}

// Settle drains pending tasks and runs up to maxFrames animation frames.
// Returns the number of frames run.
func (r *Runtime) Settle(maxFrames int) int {
	return r.loop.Settle(maxFrames)
}

// Close unmounts the hydrated document.
func (r *Runtime) Close() {
	if r.dispatcher != nil {
		r.loop.Run(r.dispatcher.Close)
		r.dispatcher = nil
	}
	r.doc = nil
}

// turn runs fn as one loop turn and returns the reactive failures it caused.
func (r *Runtime) turn(fn func()) error {
	r.turnErrs = nil
	r.loop.Run(fn)
	errs := r.turnErrs
	r.turnErrs = nil
	return errors.Join(errs...)
}
