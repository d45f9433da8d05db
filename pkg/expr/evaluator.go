package expr

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"golang.org/x/net/html"

	"github.com/vango-dev/interactivity/pkg/dom"
	"github.com/vango-dev/interactivity/pkg/loop"
	"github.com/vango-dev/interactivity/pkg/scope"
	"github.com/vango-dev/interactivity/pkg/store"
)

// ErrUnresolvedPath is returned when an expression names nothing registered
// and no state leaf.
var ErrUnresolvedPath = errors.New("expr: unresolved path")

// ErrHandlerThrow matches every HandlerError.
var ErrHandlerThrow = errors.New("expr: handler threw")

// HandlerError reports a handler that returned an error or panicked.
type HandlerError struct {
	Path  string
	Err   error
	Stack []byte // set when the handler panicked
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("expr: handler %s: %v", e.Path, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrHandlerThrow.
func (e *HandlerError) Is(target error) bool {
	return target == ErrHandlerThrow
}

// Bindings are the extra values passed to a handler call.
type Bindings struct {
	Event  *dom.Event
	Ref    *html.Node
	Values map[string]any
}

// Evaluator resolves directive expressions against a store and a scope.
type Evaluator struct {
	store  *store.Store
	loop   *loop.Loop
	doc    *dom.Document
	logger *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLoop makes the loop available to handlers as Args.Loop.
func WithLoop(l *loop.Loop) Option {
	return func(e *Evaluator) { e.loop = l }
}

// WithDocument makes the document available to handlers as Args.Document.
func WithDocument(d *dom.Document) Option {
	return func(e *Evaluator) { e.doc = d }
}

// WithLogger sets the evaluator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an evaluator over st.
func New(st *store.Store, opts ...Option) *Evaluator {
	e := &Evaluator{
		store:  st,
		logger: slog.Default().With("component", "expr"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the evaluator's store.
func (e *Evaluator) Store() *store.Store {
	return e.store
}

// Evaluate resolves path in sc. A registered action or effect is called with
// the scope's context and the bindings; its result is returned as is,
// including a *loop.Promise. Otherwise the state leaf is read, tracked, from
// the scope's merged tree.
func (e *Evaluator) Evaluate(path string, sc *scope.Scope, b Bindings) (any, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return e.EvaluatePath(p, sc, b)
}

// EvaluatePath is Evaluate for a parsed path.
func (e *Evaluator) EvaluatePath(p Path, sc *scope.Scope, b Bindings) (any, error) {
	if p.Category == Any || p.Category == Actions {
		if h, ok := e.store.Action(p.Namespace, p.Member); ok {
			return e.call(p, h, sc, b)
		}
	}
	if p.Category == Any || p.Category == Effects {
		if h, ok := e.store.Effect(p.Namespace, p.Member); ok {
			return e.call(p, h, sc, b)
		}
	}
	if p.Category == Any || p.Category == Context {
		if sc != nil {
			if v, ok := sc.Context().Get(p.ContextPath()); ok {
				return v, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnresolvedPath, p)
}

func (e *Evaluator) call(p Path, h store.Handler, sc *scope.Scope, b Bindings) (out any, err error) {
	args := store.Args{
		Event:    b.Event,
		Ref:      b.Ref,
		Values:   b.Values,
		Loop:     e.loop,
		Document: e.doc,
	}
	if sc != nil {
		args.Context = sc.Context()
	}
	args = e.store.Bind(args, p.Namespace)

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &HandlerError{Path: p.String(), Err: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		}
	}()
	out, err = h(args)
	if err != nil {
		return nil, &HandlerError{Path: p.String(), Err: err}
	}
	return out, nil
}
