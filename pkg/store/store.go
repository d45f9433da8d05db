package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/interactivity/pkg/deep"
	"github.com/vango-dev/interactivity/pkg/dom"
	"github.com/vango-dev/interactivity/pkg/loop"
	"github.com/vango-dev/interactivity/pkg/reactive"
)

// ErrNoHandler is returned by Invoke when neither an action nor an effect
// is registered under the name.
var ErrNoHandler = errors.New("store: no handler")

// Handler is an action or effect body. A non-nil error, like a panic, is
// treated as the handler throwing.
type Handler func(Args) (any, error)

// Namespace is one registration call's payload.
type Namespace struct {
	Actions map[string]Handler
	Effects map[string]Handler
	Context map[string]any
}

// Args is the single argument object handlers receive.
type Args struct {
	// Context is the merged tree of the scope the directive lives in.
	Context *deep.Tree
	// Event is the triggering event for on directives, nil otherwise.
	Event *dom.Event
	// Ref is the element carrying the directive.
	Ref *html.Node
	// Values holds any further named bindings supplied by the caller.
	Values map[string]any

	Loop     *loop.Loop
	Document *dom.Document

	// Namespace is the namespace the handler was resolved in.
	Namespace string

	store *Store
}

// Call invokes another registered handler with the same arguments. path is
// "ns::name" or a bare name in the caller's namespace.
func (a Args) Call(path string) (any, error) {
	if a.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, path)
	}
	ns, name, ok := strings.Cut(path, "::")
	if !ok {
		ns, name = a.Namespace, path
	}
	return a.store.Invoke(ns, name, a)
}

// Store is the registry. It is owned by one event loop and is not safe for
// concurrent use.
type Store struct {
	rt     *reactive.Runtime
	logger *slog.Logger

	initialized bool
	actions     map[string]map[string]Handler
	effects     map[string]map[string]Handler
	root        *deep.Tree
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty store whose state lives in rt.
func New(rt *reactive.Runtime, opts ...Option) *Store {
	s := &Store{
		rt:     rt,
		logger: slog.Default().With("component", "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) init() {
	if s.initialized {
		return
	}
	s.initialized = true
	s.actions = make(map[string]map[string]Handler)
	s.effects = make(map[string]map[string]Handler)
	s.root = deep.New(s.rt)
}

// Runtime returns the reactive runtime the store's state lives in.
func (s *Store) Runtime() *reactive.Runtime {
	return s.rt
}

// RegisterNamespace merges handlers and default state into the store under
// id. State writes happen in one batch.
func (s *Store) RegisterNamespace(id string, ns Namespace) error {
	if id == "" || strings.ContainsAny(id, ".:") {
		return fmt.Errorf("store: invalid namespace %q", id)
	}
	s.init()

	addHandlers(s.actions, id, ns.Actions)
	addHandlers(s.effects, id, ns.Effects)

	var err error
	if ns.Context != nil {
		s.rt.Batch(func() {
			err = augment(s.root, id, ns.Context)
		})
	}
	if err != nil {
		return fmt.Errorf("store: namespace %q: %w", id, err)
	}
	s.logger.Debug("namespace registered",
		"namespace", id,
		"actions", len(ns.Actions),
		"effects", len(ns.Effects))
	return nil
}

func addHandlers(dst map[string]map[string]Handler, id string, src map[string]Handler) {
	if len(src) == 0 {
		return
	}
	m := dst[id]
	if m == nil {
		m = make(map[string]Handler, len(src))
		dst[id] = m
	}
	for name, h := range src {
		m[name] = h
	}
}

// augment writes every leaf of plain under prefix, descending into trees
// that already exist.
func augment(root *deep.Tree, prefix string, plain map[string]any) error {
	if cur, ok := root.Peek(prefix); !ok {
		return root.Set(prefix, plain)
	} else if _, isTree := cur.(*deep.Tree); !isTree {
		return root.Set(prefix, plain)
	}
	keys := make([]string, 0, len(plain))
	for k := range plain {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := prefix + "." + k
		if sub, ok := plain[k].(map[string]any); ok {
			if err := augment(root, path, sub); err != nil {
				return err
			}
			continue
		}
		if err := root.Set(path, plain[k]); err != nil {
			return err
		}
	}
	return nil
}

// Action returns the action registered under ns and name.
func (s *Store) Action(ns, name string) (Handler, bool) {
	s.init()
	h, ok := s.actions[ns][name]
	return h, ok
}

// Effect returns the effect registered under ns and name.
func (s *Store) Effect(ns, name string) (Handler, bool) {
	s.init()
	h, ok := s.effects[ns][name]
	return h, ok
}

// Invoke calls the action, or failing that the effect, registered under ns
// and name.
func (s *Store) Invoke(ns, name string, args Args) (any, error) {
	h, ok := s.Action(ns, name)
	if !ok {
		h, ok = s.Effect(ns, name)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s::%s", ErrNoHandler, ns, name)
	}
	return h(s.Bind(args, ns))
}

// Bind attaches the store to args so handlers can use Args.Call.
func (s *Store) Bind(args Args, ns string) Args {
	args.store = s
	args.Namespace = ns
	return args
}

// Context returns the root context tree. Each namespace's state is under
// its id.
func (s *Store) Context() *deep.Tree {
	s.init()
	return s.root
}

// Namespaces returns every namespace with handlers or state, sorted.
func (s *Store) Namespaces() []string {
	s.init()
	seen := make(map[string]bool)
	for id := range s.actions {
		seen[id] = true
	}
	for id := range s.effects {
		seen[id] = true
	}
	for _, id := range s.root.Keys() {
		seen[id] = true
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
