package directive

import (
	"errors"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/vango-dev/interactivity/pkg/dom"
	"github.com/vango-dev/interactivity/pkg/expr"
	"github.com/vango-dev/interactivity/pkg/reactive"
	"github.com/vango-dev/interactivity/pkg/render"
	"github.com/vango-dev/interactivity/pkg/scope"
	"github.com/vango-dev/interactivity/pkg/vdom"
)

// Config configures a Dispatcher.
type Config struct {
	// Prefix is the attribute prefix (data-<prefix>-<kind>).
	// Default: "wp".
	Prefix string

	// Document is the document being hydrated. Required.
	Document *dom.Document

	// Evaluator resolves expressions. Required.
	Evaluator *expr.Evaluator

	// Renderer receives element state. Default: a render.Reconciler over
	// Document.
	Renderer render.Renderer

	// Logger receives directive failures.
	// Default: slog.Default().With("component", "directive").
	Logger *slog.Logger

	// Observer receives dispatch events. Default: NopObserver.
	Observer Observer
}

// Dispatcher mounts directive-bearing nodes and keeps them reactive.
type Dispatcher struct {
	prefix   string
	doc      *dom.Document
	eval     *expr.Evaluator
	rt       *reactive.Runtime
	renderer render.Renderer
	logger   *slog.Logger
	observer Observer

	root      *scope.Scope
	owner     *reactive.Owner
	instances map[*html.Node]*instance
}

// instance is the mounted state of one directive-bearing node.
type instance struct {
	node *html.Node
	hid  string
	set  Set

	parent      *instance
	parentScope *scope.Scope
	parentOwner *reactive.Owner

	scope     *scope.Scope
	keepScope bool

	// owner holds everything mounted for the node; content is the owner its
	// descendants mount under (a child of owner for portaled nodes).
	owner   *reactive.Owner
	content *reactive.Owner

	ignored bool
	inner   string

	// origin is the parent the node was detached from by a body directive.
	origin *html.Node

	vnode *vdom.VNode
}

// New creates a dispatcher. The root scope is the evaluator's store context.
func New(cfg Config) *Dispatcher {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "directive")
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	if cfg.Renderer == nil {
		cfg.Renderer = render.NewReconciler(cfg.Document, render.WithLogger(cfg.Logger))
	}
	st := cfg.Evaluator.Store()
	return &Dispatcher{
		prefix:    cfg.Prefix,
		doc:       cfg.Document,
		eval:      cfg.Evaluator,
		rt:        st.Runtime(),
		renderer:  cfg.Renderer,
		logger:    cfg.Logger,
		observer:  cfg.Observer,
		root:      scope.NewRoot(st.Context()),
		owner:     reactive.NewOwner(nil),
		instances: make(map[*html.Node]*instance),
	}
}

// RootScope returns the scope backed by the store's root context.
func (d *Dispatcher) RootScope() *scope.Scope {
	return d.root
}

// Instances returns the number of mounted directive-bearing nodes.
func (d *Dispatcher) Instances() int {
	return len(d.instances)
}

// Mounted reports whether node has mounted directives.
func (d *Dispatcher) Mounted(node *html.Node) bool {
	_, ok := d.instances[node]
	return ok
}

// Scope returns the scope node's directives evaluate in.
func (d *Dispatcher) Scope(node *html.Node) (*scope.Scope, bool) {
	inst, ok := d.instances[node]
	if !ok {
		return nil, false
	}
	return inst.scope, true
}

// errList collects subtree failures during one mount pass. A nil list
// discards them; they are logged where they happen either way.
type errList struct {
	errs []error
}

func (l *errList) add(err error) {
	if l != nil && err != nil {
		l.errs = append(l.errs, err)
	}
}

// Mount mounts every directive-bearing node in the subtree rooted at node,
// in document order. Nodes already mounted are left alone. A subtree whose
// context literal is invalid is skipped; the returned error joins those
// failures while the rest of the subtree is still mounted.
func (d *Dispatcher) Mount(node *html.Node) error {
	parent, sc, owner, ignored := d.enclosing(node)
	if ignored {
		return nil
	}
	var errs errList
	d.mountTree(node, parent, sc, owner, &errs)
	return errors.Join(errs.errs...)
}

// enclosing finds the nearest mounted ancestor of n.
func (d *Dispatcher) enclosing(n *html.Node) (*instance, *scope.Scope, *reactive.Owner, bool) {
	for p := n.Parent; p != nil; p = p.Parent {
		if inst, ok := d.instances[p]; ok {
			if inst.ignored {
				return nil, nil, nil, true
			}
			return inst, inst.scope, inst.contentOwner(), false
		}
	}
	return nil, d.root, d.owner, false
}

func (inst *instance) contentOwner() *reactive.Owner {
	if inst.content != nil {
		return inst.content
	}
	return inst.owner
}

func (d *Dispatcher) mountTree(n *html.Node, parent *instance, sc *scope.Scope, owner *reactive.Owner, errs *errList) {
	switch n.Type {
	case html.ElementNode:
		if _, ok := d.instances[n]; ok {
			return
		}
		set, skipped := Parse(d.prefix, n)
		for _, err := range skipped {
			d.logger.Debug("attribute skipped", "hid", d.doc.HID(n), "error", err)
		}
		if set.Len() > 0 {
			if err := d.mountNode(n, set, parent, sc, owner, nil, nil, errs); err != nil {
				errs.add(err)
			}
			return
		}
	case html.DocumentNode:
	default:
		return
	}
	d.mountChildren(n, parent, sc, owner, errs)
}

func (d *Dispatcher) mountChildren(n *html.Node, parent *instance, sc *scope.Scope, owner *reactive.Owner, errs *errList) {
	for c := n.FirstChild; c != nil; {
		// A body directive moves c; remember where to continue.
		next := c.NextSibling
		d.mountTree(c, parent, sc, owner, errs)
		c = next
	}
}

// mountNode applies one node's directives in kind order. prev is the
// node's previous instance when remounting; reuse, when set, is a scope kept
// from it because the context literal did not change.
func (d *Dispatcher) mountNode(n *html.Node, set Set, parent *instance, sc *scope.Scope, owner *reactive.Owner, prev *instance, reuse *scope.Scope, errs *errList) error {
	inst := &instance{
		node:        n,
		hid:         d.doc.HID(n),
		set:         set,
		parent:      parent,
		parentScope: sc,
		parentOwner: owner,
		scope:       sc,
		owner:       reactive.NewOwner(owner),
	}
	if prev != nil {
		inst.origin = prev.origin
	}

	if set.Has(KindIgnore) {
		inst.ignored = true
		inst.inner = dom.InnerHTML(n)
		d.observer.OnDirective(KindIgnore, nil)
	}

	if b, ok := set.First(KindContext); ok {
		child, err := d.contextScope(inst, b, reuse)
		if err != nil {
			inst.owner.Dispose()
			return err
		}
		inst.scope = child
		inst.owner.OnCleanup(func() {
			if !inst.keepScope {
				child.Dispose()
			}
		})
	}

	d.instances[n] = inst
	inst.owner.OnCleanup(func() {
		if d.instances[n] == inst {
			delete(d.instances, n)
		}
	})

	if b, ok := set.First(KindBody); ok {
		d.mountBody(inst, b, errs)
		return nil
	}
	d.mountContent(inst, inst.owner, errs)
	return nil
}

// mountContent applies the directives after body, then mounts descendants.
func (d *Dispatcher) mountContent(inst *instance, owner *reactive.Owner, errs *errList) {
	inst.content = owner
	d.mountElement(inst, owner)
	d.mountOn(inst, owner)
	d.mountEffects(inst, owner)
	d.mountInits(inst, owner)
	if !inst.ignored {
		d.mountChildren(inst.node, inst, inst.scope, owner, errs)
	}
}

// Unmount disposes the directives of node and of every mounted node under
// it, including nodes a body directive moved elsewhere. Listeners are
// removed, effects dropped and init cleanups run once. Returns the number of
// mounted roots disposed.
func (d *Dispatcher) Unmount(node *html.Node) int {
	count := 0
	dom.Walk(node, func(n *html.Node) bool {
		if inst, ok := d.instances[n]; ok {
			inst.owner.Dispose()
			count++
			return false
		}
		return true
	})
	for _, inst := range d.instances {
		if inst.origin != nil && dom.Contains(node, inst.origin) && !inst.owner.IsDisposed() {
			inst.owner.Dispose()
			count++
		}
	}
	return count
}

// Refresh re-reads node's directives. When they are unchanged nothing is
// rebuilt and pinned markup is restored. Otherwise the node is remounted;
// its scope is kept if the context literal did not change. Reports whether
// the scope was reused.
func (d *Dispatcher) Refresh(node *html.Node) (bool, error) {
	inst, ok := d.instances[node]
	if !ok {
		return false, d.Mount(node)
	}

	set, _ := Parse(d.prefix, node)
	if set.Equal(&inst.set) {
		if inst.ignored && inst.vnode != nil {
			d.render(inst, inst.vnode)
		}
		return inst.scope != inst.parentScope, nil
	}

	var reuse *scope.Scope
	if b, ok := set.First(KindContext); ok && inst.scope.Reusable(inst.parentScope, b.Value) {
		reuse = inst.scope
		inst.keepScope = true
	}
	inst.owner.Dispose()

	if set.Len() == 0 {
		if reuse != nil {
			reuse.Dispose()
		}
		var errs errList
		d.mountChildren(node, inst.parent, inst.parentScope, inst.parentOwner, &errs)
		return false, errors.Join(errs.errs...)
	}
	var errs errList
	if err := d.mountNode(node, set, inst.parent, inst.parentScope, inst.parentOwner, inst, reuse, &errs); err != nil {
		errs.add(err)
	}
	return reuse != nil, errors.Join(errs.errs...)
}

// Close disposes everything the dispatcher mounted.
func (d *Dispatcher) Close() {
	d.owner.Dispose()
}

func (d *Dispatcher) render(inst *instance, v *vdom.VNode) {
	if err := d.renderer.Render(v, inst.node); err != nil {
		d.logger.Error("render failed", "hid", inst.hid, "error", err)
	}
}
