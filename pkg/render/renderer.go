package render

import (
	"fmt"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/vango-dev/interactivity/pkg/dom"
	"github.com/vango-dev/interactivity/pkg/vdom"
)

// Renderer mounts element trees into a document.
type Renderer interface {
	// Render reconciles node against tree. A nil tree detaches node.
	Render(tree *vdom.VNode, node *html.Node) error

	// CreatePortal mounts tree's node under container and returns a handle
	// that unmounts it.
	CreatePortal(tree *vdom.VNode, container *html.Node) (Portal, error)
}

// Portal is a subtree rendered away from its logical position.
type Portal interface {
	Container() *html.Node
	Close()
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the reconciler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Reconciler is the default Renderer over a dom.Document.
type Reconciler struct {
	doc     *dom.Document
	mounted map[*html.Node]*vdom.VNode
	portals map[*html.Node]*portal
	logger  *slog.Logger
	patches int
}

// NewReconciler creates a reconciler for doc.
func NewReconciler(doc *dom.Document, opts ...Option) *Reconciler {
	r := &Reconciler{
		doc:     doc,
		mounted: make(map[*html.Node]*vdom.VNode),
		portals: make(map[*html.Node]*portal),
		logger:  slog.Default().With("component", "render"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render implements Renderer.
func (r *Reconciler) Render(tree *vdom.VNode, node *html.Node) error {
	if node == nil {
		return fmt.Errorf("render: nil target node")
	}
	if tree == nil {
		delete(r.mounted, node)
		r.doc.Detach(node)
		return nil
	}

	prev, ok := r.mounted[node]
	r.mounted[node] = tree.Clone()
	if ok {
		for _, p := range vdom.DiffProps(r.doc.HID(node), prev.Props, tree.Props) {
			r.apply(node, p)
		}
	}
	return r.restoreInner(tree, node)
}

func (r *Reconciler) apply(node *html.Node, p vdom.Patch) {
	r.patches++
	switch p.Op {
	case vdom.PatchSetAttr:
		r.doc.SetAttr(node, p.Key, p.Value)
	case vdom.PatchRemoveAttr:
		r.doc.RemoveAttr(node, p.Key)
	default:
		r.logger.Warn("unsupported patch", "patch", p.String())
	}
}

func (r *Reconciler) restoreInner(tree *vdom.VNode, node *html.Node) error {
	markup, ok := tree.Props[vdom.InnerHTMLProp].(string)
	if !ok {
		return nil
	}
	return r.doc.SetInnerHTML(node, markup)
}

// Mounted returns the last tree rendered into node.
func (r *Reconciler) Mounted(node *html.Node) (*vdom.VNode, bool) {
	v, ok := r.mounted[node]
	return v, ok
}

// Patches returns the number of prop patches applied since creation.
func (r *Reconciler) Patches() int {
	return r.patches
}

// CreatePortal implements Renderer. Opening a portal for a node that is
// already mounted in container returns the existing portal.
func (r *Reconciler) CreatePortal(tree *vdom.VNode, container *html.Node) (Portal, error) {
	if tree == nil || tree.Node == nil {
		return nil, fmt.Errorf("render: portal needs a bound node")
	}
	if container == nil {
		return nil, fmt.Errorf("render: portal needs a container")
	}
	if p, ok := r.portals[tree.Node]; ok && !p.closed && p.container == container {
		return p, r.Render(tree, tree.Node)
	}
	r.doc.AppendChild(container, tree.Node)
	p := &portal{r: r, node: tree.Node, container: container}
	r.portals[tree.Node] = p
	return p, r.Render(tree, tree.Node)
}

type portal struct {
	r         *Reconciler
	node      *html.Node
	container *html.Node
	closed    bool
}

func (p *portal) Container() *html.Node {
	return p.container
}

// Close removes the portal's node from its container. Idempotent.
func (p *portal) Close() {
	if p.closed {
		return
	}
	p.closed = true
	delete(p.r.portals, p.node)
	delete(p.r.mounted, p.node)
	if p.node.Parent == p.container {
		p.r.doc.Detach(p.node)
	}
}

var _ Renderer = (*Reconciler)(nil)
