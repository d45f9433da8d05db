package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/interactivity/pkg/vdom"
)

// HIDAttr is the attribute carrying hydration IDs in rendered output.
const HIDAttr = "data-hid"

// ErrNoBody is returned when a document has no body element.
var ErrNoBody = errors.New("dom: document has no body")

// Document is a parsed HTML document.
type Document struct {
	root *html.Node
	body *html.Node

	hids  map[*html.Node]string
	byHID map[string]*html.Node
	gen   *vdom.HIDGenerator

	listeners map[*html.Node][]*listener
	active    *html.Node

	mutations []vdom.Patch
	observers []*observer
}

type observer struct {
	fn func(vdom.Patch)
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return NewDocument(root), nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// NewDocument wraps an already parsed tree.
func NewDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		hids:      make(map[*html.Node]string),
		byHID:     make(map[string]*html.Node),
		gen:       vdom.NewHIDGenerator(),
		listeners: make(map[*html.Node][]*listener),
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the body element, or nil.
func (d *Document) Body() *html.Node {
	if d.body != nil {
		return d.body
	}
	Walk(d.root, func(n *html.Node) bool {
		if d.body != nil {
			return false
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			d.body = n
			return false
		}
		return true
	})
	return d.body
}

// Walk visits n and its descendants depth first in document order. Returning
// false from visit skips the node's children.
func Walk(n *html.Node, visit func(*html.Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		Walk(c, visit)
		c = next
	}
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

// Connected reports whether n is attached to the document.
func (d *Document) Connected(n *html.Node) bool {
	return Contains(d.root, n)
}

// HID returns the node's hydration ID, assigning one on first use.
func (d *Document) HID(n *html.Node) string {
	if n == nil {
		return ""
	}
	if id, ok := d.hids[n]; ok {
		return id
	}
	id := d.gen.Next()
	d.hids[n] = id
	d.byHID[id] = n
	return id
}

// ByHID returns the node with the given hydration ID.
func (d *Document) ByHID(id string) (*html.Node, bool) {
	n, ok := d.byHID[id]
	return n, ok
}

// ============================================================================
// Attributes
// ============================================================================

// Attr returns the value of the named attribute.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the node carries the attribute.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr sets an attribute. Writing the current value is not a mutation.
func (d *Document) SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			if a.Val == val {
				return
			}
			n.Attr[i].Val = val
			d.record(vdom.Patch{Op: vdom.PatchSetAttr, HID: d.HID(n), Key: key, Value: val})
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	d.record(vdom.Patch{Op: vdom.PatchSetAttr, HID: d.HID(n), Key: key, Value: val})
}

// RemoveAttr removes an attribute if present.
func (d *Document) RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			d.record(vdom.Patch{Op: vdom.PatchRemoveAttr, HID: d.HID(n), Key: key})
			return
		}
	}
}

// ============================================================================
// Classes
// ============================================================================

// Classes returns the node's class tokens.
func Classes(n *html.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

// HasClass reports whether name is one of the node's class tokens.
func HasClass(n *html.Node, name string) bool {
	for _, c := range Classes(n) {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass adds a class token if absent.
func (d *Document) AddClass(n *html.Node, name string) {
	if HasClass(n, name) {
		return
	}
	d.SetAttr(n, "class", strings.Join(append(Classes(n), name), " "))
}

// RemoveClass removes every occurrence of a class token. Other tokens are
// kept intact, including ones that contain name as a substring.
func (d *Document) RemoveClass(n *html.Node, name string) {
	if !HasClass(n, name) {
		return
	}
	d.SetAttr(n, "class", WithoutClass(Classes(n), name))
}

// WithoutClass joins tokens, dropping name.
func WithoutClass(tokens []string, name string) string {
	kept := tokens[:0:0]
	for _, c := range tokens {
		if c != name {
			kept = append(kept, c)
		}
	}
	return strings.Join(kept, " ")
}

// ============================================================================
// Focus
// ============================================================================

// Focus makes n the active element. Detached nodes cannot take focus.
func (d *Document) Focus(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || !d.Connected(n) {
		return false
	}
	if d.active == n {
		return true
	}
	d.active = n
	d.record(vdom.Patch{Op: vdom.PatchFocus, HID: d.HID(n)})
	return true
}

// Blur drops focus from n if it is the active element.
func (d *Document) Blur(n *html.Node) {
	if d.active != n || n == nil {
		return
	}
	d.active = nil
	d.record(vdom.Patch{Op: vdom.PatchBlur, HID: d.HID(n)})
}

// ActiveElement returns the focused element, or the body when nothing is
// focused or the focused node was detached.
func (d *Document) ActiveElement() *html.Node {
	if d.active != nil && d.Connected(d.active) {
		return d.active
	}
	return d.Body()
}

// ============================================================================
// Structure
// ============================================================================

// AppendChild moves child under parent.
func (d *Document) AppendChild(parent, child *html.Node) {
	if child.Parent == parent && parent.LastChild == child {
		return
	}
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.AppendChild(child)
	d.record(vdom.Patch{Op: vdom.PatchInsertNode, HID: d.HID(child), ParentID: d.HID(parent)})
}

// Detach removes n from its parent.
func (d *Document) Detach(n *html.Node) {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
	d.record(vdom.Patch{Op: vdom.PatchRemoveNode, HID: d.HID(n)})
}

// InnerHTML renders the node's children.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// SetInnerHTML replaces the node's children with the parsed fragment.
func (d *Document) SetInnerHTML(n *html.Node, markup string) error {
	if InnerHTML(n) == markup {
		return nil
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		return fmt.Errorf("dom: set inner html: %w", err)
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	d.record(vdom.Patch{Op: vdom.PatchSetInnerHTML, HID: d.HID(n), Value: markup})
	return nil
}

// ============================================================================
// Queries
// ============================================================================

// Query returns the first element under root matching the CSS selector.
func Query(root *html.Node, selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: selector %q: %w", selector, err)
	}
	return sel.MatchFirst(root), nil
}

// QueryAll returns every element under root matching the CSS selector.
func QueryAll(root *html.Node, selector string) ([]*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("dom: selector %q: %w", selector, err)
	}
	return sel.MatchAll(root), nil
}

// ============================================================================
// Mutation log
// ============================================================================

func (d *Document) record(p vdom.Patch) {
	d.mutations = append(d.mutations, p)
	for _, o := range d.observers {
		o.fn(p)
	}
}

// Mutations returns the patches applied since the last reset.
func (d *Document) Mutations() []vdom.Patch {
	return append([]vdom.Patch(nil), d.mutations...)
}

// ResetMutations clears the mutation log.
func (d *Document) ResetMutations() {
	d.mutations = nil
}

// Observe calls fn for every later mutation. The returned func stops it.
func (d *Document) Observe(fn func(vdom.Patch)) func() {
	o := &observer{fn: fn}
	d.observers = append(d.observers, o)
	return func() {
		for i, cur := range d.observers {
			if cur == o {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

// ============================================================================
// Rendering
// ============================================================================

// RenderOptions controls Render.
type RenderOptions struct {
	// HIDs writes each assigned hydration ID as a data-hid attribute.
	HIDs bool
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer, opts RenderOptions) error {
	if !opts.HIDs || len(d.hids) == 0 {
		return html.Render(w, d.root)
	}
	return html.Render(w, d.cloneWithHIDs(d.root))
}

func (d *Document) cloneWithHIDs(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	if id, ok := d.hids[n]; ok && n.Type == html.ElementNode {
		c.Attr = append(c.Attr, html.Attribute{Key: HIDAttr, Val: id})
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(d.cloneWithHIDs(ch))
	}
	return c
}

// AssignHIDs gives every element a hydration ID in document order. Two
// documents parsed from the same markup get the same IDs.
func (d *Document) AssignHIDs() {
	Walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			d.HID(n)
		}
		return true
	})
}

// RenderNode writes a single node and its subtree.
func (d *Document) RenderNode(w io.Writer, n *html.Node, opts RenderOptions) error {
	if !opts.HIDs {
		return html.Render(w, n)
	}
	return html.Render(w, d.cloneWithHIDs(n))
}
