package vdom

import (
	"strings"

	"golang.org/x/net/html"
)

// VNode is the in-memory representation of one directive-bearing element.
// Directive handlers write its Props; the rendering layer reconciles Props
// against the bound document node.
type VNode struct {
	Tag   string     // Element tag name (e.g., "div")
	Props Props      // Attributes the element should carry
	HID   string     // Hydration ID of the bound node
	Node  *html.Node // The document node this vnode describes
}

// Props holds attributes keyed by name. Values are strings for attributes;
// the "dangerouslySetInnerHTML" prop carries preserved inner markup.
type Props map[string]any

// InnerHTMLProp is the prop that pins an element's inner markup.
const InnerHTMLProp = "dangerouslySetInnerHTML"

// FromNode builds a VNode whose props mirror the node's current attributes.
func FromNode(n *html.Node, hid string) *VNode {
	v := &VNode{
		Tag:   n.Data,
		Props: make(Props, len(n.Attr)),
		HID:   hid,
		Node:  n,
	}
	for _, a := range n.Attr {
		v.Props[a.Key] = a.Val
	}
	return v
}

// Clone returns a copy with its own Props map.
func (v *VNode) Clone() *VNode {
	if v == nil {
		return nil
	}
	c := *v
	c.Props = make(Props, len(v.Props))
	for k, val := range v.Props {
		c.Props[k] = val
	}
	return &c
}

// ClassName returns the class prop, or "".
func (v *VNode) ClassName() string {
	s, _ := v.Props["class"].(string)
	return s
}

// IsInternalProp reports props that are never written as attributes.
func IsInternalProp(key string) bool {
	return key == InnerHTMLProp || key == "key" || isEventHandler(key)
}

func isEventHandler(key string) bool {
	return len(key) > 2 && strings.EqualFold(key[:2], "on") && !strings.Contains(key, "-")
}
