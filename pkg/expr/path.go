package expr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned for expressions that cannot be parsed.
var ErrInvalidPath = errors.New("expr: invalid path")

// Category restricts where a path may resolve.
type Category uint8

const (
	// Any resolves actions, then effects, then context state.
	Any Category = iota
	Actions
	Effects
	Context
)

func (c Category) String() string {
	switch c {
	case Actions:
		return "actions"
	case Effects:
		return "effects"
	case Context:
		return "context"
	default:
		return "any"
	}
}

// Path is a parsed directive expression.
type Path struct {
	Category  Category
	Namespace string
	Member    string // dotted member path inside the namespace
}

// String returns the canonical "ns::member" form.
func (p Path) String() string {
	if p.Category == Any {
		return p.Namespace + "::" + p.Member
	}
	return p.Category.String() + "." + p.Namespace + "." + p.Member
}

// ContextPath returns the path of the state leaf in a scope's tree.
func (p Path) ContextPath() string {
	return p.Namespace + "." + p.Member
}

// ParsePath parses "ns::a.b" and the older "actions.ns.a.b",
// "effects.ns.a.b" and "context.ns.a.b" forms.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if ns, member, ok := strings.Cut(s, "::"); ok {
		if !validNamespace(ns) || !validMember(member) {
			return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, s)
		}
		return Path{Category: Any, Namespace: ns, Member: member}, nil
	}

	head, rest, ok := strings.Cut(s, ".")
	if !ok {
		return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, s)
	}
	var cat Category
	switch head {
	case "actions":
		cat = Actions
	case "effects":
		cat = Effects
	case "context":
		cat = Context
	default:
		return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, s)
	}
	ns, member, ok := strings.Cut(rest, ".")
	if !ok || !validNamespace(ns) || !validMember(member) {
		return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, s)
	}
	return Path{Category: cat, Namespace: ns, Member: member}, nil
}

func validNamespace(ns string) bool {
	return ns != "" && !strings.ContainsAny(ns, ". \t:")
}

func validMember(m string) bool {
	if m == "" || strings.ContainsAny(m, " \t:") {
		return false
	}
	for _, seg := range strings.Split(m, ".") {
		if seg == "" {
			return false
		}
	}
	return true
}
