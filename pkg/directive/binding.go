package directive

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DefaultPrefix is the attribute prefix used when none is configured.
const DefaultPrefix = "wp"

// markerKind marks interactive regions. It is accepted and has no effect on
// evaluation.
const markerKind = "interactive"

var (
	// ErrNotDirective is returned for attributes outside the directive
	// namespace.
	ErrNotDirective = errors.New("directive: not a directive attribute")
	// ErrUnknownKind is returned for directive attributes naming no kind.
	ErrUnknownKind = errors.New("directive: unknown kind")
	// ErrMarker is returned for the interactive region marker.
	ErrMarker = errors.New("directive: region marker")
)

// ValueError reports a directive attribute whose value could not be used.
// It keeps the raw attribute so tools can point at it in the page source.
type ValueError struct {
	Attr  string
	Value string
	Err   error
}

func (e *ValueError) Error() string { return e.Err.Error() }

func (e *ValueError) Unwrap() error { return e.Err }

// Binding associates one element attribute with a directive kind.
type Binding struct {
	Kind  Kind
	Sub   string // attribute, class, event or effect name; may be empty
	Value string // the expression, or the JSON literal for context
	Attr  string // the full attribute name
}

// ParseName splits a directive attribute name of the form
// data-<prefix>-<kind> or data-<prefix>-<kind>-<sub>. The sub-name may also
// follow "--" or "." (data-wp-on--click, data-wp-on.click).
func ParseName(prefix, name string) (Kind, string, error) {
	head := "data-" + prefix + "-"
	if !strings.HasPrefix(name, head) {
		return 0, "", ErrNotDirective
	}
	rest := name[len(head):]
	kindName, sub := rest, ""
	if i := strings.IndexAny(rest, "-."); i >= 0 {
		kindName, sub = rest[:i], strings.TrimLeft(rest[i:], "-.")
	}
	if kindName == markerKind && sub == "" {
		return 0, "", ErrMarker
	}
	k, ok := ParseKind(kindName)
	if !ok {
		return 0, "", fmt.Errorf("%w: %q", ErrUnknownKind, kindName)
	}
	if sub != "" && !k.AllowsSub() {
		return 0, "", fmt.Errorf("%w: %s takes no sub-name (%q)", ErrUnknownKind, k, sub)
	}
	if sub == "" && k.RequiresSub() {
		return 0, "", fmt.Errorf("%w: %s needs a sub-name", ErrUnknownKind, k)
	}
	return k, sub, nil
}

// Set is a node's bindings grouped by kind, in attribute order within a
// kind.
type Set struct {
	byKind [numKinds][]Binding
}

// Of returns the bindings of kind k.
func (s *Set) Of(k Kind) []Binding {
	return s.byKind[k]
}

// First returns the first binding of kind k.
func (s *Set) First(k Kind) (Binding, bool) {
	if len(s.byKind[k]) == 0 {
		return Binding{}, false
	}
	return s.byKind[k][0], true
}

// Has reports whether the node carries a binding of kind k.
func (s *Set) Has(k Kind) bool {
	return len(s.byKind[k]) > 0
}

// Len returns the number of bindings.
func (s *Set) Len() int {
	n := 0
	for _, list := range s.byKind {
		n += len(list)
	}
	return n
}

// Equal reports whether two sets hold the same bindings.
func (s *Set) Equal(o *Set) bool {
	for k := range s.byKind {
		a, b := s.byKind[k], o.byKind[k]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}

// Parse collects the directive bindings on n. Attributes that look like
// directives but name no known kind are returned as skipped errors; they do
// not stop parsing.
func Parse(prefix string, n *html.Node) (Set, []error) {
	var (
		set     Set
		skipped []error
	)
	for _, a := range n.Attr {
		if a.Namespace != "" {
			continue
		}
		k, sub, err := ParseName(prefix, a.Key)
		switch {
		case err == nil:
		case errors.Is(err, ErrNotDirective), errors.Is(err, ErrMarker):
			continue
		default:
			skipped = append(skipped, fmt.Errorf("%s: %w", a.Key, err))
			continue
		}
		if !k.AllowsSub() && set.Has(k) {
			skipped = append(skipped, fmt.Errorf("%s: duplicate %s directive", a.Key, k))
			continue
		}
		set.byKind[k] = append(set.byKind[k], Binding{Kind: k, Sub: sub, Value: a.Val, Attr: a.Key})
	}
	return set, skipped
}

// String returns the binding as kind.sub="value".
func (b Binding) String() string {
	if b.Sub == "" {
		return fmt.Sprintf("%s=%q", b.Kind, b.Value)
	}
	return fmt.Sprintf("%s.%s=%q", b.Kind, b.Sub, b.Value)
}
