package directive

// Kind is one of the closed set of directive kinds. The numeric order is the
// order in which a node's directives are applied.
type Kind uint8

const (
	KindContext Kind = iota
	KindBody
	KindBind
	KindClass
	KindOn
	KindEffect
	KindInit
	KindIgnore

	numKinds
)

var kindNames = [numKinds]string{
	KindContext: "context",
	KindBody:    "body",
	KindBind:    "bind",
	KindClass:   "class",
	KindOn:      "on",
	KindEffect:  "effect",
	KindInit:    "init",
	KindIgnore:  "ignore",
}

// String returns the kind's attribute name.
func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind maps an attribute kind name to its Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Kinds returns every kind in application order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// AllowsSub reports whether several bindings of the kind, told apart by a
// sub-name, may sit on one node.
func (k Kind) AllowsSub() bool {
	switch k {
	case KindBind, KindClass, KindOn, KindEffect, KindInit:
		return true
	}
	return false
}

// RequiresSub reports whether a binding of the kind is meaningless without a
// sub-name: the attribute, class or event it targets.
func (k Kind) RequiresSub() bool {
	switch k {
	case KindBind, KindClass, KindOn:
		return true
	}
	return false
}
