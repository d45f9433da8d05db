// Package scope implements context propagation: a tree of scopes that mirrors
// the nesting of context directives in the document.
//
// Each scope owns one merged deep tree. A child scope wraps the object it
// declares and merges its parent's tree underneath, so undeclared paths alias
// the nearest ancestor's cells and declared paths shadow them.
package scope

import (
	"strings"
	"sync/atomic"

	"github.com/vango-dev/interactivity/pkg/deep"
	"github.com/vango-dev/interactivity/pkg/reactive"
)

// Scope is a node in the context tree.
type Scope struct {
	id       uint64
	parent   *Scope
	children []*Scope
	ctx      *deep.Tree

	// raw is the literal the scope was declared with. Empty for the root.
	raw string

	disposed bool
}

var scopeIDs atomic.Uint64

func nextScopeID() uint64 {
	return scopeIDs.Add(1)
}

// NewRoot creates a root scope over ctx, typically the store's root context.
func NewRoot(ctx *deep.Tree) *Scope {
	return &Scope{id: nextScopeID(), ctx: ctx}
}

// Child creates a scope declaring local on top of s. raw is the literal the
// local object was parsed from; it identifies the declaration for reuse.
// On a shape mismatch no scope is created.
func (s *Scope) Child(rt *reactive.Runtime, raw string, local map[string]any) (*Scope, error) {
	tree := deep.Wrap(rt, local)
	if err := deep.Merge(tree, s.ctx); err != nil {
		return nil, err
	}
	child := &Scope{
		id:     nextScopeID(),
		parent: s,
		ctx:    tree,
		raw:    raw,
	}
	s.children = append(s.children, child)
	return child, nil
}

// ID returns a process-unique scope identifier.
func (s *Scope) ID() uint64 {
	return s.id
}

// Context returns the scope's merged tree.
func (s *Scope) Context() *deep.Tree {
	return s.ctx
}

// Parent returns the enclosing scope, or nil for the root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Children returns the scopes declared directly under s, in creation order.
func (s *Scope) Children() []*Scope {
	return s.children
}

// Raw returns the literal the scope was declared with.
func (s *Scope) Raw() string {
	return s.raw
}

// Reusable reports whether s can stand for a declaration of raw under parent.
func (s *Scope) Reusable(parent *Scope, raw string) bool {
	return s != nil && !s.disposed && s.parent == parent && s.raw == raw
}

// Declares reports whether the scope itself declares the dotted path, as
// opposed to inheriting it. Every segment must be declared locally.
func (s *Scope) Declares(path string) bool {
	cur := s.ctx
	segs := strings.Split(path, ".")
	for i, seg := range segs {
		if !cur.Declared(seg) {
			return false
		}
		if i == len(segs)-1 {
			return true
		}
		next, ok := cur.Peek(seg)
		if !ok {
			return false
		}
		sub, ok := next.(*deep.Tree)
		if !ok {
			return false
		}
		cur = sub
	}
	return false
}

// Owner returns the nearest scope, starting at s, that declares path.
// Returns nil when no scope on the chain declares it.
func (s *Scope) Owner(path string) *Scope {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.parent == nil {
			if _, ok := cur.ctx.Peek(path); ok {
				return cur
			}
			return nil
		}
		if cur.Declares(path) {
			return cur
		}
	}
	return nil
}

// Disposed reports whether the scope was disposed.
func (s *Scope) Disposed() bool {
	return s.disposed
}

// Dispose detaches the scope and its descendants from the tree.
func (s *Scope) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	for i := len(s.children) - 1; i >= 0; i-- {
		s.children[i].Dispose()
	}
	s.children = nil
	if s.parent != nil {
		for i, c := range s.parent.children {
			if c == s {
				s.parent.children = append(s.parent.children[:i], s.parent.children[i+1:]...)
				break
			}
		}
	}
}
