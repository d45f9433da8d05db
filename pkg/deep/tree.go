// Package deep wraps nested plain mappings in reactive cells so that every
// path is both an ordinary value and a tracked dependency.
//
// A Tree maps keys to cells. A cell holds either a leaf value (number, string,
// bool, slice, or any other non-map value) or a nested *Tree. Merging a child
// tree over an ancestor aliases the ancestor's cells for keys the child does
// not declare, so a write through an inherited path is seen by every tree
// sharing that cell.
package deep

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vango-dev/interactivity/pkg/reactive"
)

// ErrShapeMismatch is returned by Merge when one tree holds a nested mapping
// and the other a leaf at the same path.
var ErrShapeMismatch = errors.New("deep: shape mismatch")

// ErrNotATree is returned by Set when an intermediate path segment is a leaf.
var ErrNotATree = errors.New("deep: path crosses a leaf")

// ShapeError describes a Merge shape conflict.
type ShapeError struct {
	Path string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("deep: shape mismatch at %q: nested object and leaf cannot be merged", e.Path)
}

// Unwrap lets errors.Is match ErrShapeMismatch.
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

// Tree is a deep-reactive mapping.
type Tree struct {
	rt    *reactive.Runtime
	cells map[string]*reactive.Signal[any]
	order []string

	// local marks keys declared by this tree's own source object, as opposed
	// to cells aliased in from an ancestor by Merge.
	local map[string]bool
}

// New returns an empty tree bound to rt.
func New(rt *reactive.Runtime) *Tree {
	return &Tree{
		rt:    rt,
		cells: make(map[string]*reactive.Signal[any]),
		local: make(map[string]bool),
	}
}

// Wrap converts a plain nested mapping into a Tree. Nested map[string]any
// values recurse; everything else, slices included, becomes a single cell.
func Wrap(rt *reactive.Runtime, plain map[string]any) *Tree {
	t := New(rt)
	keys := make([]string, 0, len(plain))
	for k := range plain {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.put(k, reactive.NewSignal[any](rt, wrapValue(rt, plain[k])), true)
	}
	return t
}

func wrapValue(rt *reactive.Runtime, v any) any {
	if m, ok := v.(map[string]any); ok {
		return Wrap(rt, m)
	}
	return v
}

func (t *Tree) put(key string, cell *reactive.Signal[any], local bool) {
	if _, exists := t.cells[key]; !exists {
		t.order = append(t.order, key)
	}
	t.cells[key] = cell
	t.local[key] = local
}

// Runtime returns the runtime the tree's cells belong to.
func (t *Tree) Runtime() *reactive.Runtime {
	return t.rt
}

// Keys returns the tree's keys in insertion order.
func (t *Tree) Keys() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of keys.
func (t *Tree) Len() int {
	return len(t.order)
}

// Has reports whether key exists at the top level.
func (t *Tree) Has(key string) bool {
	_, ok := t.cells[key]
	return ok
}

// Declared reports whether key was declared by this tree rather than aliased
// from an ancestor.
func (t *Tree) Declared(key string) bool {
	return t.local[key]
}

// CellOf returns the top-level cell for key.
func (t *Tree) CellOf(key string) (*reactive.Signal[any], bool) {
	c, ok := t.cells[key]
	return c, ok
}

// Merge merges source into target following the aliasing rules:
//
//   - a key missing from target is aliased: target now holds source's cell
//   - a key holding nested trees on both sides is merged recursively
//   - a key holding a leaf in target keeps target's leaf
//
// Shapes are checked before anything is aliased, so a ShapeError leaves
// target untouched. Merge reads with Peek and subscribes nothing.
func Merge(target, source *Tree) error {
	if target == nil || source == nil {
		return nil
	}
	if err := checkShapes(target, source, ""); err != nil {
		return err
	}
	merge(target, source)
	return nil
}

func checkShapes(target, source *Tree, prefix string) error {
	for _, k := range source.order {
		tc, ok := target.cells[k]
		if !ok {
			continue
		}
		tt, tIsTree := tc.Peek().(*Tree)
		st, sIsTree := source.cells[k].Peek().(*Tree)
		path := joinPath(prefix, k)
		switch {
		case tIsTree && sIsTree:
			if tt == st {
				continue
			}
			if err := checkShapes(tt, st, path); err != nil {
				return err
			}
		case tIsTree != sIsTree:
			return &ShapeError{Path: path}
		}
	}
	return nil
}

func merge(target, source *Tree) {
	for _, k := range source.order {
		sc := source.cells[k]
		tc, ok := target.cells[k]
		if !ok {
			target.put(k, sc, false)
			continue
		}
		tt, tIsTree := tc.Peek().(*Tree)
		st, sIsTree := sc.Peek().(*Tree)
		if tIsTree && sIsTree && tt != st {
			merge(tt, st)
		}
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// splitPath splits a dotted path. An empty path yields no segments.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Cell returns the cell at a dotted path without tracking. The intermediate
// segments must be nested trees.
func (t *Tree) Cell(path string) (*reactive.Signal[any], bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, false
	}
	cur := t
	for i, seg := range segs {
		c, ok := cur.cells[seg]
		if !ok {
			return nil, false
		}
		if i == len(segs)-1 {
			return c, true
		}
		next, ok := c.Peek().(*Tree)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// Get reads the value at a dotted path, subscribing the current listener to
// every cell along the path. Nested trees are returned as *Tree.
func (t *Tree) Get(path string) (any, bool) {
	return t.lookup(path, true)
}

// Peek reads the value at a dotted path without tracking.
func (t *Tree) Peek(path string) (any, bool) {
	return t.lookup(path, false)
}

func (t *Tree) lookup(path string, tracked bool) (any, bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return t, true
	}
	cur := t
	for i, seg := range segs {
		c, ok := cur.cells[seg]
		if !ok {
			return nil, false
		}
		var v any
		if tracked {
			v = c.Get()
		} else {
			v = c.Peek()
		}
		if i == len(segs)-1 {
			return v, true
		}
		next, ok := v.(*Tree)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

// Set writes the value at a dotted path. Map values are wrapped into nested
// trees. Missing intermediate keys are created as local nested trees; writing
// through an aliased cell writes the ancestor's cell.
func (t *Tree) Set(path string, value any) error {
	segs := splitPath(path)
	if len(segs) == 0 {
		return fmt.Errorf("deep: empty path")
	}
	cur := t
	for _, seg := range segs[:len(segs)-1] {
		c, ok := cur.cells[seg]
		if !ok {
			sub := New(t.rt)
			cur.put(seg, reactive.NewSignal[any](t.rt, sub), true)
			cur = sub
			continue
		}
		next, ok := c.Peek().(*Tree)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotATree, path)
		}
		cur = next
	}

	last := segs[len(segs)-1]
	wrapped := wrapValue(t.rt, value)
	if c, ok := cur.cells[last]; ok {
		c.Set(wrapped)
		return nil
	}
	cur.put(last, reactive.NewSignal[any](t.rt, wrapped), true)
	return nil
}

// MustSet is Set for paths known to be valid; it panics on error.
func (t *Tree) MustSet(path string, value any) {
	if err := t.Set(path, value); err != nil {
		panic(err)
	}
}

// Snapshot returns the tree as a plain nested map, read without tracking.
func (t *Tree) Snapshot() map[string]any {
	out := make(map[string]any, len(t.order))
	for _, k := range t.order {
		v := t.cells[k].Peek()
		if sub, ok := v.(*Tree); ok {
			out[k] = sub.Snapshot()
			continue
		}
		out[k] = v
	}
	return out
}

// String renders the tree's snapshot for debugging.
func (t *Tree) String() string {
	return fmt.Sprintf("%v", t.Snapshot())
}
