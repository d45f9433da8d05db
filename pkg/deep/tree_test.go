package deep

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/interactivity/pkg/reactive"
)

func TestWrapSnapshot(t *testing.T) {
	rt := reactive.NewRuntime()
	plain := map[string]any{
		"count": 1.0,
		"items": []any{"a", "b"},
		"core":  map[string]any{"open": false, "label": "x"},
	}

	tree := Wrap(rt, plain)

	if diff := cmp.Diff(plain, tree.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
	if _, ok := tree.Cell("items"); !ok {
		t.Error("slices should be a single leaf cell")
	}
	if _, ok := tree.Cell("items.0"); ok {
		t.Error("slices should not be addressable by index")
	}
}

func TestMergeAliasesInheritedCells(t *testing.T) {
	rt := reactive.NewRuntime()
	parent := Wrap(rt, map[string]any{"count": 0.0, "core": map[string]any{"open": false}})
	child := Wrap(rt, map[string]any{})

	if err := Merge(child, parent); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	pc, _ := parent.Cell("count")
	cc, _ := child.Cell("count")
	if pc != cc {
		t.Error("child should alias the parent's cell")
	}
	if child.Declared("count") {
		t.Error("aliased key should not be marked as declared")
	}
}

func TestInheritedWriteVisibleToSibling(t *testing.T) {
	rt := reactive.NewRuntime()
	root := Wrap(rt, map[string]any{"count": 0.0})
	a := Wrap(rt, map[string]any{})
	b := Wrap(rt, map[string]any{})
	if err := Merge(a, root); err != nil {
		t.Fatal(err)
	}
	if err := Merge(b, root); err != nil {
		t.Fatal(err)
	}

	if err := a.Set("count", 1.0); err != nil {
		t.Fatal(err)
	}

	if v, _ := b.Peek("count"); v != 1.0 {
		t.Errorf("sibling sees count = %v, want 1", v)
	}
	if v, _ := root.Peek("count"); v != 1.0 {
		t.Errorf("root sees count = %v, want 1", v)
	}
}

func TestShadowedLeafIsNotLinked(t *testing.T) {
	rt := reactive.NewRuntime()
	root := Wrap(rt, map[string]any{"count": 0.0})
	shadow := Wrap(rt, map[string]any{"count": 10.0})
	sibling := Wrap(rt, map[string]any{})
	if err := Merge(shadow, root); err != nil {
		t.Fatal(err)
	}
	if err := Merge(sibling, root); err != nil {
		t.Fatal(err)
	}

	shadow.MustSet("count", 11.0)
	root.MustSet("count", 5.0)

	if v, _ := shadow.Peek("count"); v != 11.0 {
		t.Errorf("shadow count = %v, want 11", v)
	}
	if v, _ := sibling.Peek("count"); v != 5.0 {
		t.Errorf("sibling count = %v, want 5", v)
	}
	if !shadow.Declared("count") {
		t.Error("shadowing key should be declared")
	}
}

func TestMergeRecursesIntoNestedTrees(t *testing.T) {
	rt := reactive.NewRuntime()
	parent := Wrap(rt, map[string]any{"core": map[string]any{"open": false, "label": "img"}})
	child := Wrap(rt, map[string]any{"core": map[string]any{"open": true}})

	if err := Merge(child, parent); err != nil {
		t.Fatal(err)
	}

	want := map[string]any{"core": map[string]any{"open": true, "label": "img"}}
	if diff := cmp.Diff(want, child.Snapshot()); diff != "" {
		t.Errorf("merged snapshot mismatch (-want +got):\n%s", diff)
	}

	pl, _ := parent.Cell("core.label")
	cl, _ := child.Cell("core.label")
	if pl != cl {
		t.Error("nested inherited leaf should be aliased")
	}
	po, _ := parent.Cell("core.open")
	co, _ := child.Cell("core.open")
	if po == co {
		t.Error("nested declared leaf should not be aliased")
	}
}

func TestMergeShapeMismatchLeavesTargetUntouched(t *testing.T) {
	rt := reactive.NewRuntime()
	parent := Wrap(rt, map[string]any{"extra": 1.0, "core": map[string]any{"open": false}})
	child := Wrap(rt, map[string]any{"core": "flat"})

	err := Merge(child, parent)

	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("Merge() error = %v, want ErrShapeMismatch", err)
	}
	var se *ShapeError
	if !errors.As(err, &se) || se.Path != "core" {
		t.Errorf("ShapeError path = %v, want core", err)
	}
	if child.Has("extra") {
		t.Error("failed merge should not alias anything")
	}
}

func TestGetTracksEveryCellOnPath(t *testing.T) {
	rt := reactive.NewRuntime()
	tree := Wrap(rt, map[string]any{"core": map[string]any{"open": false}})

	ids := rt.Collect(func() {
		tree.Get("core.open")
	})

	core, _ := tree.Cell("core")
	open, _ := tree.Cell("core.open")
	if diff := cmp.Diff([]uint64{core.ID(), open.ID()}, ids); diff != "" {
		t.Errorf("tracked reads mismatch (-want +got):\n%s", diff)
	}
	if got := rt.Collect(func() { tree.Peek("core.open") }); len(got) != 0 {
		t.Errorf("Peek tracked %v", got)
	}
}

func TestSetCreatesIntermediateTrees(t *testing.T) {
	rt := reactive.NewRuntime()
	tree := Wrap(rt, map[string]any{"leaf": 1.0})

	if err := tree.Set("a.b.c", "x"); err != nil {
		t.Fatal(err)
	}
	if v, ok := tree.Peek("a.b.c"); !ok || v != "x" {
		t.Errorf("Peek(a.b.c) = %v, %v", v, ok)
	}
	if err := tree.Set("leaf.x", 1); !errors.Is(err, ErrNotATree) {
		t.Errorf("Set through leaf error = %v, want ErrNotATree", err)
	}
}

func TestSetMapReplacesNestedTreeReactively(t *testing.T) {
	rt := reactive.NewRuntime()
	owner := reactive.NewOwner(nil)
	defer owner.Dispose()
	tree := Wrap(rt, map[string]any{"core": map[string]any{"open": false}})

	var seen []any
	rt.CreateEffect(owner, func() reactive.Cleanup {
		v, _ := tree.Get("core.open")
		seen = append(seen, v)
		return nil
	})

	tree.MustSet("core", map[string]any{"open": true})
	rt.Flush()

	if diff := cmp.Diff([]any{false, true}, seen); diff != "" {
		t.Errorf("seen mismatch (-want +got):\n%s", diff)
	}
}
