package reactive

import (
	"reflect"
	"testing"
)

func TestOwnerDisposeOrder(t *testing.T) {
	var order []string
	root := NewOwner(nil)
	first := NewOwner(root)
	second := NewOwner(root)

	first.OnCleanup(func() { order = append(order, "first") })
	second.OnCleanup(func() { order = append(order, "second") })
	root.OnCleanup(func() { order = append(order, "root-a") })
	root.OnCleanup(func() { order = append(order, "root-b") })

	root.Dispose()

	want := []string{"second", "first", "root-b", "root-a"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestOwnerDisposeIsIdempotent(t *testing.T) {
	o := NewOwner(nil)
	calls := 0
	o.OnCleanup(func() { calls++ })

	o.Dispose()
	o.Dispose()

	if calls != 1 {
		t.Errorf("cleanup ran %d times, want 1", calls)
	}
}

func TestChildDisposeDetachesFromParent(t *testing.T) {
	root := NewOwner(nil)
	child := NewOwner(root)

	child.Dispose()

	if len(root.Children()) != 0 {
		t.Errorf("parent still has %d children", len(root.Children()))
	}
}

func TestOnCleanupAfterDisposeRunsImmediately(t *testing.T) {
	o := NewOwner(nil)
	o.Dispose()

	ran := false
	o.OnCleanup(func() { ran = true })
	if !ran {
		t.Error("cleanup on disposed owner should run immediately")
	}
}
