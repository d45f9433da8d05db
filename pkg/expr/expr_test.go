package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/interactivity/pkg/deep"
	"github.com/vango-dev/interactivity/pkg/dom"
	"github.com/vango-dev/interactivity/pkg/reactive"
	"github.com/vango-dev/interactivity/pkg/scope"
	"github.com/vango-dev/interactivity/pkg/store"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		want    Path
		wantErr bool
	}{
		{in: "core::image.open", want: Path{Category: Any, Namespace: "core", Member: "image.open"}},
		{in: " core::x ", want: Path{Category: Any, Namespace: "core", Member: "x"}},
		{in: "actions.core.image.show", want: Path{Category: Actions, Namespace: "core", Member: "image.show"}},
		{in: "effects.core.init", want: Path{Category: Effects, Namespace: "core", Member: "init"}},
		{in: "context.core.image.open", want: Path{Category: Context, Namespace: "core", Member: "image.open"}},
		{in: "core", wantErr: true},
		{in: "::x", wantErr: true},
		{in: "core::", wantErr: true},
		{in: "core::a..b", wantErr: true},
		{in: "state.core.x", wantErr: true},
		{in: "actions.core", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePath(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Fatalf("ParsePath() error = %v, want ErrInvalidPath", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParsePath() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	rt := reactive.NewRuntime()
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{0, false},
		{0.0, false},
		{math.NaN(), false},
		{-1, true},
		{"", false},
		{"0", true},
		{[]any{}, true},
		{deep.New(rt), true},
	}
	for _, tt := range tests {
		if got := Truthy(tt.v); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		v    any
		want string
	}{
		{nil, ""},
		{"a", "a"},
		{3.0, "3"},
		{1e21, "1000000000000000000000"},
		{0.25, "0.25"},
		{7, "7"},
		{[]any{1.0, "b"}, "1,b"},
		{map[string]any{"a": 1}, `{"a":1}`},
	}
	for _, tt := range tests {
		if got := Stringify(tt.v); got != tt.want {
			t.Errorf("Stringify(%#v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func newEnv(t *testing.T) (*reactive.Runtime, *store.Store, *Evaluator, *scope.Scope) {
	t.Helper()
	rt := reactive.NewRuntime()
	st := store.New(rt)
	err := st.RegisterNamespace("core", store.Namespace{
		Actions: map[string]store.Handler{
			"inc": func(a store.Args) (any, error) {
				n, _ := a.Context.Peek("core.count")
				return nil, a.Context.Set("core.count", n.(float64)+1)
			},
			"key": func(a store.Args) (any, error) { return a.Event.Key, nil },
			"boom": func(store.Args) (any, error) { panic("boom") },
			"fail": func(store.Args) (any, error) { return nil, errors.New("nope") },
		},
		Effects: map[string]store.Handler{
			"inc": func(store.Args) (any, error) { return "effect", nil },
			"log": func(store.Args) (any, error) { return "logged", nil },
		},
		Context: map[string]any{"count": 0.0},
	})
	if err != nil {
		t.Fatal(err)
	}
	return rt, st, New(st), scope.NewRoot(st.Context())
}

func TestEvaluateResolutionOrder(t *testing.T) {
	_, _, ev, root := newEnv(t)

	if _, err := ev.Evaluate("core::inc", root, Bindings{}); err != nil {
		t.Fatal(err)
	}
	if got, _ := ev.Evaluate("core::count", root, Bindings{}); got != 1.0 {
		t.Errorf("count = %v, want 1", got)
	}
	if got, _ := ev.Evaluate("effects.core.inc", root, Bindings{}); got != "effect" {
		t.Errorf("effects form = %v", got)
	}
	if got, _ := ev.Evaluate("core::log", root, Bindings{}); got != "logged" {
		t.Errorf("effect fallback = %v", got)
	}
	if got, _ := ev.Evaluate("context.core.count", root, Bindings{}); got != 1.0 {
		t.Errorf("context form = %v", got)
	}
	if _, err := ev.Evaluate("actions.core.count", root, Bindings{}); !errors.Is(err, ErrUnresolvedPath) {
		t.Errorf("actions form should not read state, err = %v", err)
	}
}

func TestEvaluateUnresolved(t *testing.T) {
	_, _, ev, root := newEnv(t)
	for _, p := range []string{"core::missing", "other::count", "core::count.deeper"} {
		if _, err := ev.Evaluate(p, root, Bindings{}); !errors.Is(err, ErrUnresolvedPath) {
			t.Errorf("Evaluate(%q) error = %v, want ErrUnresolvedPath", p, err)
		}
	}
}

func TestEvaluatePassesBindings(t *testing.T) {
	_, _, ev, root := newEnv(t)
	got, err := ev.Evaluate("core::key", root, Bindings{Event: &dom.Event{Type: "keydown", Key: "Escape"}})
	if err != nil || got != "Escape" {
		t.Errorf("Evaluate() = %v, %v", got, err)
	}
}

func TestEvaluateHandlerThrow(t *testing.T) {
	_, _, ev, root := newEnv(t)

	_, err := ev.Evaluate("core::boom", root, Bindings{})
	var he *HandlerError
	if !errors.As(err, &he) || he.Stack == nil {
		t.Fatalf("panic should become a HandlerError with a stack, got %v", err)
	}
	if !errors.Is(err, ErrHandlerThrow) {
		t.Error("HandlerError should match ErrHandlerThrow")
	}

	if _, err := ev.Evaluate("core::fail", root, Bindings{}); !errors.Is(err, ErrHandlerThrow) {
		t.Errorf("returned error should match ErrHandlerThrow, got %v", err)
	}
}

func TestEvaluateReadIsTracked(t *testing.T) {
	rt, st, ev, root := newEnv(t)
	ids := rt.Collect(func() {
		_, _ = ev.Evaluate("core::count", root, Bindings{})
	})
	cell, _ := st.Context().Cell("core.count")
	found := false
	for _, id := range ids {
		if id == cell.ID() {
			found = true
		}
	}
	if !found {
		t.Error("state read should be tracked")
	}
}

func TestEvaluateUsesScopeContext(t *testing.T) {
	rt, _, ev, root := newEnv(t)
	child, err := root.Child(rt, `{"core":{"count":5}}`, map[string]any{"core": map[string]any{"count": 5.0}})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := ev.Evaluate("core::count", child, Bindings{}); got != 5.0 {
		t.Errorf("child count = %v, want 5", got)
	}
	if got, _ := ev.Evaluate("core::count", root, Bindings{}); got != 0.0 {
		t.Errorf("root count = %v, want 0", got)
	}
}
