package reactive

import (
	"errors"
	"testing"
)

func TestEffectRunsOnCreate(t *testing.T) {
	rt := NewRuntime()
	owner := NewOwner(nil)
	defer owner.Dispose()

	ran := false
	rt.CreateEffect(owner, func() Cleanup {
		ran = true
		return nil
	})

	if !ran {
		t.Error("effect should run immediately on creation")
	}
}

func TestEffectTracksDependencies(t *testing.T) {
	rt := NewRuntime()
	owner := NewOwner(nil)
	defer owner.Dispose()

	count := NewSignal(rt, 0)
	runCount := 0

	rt.CreateEffect(owner, func() Cleanup {
		_ = count.Get()
		runCount++
		return nil
	})

	count.Set(1)
	if runCount != 1 {
		t.Errorf("write should not re-run inline, got %d runs", runCount)
	}

	rt.Flush()
	if runCount != 2 {
		t.Errorf("expected 2 runs after flush, got %d", runCount)
	}
}

func TestEffectRunsOncePerFlush(t *testing.T) {
	rt := NewRuntime()
	owner := NewOwner(nil)
	defer owner.Dispose()

	a := NewSignal(rt, 0)
	b := NewSignal(rt, 0)
	var seen []int
	rt.CreateEffect(owner, func() Cleanup {
		seen = append(seen, a.Get()+b.Get())
		return nil
	})

	a.Set(1)
	b.Set(2)
	a.Set(3)
	rt.Flush()

	if len(seen) != 2 || seen[1] != 5 {
		t.Errorf("seen = %v, want [0 5]", seen)
	}
}

func TestEffectSelfWriteIsNotReentrant(t *testing.T) {
	rt := NewRuntime()
	owner := NewOwner(nil)
	defer owner.Dispose()

	n := NewSignal(rt, 0)
	depth, maxDepth, runs := 0, 0, 0
	rt.CreateEffect(owner, func() Cleanup {
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		runs++
		if v := n.Get(); v < 3 {
			n.Set(v + 1)
		}
		depth--
		return nil
	})
	rt.Flush()

	if maxDepth != 1 {
		t.Errorf("effect re-entered itself, max depth %d", maxDepth)
	}
	if n.Peek() != 3 {
		t.Errorf("n = %d, want 3", n.Peek())
	}
	if runs != 4 {
		t.Errorf("runs = %d, want 4", runs)
	}
}

func TestEffectCleanupBeforeRerunAndOnDispose(t *testing.T) {
	rt := NewRuntime()
	owner := NewOwner(nil)

	s := NewSignal(rt, 0)
	cleanups := 0
	rt.CreateEffect(owner, func() Cleanup {
		_ = s.Get()
		return func() { cleanups++ }
	})

	s.Set(1)
	rt.Flush()
	if cleanups != 1 {
		t.Errorf("cleanups = %d after rerun, want 1", cleanups)
	}

	owner.Dispose()
	if cleanups != 2 {
		t.Errorf("cleanups = %d after dispose, want 2", cleanups)
	}
	if s.Subscribers() != 0 {
		t.Error("disposed effect should unsubscribe")
	}
}

func TestEffectPanicKeepsSubscription(t *testing.T) {
	var reported []error
	rt := NewRuntime(WithErrorHandler(func(err error) { reported = append(reported, err) }))
	owner := NewOwner(nil)
	defer owner.Dispose()

	s := NewSignal(rt, 0)
	runs := 0
	rt.CreateEffect(owner, func() Cleanup {
		runs++
		if s.Get() == 0 {
			panic("boom")
		}
		return nil
	})

	if len(reported) != 1 {
		t.Fatalf("reported %d errors, want 1", len(reported))
	}
	var pe *PanicError
	if !errors.As(reported[0], &pe) || pe.Value != "boom" {
		t.Errorf("reported %v, want PanicError(boom)", reported[0])
	}

	s.Set(1)
	rt.Flush()
	if runs != 2 {
		t.Errorf("runs = %d, want 2 (effect should stay subscribed after panic)", runs)
	}
}

func TestFlushBudgetStopsRunaway(t *testing.T) {
	var reported []error
	rt := NewRuntime(
		WithBudget(NewBudget(5)),
		WithErrorHandler(func(err error) { reported = append(reported, err) }),
	)
	owner := NewOwner(nil)
	defer owner.Dispose()

	s := NewSignal(rt, 0)
	rt.CreateEffect(owner, func() Cleanup {
		s.Set(s.Get() + 1)
		return nil
	})

	err := rt.Flush()
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("Flush() = %v, want ErrBudgetExceeded", err)
	}
	if len(reported) != 1 {
		t.Errorf("reported %d errors, want 1", len(reported))
	}
	if rt.Pending() != 0 {
		t.Errorf("Pending() = %d after budget stop, want 0", rt.Pending())
	}
}

func TestTurnBudgetSpansFlushes(t *testing.T) {
	var reported []error
	rt := NewRuntime(
		WithBudget(NewBudget(3)),
		WithErrorHandler(func(err error) { reported = append(reported, err) }),
	)
	owner := NewOwner(nil)
	defer owner.Dispose()

	s := NewSignal(rt, 0)
	runs := 0
	rt.CreateEffect(owner, func() Cleanup {
		s.Get()
		runs++
		return nil
	})

	rt.BeginTurn()
	for i := 1; i <= 5; i++ {
		s.Set(i)
		rt.Flush()
	}
	rt.EndTurn()

	if runs != 4 {
		t.Errorf("runs = %d, want 4 (initial run plus budget of 3)", runs)
	}
	if len(reported) != 2 || !errors.Is(reported[0], ErrBudgetExceeded) {
		t.Errorf("reported = %v, want two budget errors", reported)
	}

	s.Set(10)
	if err := rt.Flush(); err != nil {
		t.Errorf("Flush() outside a turn = %v, want fresh budget", err)
	}
}

func TestEffectOnDisposedOwnerNeverRuns(t *testing.T) {
	rt := NewRuntime()
	owner := NewOwner(nil)
	owner.Dispose()

	ran := false
	e := rt.CreateEffect(owner, func() Cleanup {
		ran = true
		return nil
	})

	if ran || !e.Disposed() {
		t.Error("effect on a disposed owner should be disposed and never run")
	}
}
