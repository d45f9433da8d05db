package loop

import (
	"errors"
	"fmt"
)

// ErrPromisePanic wraps a panic raised inside a Then callback.
var ErrPromisePanic = errors.New("loop: promise callback panicked")

type promiseState uint8

const (
	statePending promiseState = iota
	stateFulfilled
	stateRejected
)

// Promise represents the eventual completion of an asynchronous handler.
// Continuations registered with Then and Catch always run as microtasks.
type Promise struct {
	loop     *Loop
	state    promiseState
	value    any
	err      error
	handlers []func()
}

// NewPromise returns a pending promise.
func (l *Loop) NewPromise() *Promise {
	return &Promise{loop: l}
}

// Resolved returns a promise already fulfilled with v.
func (l *Loop) Resolved(v any) *Promise {
	p := l.NewPromise()
	p.Resolve(v)
	return p
}

// Rejected returns a promise already rejected with err.
func (l *Loop) Rejected(err error) *Promise {
	p := l.NewPromise()
	p.Reject(err)
	return p
}

// Tick returns a promise fulfilled after n animation frames. Renderers commit
// between frames, so Tick(2) is the wait used before moving focus into
// freshly shown content.
func (l *Loop) Tick(n int) *Promise {
	p := l.NewPromise()
	var wait func(left int)
	wait = func(left int) {
		if left <= 0 {
			p.Resolve(nil)
			return
		}
		l.RequestAnimationFrame(func() { wait(left - 1) })
	}
	wait(n)
	return p
}

// Resolve fulfils the promise with v. A *Promise value is adopted.
// Settling an already settled promise has no effect.
func (p *Promise) Resolve(v any) {
	if p.state != statePending {
		return
	}
	if inner, ok := v.(*Promise); ok {
		if inner == p {
			p.Reject(fmt.Errorf("loop: promise resolved with itself"))
			return
		}
		inner.subscribe(func() {
			if inner.state == stateRejected {
				p.Reject(inner.err)
				return
			}
			p.Resolve(inner.value)
		})
		return
	}
	p.state = stateFulfilled
	p.value = v
	p.flush()
}

// Reject rejects the promise with err.
func (p *Promise) Reject(err error) {
	if p.state != statePending {
		return
	}
	if err == nil {
		err = errors.New("loop: promise rejected")
	}
	p.state = stateRejected
	p.err = err
	p.flush()
}

// subscribe registers fn to run (as a microtask) once the promise settles.
func (p *Promise) subscribe(fn func()) {
	if p.state != statePending {
		p.loop.QueueMicrotask(fn)
		return
	}
	p.handlers = append(p.handlers, fn)
}

func (p *Promise) flush() {
	handlers := p.handlers
	p.handlers = nil
	for _, fn := range handlers {
		p.loop.QueueMicrotask(fn)
	}
}

// Then returns a promise settled by fn's result once p is fulfilled.
// A rejection of p skips fn and propagates.
func (p *Promise) Then(fn func(any) (any, error)) *Promise {
	next := p.loop.NewPromise()
	p.subscribe(func() {
		if p.state == stateRejected {
			next.Reject(p.err)
			return
		}
		v, err := callSafely(fn, p.value)
		if err != nil {
			next.Reject(err)
			return
		}
		next.Resolve(v)
	})
	return next
}

// Catch calls fn if p is rejected. The returned promise is fulfilled with
// p's value, or with nil after fn handled the rejection.
func (p *Promise) Catch(fn func(error)) *Promise {
	next := p.loop.NewPromise()
	p.subscribe(func() {
		if p.state == stateRejected {
			fn(p.err)
			next.Resolve(nil)
			return
		}
		next.Resolve(p.value)
	})
	return next
}

// Pending reports whether the promise is not yet settled.
func (p *Promise) Pending() bool {
	return p.state == statePending
}

// Result returns the settled value and error. Both are zero while pending.
func (p *Promise) Result() (any, error) {
	return p.value, p.err
}

func callSafely(fn func(any) (any, error), v any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPromisePanic, r)
		}
	}()
	return fn(v)
}
