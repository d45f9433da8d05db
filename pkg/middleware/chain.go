package middleware

import (
	"context"

	"github.com/vango-dev/interactivity/pkg/directive"
)

// Chain combines observers. Hooks run in order; completion funcs run in
// reverse order, so the first observer wraps all the others.
func Chain(observers ...directive.Observer) directive.Observer {
	list := make([]directive.Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	if len(list) == 1 {
		return list[0]
	}
	return chain(list)
}

type chain []directive.Observer

func (c chain) OnDirective(kind directive.Kind, err error) {
	for _, o := range c {
		o.OnDirective(kind, err)
	}
}

func (c chain) OnEvent(ctx context.Context, eventType string) (context.Context, func(error)) {
	return c.wrap(ctx, func(o directive.Observer, ctx context.Context) (context.Context, func(error)) {
		return o.OnEvent(ctx, eventType)
	})
}

func (c chain) OnHydrate(ctx context.Context) (context.Context, func(error)) {
	return c.wrap(ctx, directive.Observer.OnHydrate)
}

func (c chain) wrap(ctx context.Context, start func(directive.Observer, context.Context) (context.Context, func(error))) (context.Context, func(error)) {
	dones := make([]func(error), 0, len(c))
	for _, o := range c {
		var done func(error)
		ctx, done = start(o, ctx)
		dones = append(dones, done)
	}
	return ctx, func(err error) {
		for i := len(dones) - 1; i >= 0; i-- {
			dones[i](err)
		}
	}
}
