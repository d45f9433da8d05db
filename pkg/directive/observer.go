package directive

import "context"

// Observer receives dispatch events. Implementations must be cheap; they run
// inside event loop turns.
type Observer interface {
	// OnDirective is called once per binding mounted and once per failed
	// evaluation. err is nil on success.
	OnDirective(kind Kind, err error)

	// OnEvent is called when a DOM event enters the runtime. The returned
	// func is called with the outcome when the event's turn has settled.
	OnEvent(ctx context.Context, eventType string) (context.Context, func(error))

	// OnHydrate is called when a hydration pass starts. The returned func is
	// called when it ends.
	OnHydrate(ctx context.Context) (context.Context, func(error))
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) OnDirective(Kind, error) {}

func (NopObserver) OnEvent(ctx context.Context, _ string) (context.Context, func(error)) {
	return ctx, func(error) {}
}

func (NopObserver) OnHydrate(ctx context.Context) (context.Context, func(error)) {
	return ctx, func(error) {}
}
