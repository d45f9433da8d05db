package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/interactivity/pkg/directive"
)

// Default tracer name.
const defaultTracerName = "interactivity"

// OTelConfig configures the OpenTelemetry observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "interactivity").
	TracerName string

	// Tracer overrides the tracer resolved from the global provider.
	Tracer trace.Tracer

	// Filter determines which events to trace.
	// Return true to trace the event, false to skip.
	// If nil, all events are traced.
	Filter func(eventType string) bool

	// AttributeExtractor extracts custom attributes from the context.
	// Called for each span started.
	AttributeExtractor func(ctx context.Context) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracer sets the tracer directly.
func WithTracer(tracer trace.Tracer) OTelOption {
	return func(c *OTelConfig) {
		c.Tracer = tracer
	}
}

// WithEventFilter sets a filter function for events.
func WithEventFilter(filter func(eventType string) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ctx context.Context) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OpenTelemetry creates an observer that traces hydration passes and events.
//
// The tracer comes from the global OpenTelemetry tracer provider unless
// WithTracer is given. Configure the provider in main() before hydrating:
//
//	otel.SetTracerProvider(tp)
//	rt := interactivity.New(interactivity.WithObserver(middleware.OpenTelemetry()))
func OpenTelemetry(opts ...OTelOption) directive.Observer {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Tracer == nil {
		config.Tracer = otel.Tracer(config.TracerName)
	}
	return &otelObserver{config: config}
}

// otelObserver tracks the innermost open span. The runtime is single
// threaded, so spans nest as a stack.
type otelObserver struct {
	config OTelConfig
	open   []*openSpan
}

type openSpan struct {
	span       trace.Span
	directives int
	failures   int
}

func (o *otelObserver) OnDirective(kind directive.Kind, err error) {
	if len(o.open) == 0 {
		return
	}
	cur := o.open[len(o.open)-1]
	if err == nil {
		cur.directives++
		return
	}
	cur.failures++
	cur.span.AddEvent("directive.error", trace.WithAttributes(
		attribute.String("interactivity.directive", kind.String()),
		attribute.String("interactivity.error_code", errorCode(err)),
		attribute.String("exception.message", err.Error()),
	))
}

func (o *otelObserver) OnEvent(ctx context.Context, eventType string) (context.Context, func(error)) {
	if o.config.Filter != nil && !o.config.Filter(eventType) {
		return ctx, func(error) {}
	}
	return o.start(ctx, "interactivity.event "+eventType,
		attribute.String("interactivity.event_type", eventType),
	)
}

func (o *otelObserver) OnHydrate(ctx context.Context) (context.Context, func(error)) {
	return o.start(ctx, "interactivity.hydrate")
}

func (o *otelObserver) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if o.config.AttributeExtractor != nil {
		attrs = append(attrs, o.config.AttributeExtractor(ctx)...)
	}
	spanCtx, span := o.config.Tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	cur := &openSpan{span: span}
	o.open = append(o.open, cur)

	return spanCtx, func(err error) {
		for i := len(o.open) - 1; i >= 0; i-- {
			if o.open[i] == cur {
				o.open = append(o.open[:i], o.open[i+1:]...)
				break
			}
		}
		span.SetAttributes(
			attribute.Int("interactivity.directives", cur.directives),
			attribute.Int("interactivity.directive_errors", cur.failures),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
