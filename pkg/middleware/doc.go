// Package middleware provides observability for the directive engine.
//
// Each middleware is a directive.Observer; pass it to the runtime, combining
// several with Chain:
//
//	rt := interactivity.New(
//	    interactivity.WithObserver(middleware.Chain(
//	        middleware.Prometheus(middleware.WithNamespace("shop")),
//	        middleware.OpenTelemetry(middleware.WithTracerName("shop")),
//	    )),
//	)
//
// # Prometheus Metrics
//
// The Prometheus observer collects:
//   - interactivity_hydrations_total: hydration passes by status
//   - interactivity_hydration_duration_seconds: hydration pass duration
//   - interactivity_events_total: events by type and status
//   - interactivity_event_duration_seconds: event turn duration
//   - interactivity_directives_total: directives mounted by kind
//   - interactivity_directive_errors_total: directive failures by kind and code
//   - interactivity_patches_sent_total: patches streamed to live sessions
//   - interactivity_active_sessions: open live sessions
//
// Expose them with promhttp:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
// The OpenTelemetry observer opens a span per hydration pass and per event.
// Directive failures that happen inside one are recorded on it as span
// events. The returned context carries the span, so handlers that receive it
// can start child spans.
package middleware
