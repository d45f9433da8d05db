package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	ierrors "github.com/vango-dev/interactivity/internal/errors"
	"github.com/vango-dev/interactivity/pkg/directive"
	"github.com/vango-dev/interactivity/pkg/reactive"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "interactivity").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "interactivity",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

type metrics struct {
	hydrationsTotal   *prometheus.CounterVec
	hydrationDuration prometheus.Histogram
	eventsTotal       *prometheus.CounterVec
	eventDuration     *prometheus.HistogramVec
	directivesTotal   *prometheus.CounterVec
	directiveErrors   *prometheus.CounterVec
	patchesSent       prometheus.Counter
	activeSessions    prometheus.Gauge
	wsErrors          *prometheus.CounterVec
}

// globalMetrics is created on the first call to Prometheus; later calls
// share it so a process registers each collector once.
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		hydrationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "hydrations_total",
			Help:        "Total number of hydration passes",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		hydrationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "hydration_duration_seconds",
			Help:        "Hydration pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Total number of DOM events dispatched",
			ConstLabels: config.ConstLabels,
		}, []string{"event", "status"}),

		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_duration_seconds",
			Help:        "Event turn duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"event"}),

		directivesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "directives_total",
			Help:        "Total number of directive bindings mounted",
			ConstLabels: config.ConstLabels,
		}, []string{"directive"}),

		directiveErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "directive_errors_total",
			Help:        "Total number of directive failures",
			ConstLabels: config.ConstLabels,
		}, []string{"directive", "code"}),

		patchesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patches_sent_total",
			Help:        "Total number of patches sent to live sessions",
			ConstLabels: config.ConstLabels,
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of open live sessions",
			ConstLabels: config.ConstLabels,
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// Prometheus creates an observer that records hydration, event and
// directive metrics.
//
// Example:
//
//	rt := interactivity.New(
//	    interactivity.WithObserver(middleware.Prometheus(
//	        middleware.WithNamespace("myapp"),
//	    )),
//	)
func Prometheus(opts ...MetricsOption) directive.Observer {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return &metricsObserver{m: m}
}

type metricsObserver struct {
	m *metrics
}

func (o *metricsObserver) OnDirective(kind directive.Kind, err error) {
	if err != nil {
		o.m.directiveErrors.WithLabelValues(kind.String(), errorCode(err)).Inc()
		return
	}
	o.m.directivesTotal.WithLabelValues(kind.String()).Inc()
}

func (o *metricsObserver) OnEvent(ctx context.Context, eventType string) (context.Context, func(error)) {
	start := time.Now()
	return ctx, func(err error) {
		o.m.eventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		o.m.eventsTotal.WithLabelValues(eventType, status(err)).Inc()
	}
}

func (o *metricsObserver) OnHydrate(ctx context.Context) (context.Context, func(error)) {
	start := time.Now()
	return ctx, func(err error) {
		o.m.hydrationDuration.Observe(time.Since(start).Seconds())
		o.m.hydrationsTotal.WithLabelValues(status(err)).Inc()
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// errorCode returns the error code for err, keeping label cardinality
// bounded by the registry.
func errorCode(err error) string {
	var ve *ierrors.VangoError
	switch {
	case errors.As(err, &ve):
		return ve.Code
	case errors.Is(err, reactive.ErrBudgetExceeded):
		return ierrors.CodeBudgetExceeded
	default:
		return "internal"
	}
}

// =============================================================================
// Metrics Recording Functions
// =============================================================================

// RecordPatches records the number of patches sent to a live session.
func RecordPatches(count int) {
	if globalMetrics != nil {
		globalMetrics.patchesSent.Add(float64(count))
	}
}

// RecordSessionOpen records a live session being opened.
func RecordSessionOpen() {
	if globalMetrics != nil {
		globalMetrics.activeSessions.Inc()
	}
}

// RecordSessionClose records a live session being closed.
func RecordSessionClose() {
	if globalMetrics != nil {
		globalMetrics.activeSessions.Dec()
	}
}

// RecordWebSocketError records a WebSocket error.
func RecordWebSocketError(errorType string) {
	if globalMetrics != nil {
		globalMetrics.wsErrors.WithLabelValues(errorType).Inc()
	}
}

// =============================================================================
// Metrics Collector
// =============================================================================

// Collector exposes the metrics for custom registrations.
type Collector struct {
	hydrationsTotal   *prometheus.CounterVec
	hydrationDuration prometheus.Histogram
	eventsTotal       *prometheus.CounterVec
	eventDuration     *prometheus.HistogramVec
	directivesTotal   *prometheus.CounterVec
	directiveErrors   *prometheus.CounterVec
	patchesSent       prometheus.Counter
	activeSessions    prometheus.Gauge
	wsErrors          *prometheus.CounterVec
}

// GetMetrics returns the global metrics collector.
// Returns nil if the Prometheus observer has not been created.
func GetMetrics() *Collector {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		return nil
	}
	m := globalMetrics
	return &Collector{
		hydrationsTotal:   m.hydrationsTotal,
		hydrationDuration: m.hydrationDuration,
		eventsTotal:       m.eventsTotal,
		eventDuration:     m.eventDuration,
		directivesTotal:   m.directivesTotal,
		directiveErrors:   m.directiveErrors,
		patchesSent:       m.patchesSent,
		activeSessions:    m.activeSessions,
		wsErrors:          m.wsErrors,
	}
}
