package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	ierrors "github.com/vango-dev/interactivity/internal/errors"
	"github.com/vango-dev/interactivity/pkg/directive"
	"github.com/vango-dev/interactivity/pkg/reactive"
)

func resetGlobalMetricsForTest() {
	globalMetricsMu.Lock()
	globalMetrics = nil
	globalMetricsMu.Unlock()
}

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestPrometheusObserver_Events(t *testing.T) {
	t.Run("success increments success counter and duration", func(t *testing.T) {
		resetGlobalMetricsForTest()
		obs := Prometheus(WithRegistry(prometheus.NewRegistry()))

		_, done := obs.OnEvent(context.Background(), "click")
		done(nil)

		c := GetMetrics()
		if c == nil {
			t.Fatal("expected GetMetrics to return collector after initialization")
		}
		if got := metricCounterValue(t, c.eventsTotal.WithLabelValues("click", "success")); got != 1 {
			t.Fatalf("events_total(success)=%v, want 1", got)
		}
		if got := metricCounterValue(t, c.eventsTotal.WithLabelValues("click", "error")); got != 0 {
			t.Fatalf("events_total(error)=%v, want 0", got)
		}
		if got := metricHistogramCount(t, c.eventDuration.WithLabelValues("click")); got == 0 {
			t.Fatal("expected event_duration_seconds histogram to have sample count > 0")
		}
	})

	t.Run("error increments error counter", func(t *testing.T) {
		resetGlobalMetricsForTest()
		obs := Prometheus(WithRegistry(prometheus.NewRegistry()))

		_, done := obs.OnEvent(context.Background(), "keydown")
		done(reactive.ErrBudgetExceeded)

		c := GetMetrics()
		if got := metricCounterValue(t, c.eventsTotal.WithLabelValues("keydown", "error")); got != 1 {
			t.Fatalf("events_total(error)=%v, want 1", got)
		}
	})
}

func TestPrometheusObserver_Hydrate(t *testing.T) {
	resetGlobalMetricsForTest()
	obs := Prometheus(WithRegistry(prometheus.NewRegistry()))

	_, done := obs.OnHydrate(context.Background())
	done(nil)
	_, done = obs.OnHydrate(context.Background())
	done(ierrors.New(ierrors.CodeInvalidDirectiveValue))

	c := GetMetrics()
	if got := metricCounterValue(t, c.hydrationsTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("hydrations_total(success)=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.hydrationsTotal.WithLabelValues("error")); got != 1 {
		t.Fatalf("hydrations_total(error)=%v, want 1", got)
	}
	if got := metricHistogramCount(t, c.hydrationDuration); got != 2 {
		t.Fatalf("hydration_duration_seconds count=%v, want 2", got)
	}
}

func TestPrometheusOptions(t *testing.T) {
	resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()
	obs := Prometheus(
		WithRegistry(reg),
		WithNamespace("site"),
		WithSubsystem("preview"),
		WithConstLabels(prometheus.Labels{"app": "gallery"}),
		WithBuckets([]float64{0.5, 1}),
	)

	_, done := obs.OnHydrate(context.Background())
	done(nil)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	var hist *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "site_preview_hydration_duration_seconds" {
			hist = f
		}
	}
	if hist == nil {
		t.Fatal("site_preview_hydration_duration_seconds not registered")
	}
	m := hist.GetMetric()[0]
	if labels := m.GetLabel(); len(labels) != 1 || labels[0].GetName() != "app" || labels[0].GetValue() != "gallery" {
		t.Errorf("labels = %v, want app=gallery", labels)
	}
	if buckets := m.GetHistogram().GetBucket(); len(buckets) != 2 || buckets[1].GetUpperBound() != 1 {
		t.Errorf("buckets = %v, want [0.5 1]", buckets)
	}
}

func TestPrometheusObserver_Directives(t *testing.T) {
	resetGlobalMetricsForTest()
	obs := Prometheus(WithRegistry(prometheus.NewRegistry()))

	obs.OnDirective(directive.KindBind, nil)
	obs.OnDirective(directive.KindBind, nil)
	obs.OnDirective(directive.KindEffect, ierrors.New(ierrors.CodeHandlerThrow))
	obs.OnDirective(directive.KindOn, fmt.Errorf("wrapped: %w", ierrors.New(ierrors.CodeUnresolvedPath)))
	obs.OnDirective(directive.KindInit, errors.New("plain"))

	c := GetMetrics()
	if got := metricCounterValue(t, c.directivesTotal.WithLabelValues("bind")); got != 2 {
		t.Fatalf("directives_total(bind)=%v, want 2", got)
	}
	for _, tc := range []struct{ kind, code string }{
		{"effect", ierrors.CodeHandlerThrow},
		{"on", ierrors.CodeUnresolvedPath},
		{"init", "internal"},
	} {
		if got := metricCounterValue(t, c.directiveErrors.WithLabelValues(tc.kind, tc.code)); got != 1 {
			t.Errorf("directive_errors_total(%s,%s)=%v, want 1", tc.kind, tc.code, got)
		}
	}
}

func TestMetricsRecordFunctions_WithInitializedMetrics(t *testing.T) {
	resetGlobalMetricsForTest()
	_ = Prometheus(WithRegistry(prometheus.NewRegistry()))
	c := GetMetrics()
	if c == nil {
		t.Fatal("expected GetMetrics to return collector after initialization")
	}

	RecordPatches(5)
	RecordSessionOpen()
	RecordSessionOpen()
	RecordSessionClose()
	RecordWebSocketError("read")

	if got := metricCounterValue(t, c.patchesSent); got != 5 {
		t.Fatalf("patches_sent_total=%v, want 5", got)
	}
	if got := metricGaugeValue(t, c.activeSessions); got != 1 {
		t.Fatalf("active_sessions=%v, want 1", got)
	}
	if got := metricCounterValue(t, c.wsErrors.WithLabelValues("read")); got != 1 {
		t.Fatalf("websocket_errors_total(read)=%v, want 1", got)
	}
}

func TestMetricsRecordFunctions_Uninitialized(t *testing.T) {
	resetGlobalMetricsForTest()
	RecordPatches(1)
	RecordSessionOpen()
	RecordSessionClose()
	RecordWebSocketError("read")
	if GetMetrics() != nil {
		t.Fatal("GetMetrics should be nil before Prometheus is called")
	}
}
