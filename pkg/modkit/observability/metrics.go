package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records module runtime metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordPhase records a loader phase with its duration and error status.
	RecordPhase(ctx context.Context, phase, group string, duration time.Duration, err error)

	// RecordUnit records one declared unit being accepted or rejected.
	RecordUnit(ctx context.Context, group string, accepted bool)

	// RecordModuleCommitted records a module entering the live registry.
	RecordModuleCommitted(ctx context.Context, pluginID string)

	// RecordPost records one event post and how many handlers it invoked.
	RecordPost(ctx context.Context, eventType string, invocations int, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	phases       metric.Int64Counter
	phaseLatency metric.Float64Histogram
	phaseErrors  metric.Int64Counter
	units        metric.Int64Counter
	modules      metric.Int64Counter
	posts        metric.Int64Counter
	invocations  metric.Int64Histogram
	postErrors   metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("modkit")

	phases, err := meter.Int64Counter("modkit.loader.phases",
		metric.WithDescription("Number of loader phases run"),
	)
	if err != nil {
		return nil, err
	}

	phaseLatency, err := meter.Float64Histogram("modkit.loader.phase_latency_ms",
		metric.WithDescription("Loader phase latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	phaseErrors, err := meter.Int64Counter("modkit.loader.phase_errors",
		metric.WithDescription("Number of failed loader phases"),
	)
	if err != nil {
		return nil, err
	}

	units, err := meter.Int64Counter("modkit.loader.units",
		metric.WithDescription("Number of declared units processed"),
	)
	if err != nil {
		return nil, err
	}

	modules, err := meter.Int64Counter("modkit.modules.committed",
		metric.WithDescription("Number of modules committed to the live registry"),
	)
	if err != nil {
		return nil, err
	}

	posts, err := meter.Int64Counter("modkit.event.posts",
		metric.WithDescription("Number of event posts"),
	)
	if err != nil {
		return nil, err
	}

	invocations, err := meter.Int64Histogram("modkit.event.invocations",
		metric.WithDescription("Handler invocations per event post"),
	)
	if err != nil {
		return nil, err
	}

	postErrors, err := meter.Int64Counter("modkit.event.post_errors",
		metric.WithDescription("Number of event posts aborted by a handler"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		phases:       phases,
		phaseLatency: phaseLatency,
		phaseErrors:  phaseErrors,
		units:        units,
		modules:      modules,
		posts:        posts,
		invocations:  invocations,
		postErrors:   postErrors,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordPhase records a loader phase.
func (m *otelMetrics) RecordPhase(ctx context.Context, phase, group string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("group", group),
	)
	m.phases.Add(ctx, 1, attrs)
	m.phaseLatency.Record(ctx, Milliseconds(duration), attrs)
	if err != nil {
		m.phaseErrors.Add(ctx, 1, attrs)
	}
}

// RecordUnit records a processed unit.
func (m *otelMetrics) RecordUnit(ctx context.Context, group string, accepted bool) {
	m.units.Add(ctx, 1, metric.WithAttributes(
		attribute.String("group", group),
		attribute.Bool("accepted", accepted),
	))
}

// RecordModuleCommitted records a committed module.
func (m *otelMetrics) RecordModuleCommitted(ctx context.Context, pluginID string) {
	m.modules.Add(ctx, 1, metric.WithAttributes(
		attribute.String("plugin_id", pluginID),
	))
}

// RecordPost records an event post.
func (m *otelMetrics) RecordPost(ctx context.Context, eventType string, invocations int, err error) {
	attrs := metric.WithAttributes(
		attribute.String("event_type", eventType),
	)
	m.posts.Add(ctx, 1, attrs)
	m.invocations.Record(ctx, int64(invocations), attrs)
	if err != nil {
		m.postErrors.Add(ctx, 1, attrs)
	}
}
