package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/modkit/pkg/modkit/errors"
)

// SpanManager opens one span per loader phase step.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartPhaseSpan starts a span for one loader phase of a group.
	StartPhaseSpan(ctx context.Context, phase, group string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, recording err and its kind.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the span in ctx, if it is recording.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager bound to the global tracer provider
// as it is at call time. Install the provider first:
//
//	otel.SetTracerProvider(yourProvider)
//	spans := observability.NewSpanManager()
func NewSpanManager() SpanManager {
	return &otelSpanManager{tracer: otel.Tracer("modkit")}
}

// StartPhaseSpan starts an internal span named modkit.loader.<phase>.
func (m *otelSpanManager) StartPhaseSpan(ctx context.Context, phase, group string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "modkit.loader."+phase,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("loader.phase", phase),
			attribute.String("loader.group", group),
		),
	)
}

// EndSpanWithError sets the span status from err and ends it.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	defer span.End()

	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetAttributes(attribute.String("error.kind", errors.KindOf(err).String()))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent adds an event to the span carried by ctx.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
