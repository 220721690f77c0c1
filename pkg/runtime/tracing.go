package runtime

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// WithTracing traces every render cycle under the named tracer from the
// global OpenTelemetry provider.
func WithTracing(tracerName string) Option {
	return func(l *Loop) {
		l.tracer = otel.Tracer(tracerName)
	}
}

// startCycleSpan opens the per-cycle span, or returns nil when tracing
// is off.
func (l *Loop) startCycleSpan(ctx context.Context) trace.Span {
	if l.tracer == nil {
		return nil
	}
	_, span := l.tracer.Start(ctx, "fervo.cycle")
	return span
}

// finishCycleSpan records the cycle's work and ends the span.
func finishCycleSpan(span trace.Span, rendered, patches int) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("fervo.instances_rendered", rendered),
		attribute.Int("fervo.patches", patches),
	)
	span.End()
}
