package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var noopTracer trace.Tracer = noop.NewTracerProvider().Tracer("orderflow")

// Tracer starts spans around lifecycle operations. A nil tracer starts
// non-recording spans.
type Tracer struct {
	tracer trace.Tracer
}

func newTracer(t trace.Tracer) *Tracer {
	return &Tracer{tracer: t}
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) *Tracer {
	return newTracer(t)
}

// Start starts a span for operation on a record.
func (t *Tracer) Start(ctx context.Context, operation, recordID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := noopTracer
	if t != nil && t.tracer != nil {
		tracer = t.tracer
	}
	all := append([]attribute.KeyValue{attribute.String("orderflow.record_id", recordID)}, attrs...)
	return tracer.Start(ctx, "orderflow."+operation, trace.WithAttributes(all...))
}

// Finish ends span, recording the outcome code and error when present.
func Finish(span trace.Span, code string, err error) {
	if code != "" {
		span.SetAttributes(attribute.String("orderflow.code", code))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
