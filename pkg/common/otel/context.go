package otel

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	tracerKey ctxKey = iota + 1
	traceIDKey
)

const zeroTraceID = "00000000000000000000000000000000"

// InjectTracing prepares a request context for tracing: the tracer is stored
// for downstream spans and a trace id is pinned, falling back to a random one
// when the request carries no sampled trace.
func InjectTracing(ctx context.Context, tracer trace.Tracer) context.Context {
	ctx = context.WithValue(ctx, tracerKey, tracer)

	traceID := trace.SpanFromContext(ctx).SpanContext().TraceID().String()
	if traceID == zeroTraceID {
		traceID = uuid.NewString()
	}
	return context.WithValue(ctx, traceIDKey, traceID)
}

// Tracer returns the tracer stored by InjectTracing, if any.
func Tracer(ctx context.Context) (trace.Tracer, bool) {
	tracer, ok := ctx.Value(tracerKey).(trace.Tracer)
	return tracer, ok
}

// GetTraceID returns the trace id from the current span context.
func GetTraceID(ctx context.Context) string {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return zeroTraceID
}
