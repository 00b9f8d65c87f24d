package enhanced

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry exposes the SDK's OpenTelemetry plumbing to applications so
// client calls and application spans share one trace tree.
type Telemetry interface {
	// Tracer returns a tracer scoped to the given instrumentation name.
	Tracer(name string) trace.Tracer
	// Meter returns a meter scoped to the given instrumentation name.
	Meter(name string) metric.Meter

	// StartSpan starts a child span of the one carried by ctx.
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)

	// IncrementCounter adds delta to a named int64 counter.
	IncrementCounter(ctx context.Context, name string, delta int64, attrs ...attribute.KeyValue) error
	// RecordHistogram records value on a named float64 histogram.
	RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) error
	// SetGauge stores value on a named float64 gauge.
	SetGauge(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) error

	// TraceContext returns the W3C traceparent headers for ctx, for manual
	// propagation over transports the SDK does not instrument.
	TraceContext(ctx context.Context) map[string]string
}
