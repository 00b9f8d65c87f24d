package client

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloud-runtimes/cloudruntimes-go/runtimes/enhanced"
)

const instrumentationName = "github.com/cloud-runtimes/cloudruntimes-go/client"

// telemetryClient bridges applications onto the globally registered OTel
// providers, so application spans and SDK transport spans share one trace
// tree. Instruments are cached per name.
type telemetryClient struct {
	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64Gauge
}

var _ enhanced.Telemetry = (*telemetryClient)(nil)

func newTelemetryClient() *telemetryClient {
	return &telemetryClient{
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

func (c *telemetryClient) Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

func (c *telemetryClient) Meter(name string) metric.Meter {
	return otel.Meter(name)
}

func (c *telemetryClient) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

func (c *telemetryClient) IncrementCounter(ctx context.Context, name string, delta int64, attrs ...attribute.KeyValue) error {
	c.mu.Lock()
	counter, ok := c.counters[name]
	if !ok {
		var err error
		counter, err = otel.Meter(instrumentationName).Int64Counter(name)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.counters[name] = counter
	}
	c.mu.Unlock()

	counter.Add(ctx, delta, metric.WithAttributes(attrs...))
	return nil
}

func (c *telemetryClient) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) error {
	c.mu.Lock()
	histogram, ok := c.histograms[name]
	if !ok {
		var err error
		histogram, err = otel.Meter(instrumentationName).Float64Histogram(name)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.histograms[name] = histogram
	}
	c.mu.Unlock()

	histogram.Record(ctx, value, metric.WithAttributes(attrs...))
	return nil
}

func (c *telemetryClient) SetGauge(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) error {
	c.mu.Lock()
	gauge, ok := c.gauges[name]
	if !ok {
		var err error
		gauge, err = otel.Meter(instrumentationName).Float64Gauge(name)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.gauges[name] = gauge
	}
	c.mu.Unlock()

	gauge.Record(ctx, value, metric.WithAttributes(attrs...))
	return nil
}

func (c *telemetryClient) TraceContext(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	return carrier
}
