package telemetry

import (
	"context"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry records spans and metrics in memory so tests can assert
// on instrumentation without a collector.
type TestTelemetry struct {
	*Telemetry

	SpanRecorder *tracetest.SpanRecorder
	MetricReader *metricSink
}

// NewTestTelemetry returns an enabled Telemetry whose providers write to
// in-memory recorders instead of OTLP exporters.
func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	recorder := tracetest.NewSpanRecorder()
	sink := newMetricSink()

	tel := &Telemetry{
		config:         cfg,
		tracerProvider: trace.NewTracerProvider(trace.WithSpanProcessor(recorder)),
		meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(sink.reader)),
	}
	tel.healthy.Store(true)

	return &TestTelemetry{
		Telemetry:    tel,
		SpanRecorder: recorder,
		MetricReader: sink,
	}
}

// Spans returns every span ended so far.
func (t *TestTelemetry) Spans() []trace.ReadOnlySpan {
	return t.SpanRecorder.Ended()
}

// SpanByName returns the first ended span with that name, or nil.
func (t *TestTelemetry) SpanByName(name string) trace.ReadOnlySpan {
	for _, span := range t.Spans() {
		if span.Name() == name {
			return span
		}
	}
	return nil
}

// AssertSpanExists fails the test when no span with that name ended.
func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if t.SpanByName(name) != nil {
		return
	}

	names := make([]string, 0, len(t.Spans()))
	for _, span := range t.Spans() {
		names = append(names, span.Name())
	}
	tb.Errorf("expected span %q not found, got: %v", name, names)
}

// AssertSpanAttribute fails the test unless the named span carries the
// attribute with the expected value.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, spanName string, key string, expected interface{}) {
	tb.Helper()
	span := t.SpanByName(spanName)
	if span == nil {
		tb.Fatalf("span %q not found", spanName)
	}

	for _, attr := range span.Attributes() {
		if string(attr.Key) != key {
			continue
		}
		if got := plainValue(attr.Value); got != expected {
			tb.Errorf("span %q attribute %q: got %v, want %v", spanName, key, got, expected)
		}
		return
	}
	tb.Errorf("span %q missing attribute %q", spanName, key)
}

// plainValue unwraps an attribute value into a comparable Go value.
func plainValue(v attribute.Value) interface{} {
	switch v.Type() {
	case attribute.STRING:
		return v.AsString()
	case attribute.INT64:
		return v.AsInt64()
	case attribute.FLOAT64:
		return v.AsFloat64()
	case attribute.BOOL:
		return v.AsBool()
	default:
		return v.AsInterface()
	}
}

// metricSink collects metrics on demand through a manual reader.
type metricSink struct {
	reader *sdkmetric.ManualReader

	mu        sync.Mutex
	collected []metricdata.ResourceMetrics
}

func newMetricSink() *metricSink {
	return &metricSink{reader: sdkmetric.NewManualReader()}
}

// ForceFlush collects everything recorded since the last flush.
func (s *metricSink) ForceFlush(ctx context.Context) error {
	var rm metricdata.ResourceMetrics
	if err := s.reader.Collect(ctx, &rm); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collected = append(s.collected, rm)
	return nil
}

// Shutdown closes the underlying reader.
func (s *metricSink) Shutdown(ctx context.Context) error {
	return s.reader.Shutdown(ctx)
}

// Metrics returns every collected batch.
func (s *metricSink) Metrics() []metricdata.ResourceMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collected
}
