package mcp

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/themesmith/internal/mcp"

// Metrics instruments the MCP tool surface: invocation counts, latency,
// errors by reason, and in-flight requests, all labeled by tool.
type Metrics struct {
	meter  metric.Meter
	logger *logging.Logger

	invocations    metric.Int64Counter
	duration       metric.Float64Histogram
	errors         metric.Int64Counter
	activeRequests metric.Int64UpDownCounter
}

// NewMetrics builds the instruments against the global meter provider.
// A failed instrument is logged and left nil; recording skips nil
// instruments, so a broken meter never breaks tool dispatch.
func NewMetrics(logger *logging.Logger) *Metrics {
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	ctx := context.Background()
	warn := func(what string, err error) {
		if err != nil {
			m.logger.Warn(ctx, "failed to create "+what, zap.Error(err))
		}
	}

	var err error
	m.invocations, err = m.meter.Int64Counter(
		"themesmith.mcp.tool.invocations_total",
		metric.WithDescription("Total MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	warn("invocations counter", err)

	// Buckets span quick lookups through full theme generation runs.
	m.duration, err = m.meter.Float64Histogram(
		"themesmith.mcp.tool.duration_seconds",
		metric.WithDescription("MCP tool invocation duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60, 300, 600),
	)
	warn("duration histogram", err)

	m.errors, err = m.meter.Int64Counter(
		"themesmith.mcp.tool.errors_total",
		metric.WithDescription("Total MCP tool errors"),
		metric.WithUnit("{error}"),
	)
	warn("errors counter", err)

	m.activeRequests, err = m.meter.Int64UpDownCounter(
		"themesmith.mcp.tool.active_requests",
		metric.WithDescription("Number of in-flight MCP tool invocations"),
		metric.WithUnit("{request}"),
	)
	warn("active requests gauge", err)
}

// RecordInvocation counts one finished tool call and its latency. A
// non-nil err also bumps the error counter with a bounded reason label.
func (m *Metrics) RecordInvocation(ctx context.Context, toolName string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("tool", toolName),
	}

	if m.invocations != nil {
		m.invocations.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
	if err != nil && m.errors != nil {
		errorAttrs := append(attrs, attribute.String("reason", categorizeError(err)))
		m.errors.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
	}
}

// IncrementActive marks a tool call as started.
func (m *Metrics) IncrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", toolName),
		))
	}
}

// DecrementActive marks a tool call as finished.
func (m *Metrics) DecrementActive(ctx context.Context, toolName string) {
	if m.activeRequests != nil {
		m.activeRequests.Add(ctx, -1, metric.WithAttributes(
			attribute.String("tool", toolName),
		))
	}
}

// categorizeError folds arbitrary error text into a small reason set so
// the errors_total label stays low-cardinality.
func categorizeError(err error) string {
	if err == nil {
		return ""
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "required") || strings.Contains(errStr, "invalid"):
		return "validation_error"
	case strings.Contains(errStr, "not found"):
		return "not_found"
	case strings.Contains(errStr, "already"):
		return "conflict"
	case strings.Contains(errStr, "cancel"):
		return "cancelled"
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline"):
		return "timeout"
	default:
		return "internal_error"
	}
}
