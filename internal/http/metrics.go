package http

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/themesmith/internal/http"

// Metrics records request-level telemetry for the HTTP server.
type Metrics struct {
	meter  metric.Meter
	logger *logging.Logger

	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
	responseSize    metric.Int64Histogram
	activeRequests  metric.Int64UpDownCounter
}

// NewMetrics creates the HTTP instrument set on the global meter
// provider. Instrument creation failures are logged and the affected
// instrument is skipped.
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

	var err error
	m.requestsTotal, err = m.meter.Int64Counter(
		"themesmith.http.requests_total",
		metric.WithDescription("Total HTTP requests processed"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create requests_total counter", zap.Error(err))
	}

	m.requestDuration, err = m.meter.Float64Histogram(
		"themesmith.http.request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create request_duration histogram", zap.Error(err))
	}

	m.responseSize, err = m.meter.Int64Histogram(
		"themesmith.http.response_size_bytes",
		metric.WithDescription("HTTP response size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create response_size histogram", zap.Error(err))
	}

	m.activeRequests, err = m.meter.Int64UpDownCounter(
		"themesmith.http.active_requests",
		metric.WithDescription("HTTP requests currently in flight"),
	)
	if err != nil {
		m.logger.Warn(ctx, "failed to create active_requests counter", zap.Error(err))
	}
}

// Middleware returns an echo middleware that records request metrics.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			start := time.Now()

			if m.activeRequests != nil {
				m.activeRequests.Add(ctx, 1)
				defer m.activeRequests.Add(ctx, -1)
			}

			err := next(c)

			attrs := metric.WithAttributes(
				attribute.String("method", c.Request().Method),
				attribute.String("endpoint", endpointLabel(c)),
				attribute.String("status", strconv.Itoa(c.Response().Status)),
			)
			if m.requestsTotal != nil {
				m.requestsTotal.Add(ctx, 1, attrs)
			}
			if m.requestDuration != nil {
				m.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
			}
			if m.responseSize != nil {
				m.responseSize.Record(ctx, c.Response().Size, attrs)
			}
			return err
		}
	}
}

// endpointLabel returns the route template, not the raw URL, so that
// parameterized routes like /api/v1/pipelines/:id produce one label
// value regardless of the ID.
func endpointLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}
