// Package telemetry provides OpenTelemetry instrumentation for themesmithd.
//
// # Overview
//
// This package implements distributed tracing and metrics collection using the
// OpenTelemetry Go SDK. It exports telemetry data to an OTEL Collector over
// OTLP (gRPC or http/protobuf).
//
// # Usage
//
// Create telemetry instance:
//
//	cfg := telemetry.NewDefaultConfig()
//	tel, err := telemetry.New(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(ctx)
//
// Use tracer and meter:
//
//	tracer := tel.Tracer("themesmith.pipeline")
//	ctx, span := tracer.Start(ctx, "pipeline.Run")
//	defer span.End()
//
// # Degradation
//
// Telemetry failures never crash the daemon. If an exporter cannot be
// created, the instance marks itself degraded and hands out no-op
// tracers and meters; Health() reports the reason.
//
// # Testing
//
// NewTestTelemetry wires in-memory exporters:
//
//	tt := telemetry.NewTestTelemetry()
//	tracer := tt.Tracer("test")
//	_, span := tracer.Start(ctx, "pipeline.Run")
//	span.End()
//	tt.AssertSpanExists(t, "pipeline.Run")
package telemetry
