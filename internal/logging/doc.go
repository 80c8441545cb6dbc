// internal/logging/doc.go

// Package logging builds the zap logger every themesmith process uses,
// wired for trace correlation across pipeline runs.
//
// # Overview
//
// On top of plain zap it adds:
//   - a Trace level below Debug for per-stage payload dumps
//   - console output to stdout or stderr plus an OpenTelemetry bridge
//   - correlation fields pulled from the context on every entry
//     (trace_id, pipeline.id, agent.id, request.id)
//
// # Usage
//
// Build a logger once at startup:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Attach identifiers to the context and every entry carries them:
//
//	ctx := logging.WithPipelineID(ctx, "pl_a1b2c3")
//	ctx = logging.WithAgentID(ctx, "template_engineer")
//	logger.Info(ctx, "stage finished", zap.Duration("duration", d))
//
// which renders as:
//
//	{
//	  "ts": "2026-08-22T10:15:30Z",
//	  "level": "info",
//	  "msg": "stage finished",
//	  "trace_id": "abc123",
//	  "pipeline.id": "pl_a1b2c3",
//	  "agent.id": "template_engineer",
//	  "duration": "45ms"
//	}
//
// # Configuration Precedence
//
// The logging section follows the usual themesmith ordering: defaults
// from NewDefaultConfig, then config.yaml, then THEMESMITH_LOGGING_*
// environment variables on top.
//
// # Testing
//
// TestLogger records entries in memory for assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
//
// # Concurrency Safety
//
// A Logger may be shared across goroutines. With and Named return
// detached children; writing through one never mutates another.
package logging
