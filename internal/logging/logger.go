// internal/logging/logger.go
package logging

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap with context-aware methods. Pipeline and agent IDs
// carried in the context (see WithPipelineID, WithAgentID) are attached
// to every entry, so run correlation needs no field plumbing at call
// sites.
type Logger struct {
	zap    *zap.Logger
	config *Config
}

// NewLogger builds a logger from cfg. A nil otelProvider leaves the
// OTEL core out even when cfg.Output.OTEL is set.
func NewLogger(cfg *Config, otelProvider log.LoggerProvider) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	core, err := newDualCore(cfg, otelProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}

	opts := make([]zap.Option, 0, 3)
	if cfg.Caller.Enabled {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(cfg.Caller.Skip))
	}
	if cfg.Stacktrace.Level != 0 {
		opts = append(opts, zap.AddStacktrace(cfg.Stacktrace.Level))
	}
	if len(cfg.Fields) > 0 {
		constant := make([]zap.Field, 0, len(cfg.Fields))
		for k, v := range cfg.Fields {
			constant = append(constant, zap.String(k, v))
		}
		opts = append(opts, zap.Fields(constant...))
	}

	return &Logger{zap: zap.New(core, opts...), config: cfg}, nil
}

// newEncoder picks the entry encoder for a format name. The console
// encoder backs smithctl's human-readable output; everything else is
// JSON.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// write funnels every leveled method through one path: skip disabled
// levels before paying for context extraction, then log with the
// context fields first so they sort ahead of call-site fields.
func (l *Logger) write(level zapcore.Level, ctx context.Context, msg string, fields []zap.Field) {
	if !l.zap.Core().Enabled(level) {
		return
	}
	l.zap.Log(level, msg, append(ContextFields(ctx), fields...)...)
}

func (l *Logger) Trace(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(TraceLevel, ctx, msg, fields)
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(zapcore.DebugLevel, ctx, msg, fields)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(zapcore.InfoLevel, ctx, msg, fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(zapcore.WarnLevel, ctx, msg, fields)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.write(zapcore.ErrorLevel, ctx, msg, fields)
}

// Fatal logs and then exits; it bypasses write so zap's fatal hook
// always fires.
func (l *Logger) Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	l.zap.Fatal(msg, append(ContextFields(ctx), fields...)...)
}

// With returns a child logger carrying the given constant fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...), config: l.config}
}

// Named returns a child logger with the given name segment appended.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name), config: l.config}
}

// Enabled reports whether entries at the given level would be written.
func (l *Logger) Enabled(level zapcore.Level) bool {
	return l.zap.Core().Enabled(level)
}

// Sync flushes buffered entries. Sync errors against a terminal are
// swallowed: stdout/stderr return EINVAL or ENOTTY on Linux.
func (l *Logger) Sync() error {
	if err := l.zap.Sync(); err != nil && !terminalSyncError(err) {
		return err
	}
	return nil
}

// Underlying exposes the wrapped *zap.Logger for libraries that take
// one directly.
func (l *Logger) Underlying() *zap.Logger {
	return l.zap
}

func terminalSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}
