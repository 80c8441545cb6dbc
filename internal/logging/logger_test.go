// internal/logging/logger_test.go
package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	cfg := NewDefaultConfig()

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.NotNil(t, logger.Underlying())
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"

	logger, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Nil(t, logger)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNewLogger_NoOutputs(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Stdout = false
	cfg.Output.OTEL = false

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
}

func TestNewLogger_OTELWithoutProvider(t *testing.T) {
	// OTEL enabled but no provider: stdout still carries output.
	cfg := NewDefaultConfig()
	cfg.Output.OTEL = true

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestLogger_ContextCorrelation(t *testing.T) {
	tl := NewTestLogger()

	ctx := WithPipelineID(context.Background(), "pl_x")
	ctx = WithAgentID(ctx, "packager")
	tl.Info(ctx, "stage finished", zap.Int("attempt", 1))

	tl.AssertLogged(t, zapcore.InfoLevel, "stage finished")
	tl.AssertField(t, "stage finished", "pipeline.id", "pl_x")
	tl.AssertField(t, "stage finished", "agent.id", "packager")
}

func TestLogger_Levels(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Trace(ctx, "trace msg")
	tl.Debug(ctx, "debug msg")
	tl.Info(ctx, "info msg")
	tl.Warn(ctx, "warn msg")
	tl.Error(ctx, "error msg")

	tl.AssertLogged(t, TraceLevel, "trace msg")
	tl.AssertLogged(t, zapcore.DebugLevel, "debug msg")
	tl.AssertLogged(t, zapcore.InfoLevel, "info msg")
	tl.AssertLogged(t, zapcore.WarnLevel, "warn msg")
	tl.AssertLogged(t, zapcore.ErrorLevel, "error msg")
}

func TestLogger_With(t *testing.T) {
	tl := NewTestLogger()

	child := tl.With(zap.String("component", "engine"))
	child.Info(context.Background(), "from child")

	tl.AssertField(t, "from child", "component", "engine")

	// Parent unaffected
	tl.Info(context.Background(), "from parent")
	entries := tl.FilterMessage("from parent").All()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Context)
}

func TestLogger_Named(t *testing.T) {
	tl := NewTestLogger()

	child := tl.Named("watcher")
	child.Info(context.Background(), "named log")

	entries := tl.FilterMessage("named log").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "watcher", entries[0].LoggerName)
}

func TestLogger_Enabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = zapcore.InfoLevel

	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)

	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Enabled(zapcore.ErrorLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
	assert.False(t, logger.Enabled(TraceLevel))
}

func TestLogger_Sync(t *testing.T) {
	cfg := NewDefaultConfig()
	logger, err := NewLogger(cfg, nil)
	require.NoError(t, err)

	// Stdout sync errors (EINVAL, ENOTTY) are swallowed.
	assert.NoError(t, logger.Sync())
}
