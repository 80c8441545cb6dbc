// internal/logging/levels_test.go
package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestTraceLevel(t *testing.T) {
	assert.Less(t, TraceLevel, zapcore.DebugLevel)
	assert.Equal(t, zapcore.Level(-2), TraceLevel)
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "trace", input: "trace", want: TraceLevel},
		{name: "debug", input: "debug", want: zapcore.DebugLevel},
		{name: "info", input: "info", want: zapcore.InfoLevel},
		{name: "warn", input: "warn", want: zapcore.WarnLevel},
		{name: "error", input: "error", want: zapcore.ErrorLevel},
		{name: "empty defaults to info", input: "", want: zapcore.InfoLevel},
		{name: "unknown name", input: "verbose", wantErr: true},
		{name: "numeric garbage", input: "info@123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LevelFromString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
