// internal/logging/otel.go
package logging

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// newDualCore assembles the zap core from the configured sinks: console
// on stdout or stderr, plus the otelzap bridge when a provider is given.
func newDualCore(cfg *Config, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	cores := make([]zapcore.Core, 0, 2)

	if cfg.Output.Stdout || cfg.Output.Stderr {
		encoder := newEncoder(cfg.Format)
		out := os.Stdout
		if cfg.Output.Stderr {
			out = os.Stderr
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(out), cfg.Level))
	}

	if cfg.Output.OTEL && otelProvider != nil {
		cores = append(cores, otelzap.NewCore("themesmith",
			otelzap.WithLoggerProvider(otelProvider),
		))
	}

	switch len(cores) {
	case 0:
		return nil, fmt.Errorf("at least one output must be enabled and available")
	case 1:
		return cores[0], nil
	default:
		return zapcore.NewTee(cores...), nil
	}
}
