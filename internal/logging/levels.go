// internal/logging/levels.go
package logging

import (
	"go.uber.org/zap/zapcore"
)

// TraceLevel extends zap's scale one step below Debug (value -2).
//
// Reserve it for output too noisy even at debug:
//   - per-stage prompts and agent payloads
//   - rendered template fragments
//   - watcher and poller chatter
//
// Production configs keep it filtered.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a level name. "trace" maps to TraceLevel; the
// rest, including the empty string, follow zap's own parsing.
func LevelFromString(level string) (zapcore.Level, error) {
	if level == "trace" {
		return TraceLevel, nil
	}

	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}
