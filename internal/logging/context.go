// internal/logging/context.go
package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields collects the correlation fields carried by ctx: the
// active OTel span, then pipeline, agent, and request identifiers.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 8)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if pipelineID := PipelineIDFromContext(ctx); pipelineID != "" {
		fields = append(fields, zap.String("pipeline.id", pipelineID))
	}
	if agentID := AgentIDFromContext(ctx); agentID != "" {
		fields = append(fields, zap.String("agent.id", agentID))
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	return fields
}

type pipelineCtxKey struct{}
type agentCtxKey struct{}
type requestCtxKey struct{}

const maxIDLen = 128

// idPattern allows alphanumeric, hyphen, underscore
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateID rejects identifiers that would corrupt log output or blow
// up label cardinality. IDs come from our own generators and the agent
// roster, so a violation is a programming error.
func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, hyphen, underscore)", name)
	}
	return nil
}

// PipelineIDFromContext returns the pipeline ID on ctx, or "".
func PipelineIDFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(pipelineCtxKey{}).(string); ok {
		return p
	}
	return ""
}

// WithPipelineID tags ctx with a pipeline ID for log correlation.
// Panics on an empty or malformed ID.
func WithPipelineID(ctx context.Context, pipelineID string) context.Context {
	if err := validateID(pipelineID, "pipelineID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, pipelineCtxKey{}, pipelineID)
}

// AgentIDFromContext returns the agent ID on ctx, or "".
func AgentIDFromContext(ctx context.Context) string {
	if a, ok := ctx.Value(agentCtxKey{}).(string); ok {
		return a
	}
	return ""
}

// WithAgentID tags ctx with the agent running the current stage.
// Panics on an empty or malformed ID.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	if err := validateID(agentID, "agentID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, agentCtxKey{}, agentID)
}

// RequestIDFromContext returns the request ID on ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID tags ctx with an API request ID.
// Panics on an empty or malformed ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if err := validateID(requestID, "requestID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

type loggerCtxKey struct{}

// WithLogger stores logger on ctx for handlers that only get a context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored on ctx, or a nop logger so
// callers never need a nil check.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{zap: zap.NewNop(), config: NewDefaultConfig()}
}
