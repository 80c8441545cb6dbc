package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/fyrsmithlabs/themesmith/internal/paths"
)

// Agent is one pipeline stage implementation.
type Agent interface {
	// ID returns the agent's stable identifier, matching its Stage.AgentID.
	ID() string

	// Run executes the stage. Implementations must honor ctx cancellation
	// and return a Result describing what was produced; returning an error
	// marks the attempt failed and makes it eligible for retry.
	Run(ctx context.Context, in Input) (*Result, error)
}

// Input is what an agent receives when its stage executes.
type Input struct {
	// PipelineID identifies the run.
	PipelineID string

	// TemplateID identifies the theme being generated.
	TemplateID string

	// Path is the primary input artifact, normally the previous
	// stage's output.
	Path string

	// Paths resolves artifact locations for this run.
	Paths *paths.Manager

	// Request is the scrubbed request document content.
	Request string
}

// ResultStatus describes how a stage attempt ended.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailed  ResultStatus = "failed"
	ResultPartial ResultStatus = "partial"
	ResultSkipped ResultStatus = "skipped"
)

// Result is what an agent reports back to the engine.
type Result struct {
	AgentID       string         `json:"agent_id"`
	Status        ResultStatus   `json:"status"`
	Message       string         `json:"message,omitempty"`
	OutputPath    string         `json:"output_path,omitempty"`
	Errors        []string       `json:"errors,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time"`
	QualityScore  float64        `json:"quality_score,omitempty"`
}

// NewResult creates a successful result for agentID.
func NewResult(agentID string) *Result {
	return &Result{
		AgentID:  agentID,
		Status:   ResultSuccess,
		Metadata: make(map[string]any),
	}
}

// Fail creates a failed result carrying the given errors.
func Fail(agentID, message string, errs ...string) *Result {
	return &Result{
		AgentID:  agentID,
		Status:   ResultFailed,
		Message:  message,
		Errors:   errs,
		Metadata: make(map[string]any),
	}
}

// Skip creates a skipped result with a reason.
func Skip(agentID, reason string) *Result {
	return &Result{
		AgentID:  agentID,
		Status:   ResultSkipped,
		Message:  reason,
		Metadata: make(map[string]any),
	}
}

// Finish stamps the execution time from start and returns r for chaining.
func (r *Result) Finish(start time.Time) *Result {
	r.ExecutionTime = time.Since(start)
	return r
}

// Failed reports whether the stage attempt failed. Partial results are
// not failures: their output is usable downstream.
func (r *Result) Failed() bool {
	return r.Status == ResultFailed
}

// ErrorMessage joins the result's errors into a single string.
func (r *Result) ErrorMessage() string {
	return strings.Join(r.Errors, "; ")
}
