package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/state"
)

// registerTools registers all pipeline tools with the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "theme_generate",
		Description: "Generate a complete WordPress theme package from a natural-language request. Runs the full pipeline and blocks until it finishes.",
	}, instrument(s, "theme_generate", s.generateTheme))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "pipeline_status",
		Description: "Report a pipeline run's status and per-stage progress",
	}, instrument(s, "pipeline_status", s.statusPipeline))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "pipeline_list",
		Description: "List pipeline runs with aggregate counts per status",
	}, instrument(s, "pipeline_list", s.listPipelines))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "pipeline_cancel",
		Description: "Cancel a queued or running pipeline",
	}, instrument(s, "pipeline_cancel", s.cancelPipeline))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "pipeline_cleanup",
		Description: "Remove finished pipeline runs and their artifacts",
	}, instrument(s, "pipeline_cleanup", s.cleanupPipelines))
}

// instrument adapts a tool body to the SDK handler shape and wraps it
// with invocation metrics. The body's text summary becomes the scrubbed
// content of the tool result.
func instrument[In, Out any](s *Server, name string, fn func(ctx context.Context, args In) (Out, string, error)) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, name)
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, name)
			s.metrics.RecordInvocation(ctx, name, time.Since(start), toolErr)
		}()

		out, text, err := fn(ctx, args)
		if err != nil {
			toolErr = err
			var zero Out
			return nil, zero, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: s.scrub(ctx, text)},
			},
		}, out, nil
	}
}

// ===== GENERATION =====

type generateInput struct {
	Request    string `json:"request" jsonschema:"required,Natural-language theme request document"`
	PipelineID string `json:"pipeline_id,omitempty" jsonschema:"Optional pipeline ID; generated when empty"`
}

type generateOutput struct {
	PipelineID   string   `json:"pipeline_id" jsonschema:"Pipeline run ID"`
	Status       string   `json:"status" jsonschema:"Final pipeline status"`
	Success      bool     `json:"success" jsonschema:"True when a theme package was produced"`
	OutputPath   string   `json:"output_path,omitempty" jsonschema:"Directory containing the packaged theme"`
	Message      string   `json:"message,omitempty" jsonschema:"Failure detail when unsuccessful"`
	TotalSeconds float64  `json:"total_seconds" jsonschema:"Wall-clock run time in seconds"`
	StagesRun    int      `json:"stages_run" jsonschema:"Number of stages executed"`
	Warnings     []string `json:"warnings,omitempty" jsonschema:"Recommendations from validation"`
}

func (s *Server) generateTheme(ctx context.Context, args generateInput) (generateOutput, string, error) {
	if strings.TrimSpace(args.Request) == "" {
		return generateOutput{}, "", fmt.Errorf("request is required")
	}
	if args.PipelineID != "" && !pipeline.ValidRunID(args.PipelineID) {
		return generateOutput{}, "", fmt.Errorf("invalid pipeline_id: must match [a-zA-Z0-9_-]{1,64}")
	}

	rep, err := s.engine.Run(ctx, pipeline.RunRequest{
		Request:    args.Request,
		PipelineID: args.PipelineID,
	})
	if err != nil {
		return generateOutput{}, "", fmt.Errorf("theme generation failed: %w", err)
	}

	out := generateOutput{
		PipelineID:   rep.PipelineID,
		Status:       string(rep.Status),
		Success:      rep.Success,
		OutputPath:   rep.OutputPath,
		Message:      rep.Message,
		TotalSeconds: rep.Timing.TotalSeconds,
		StagesRun:    rep.Summary.TotalStages,
		Warnings:     rep.Recommendations,
	}

	text := fmt.Sprintf("Theme generation %s (pipeline %s)", out.Status, out.PipelineID)
	if out.Success && out.OutputPath != "" {
		text = fmt.Sprintf("Theme package ready at %s (pipeline %s)", out.OutputPath, out.PipelineID)
	}
	return out, text, nil
}

// ===== STATUS =====

type statusInput struct {
	PipelineID string `json:"pipeline_id" jsonschema:"required,Pipeline run ID"`
}

type stageStatus struct {
	AgentID string  `json:"agent_id" jsonschema:"Stage agent ID"`
	Status  string  `json:"status" jsonschema:"Stage status"`
	Seconds float64 `json:"seconds,omitempty" jsonschema:"Stage execution time"`
	Error   string  `json:"error,omitempty" jsonschema:"Stage error when failed"`
}

type statusOutput struct {
	PipelineID string        `json:"pipeline_id" jsonschema:"Pipeline run ID"`
	TemplateID string        `json:"template_id,omitempty" jsonschema:"Template ID assigned to the run"`
	Status     string        `json:"status" jsonschema:"Pipeline status"`
	Message    string        `json:"message,omitempty" jsonschema:"Status detail"`
	CreatedAt  time.Time     `json:"created_at" jsonschema:"When the run was submitted"`
	Stages     []stageStatus `json:"stages" jsonschema:"Per-stage progress in execution order"`
}

type listInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum runs to return (default 20)"`
}

type listOutput struct {
	Total     int                          `json:"total" jsonschema:"Total pipelines in the store"`
	ByStatus  map[state.PipelineStatus]int `json:"by_status" jsonschema:"Pipeline counts per status"`
	Pipelines []statusOutput               `json:"pipelines" jsonschema:"Most recent runs"`
}

func pipelineStatus(p *state.Pipeline) statusOutput {
	out := statusOutput{
		PipelineID: p.ID,
		TemplateID: p.TemplateID,
		Status:     string(p.Status),
		Message:    p.Message,
		CreatedAt:  p.CreatedAt,
	}
	for _, id := range p.AgentOrder {
		a, ok := p.Agents[id]
		if !ok {
			continue
		}
		out.Stages = append(out.Stages, stageStatus{
			AgentID: id,
			Status:  string(a.Status),
			Seconds: a.ExecutionTime,
			Error:   a.Error,
		})
	}
	return out
}

func (s *Server) statusPipeline(ctx context.Context, args statusInput) (statusOutput, string, error) {
	if args.PipelineID == "" {
		return statusOutput{}, "", fmt.Errorf("pipeline_id is required")
	}
	p, err := s.engine.Status(ctx, args.PipelineID)
	if err != nil {
		return statusOutput{}, "", fmt.Errorf("pipeline status failed: %w", err)
	}
	out := pipelineStatus(p)
	return out, fmt.Sprintf("Pipeline %s is %s", out.PipelineID, out.Status), nil
}

func (s *Server) listPipelines(ctx context.Context, args listInput) (listOutput, string, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}

	sum, err := s.engine.Summary(ctx)
	if err != nil {
		return listOutput{}, "", fmt.Errorf("pipeline list failed: %w", err)
	}
	pipelines, err := s.engine.List(ctx)
	if err != nil {
		return listOutput{}, "", fmt.Errorf("pipeline list failed: %w", err)
	}
	if len(pipelines) > limit {
		pipelines = pipelines[:limit]
	}

	out := listOutput{
		Total:    sum.TotalPipelines,
		ByStatus: sum.ByStatus,
	}
	for _, p := range pipelines {
		out.Pipelines = append(out.Pipelines, pipelineStatus(p))
	}
	return out, fmt.Sprintf("%d pipeline(s), %d returned", out.Total, len(out.Pipelines)), nil
}

// ===== LIFECYCLE =====

type cancelInput struct {
	PipelineID string `json:"pipeline_id" jsonschema:"required,Pipeline run ID to cancel"`
}

type cancelOutput struct {
	PipelineID string `json:"pipeline_id" jsonschema:"Pipeline run ID"`
	Status     string `json:"status" jsonschema:"Always 'cancelling'"`
}

type cleanupInput struct {
	OlderThanDays int `json:"older_than_days" jsonschema:"required,Remove finished runs older than this many days"`
}

type cleanupOutput struct {
	Removed int `json:"removed" jsonschema:"Number of pipelines removed"`
}

func (s *Server) cancelPipeline(ctx context.Context, args cancelInput) (cancelOutput, string, error) {
	if args.PipelineID == "" {
		return cancelOutput{}, "", fmt.Errorf("pipeline_id is required")
	}
	if err := s.engine.Cancel(ctx, args.PipelineID); err != nil {
		return cancelOutput{}, "", fmt.Errorf("pipeline cancel failed: %w", err)
	}
	out := cancelOutput{PipelineID: args.PipelineID, Status: "cancelling"}
	return out, fmt.Sprintf("Cancellation requested for pipeline %s", args.PipelineID), nil
}

func (s *Server) cleanupPipelines(ctx context.Context, args cleanupInput) (cleanupOutput, string, error) {
	if args.OlderThanDays < 0 {
		return cleanupOutput{}, "", fmt.Errorf("older_than_days must be non-negative")
	}
	removed, err := s.engine.Cleanup(ctx, args.OlderThanDays)
	if err != nil {
		return cleanupOutput{}, "", fmt.Errorf("pipeline cleanup failed: %w", err)
	}
	return cleanupOutput{Removed: removed}, fmt.Sprintf("Removed %d pipeline(s)", removed), nil
}
