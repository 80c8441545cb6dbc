// Package workflows provides Temporal workflow definitions for durable
// theme generation.
package workflows

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
)

// TaskQueue is the Temporal task queue themesmith workers poll.
const TaskQueue = "theme-generation-queue"

// ThemeGenerationConfig configures the theme generation workflow.
type ThemeGenerationConfig struct {
	Request              string // Natural language description of the desired theme
	PipelineID           string // Optional pipeline ID; generated when empty
	CleanupOlderThanDays int    // When > 0, prune terminal pipelines older than this after the run
}

// ThemeGenerationResult contains the outcome of one generation run.
type ThemeGenerationResult struct {
	PipelineID       string   // Run identifier, also the workspace directory name
	Status           string   // Final pipeline status
	Success          bool     // Whether the pipeline completed
	OutputPath       string   // Path to the packaged theme
	Message          string   // Human-readable completion message
	StagesRun        int      // Stages the pipeline executed
	StagesFailed     int      // Stages that ended in failure
	PipelinesRemoved int      // Expired pipelines pruned after the run
	Errors           []string // Any errors encountered
}

// ThemeGenerationWorkflow runs one theme pipeline to completion.
//
// This workflow:
// 1. Assigns a pipeline ID if the caller did not pin one
// 2. Executes the full agent pipeline as a single heartbeating activity
// 3. Optionally prunes expired pipelines from the state store
func ThemeGenerationWorkflow(ctx workflow.Context, config ThemeGenerationConfig) (*ThemeGenerationResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting theme generation",
		"pipeline_id", config.PipelineID,
		"request_bytes", len(config.Request))

	// Configure activity options
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	result := &ThemeGenerationResult{}

	if strings.TrimSpace(config.Request) == "" {
		return result, errors.New("request cannot be empty")
	}

	// Step 1: Pin the pipeline ID so every activity attempt and the final
	// report agree on it
	pipelineID := config.PipelineID
	if pipelineID == "" {
		if err := workflow.SideEffect(ctx, func(workflow.Context) interface{} {
			return pipeline.NewRunID()
		}).Get(&pipelineID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to assign pipeline ID: %v", err))
			return result, err
		}
	} else if !pipeline.ValidRunID(pipelineID) {
		return result, fmt.Errorf("invalid pipeline ID %q", pipelineID)
	}
	result.PipelineID = pipelineID

	// Step 2: Run the pipeline
	logger.Info("Executing theme pipeline", "pipeline_id", pipelineID)

	// The full stage table with per-stage retries can run well past an hour.
	// A failed run keeps its pipeline ID claimed in the state store, so a
	// blind activity retry cannot succeed.
	genCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var a *Activities
	var gen GenerateThemeOutput
	err := workflow.ExecuteActivity(genCtx, a.GenerateThemeActivity, GenerateThemeInput{
		Request:    config.Request,
		PipelineID: pipelineID,
	}).Get(genCtx, &gen)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("theme generation failed: %v", err))
		return result, err
	}

	result.Status = gen.Status
	result.Success = gen.Success
	result.OutputPath = gen.OutputPath
	result.Message = gen.Message
	result.StagesRun = gen.StagesRun
	result.StagesFailed = gen.StagesFailed
	result.Errors = append(result.Errors, gen.StageErrors...)

	// Step 3: Prune expired pipelines if requested
	if config.CleanupOlderThanDays > 0 {
		logger.Info("Pruning expired pipelines", "older_than_days", config.CleanupOlderThanDays)
		var cleaned CleanupPipelinesOutput
		err = workflow.ExecuteActivity(ctx, a.CleanupPipelinesActivity, CleanupPipelinesInput{
			OlderThanDays: config.CleanupOlderThanDays,
		}).Get(ctx, &cleaned)
		if err != nil {
			// The theme is already generated; record the failure and continue
			logger.Error("Pipeline cleanup failed", "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("failed to prune expired pipelines: %v", err))
		} else {
			result.PipelinesRemoved = cleaned.Removed
		}
	}

	logger.Info("Theme generation complete",
		"pipeline_id", result.PipelineID,
		"success", result.Success,
		"output", result.OutputPath)

	return result, nil
}

// Activity input/output types

type GenerateThemeInput struct {
	Request    string
	PipelineID string
}

type GenerateThemeOutput struct {
	PipelineID   string
	Status       string
	Success      bool
	OutputPath   string
	Message      string
	StagesRun    int
	StagesFailed int
	StageErrors  []string
}

type CleanupPipelinesInput struct {
	OlderThanDays int
}

type CleanupPipelinesOutput struct {
	Removed int
}
