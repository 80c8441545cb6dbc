package workflows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/report"
)

// heartbeatInterval is how often a running generation activity reports
// liveness to the Temporal server.
const heartbeatInterval = 30 * time.Second

// Engine is the part of the pipeline engine the activities drive.
type Engine interface {
	Run(ctx context.Context, req pipeline.RunRequest) (*report.Report, error)
	Cleanup(ctx context.Context, olderThanDays int) (int, error)
	OnProgress(fn pipeline.ProgressFunc)
}

// HeartbeatDetails is recorded with each generation activity heartbeat.
type HeartbeatDetails struct {
	AgentID         string
	StagesCompleted int
	StagesTotal     int
}

// Activities bridges Temporal activities to the pipeline engine.
//
// One Activities value serves every run the worker picks up. It registers
// itself as the engine's progress callback so heartbeats carry the stage
// the pipeline is currently on.
type Activities struct {
	engine Engine

	mu       sync.Mutex
	progress map[string]HeartbeatDetails
}

// NewActivities wires the activities to a pipeline engine.
func NewActivities(engine Engine) (*Activities, error) {
	if engine == nil {
		return nil, errors.New("engine cannot be nil")
	}
	a := &Activities{
		engine:   engine,
		progress: make(map[string]HeartbeatDetails),
	}
	engine.OnProgress(a.recordProgress)
	return a, nil
}

// GenerateThemeActivity runs one pipeline to completion.
//
// The run is synchronous and can take the full stage table's worth of
// time, so a background loop heartbeats stage progress until it returns.
// A failed pipeline is a successful activity: stage failures land in
// StageErrors, while the error return is reserved for setup problems
// and cancellation.
func (a *Activities) GenerateThemeActivity(ctx context.Context, input GenerateThemeInput) (*GenerateThemeOutput, error) {
	log := activity.GetLogger(ctx)
	log.Info("Starting theme pipeline run", "pipeline_id", input.PipelineID)

	a.track(input.PipelineID)
	defer a.untrack(input.PipelineID)

	done := make(chan struct{})
	defer close(done)
	go a.heartbeatLoop(ctx, input.PipelineID, done)

	rep, err := a.engine.Run(ctx, pipeline.RunRequest{
		Request:    input.Request,
		PipelineID: input.PipelineID,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline run failed: %w", err)
	}

	out := &GenerateThemeOutput{
		PipelineID:   rep.PipelineID,
		Status:       string(rep.Status),
		Success:      rep.Success,
		OutputPath:   rep.OutputPath,
		Message:      rep.Message,
		StagesRun:    rep.Summary.TotalStages,
		StagesFailed: rep.Summary.Failed,
	}
	for _, stage := range rep.Stages {
		if stage.Error != "" {
			out.StageErrors = append(out.StageErrors, fmt.Sprintf("%s: %s", stage.AgentID, stage.Error))
		}
	}

	log.Info("Theme pipeline run finished",
		"pipeline_id", rep.PipelineID,
		"status", rep.Status,
		"output", rep.OutputPath)

	return out, nil
}

// heartbeatLoop reports liveness until the run finishes or the activity
// context is cancelled.
func (a *Activities) heartbeatLoop(ctx context.Context, pipelineID string, done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			activity.RecordHeartbeat(ctx, a.progressFor(pipelineID))
		}
	}
}

// recordProgress is the engine's progress callback. Updates are dropped
// for pipelines no activity is tracking, such as runs started over HTTP.
func (a *Activities) recordProgress(pipelineID, agentID string, completed, total int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, tracked := a.progress[pipelineID]; !tracked {
		return
	}
	a.progress[pipelineID] = HeartbeatDetails{
		AgentID:         agentID,
		StagesCompleted: completed,
		StagesTotal:     total,
	}
}

func (a *Activities) track(pipelineID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progress[pipelineID] = HeartbeatDetails{}
}

func (a *Activities) untrack(pipelineID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.progress, pipelineID)
}

func (a *Activities) progressFor(pipelineID string) HeartbeatDetails {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress[pipelineID]
}
