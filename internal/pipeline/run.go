package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/paths"
	"github.com/fyrsmithlabs/themesmith/internal/report"
	"github.com/fyrsmithlabs/themesmith/internal/state"
)

const (
	requestFilePerm = 0o644

	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 5 * time.Second
)

// RunRequest describes one pipeline run.
type RunRequest struct {
	// RequestPath is a file containing the request document. Ignored
	// when Request is set.
	RequestPath string

	// Request is the inline request document.
	Request string

	// PipelineID overrides the generated run ID. Optional.
	PipelineID string
}

// Run executes the full pipeline synchronously and returns the final
// report. A failed pipeline still returns its report; the error return
// is reserved for setup problems and cancellation.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*report.Report, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	request, err := e.resolveRequest(req)
	if err != nil {
		return nil, err
	}

	pipelineID := req.PipelineID
	if pipelineID == "" {
		pipelineID = newID()
	} else if !runIDPattern.MatchString(pipelineID) {
		return nil, fmt.Errorf("invalid pipeline ID %q", pipelineID)
	}
	templateID := newID()

	if e.sanitizer != nil {
		scrubbed, serr := e.sanitizer.Scrub(ctx, request)
		if serr != nil {
			return nil, fmt.Errorf("failed to scrub request: %w", serr)
		}
		request = scrubbed
	}

	ctx = logging.WithPipelineID(ctx, pipelineID)
	ctx, span := e.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("pipeline.id", pipelineID),
			attribute.String("template.id", templateID)))
	defer span.End()

	pm, err := paths.NewManager(e.root, pipelineID, templateID)
	if err != nil {
		return nil, err
	}

	if _, err := e.store.CreatePipeline(ctx, pipelineID, templateID, request, StageIDs(e.stages)); err != nil {
		return nil, spanError(span, err)
	}

	requestFile, err := e.writeRequestFile(pm, request)
	if err != nil {
		e.sealPipeline(ctx, pipelineID, state.StatusFailed, err.Error())
		return nil, spanError(span, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := e.trackRun(pipelineID, cancel); err != nil {
		e.sealPipeline(ctx, pipelineID, state.StatusFailed, err.Error())
		return nil, spanError(span, err)
	}
	defer e.untrackRun(pipelineID)

	start := time.Now()
	if err := e.store.SetPipelineStatus(ctx, pipelineID, state.StatusRunning, "pipeline started"); err != nil {
		return nil, spanError(span, err)
	}
	e.publishStarted(ctx, pipelineID)
	e.logger.Info(ctx, "pipeline started",
		zap.String("template_id", templateID),
		zap.Int("stages", len(e.stages)))

	finalStatus, message := e.runStages(runCtx, pm, pipelineID, templateID, request, requestFile)
	duration := time.Since(start)

	// Seal with a context that survives cancellation: the terminal state
	// and events must still be recorded.
	sealCtx := context.WithoutCancel(ctx)
	e.sealPipeline(sealCtx, pipelineID, finalStatus, message)
	e.publishFinished(sealCtx, pipelineID, finalStatus)
	e.recordRunMetrics(sealCtx, finalStatus, duration)
	span.SetAttributes(attribute.String("pipeline.status", string(finalStatus)))

	if finalStatus == state.StatusCancelled {
		e.logger.Warn(sealCtx, "pipeline cancelled",
			zap.String("message", message),
			zap.Duration("duration", duration))
		return nil, spanError(span, fmt.Errorf("pipeline %s cancelled: %w", pipelineID, context.Canceled))
	}

	final, err := e.store.Get(sealCtx, pipelineID)
	if err != nil {
		return nil, spanError(span, err)
	}
	rep := report.Build(final)

	reportPath, err := pm.File(paths.KindLogs, "pipeline_report.json")
	if err == nil {
		err = report.WriteJSON(rep, reportPath)
	}
	if err != nil {
		e.logger.Warn(sealCtx, "failed to write pipeline report", zap.Error(err))
	}

	e.logger.Info(sealCtx, "pipeline finished",
		zap.String("status", string(finalStatus)),
		zap.Duration("duration", duration),
		zap.String("output", rep.OutputPath))
	return rep, nil
}

// resolveRequest loads and validates the request document.
func (e *Engine) resolveRequest(req RunRequest) (string, error) {
	content := req.Request
	if content == "" && req.RequestPath != "" {
		data, err := os.ReadFile(req.RequestPath)
		if err != nil {
			return "", fmt.Errorf("failed to read request file: %w", err)
		}
		content = string(data)
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("request cannot be empty")
	}
	return content, nil
}

// writeRequestFile lays out the pipeline tree and persists the request
// document as the first stage's input.
func (e *Engine) writeRequestFile(pm *paths.Manager, request string) (string, error) {
	if err := pm.EnsureLayout(); err != nil {
		return "", err
	}
	path, err := pm.File(paths.KindInputs, "request_{pipeline_id}.md")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(request), requestFilePerm); err != nil {
		return "", fmt.Errorf("failed to write request file: %w", err)
	}
	return path, nil
}

// sealPipeline records a terminal pipeline status, tolerating store errors.
func (e *Engine) sealPipeline(ctx context.Context, pipelineID string, status state.PipelineStatus, message string) {
	if err := e.store.SetPipelineStatus(ctx, pipelineID, status, message); err != nil {
		e.logger.Error(ctx, "failed to record final pipeline status",
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// runStages executes every stage in order and returns the pipeline's
// terminal status with a summary message.
func (e *Engine) runStages(ctx context.Context, pm *paths.Manager, pipelineID, templateID, request, requestFile string) (state.PipelineStatus, string) {
	currentInput := requestFile
	total := len(e.stages)
	succeeded, failed, skipped := 0, 0, 0

	for i, stage := range e.stages {
		if ctx.Err() != nil {
			return state.StatusCancelled, fmt.Sprintf("cancelled before stage %s", stage.AgentID)
		}

		in := Input{
			PipelineID: pipelineID,
			TemplateID: templateID,
			Path:       currentInput,
			Paths:      pm,
			Request:    request,
		}
		res := e.runStage(ctx, pipelineID, stage, in)

		e.reportProgress(pipelineID, stage.AgentID, i+1, total)
		e.publishStage(context.WithoutCancel(ctx), pipelineID, stage.AgentID, agentStatusFor(res.Status))

		if ctx.Err() != nil {
			return state.StatusCancelled, fmt.Sprintf("cancelled during stage %s", stage.AgentID)
		}

		switch res.Status {
		case ResultSuccess, ResultPartial:
			succeeded++
			if res.OutputPath != "" {
				currentInput = res.OutputPath
			}
		case ResultSkipped:
			skipped++
		case ResultFailed:
			failed++
			if stage.Required {
				return state.StatusFailed, fmt.Sprintf("required stage %s failed: %s", stage.AgentID, res.Message)
			}
			e.logger.Warn(ctx, "optional stage failed, continuing",
				zap.String("agent_id", stage.AgentID),
				zap.String("error", res.ErrorMessage()))
		}
	}

	return state.StatusCompleted, fmt.Sprintf("completed: %d succeeded, %d failed, %d skipped", succeeded, failed, skipped)
}

// runStage executes one stage including registration checks, retries,
// and state write-through. It always returns a non-nil result.
func (e *Engine) runStage(ctx context.Context, pipelineID string, stage Stage, in Input) *Result {
	ctx = logging.WithAgentID(ctx, stage.AgentID)
	ctx, span := e.tracer.Start(ctx, "pipeline.stage",
		trace.WithAttributes(
			attribute.String("agent.id", stage.AgentID),
			attribute.Bool("stage.required", stage.Required)))
	defer span.End()

	start := time.Now()
	stateCtx := context.WithoutCancel(ctx)

	agent, ok := e.agentFor(stage.AgentID)
	if !ok {
		var res *Result
		if stage.Required {
			res = Fail(stage.AgentID, fmt.Sprintf("required agent %s is not registered", stage.AgentID))
		} else {
			res = Skip(stage.AgentID, "agent not registered")
		}
		e.recordStageResult(stateCtx, pipelineID, stage.AgentID, res.Finish(start), in.Path)
		return res
	}

	if err := e.store.SetAgentStatus(ctx, pipelineID, stage.AgentID, state.AgentRunning, state.AgentUpdate{
		InputPath: in.Path,
	}); err != nil {
		e.logger.Warn(ctx, "failed to record stage start", zap.Error(err))
	}
	e.logger.Info(ctx, "stage started",
		zap.String("input", in.Path),
		zap.Duration("timeout", stage.Timeout))

	res := e.runWithRetries(ctx, agent, stage, in)
	if res.ExecutionTime == 0 {
		res.Finish(start)
	}

	if res.Failed() {
		span.SetStatus(codes.Error, res.Message)
	}
	e.recordStageMetrics(stateCtx, stage.AgentID, res.Status, time.Since(start))
	e.recordStageResult(stateCtx, pipelineID, stage.AgentID, res, in.Path)

	e.logger.Info(ctx, "stage finished",
		zap.String("status", string(res.Status)),
		zap.Duration("duration", res.ExecutionTime),
		zap.String("output", res.OutputPath))
	return res
}

// recordStageResult writes an agent's terminal state through the store.
func (e *Engine) recordStageResult(ctx context.Context, pipelineID, agentID string, res *Result, inputPath string) {
	meta := make(map[string]any, len(res.Metadata)+3)
	for k, v := range res.Metadata {
		meta[k] = v
	}
	if res.Message != "" {
		meta["message"] = res.Message
	}
	if len(res.Warnings) > 0 {
		meta["warnings"] = res.Warnings
	}
	if res.QualityScore > 0 {
		meta["quality_score"] = res.QualityScore
	}
	if res.Status == ResultPartial {
		meta["result_status"] = string(ResultPartial)
	}

	err := e.store.SetAgentStatus(ctx, pipelineID, agentID, agentStatusFor(res.Status), state.AgentUpdate{
		InputPath:     inputPath,
		OutputPath:    res.OutputPath,
		Error:         res.ErrorMessage(),
		ExecutionTime: res.ExecutionTime.Seconds(),
		Metadata:      meta,
	})
	if err != nil {
		e.logger.Warn(ctx, "failed to record stage result",
			zap.String("agent_id", agentID),
			zap.Error(err))
	}
}

// runWithRetries executes attempts with context-aware backoff between
// failures.
func (e *Engine) runWithRetries(ctx context.Context, agent Agent, stage Stage, in Input) *Result {
	var res *Result
	for attempt := 0; attempt <= stage.Retries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return Fail(stage.AgentID, "cancelled while waiting to retry", err.Error())
			}
			e.logger.Warn(ctx, "retrying stage",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", stage.Retries+1))
		}

		res = e.runAttempt(ctx, agent, stage, in)
		if !res.Failed() {
			return res
		}
		if ctx.Err() != nil {
			return res
		}
	}
	return res
}

// runAttempt executes a single bounded attempt and normalizes every
// outcome into a Result.
func (e *Engine) runAttempt(ctx context.Context, agent Agent, stage Stage, in Input) *Result {
	attemptCtx, cancel := context.WithTimeout(ctx, stage.Timeout)
	defer cancel()

	start := time.Now()
	res, err := agent.Run(attemptCtx, in)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		timedOut := errors.Is(err, context.DeadlineExceeded) ||
			(errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil)
		if timedOut {
			res = Fail(stage.AgentID,
				fmt.Sprintf("agent %s timed out after %s", stage.AgentID, stage.Timeout),
				err.Error())
		} else {
			res = Fail(stage.AgentID,
				fmt.Sprintf("agent %s failed", stage.AgentID),
				err.Error())
		}
	case res == nil:
		res = Fail(stage.AgentID, fmt.Sprintf("agent %s returned no result", stage.AgentID))
	}

	if res.AgentID == "" {
		res.AgentID = stage.AgentID
	}
	if res.ExecutionTime == 0 {
		res.ExecutionTime = elapsed
	}
	return res
}

// sleepBackoff waits before retry attempt n, aborting when ctx ends.
func sleepBackoff(ctx context.Context, attempt int) error {
	delay := retryBaseDelay << (attempt - 1)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// agentStatusFor maps a stage result onto the persisted agent status.
// Partial results count as success: their output is usable downstream.
func agentStatusFor(rs ResultStatus) state.AgentStatus {
	switch rs {
	case ResultSuccess, ResultPartial:
		return state.AgentSuccess
	case ResultSkipped:
		return state.AgentSkipped
	default:
		return state.AgentFailed
	}
}

// spanError records err on the span and returns it unchanged.
func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
