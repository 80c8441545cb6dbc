// Package pipeline orchestrates multi-stage theme generation runs.
//
// An Engine executes a fixed, ordered list of stages against a set of
// registered agents. Each stage consumes the previous stage's output,
// every transition is written through the state store, and the finished
// run is summarized into a report on disk.
package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/paths"
	"github.com/fyrsmithlabs/themesmith/internal/state"
)

const instrumentationName = "github.com/fyrsmithlabs/themesmith/internal/pipeline"

// ErrClosed is returned when an operation is attempted on a closed engine.
var ErrClosed = errors.New("engine is closed")

// ErrFinished is returned by Cancel when the pipeline already reached a
// terminal status.
var ErrFinished = errors.New("pipeline already finished")

// runIDPattern constrains caller-supplied pipeline IDs. Generated IDs
// always satisfy it.
var runIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// EventPublisher receives pipeline lifecycle notifications. All methods
// are best-effort: the engine logs publish failures and keeps running.
type EventPublisher interface {
	PipelineStarted(ctx context.Context, pipelineID string) error
	StageCompleted(ctx context.Context, pipelineID, agentID string, status state.AgentStatus) error
	PipelineFinished(ctx context.Context, pipelineID string, status state.PipelineStatus) error
}

// Sanitizer scrubs secrets from request documents before they are
// persisted anywhere.
type Sanitizer interface {
	Scrub(ctx context.Context, input string) (string, error)
}

// ProgressFunc is called after every stage with the running totals.
type ProgressFunc func(pipelineID, agentID string, completed, total int)

// Config configures the pipeline engine.
type Config struct {
	// WorkspaceRoot is the directory pipeline trees are created under.
	// A leading "~/" is expanded.
	WorkspaceRoot string

	// Stages is the execution order. Defaults to DefaultStages().
	Stages []Stage

	// Store is required.
	Store state.Store

	// Logger is required.
	Logger *logging.Logger

	// Publisher is optional. When set, lifecycle events are emitted
	// through it.
	Publisher EventPublisher

	// Sanitizer is optional. When set, request documents are scrubbed
	// before any artifact or state is written.
	Sanitizer Sanitizer
}

// Engine runs theme generation pipelines.
type Engine struct {
	config    *Config
	root      string
	store     state.Store
	logger    *logging.Logger
	publisher EventPublisher
	sanitizer Sanitizer
	stages    []Stage

	tracer trace.Tracer
	meter  metric.Meter

	runsTotal     metric.Int64Counter
	runDuration   metric.Float64Histogram
	stagesTotal   metric.Int64Counter
	stageDuration metric.Float64Histogram

	mu       sync.RWMutex
	agents   map[string]Agent
	progress ProgressFunc
	active   map[string]context.CancelFunc
	closed   bool
}

// NewEngine creates a pipeline engine.
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Store == nil {
		return nil, errors.New("state store is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	root, err := paths.ExpandRoot(cfg.WorkspaceRoot)
	if err != nil {
		return nil, err
	}

	stages := cfg.Stages
	if len(stages) == 0 {
		stages = DefaultStages()
	}

	e := &Engine{
		config:    cfg,
		root:      root,
		store:     cfg.Store,
		logger:    cfg.Logger,
		publisher: cfg.Publisher,
		sanitizer: cfg.Sanitizer,
		stages:    append([]Stage(nil), stages...),
		agents:    make(map[string]Agent),
		active:    make(map[string]context.CancelFunc),
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
	}
	e.initMetrics()
	return e, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (e *Engine) initMetrics() {
	ctx := context.Background()
	var err error

	e.runsTotal, err = e.meter.Int64Counter(
		"themesmith.pipeline.runs_total",
		metric.WithDescription("Total number of pipeline runs by final status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		e.logger.Warn(ctx, "failed to create runs counter", zap.Error(err))
	}

	e.runDuration, err = e.meter.Float64Histogram(
		"themesmith.pipeline.run_duration_seconds",
		metric.WithDescription("End-to-end pipeline run duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		e.logger.Warn(ctx, "failed to create run duration histogram", zap.Error(err))
	}

	e.stagesTotal, err = e.meter.Int64Counter(
		"themesmith.pipeline.stages_total",
		metric.WithDescription("Total number of stage executions by agent and status"),
		metric.WithUnit("{stage}"),
	)
	if err != nil {
		e.logger.Warn(ctx, "failed to create stages counter", zap.Error(err))
	}

	e.stageDuration, err = e.meter.Float64Histogram(
		"themesmith.pipeline.stage_duration_seconds",
		metric.WithDescription("Stage execution duration by agent"),
		metric.WithUnit("s"),
	)
	if err != nil {
		e.logger.Warn(ctx, "failed to create stage duration histogram", zap.Error(err))
	}
}

// Register adds an agent. Registering the same ID twice is an error.
func (e *Engine) Register(agent Agent) error {
	if agent == nil {
		return errors.New("agent cannot be nil")
	}
	id := agent.ID()
	if id == "" {
		return errors.New("agent ID cannot be empty")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if _, ok := e.agents[id]; ok {
		return fmt.Errorf("agent %s is already registered", id)
	}
	e.agents[id] = agent
	return nil
}

// OnProgress installs a callback invoked after every stage.
func (e *Engine) OnProgress(fn ProgressFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress = fn
}

// Stages returns a copy of the engine's stage order.
func (e *Engine) Stages() []Stage {
	return append([]Stage(nil), e.stages...)
}

// Status returns one pipeline's state record.
func (e *Engine) Status(ctx context.Context, id string) (*state.Pipeline, error) {
	return e.store.Get(ctx, id)
}

// List returns all pipeline records, newest first.
func (e *Engine) List(ctx context.Context) ([]*state.Pipeline, error) {
	return e.store.List(ctx)
}

// Summary aggregates the state store for status reporting.
func (e *Engine) Summary(ctx context.Context) (*state.Summary, error) {
	return e.store.Summary(ctx)
}

// Cancel stops a running pipeline. A queued or running record without a
// live run (daemon restart) is sealed as cancelled directly.
func (e *Engine) Cancel(ctx context.Context, id string) error {
	p, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.Status.Terminal() {
		return fmt.Errorf("pipeline %s is already %s: %w", id, p.Status, ErrFinished)
	}

	e.mu.RLock()
	cancel, live := e.active[id]
	e.mu.RUnlock()

	if live {
		cancel()
		e.logger.Info(ctx, "pipeline cancel requested", zap.String("pipeline_id", id))
		return nil
	}
	return e.store.SetPipelineStatus(ctx, id, state.StatusCancelled, "cancelled")
}

// Cleanup removes finished pipelines older than the cutoff from the
// state store and deletes their artifact trees.
func (e *Engine) Cleanup(ctx context.Context, olderThanDays int) (int, error) {
	if olderThanDays < 0 {
		return 0, fmt.Errorf("days cannot be negative")
	}

	before, err := e.store.List(ctx)
	if err != nil {
		return 0, err
	}
	removed, err := e.store.Cleanup(ctx, time.Duration(olderThanDays)*24*time.Hour)
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}

	after, err := e.store.List(ctx)
	if err != nil {
		return removed, err
	}
	survivors := make(map[string]bool, len(after))
	for _, p := range after {
		survivors[p.ID] = true
	}
	for _, p := range before {
		if survivors[p.ID] {
			continue
		}
		dir := paths.PipelineDir(e.root, p.ID)
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn(ctx, "failed to remove pipeline directory",
				zap.String("pipeline_id", p.ID),
				zap.Error(err))
		}
	}
	return removed, nil
}

// Close cancels all live runs and rejects further work. Safe to call
// multiple times.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	cancels := make([]context.CancelFunc, 0, len(e.active))
	for _, cancel := range e.active {
		cancels = append(cancels, cancel)
	}
	e.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	e.logger.Debug(context.Background(), "pipeline engine closed",
		zap.Int("cancelled_runs", len(cancels)))
	return nil
}

func (e *Engine) agentFor(id string) (Agent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	agent, ok := e.agents[id]
	return agent, ok
}

func (e *Engine) trackRun(id string, cancel context.CancelFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.active[id] = cancel
	return nil
}

func (e *Engine) untrackRun(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, id)
}

func (e *Engine) reportProgress(pipelineID, agentID string, completed, total int) {
	e.mu.RLock()
	fn := e.progress
	e.mu.RUnlock()
	if fn != nil {
		fn(pipelineID, agentID, completed, total)
	}
}

// newID generates the short hex IDs used for pipelines and templates.
func newID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:4])
}

// NewRunID returns a fresh pipeline ID in the format Run generates, for
// callers that need the ID before starting an asynchronous run.
func NewRunID() string {
	return newID()
}

// ValidRunID reports whether id is acceptable as a caller-supplied
// pipeline ID.
func ValidRunID(id string) bool {
	return runIDPattern.MatchString(id)
}

func (e *Engine) recordRunMetrics(ctx context.Context, status state.PipelineStatus, d time.Duration) {
	if e.runsTotal != nil {
		e.runsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(status))))
	}
	if e.runDuration != nil {
		e.runDuration.Record(ctx, d.Seconds())
	}
}

func (e *Engine) recordStageMetrics(ctx context.Context, agentID string, status ResultStatus, d time.Duration) {
	if e.stagesTotal != nil {
		e.stagesTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("agent.id", agentID),
			attribute.String("status", string(status))))
	}
	if e.stageDuration != nil {
		e.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
			attribute.String("agent.id", agentID)))
	}
}

func (e *Engine) publishStarted(ctx context.Context, pipelineID string) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PipelineStarted(ctx, pipelineID); err != nil {
		e.logger.Warn(ctx, "failed to publish pipeline started event", zap.Error(err))
	}
}

func (e *Engine) publishStage(ctx context.Context, pipelineID, agentID string, status state.AgentStatus) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.StageCompleted(ctx, pipelineID, agentID, status); err != nil {
		e.logger.Warn(ctx, "failed to publish stage event", zap.Error(err))
	}
}

func (e *Engine) publishFinished(ctx context.Context, pipelineID string, status state.PipelineStatus) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PipelineFinished(ctx, pipelineID, status); err != nil {
		e.logger.Warn(ctx, "failed to publish pipeline finished event", zap.Error(err))
	}
}
