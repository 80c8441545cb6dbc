// Package state persists pipeline run records to a single JSON file.
//
// The store keeps the full state in memory and writes through on every
// mutation. Writes are atomic (temp file plus rename) and each one is
// preceded by a gzip backup of the previous file, so a corrupt primary
// can be recovered on the next load.
package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
)

const instrumentationName = "github.com/fyrsmithlabs/themesmith/internal/state"

const (
	// recentLimit caps Summary.Recent.
	recentLimit = 10

	// stuckRunningAfter marks running pipelines as problematic once
	// they have been running this long without finishing.
	stuckRunningAfter = time.Hour
)

var (
	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("state store is closed")

	// ErrNotFound is returned when a pipeline or agent does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned when creating a pipeline whose ID is taken.
	ErrExists = errors.New("already exists")
)

// Store persists and queries pipeline run state.
type Store interface {
	// CreatePipeline registers a new queued pipeline with all stages pending.
	CreatePipeline(ctx context.Context, id, templateID, request string, stageIDs []string) (*Pipeline, error)

	// SetPipelineStatus transitions a pipeline and records its message.
	SetPipelineStatus(ctx context.Context, id string, status PipelineStatus, message string) error

	// SetAgentStatus transitions one stage of a pipeline.
	SetAgentStatus(ctx context.Context, id, agentID string, status AgentStatus, update AgentUpdate) error

	// Get returns a copy of one pipeline's record.
	Get(ctx context.Context, id string) (*Pipeline, error)

	// List returns copies of all pipeline records, newest first.
	List(ctx context.Context) ([]*Pipeline, error)

	// Summary aggregates totals, recent runs, and problematic runs.
	Summary(ctx context.Context) (*Summary, error)

	// Cleanup removes finished pipelines older than the cutoff and any
	// malformed records, returning how many were removed.
	Cleanup(ctx context.Context, olderThan time.Duration) (int, error)

	// Close marks the store closed. Safe to call multiple times.
	Close() error
}

// Config holds store dependencies.
type Config struct {
	// Path is the location of the state file.
	Path string

	// Logger is required.
	Logger *logging.Logger
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if c.Path == "" {
		return fmt.Errorf("state file path cannot be empty")
	}
	if c.Logger == nil {
		return fmt.Errorf("logger cannot be nil")
	}
	return nil
}

type store struct {
	config *Config
	logger *logging.Logger

	mu     sync.RWMutex
	file   *stateFile
	closed bool

	tracer trace.Tracer
	meter  metric.Meter

	pipelinesCreated metric.Int64Counter
	writesTotal      metric.Int64Counter
	writeDuration    metric.Float64Histogram
	cleanupRemoved   metric.Int64Counter
}

// NewStore loads (or initializes) the state file at cfg.Path.
func NewStore(cfg *Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid state config: %w", err)
	}

	s := &store{
		config: cfg,
		logger: cfg.Logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	s.initMetrics()
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *store) initMetrics() {
	ctx := context.Background()
	var err error

	s.pipelinesCreated, err = s.meter.Int64Counter(
		"themesmith.state.pipelines_created_total",
		metric.WithDescription("Total number of pipelines registered in the state store"),
		metric.WithUnit("{pipeline}"),
	)
	if err != nil {
		s.logger.Warn(ctx, "failed to create pipelines counter", zap.Error(err))
	}

	s.writesTotal, err = s.meter.Int64Counter(
		"themesmith.state.writes_total",
		metric.WithDescription("Total number of state file write attempts"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		s.logger.Warn(ctx, "failed to create writes counter", zap.Error(err))
	}

	s.writeDuration, err = s.meter.Float64Histogram(
		"themesmith.state.write_duration_seconds",
		metric.WithDescription("State file write latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		s.logger.Warn(ctx, "failed to create write duration histogram", zap.Error(err))
	}

	s.cleanupRemoved, err = s.meter.Int64Counter(
		"themesmith.state.cleanup_removed_total",
		metric.WithDescription("Total number of pipeline records removed by cleanup"),
		metric.WithUnit("{pipeline}"),
	)
	if err != nil {
		s.logger.Warn(ctx, "failed to create cleanup counter", zap.Error(err))
	}
}

func (s *store) CreatePipeline(ctx context.Context, id, templateID, request string, stageIDs []string) (*Pipeline, error) {
	ctx, span := s.tracer.Start(ctx, "state.create_pipeline",
		trace.WithAttributes(attribute.String("pipeline.id", id)))
	defer span.End()

	if id == "" {
		return nil, fmt.Errorf("pipeline ID cannot be empty")
	}
	if len(stageIDs) == 0 {
		return nil, fmt.Errorf("pipeline %s has no stages", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.file.Pipelines[id]; ok {
		return nil, fmt.Errorf("pipeline %s: %w", id, ErrExists)
	}

	now := time.Now().UTC()
	p := &Pipeline{
		ID:         id,
		TemplateID: templateID,
		Status:     StatusQueued,
		Request:    request,
		CreatedAt:  now,
		UpdatedAt:  now,
		Agents:     make(map[string]*AgentState, len(stageIDs)),
		AgentOrder: append([]string(nil), stageIDs...),
	}
	for _, stageID := range stageIDs {
		p.Agents[stageID] = &AgentState{Status: AgentPending}
	}
	s.file.Pipelines[id] = p

	if err := s.persistLocked(ctx); err != nil {
		delete(s.file.Pipelines, id)
		return nil, s.recordError(span, err)
	}

	if s.pipelinesCreated != nil {
		s.pipelinesCreated.Add(ctx, 1)
	}
	s.logger.Info(ctx, "pipeline registered",
		zap.String("pipeline_id", id),
		zap.String("template_id", templateID),
		zap.Int("stages", len(stageIDs)))

	return p.clone(), nil
}

func (s *store) SetPipelineStatus(ctx context.Context, id string, status PipelineStatus, message string) error {
	ctx, span := s.tracer.Start(ctx, "state.set_pipeline_status",
		trace.WithAttributes(
			attribute.String("pipeline.id", id),
			attribute.String("pipeline.status", string(status))))
	defer span.End()

	if !status.Valid() {
		return fmt.Errorf("invalid pipeline status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	p, ok := s.file.Pipelines[id]
	if !ok {
		return fmt.Errorf("pipeline %s: %w", id, ErrNotFound)
	}

	now := time.Now().UTC()
	p.Status = status
	p.Message = message
	p.UpdatedAt = now
	if status == StatusRunning && p.StartedAt == nil {
		p.StartedAt = &now
	}
	if status.Terminal() && p.CompletedAt == nil {
		p.CompletedAt = &now
	}

	if err := s.persistLocked(ctx); err != nil {
		return s.recordError(span, err)
	}

	s.logger.Debug(ctx, "pipeline status updated",
		zap.String("pipeline_id", id),
		zap.String("status", string(status)))
	return nil
}

func (s *store) SetAgentStatus(ctx context.Context, id, agentID string, status AgentStatus, update AgentUpdate) error {
	ctx, span := s.tracer.Start(ctx, "state.set_agent_status",
		trace.WithAttributes(
			attribute.String("pipeline.id", id),
			attribute.String("agent.id", agentID),
			attribute.String("agent.status", string(status))))
	defer span.End()

	if !status.Valid() {
		return fmt.Errorf("invalid agent status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	p, ok := s.file.Pipelines[id]
	if !ok {
		return fmt.Errorf("pipeline %s: %w", id, ErrNotFound)
	}
	a, ok := p.Agents[agentID]
	if !ok {
		return fmt.Errorf("agent %s in pipeline %s: %w", agentID, id, ErrNotFound)
	}

	now := time.Now().UTC()
	a.Status = status
	if status == AgentRunning && a.StartedAt == nil {
		a.StartedAt = &now
	}
	if status.Terminal() {
		if a.CompletedAt == nil {
			a.CompletedAt = &now
		}
		switch {
		case update.ExecutionTime > 0:
			a.ExecutionTime = update.ExecutionTime
		case a.StartedAt != nil:
			a.ExecutionTime = a.CompletedAt.Sub(*a.StartedAt).Seconds()
		}
	}
	if update.InputPath != "" {
		a.InputPath = update.InputPath
	}
	if update.OutputPath != "" {
		a.OutputPath = update.OutputPath
	}
	if update.Error != "" {
		a.Error = update.Error
	}
	if len(update.Metadata) > 0 {
		if a.Metadata == nil {
			a.Metadata = make(map[string]any, len(update.Metadata))
		}
		for k, v := range update.Metadata {
			a.Metadata[k] = v
		}
	}
	p.UpdatedAt = now

	if err := s.persistLocked(ctx); err != nil {
		return s.recordError(span, err)
	}

	s.logger.Debug(ctx, "agent status updated",
		zap.String("pipeline_id", id),
		zap.String("agent_id", agentID),
		zap.String("status", string(status)))
	return nil
}

func (s *store) Get(ctx context.Context, id string) (*Pipeline, error) {
	_, span := s.tracer.Start(ctx, "state.get",
		trace.WithAttributes(attribute.String("pipeline.id", id)))
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	p, ok := s.file.Pipelines[id]
	if !ok {
		return nil, fmt.Errorf("pipeline %s: %w", id, ErrNotFound)
	}
	return p.clone(), nil
}

func (s *store) List(ctx context.Context) ([]*Pipeline, error) {
	_, span := s.tracer.Start(ctx, "state.list")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	pipelines := make([]*Pipeline, 0, len(s.file.Pipelines))
	for _, p := range s.file.Pipelines {
		pipelines = append(pipelines, p.clone())
	}
	sort.Slice(pipelines, func(i, j int) bool {
		if !pipelines[i].CreatedAt.Equal(pipelines[j].CreatedAt) {
			return pipelines[i].CreatedAt.After(pipelines[j].CreatedAt)
		}
		return pipelines[i].ID < pipelines[j].ID
	})
	span.SetAttributes(attribute.Int("pipeline.count", len(pipelines)))
	return pipelines, nil
}

func (s *store) Summary(ctx context.Context) (*Summary, error) {
	_, span := s.tracer.Start(ctx, "state.summary")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	summary := &Summary{
		TotalPipelines: len(s.file.Pipelines),
		ByStatus: map[PipelineStatus]int{
			StatusQueued:    0,
			StatusRunning:   0,
			StatusCompleted: 0,
			StatusFailed:    0,
			StatusCancelled: 0,
		},
	}

	now := time.Now().UTC()
	all := make([]*Pipeline, 0, len(s.file.Pipelines))
	for _, p := range s.file.Pipelines {
		summary.ByStatus[p.Status]++
		all = append(all, p)

		switch {
		case p.Status == StatusFailed:
			summary.Problematic = append(summary.Problematic, p.clone())
		case p.Status == StatusRunning && p.StartedAt != nil && now.Sub(*p.StartedAt) > stuckRunningAfter:
			summary.Problematic = append(summary.Problematic, p.clone())
		}
	}

	sort.Slice(all, func(i, j int) bool {
		ti, tj := effectiveStart(all[i]), effectiveStart(all[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return all[i].ID < all[j].ID
	})
	for i, p := range all {
		if i >= recentLimit {
			break
		}
		summary.Recent = append(summary.Recent, p.clone())
	}
	sort.Slice(summary.Problematic, func(i, j int) bool {
		return summary.Problematic[i].ID < summary.Problematic[j].ID
	})

	return summary, nil
}

// effectiveStart orders pipelines that never started by creation time.
func effectiveStart(p *Pipeline) time.Time {
	if p.StartedAt != nil {
		return *p.StartedAt
	}
	return p.CreatedAt
}

func (s *store) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	ctx, span := s.tracer.Start(ctx, "state.cleanup",
		trace.WithAttributes(attribute.String("cleanup.older_than", olderThan.String())))
	defer span.End()

	if olderThan < 0 {
		return 0, fmt.Errorf("cleanup cutoff cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	removed := 0
	for id, p := range s.file.Pipelines {
		if malformed(p) {
			delete(s.file.Pipelines, id)
			removed++
			s.logger.Warn(ctx, "removed malformed pipeline record", zap.String("pipeline_id", id))
			continue
		}
		if !p.Status.Terminal() {
			continue
		}
		finished := p.UpdatedAt
		if p.CompletedAt != nil {
			finished = *p.CompletedAt
		}
		if finished.Before(cutoff) {
			delete(s.file.Pipelines, id)
			removed++
		}
	}

	if removed > 0 {
		if err := s.persistLocked(ctx); err != nil {
			return 0, s.recordError(span, err)
		}
		if s.cleanupRemoved != nil {
			s.cleanupRemoved.Add(ctx, int64(removed))
		}
		s.logger.Info(ctx, "cleaned up pipeline records", zap.Int("removed", removed))
	}

	span.SetAttributes(attribute.Int("cleanup.removed", removed))
	return removed, nil
}

// malformed catches records that decoded to unusable values.
func malformed(p *Pipeline) bool {
	return p == nil || p.ID == "" || !p.Status.Valid()
}

func (s *store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug(context.Background(), "state store closed",
		zap.String("path", s.config.Path))
	return nil
}

func (s *store) recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
