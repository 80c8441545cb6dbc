package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/themesmith/internal/agents"
	"github.com/fyrsmithlabs/themesmith/internal/config"
	"github.com/fyrsmithlabs/themesmith/internal/events"
	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/paths"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/sanitize"
	"github.com/fyrsmithlabs/themesmith/internal/state"
)

// stateFileName is the pipeline state file inside the workspace root.
const stateFileName = "pipeline_state.json"

// Registry provides access to the daemon's services.
type Registry interface {
	Store() state.Store
	Engine() *pipeline.Engine
	Scrubber() *sanitize.Scrubber
	Events() *events.Publisher

	// Close shuts services down in reverse dependency order.
	Close() error
}

// Options configures the registry with service instances.
type Options struct {
	Store    state.Store
	Engine   *pipeline.Engine
	Scrubber *sanitize.Scrubber
	Events   *events.Publisher
}

type registry struct {
	store    state.Store
	engine   *pipeline.Engine
	scrubber *sanitize.Scrubber
	events   *events.Publisher
}

// NewRegistry creates a registry from pre-built services.
func NewRegistry(opts Options) Registry {
	return &registry{
		store:    opts.Store,
		engine:   opts.Engine,
		scrubber: opts.Scrubber,
		events:   opts.Events,
	}
}

func (r *registry) Store() state.Store           { return r.store }
func (r *registry) Engine() *pipeline.Engine     { return r.engine }
func (r *registry) Scrubber() *sanitize.Scrubber { return r.scrubber }
func (r *registry) Events() *events.Publisher    { return r.events }

func (r *registry) Close() error {
	var firstErr error
	if r.engine != nil {
		if err := r.engine.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.events != nil {
		r.events.Close()
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Build constructs the full service graph from configuration. The
// returned registry owns every service it built; Close releases them.
func Build(ctx context.Context, cfg *config.Config, logger *logging.Logger) (Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	root, err := paths.ExpandRoot(cfg.Workspace.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}

	scrubber, err := sanitize.New(logger, &sanitize.Config{
		Enabled:       cfg.Sanitize.Enabled,
		AllowlistPath: cfg.Sanitize.AllowlistPath,
		Redaction:     cfg.Sanitize.Redaction,
	})
	if err != nil {
		return nil, fmt.Errorf("build scrubber: %w", err)
	}

	publisher, err := events.Connect(logger, &events.Config{
		Enabled:       cfg.Events.Enabled,
		URL:           cfg.Events.URL,
		AuthToken:     cfg.Events.AuthToken.Value(),
		SubjectPrefix: cfg.Events.SubjectPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("connect event publisher: %w", err)
	}

	store, err := state.NewStore(&state.Config{
		Path:   filepath.Join(root, stateFileName),
		Logger: logger,
	})
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("open state store: %w", err)
	}

	stages, err := pipeline.ApplyOverrides(pipeline.DefaultStages(), cfg.Pipeline.Stages)
	if err != nil {
		publisher.Close()
		store.Close()
		return nil, fmt.Errorf("apply stage overrides: %w", err)
	}

	engineCfg := &pipeline.Config{
		WorkspaceRoot: cfg.Workspace.Root,
		Stages:        stages,
		Store:         store,
		Logger:        logger,
		Sanitizer:     scrubber,
	}
	if publisher != nil {
		engineCfg.Publisher = publisher
	}

	engine, err := pipeline.NewEngine(engineCfg)
	if err != nil {
		publisher.Close()
		store.Close()
		return nil, fmt.Errorf("build pipeline engine: %w", err)
	}

	roster, err := agents.All(agents.Options{
		Logger:           logger,
		QualityThreshold: cfg.Pipeline.QualityThreshold,
		MaxRefinePasses:  cfg.Pipeline.MaxRefinePasses,
		VariationSeed:    cfg.Variation.Seed,
		Git: agents.GitOptions{
			Enabled:     cfg.Git.Enabled,
			AuthorName:  cfg.Git.AuthorName,
			AuthorEmail: cfg.Git.AuthorEmail,
		},
	})
	if err != nil {
		engine.Close()
		publisher.Close()
		store.Close()
		return nil, fmt.Errorf("build agents: %w", err)
	}
	for _, agent := range roster {
		if err := engine.Register(agent); err != nil {
			engine.Close()
			publisher.Close()
			store.Close()
			return nil, fmt.Errorf("register agent: %w", err)
		}
	}

	logger.Info(ctx, "service registry built")
	return NewRegistry(Options{
		Store:    store,
		Engine:   engine,
		Scrubber: scrubber,
		Events:   publisher,
	}), nil
}
