// Themesmithd is the theme generation daemon.
//
// It exposes the agent pipeline over an HTTP API, optionally watches an
// inputs directory for request documents, and publishes pipeline events
// to NATS when configured. It can also run as an MCP stdio server or as
// a Temporal worker.
//
// Configuration is loaded from ~/.config/themesmith/config.yaml and
// THEMESMITH_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	themesmithd
//
//	# Configure via environment
//	THEMESMITH_SERVER_PORT=9290 themesmithd
//
//	# Serve the pipeline as MCP tools on stdio
//	themesmithd mcp
//
//	# Poll a Temporal task queue instead of serving HTTP
//	themesmithd -temporal-worker
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/themesmith/internal/config"
	"github.com/fyrsmithlabs/themesmith/internal/http"
	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/paths"
	"github.com/fyrsmithlabs/themesmith/internal/services"
	"github.com/fyrsmithlabs/themesmith/internal/telemetry"
	"github.com/fyrsmithlabs/themesmith/internal/watch"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default ~/.config/themesmith/config.yaml)")
	temporalWorker := flag.Bool("temporal-worker", false, "poll the Temporal task queue instead of serving HTTP")
	flag.Parse()
	args := flag.Args()

	mode := ""
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		case "mcp":
			mode = "mcp"
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  themesmithd                    Start the daemon\n")
			fmt.Fprintf(os.Stderr, "  themesmithd mcp                Serve MCP tools on stdio\n")
			fmt.Fprintf(os.Stderr, "  themesmithd -temporal-worker   Run a Temporal worker\n")
			fmt.Fprintf(os.Stderr, "  themesmithd version            Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch {
	case mode == "mcp":
		err = runStdio(ctx, *configPath)
	case *temporalWorker:
		err = runWorker(ctx, *configPath)
	default:
		err = run(ctx, *configPath)
	}
	if err != nil {
		log.Fatalf("themesmithd: %v", err)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("themesmithd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until the context is cancelled.
//
// This function wires everything in dependency order:
//  1. Loads and validates configuration
//  2. Initializes telemetry and the structured logger
//  3. Builds the service registry (store, engine, agents, events)
//  4. Starts the optional inputs watcher and the HTTP server
//  5. Performs graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, buildTelemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.ShutdownTimeout.Duration())
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	logger, err := newLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info(ctx, "starting themesmithd",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	reg, err := services.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}
	defer func() { _ = reg.Close() }()

	srv, err := http.NewServer(reg.Engine(), logger, &http.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("failed to build http server: %w", err)
	}

	var watcher *watch.Watcher
	if cfg.Workspace.InputsDir != "" {
		watcher, err = startWatcher(ctx, cfg, logger, reg)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(gctx, "http server listening",
			zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if watcher != nil {
		g.Go(func() error {
			<-gctx.Done()
			watcher.Stop()
			return nil
		})
		g.Go(func() error {
			logWatchEvents(gctx, logger, watcher.Events())
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info(context.Background(), "themesmithd shutdown complete")
	return nil
}

// startWatcher resolves the inputs directory and starts the watcher on it.
func startWatcher(ctx context.Context, cfg *config.Config, logger *logging.Logger, reg services.Registry) (*watch.Watcher, error) {
	dir, err := inputsDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve inputs directory: %w", err)
	}

	watcher, err := watch.New(logger, reg.Engine(), watch.Config{Dir: dir})
	if err != nil {
		return nil, fmt.Errorf("failed to build inputs watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start inputs watcher: %w", err)
	}
	return watcher, nil
}

// logWatchEvents drains the watcher's event channel until it closes.
func logWatchEvents(ctx context.Context, logger *logging.Logger, events <-chan watch.Event) {
	for ev := range events {
		switch ev.Type {
		case watch.EventSubmitted:
			logger.Info(ctx, "request document submitted",
				zap.String("path", ev.Path),
				zap.String("pipeline_id", ev.PipelineID))
		case watch.EventFinished:
			logger.Info(ctx, "request document run finished",
				zap.String("path", ev.Path),
				zap.String("pipeline_id", ev.PipelineID),
				zap.String("output", ev.OutputPath))
		case watch.EventFailed:
			logger.Error(ctx, "request document run failed",
				zap.String("path", ev.Path),
				zap.String("pipeline_id", ev.PipelineID),
				zap.Error(ev.Err))
		}
	}
}

// loadConfig ensures the config directory exists for default-path loads,
// then loads and validates the configuration.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		if err := config.EnsureConfigDir(); err != nil {
			return nil, err
		}
	}
	return config.LoadWithFile(configPath)
}

// inputsDir resolves the watch directory. Relative paths are taken
// against the workspace root.
func inputsDir(cfg *config.Config) (string, error) {
	dir := cfg.Workspace.InputsDir
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	root, err := paths.ExpandRoot(cfg.Workspace.Root)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, dir), nil
}

// newLogger builds the structured logger from the daemon configuration.
func newLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	logCfg, err := buildLogConfig(cfg)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(logCfg, tel.LoggerProvider())
}

// buildLogConfig maps the logging section onto the logging package config.
func buildLogConfig(cfg *config.Config) (*logging.Config, error) {
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logCfg := logging.NewDefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format
	logCfg.Output.OTEL = cfg.Telemetry.Enabled
	return logCfg, nil
}

// buildTelemetryConfig maps the telemetry section onto the telemetry
// package config.
func buildTelemetryConfig(cfg *config.Config) *telemetry.Config {
	telCfg := telemetry.NewDefaultConfig()
	telCfg.Enabled = cfg.Telemetry.Enabled
	telCfg.Endpoint = cfg.Telemetry.Endpoint
	telCfg.Protocol = cfg.Telemetry.Protocol
	telCfg.Insecure = cfg.Telemetry.Insecure
	telCfg.ServiceName = cfg.Telemetry.ServiceName
	telCfg.ServiceVersion = version
	telCfg.Sampling.Rate = cfg.Telemetry.SampleRatio
	telCfg.Shutdown.Timeout = cfg.Telemetry.ShutdownTimeout
	return telCfg
}
