package main

import (
	"context"
	"fmt"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/services"
	"github.com/fyrsmithlabs/themesmith/internal/telemetry"
	"github.com/fyrsmithlabs/themesmith/internal/workflows"
)

// runWorker polls the Temporal task queue and executes theme generation
// workflows against a locally built pipeline engine.
//
// The Temporal server address comes from TEMPORAL_HOST (default
// localhost:7233); everything else uses the regular daemon configuration.
func runWorker(ctx context.Context, configPath string) error {
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

	temporalHost := os.Getenv("TEMPORAL_HOST")
	if temporalHost == "" {
		temporalHost = "localhost:7233"
	}

	logger.Info(ctx, "theme generation worker starting",
		zap.String("version", version),
		zap.String("temporal_host", temporalHost))

	reg, err := services.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}
	defer func() { _ = reg.Close() }()

	c, err := client.Dial(client.Options{
		HostPort: temporalHost,
	})
	if err != nil {
		return fmt.Errorf("unable to create Temporal client: %w", err)
	}
	defer c.Close()

	logger.Info(ctx, "temporal client connected", zap.String("host", temporalHost))

	activities, err := workflows.NewActivities(reg.Engine())
	if err != nil {
		return fmt.Errorf("failed to build activities: %w", err)
	}

	w := worker.New(c, workflows.TaskQueue, worker.Options{})
	workflows.RegisterAll(w, activities)

	logger.Info(ctx, "worker configured",
		zap.String("task_queue", workflows.TaskQueue))

	workerErrors := make(chan error, 1)
	go func() {
		logger.Info(ctx, "worker starting")
		workerErrors <- w.Run(worker.InterruptCh())
	}()

	select {
	case err := <-workerErrors:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
	case <-ctx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	logger.Info(ctx, "worker stopped gracefully")
	return nil
}
