package main

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/mcp"
	"github.com/fyrsmithlabs/themesmith/internal/services"
)

// runStdio serves the pipeline as MCP tools on stdio for AI assistant
// integration.
//
// Stdout carries the MCP protocol, so all logging is forced to stderr.
// Telemetry exporters are skipped; assistant sessions are short-lived.
func runStdio(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logCfg, err := buildLogConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	logCfg.Output.Stdout = false
	logCfg.Output.Stderr = true
	logCfg.Output.OTEL = false

	logger, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	reg, err := services.Build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}
	defer func() { _ = reg.Close() }()

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "themesmith",
		Version: version,
	}, reg.Engine(), reg.Scrubber(), logger)
	if err != nil {
		return fmt.Errorf("failed to build mcp server: %w", err)
	}

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}
