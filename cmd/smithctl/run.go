package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/themesmith/internal/config"
	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/report"
	"github.com/fyrsmithlabs/themesmith/internal/services"
)

var (
	// run command flags
	runPipelineID string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runPipelineID, "id", "", "Pin the pipeline ID instead of generating one")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "Output the run report as JSON")
}

// runCmd runs the pipeline in-process
var runCmd = &cobra.Command{
	Use:   "run [request-file]",
	Short: "Run the theme pipeline locally",
	Long: `Run the full theme pipeline in-process instead of submitting it to a
themesmithd server. Stage progress is reported on stderr; the run
report is printed when the pipeline finishes.

Examples:
  # Generate a theme from a request document
  smithctl run request.md

  # Read the request from stdin
  cat request.md | smithctl run -

  # Pin the pipeline ID
  smithctl run request.md --id launch-2026

  # Print the machine-readable report
  smithctl run request.md --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

// runRun handles the run command
func runRun(cmd *cobra.Command, args []string) error {
	content, err := readInput(args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(content)) == "" {
		return fmt.Errorf("no request content to run")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, logger, err := initServices(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()
	defer func() { _ = logger.Sync() }()

	engine := reg.Engine()
	engine.OnProgress(func(pipelineID, agentID string, completed, total int) {
		fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", completed, total, agentID)
	})

	rep, err := engine.Run(ctx, pipeline.RunRequest{
		Request:    string(content),
		PipelineID: runPipelineID,
	})
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	if jsonOut {
		return outputJSON(rep)
	}

	fmt.Print(report.Render(rep))
	if !rep.Success {
		return fmt.Errorf("pipeline %s failed", rep.PipelineID)
	}
	return nil
}

// initServices builds the daemon's service graph for a local run. CLI
// output owns stdout, so logs go to stderr.
func initServices(ctx context.Context) (services.Registry, *logging.Logger, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newStderrLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	reg, err := services.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build services: %w", err)
	}
	return reg, logger, nil
}
