package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/themesmith/internal/config"
	"github.com/fyrsmithlabs/themesmith/internal/paths"
	"github.com/fyrsmithlabs/themesmith/internal/report"
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&jsonOut, "json", false, "Output the report as JSON")
}

// reportCmd prints the persisted report of a finished run
var reportCmd = &cobra.Command{
	Use:   "report <pipeline-id>",
	Short: "Show the report of a finished pipeline run",
	Long: `Show the report a pipeline run wrote to its workspace directory. This
reads the local workspace and does not contact the server.

Examples:
  # Show a run report
  smithctl report a1b2c3d4

  # Output as JSON
  smithctl report a1b2c3d4 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

// runReport handles the report command
func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	root, err := paths.ExpandRoot(cfg.Workspace.Root)
	if err != nil {
		return err
	}

	path := filepath.Join(paths.PipelineDir(root, args[0]), string(paths.KindLogs), "pipeline_report.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no report found for pipeline %s", args[0])
		}
		return fmt.Errorf("failed to read report: %w", err)
	}

	var rep report.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return fmt.Errorf("failed to parse report %s: %w", path, err)
	}

	if jsonOut {
		return outputJSON(&rep)
	}

	fmt.Print(report.Render(&rep))
	return nil
}
