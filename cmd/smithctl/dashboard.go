package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/themesmith/internal/monitor"
)

var (
	// dashboard command flags
	dashboardInterval time.Duration
)

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", 5*time.Second, "Refresh interval")
}

// dashboardCmd opens the live terminal dashboard
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live terminal dashboard for pipeline runs",
	Long: `Open a full-screen dashboard that polls the themesmithd server and
renders pipeline counters, per-stage progress of active runs and the
most recent completions. Press q to quit, r to refresh immediately.

Examples:
  # Watch the local daemon
  smithctl dashboard

  # Slower refresh against a remote server
  smithctl dashboard --server http://build-box:9190 --interval 10s`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

// runDashboard handles the dashboard command
func runDashboard(cmd *cobra.Command, args []string) error {
	if dashboardInterval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	model := monitor.NewModel(serverURL, dashboardInterval)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
