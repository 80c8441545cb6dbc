package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/themesmith/internal/state"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
	maxActiveRows   = 8
	maxRecentRows   = 5
)

// Model represents the BubbleTea dashboard model
type Model struct {
	serverURL  string
	interval   time.Duration
	lastUpdate time.Time
	status     StatusSnapshot
	err        error
	quitting   bool

	// Progress bars
	stageProgress progress.Model
	rateProgress  progress.Model
}

// StatusSnapshot holds one poll of the daemon's pipeline state
type StatusSnapshot struct {
	Version string

	Total     int
	Queued    int
	Running   int
	Completed int
	Failed    int
	Cancelled int

	// SuccessRate is completed / (completed + failed); zero when nothing
	// has finished yet.
	SuccessRate float64

	// Throughput is completions per minute, measured between polls
	Throughput float64

	Active []ActiveRun
	Recent []FinishedRun

	// Historical data for sparklines (last N points)
	SuccessHistory    []float64
	ActiveHistory     []float64
	ThroughputHistory []float64
}

// ActiveRun is one currently-executing pipeline
type ActiveRun struct {
	ID       string
	Template string
	Stage    string
	Done     int
	Total    int
	Elapsed  float64
}

// FinishedRun is one terminal pipeline shown in the recent list
type FinishedRun struct {
	ID       string
	Template string
	Status   state.PipelineStatus
	Duration float64
}

// Lipgloss styles (k9s-inspired color scheme)
var (
	// Header style - bright cyan background, bold black text
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	// Section title style - bold bright cyan
	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	// Label style - dim cyan
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	// Value style - bright white
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	// Dim style - for units and secondary info
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	// Status styles with unicode symbols
	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// Container style - rounded border with dim gray
	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	// Footer style - bright keys on dim background
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	// Sparkline container
	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a new dashboard model
func NewModel(serverURL string, interval time.Duration) Model {
	// Initialize progress bars with custom gradient
	stageProg := progress.New(
		progress.WithGradient("#00ffff", "#ff00ff"),
		progress.WithWidth(40),
	)

	rateProg := progress.New(
		progress.WithGradient("#ff0000", "#00ff00"),
		progress.WithWidth(40),
	)

	return Model{
		serverURL:     serverURL,
		interval:      interval,
		quitting:      false,
		stageProgress: stageProg,
		rateProgress:  rateProg,
		status: StatusSnapshot{
			SuccessHistory:    make([]float64, 0, historySize),
			ActiveHistory:     make([]float64, 0, historySize),
			ThroughputHistory: make([]float64, 0, historySize),
		},
	}
}

// getRunBadge returns a colored status badge for one pipeline
func getRunBadge(status state.PipelineStatus) string {
	switch status {
	case state.StatusCompleted:
		return healthyStyle.Render("[✓]")
	case state.StatusFailed:
		return errorStyle.Render("[✗]")
	case state.StatusCancelled:
		return warningStyle.Render("[⚠]")
	default:
		return dimStyle.Render("[·]")
	}
}

// getStatusBadge returns the overall health badge for the header
func getStatusBadge(s StatusSnapshot) string {
	finished := s.Completed + s.Failed
	switch {
	case finished == 0 || s.SuccessRate >= 0.9:
		return healthyStyle.Render("✓ HEALTHY")
	case s.SuccessRate >= 0.5:
		return warningStyle.Render("⚠ WARN")
	default:
		return errorStyle.Render("✗ FAILING")
	}
}

// appendToHistory appends a value to history, maintaining max size
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

// createSparkline creates a sparkline chart from historical data
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}

	return sparklineStyle.Render(spark.View())
}

// Message types
type tickMsg time.Time
type statusMsg StatusSnapshot
type errMsg error

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tick(m.interval),
		fetchStatus(m.serverURL),
	)
}

// tick creates a tick command for auto-refresh
func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchStatus fetches pipeline state from the daemon
func fetchStatus(serverURL string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client := NewStatusClient(serverURL)

		health, err := client.FetchHealth(ctx)
		if err != nil {
			return errMsg(err)
		}

		overview, err := client.FetchOverview(ctx)
		if err != nil {
			return errMsg(err)
		}

		return statusMsg(buildSnapshot(health.Version, overview, time.Now()))
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetchStatus(m.serverURL)
		}

	case tickMsg:
		// Auto-refresh triggered
		return m, tea.Batch(
			tick(m.interval),
			fetchStatus(m.serverURL),
		)

	case statusMsg:
		// Snapshot successfully fetched - update with history
		next := StatusSnapshot(msg)

		// Completion throughput needs the previous poll's counter
		if !m.lastUpdate.IsZero() && m.interval > 0 {
			if delta := next.Completed - m.status.Completed; delta > 0 {
				next.Throughput = float64(delta) / m.interval.Minutes()
			}
		}

		// Preserve historical data and update ring buffers
		next.SuccessHistory = appendToHistory(m.status.SuccessHistory, next.SuccessRate*100)
		next.ActiveHistory = appendToHistory(m.status.ActiveHistory, float64(next.Running+next.Queued))
		next.ThroughputHistory = appendToHistory(m.status.ThroughputHistory, next.Throughput)

		m.status = next
		m.lastUpdate = time.Now()
		m.err = nil
		return m, nil

	case errMsg:
		// Error occurred
		m.err = error(msg)
		return m, nil
	}

	return m, nil
}

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	// Display error state if error exists
	if m.err != nil {
		return m.renderError()
	}

	return m.renderDashboard()
}

// renderError renders the error view
func (m Model) renderError() string {
	header := headerStyle.Render("themesmith Pipeline Dashboard")

	var content string
	content += "\n"
	content += errorStyle.Render("⚠ Cannot connect to themesmithd") + "\n"
	content += "\n"
	content += dimStyle.Render("URL: ") + valueStyle.Render(m.serverURL) + "\n"
	content += dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n"
	content += "\n"
	content += dimStyle.Render("Please ensure:") + "\n"
	content += dimStyle.Render("  1. themesmithd is running") + "\n"
	content += dimStyle.Render("  2. --server matches its listen address") + "\n"
	content += "\n"
	content += footerStyle.Render("[q] quit  [r] retry") + "\n"

	box := containerStyle.Render(header + "\n" + content)
	return box
}

// renderDashboard renders the main dashboard view with sparklines and
// per-run progress bars
func (m Model) renderDashboard() string {
	var content string

	// Header with status badge
	lastUpdateStr := "Never"
	if !m.lastUpdate.IsZero() {
		lastUpdateStr = m.lastUpdate.Format("3:04:05 PM")
	}

	header := headerStyle.Render(" themesmith Monitor ")
	statusBadge := getStatusBadge(m.status)
	headerLine := fmt.Sprintf("%s   %s %s   %s %s   %s",
		statusBadge,
		dimStyle.Render("Server:"),
		valueStyle.Render(m.status.Version),
		dimStyle.Render("Pipelines:"),
		valueStyle.Render(fmt.Sprintf("%d", m.status.Total)),
		dimStyle.Render(lastUpdateStr))

	content += header + "\n"
	content += headerLine + "\n"

	// Pipelines section with counters, success rate and throughput
	content += "\n" + sectionStyle.Render("┃ Pipelines") + "\n"

	content += labelStyle.Render("  Queued: ") +
		valueStyle.Render(fmt.Sprintf("%d", m.status.Queued)) +
		labelStyle.Render("   Running: ") +
		valueStyle.Render(fmt.Sprintf("%d", m.status.Running)) +
		labelStyle.Render("   Completed: ") +
		valueStyle.Render(fmt.Sprintf("%d", m.status.Completed)) +
		labelStyle.Render("   Failed: ") +
		valueStyle.Render(fmt.Sprintf("%d", m.status.Failed)) +
		labelStyle.Render("   Cancelled: ") +
		valueStyle.Render(fmt.Sprintf("%d", m.status.Cancelled)) + "\n"

	// Success rate with sparkline and progress bar
	successSparkline := createSparkline(m.status.SuccessHistory)
	content += labelStyle.Render("  Success: ") +
		valueStyle.Render(FormatPercentage(m.status.SuccessRate)) +
		"          " + successSparkline + "\n"

	content += labelStyle.Render("  Health: ") +
		m.rateProgress.ViewAs(m.status.SuccessRate) +
		" " + dimStyle.Render(FormatPercentage(m.status.SuccessRate)) + "\n"

	// Throughput with sparkline
	throughputSparkline := createSparkline(m.status.ThroughputHistory)
	content += labelStyle.Render("  Throughput: ") +
		valueStyle.Render(FormatRate(m.status.Throughput)) +
		"   " + throughputSparkline + "\n"

	// Active runs section with per-run stage progress
	content += "\n" + sectionStyle.Render("┃ Active Runs") + "\n"
	if len(m.status.Active) == 0 {
		content += dimStyle.Render("  No pipelines running") + "\n"
	}
	for i, run := range m.status.Active {
		if i == maxActiveRows {
			content += dimStyle.Render(fmt.Sprintf("  ... and %d more", len(m.status.Active)-maxActiveRows)) + "\n"
			break
		}
		ratio := 0.0
		if run.Total > 0 {
			ratio = float64(run.Done) / float64(run.Total)
		}
		content += labelStyle.Render("  "+run.ID+" ") +
			m.stageProgress.ViewAs(ratio) +
			" " + valueStyle.Render(FormatStageCount(run.Done, run.Total)) +
			" " + dimStyle.Render(run.Stage) +
			"  " + dimStyle.Render(FormatElapsed(run.Elapsed)) + "\n"
	}

	// Recent runs section
	content += "\n" + sectionStyle.Render("┃ Recent Runs") + "\n"
	if len(m.status.Recent) == 0 {
		content += dimStyle.Render("  No finished pipelines yet") + "\n"
	}
	for _, run := range m.status.Recent {
		content += "  " + getRunBadge(run.Status) +
			" " + valueStyle.Render(run.ID) +
			" " + labelStyle.Render(string(run.Status)) +
			"  " + dimStyle.Render(FormatElapsed(run.Duration)) +
			"  " + dimStyle.Render(run.Template) + "\n"
	}

	// Activity section with in-flight sparkline
	content += "\n" + sectionStyle.Render("┃ Activity") + "\n"
	activeSparkline := createSparkline(m.status.ActiveHistory)
	content += labelStyle.Render("  In flight: ") +
		valueStyle.Render(fmt.Sprintf("%d", m.status.Running+m.status.Queued)) +
		"            " + activeSparkline + "\n"

	// Footer with keyboard shortcuts
	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ") +
		footerStyle.Render(fmt.Sprintf("Auto: %v", m.interval))

	content += "\n" + footer

	// Wrap in container
	return containerStyle.Render(content)
}
