package monitor

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/themesmith/internal/state"
)

func TestNewModel(t *testing.T) {
	model := NewModel("http://localhost:9190", 5*time.Second)
	assert.Equal(t, "http://localhost:9190", model.serverURL)
	assert.Equal(t, 5*time.Second, model.interval)
	assert.False(t, model.quitting)
}

func TestModel_Init(t *testing.T) {
	model := NewModel("http://localhost:9190", 5*time.Second)
	cmd := model.Init()

	// Init should return a tick command to start auto-refresh
	assert.NotNil(t, cmd)
}

func TestModel_Update_QuitKey(t *testing.T) {
	model := NewModel("http://localhost:9190", 5*time.Second)

	// Send 'q' key message
	keyMsg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
	updatedModel, cmd := model.Update(keyMsg)

	// Model should be marked as quitting
	m := updatedModel.(Model)
	assert.True(t, m.quitting)
	assert.NotNil(t, cmd) // Should return tea.Quit
}

func TestModel_Update_RefreshKey(t *testing.T) {
	model := NewModel("http://localhost:9190", 5*time.Second)

	// Send 'r' key message
	keyMsg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}
	updatedModel, cmd := model.Update(keyMsg)

	// Should trigger a status fetch
	m := updatedModel.(Model)
	assert.False(t, m.quitting)
	assert.NotNil(t, cmd) // Should return fetchStatus command
}

func TestModel_Update_TickMsg(t *testing.T) {
	model := NewModel("http://localhost:9190", 5*time.Second)

	// Send tick message
	msg := tickMsg(time.Now())
	updatedModel, cmd := model.Update(msg)

	// Should schedule next tick and fetch status
	m := updatedModel.(Model)
	assert.False(t, m.quitting)
	assert.NotNil(t, cmd) // Should return batch command (tick + fetchStatus)
}

func TestModel_Update_StatusMsg(t *testing.T) {
	model := NewModel("http://localhost:9190", 5*time.Second)

	msg := statusMsg(StatusSnapshot{
		Version:     "1.2.3",
		Total:       3,
		Running:     1,
		Completed:   2,
		SuccessRate: 1.0,
	})
	updatedModel, cmd := model.Update(msg)

	// Model should update the snapshot and lastUpdate time
	m := updatedModel.(Model)
	assert.Equal(t, 3, m.status.Total)
	assert.Equal(t, 1, m.status.Running)
	assert.Equal(t, 2, m.status.Completed)
	assert.False(t, m.lastUpdate.IsZero())
	assert.Nil(t, cmd) // No command needed after a snapshot update

	// History ring buffers pick up the new values
	assert.Equal(t, []float64{100.0}, m.status.SuccessHistory)
	assert.Equal(t, []float64{1.0}, m.status.ActiveHistory)
}

func TestModel_Update_Throughput(t *testing.T) {
	model := NewModel("http://localhost:9190", time.Minute)

	// First poll establishes the baseline counter
	updatedModel, _ := model.Update(statusMsg(StatusSnapshot{Completed: 10}))
	m := updatedModel.(Model)
	assert.Equal(t, 0.0, m.status.Throughput)

	// Three completions over a one-minute interval
	updatedModel, _ = m.Update(statusMsg(StatusSnapshot{Completed: 13}))
	m = updatedModel.(Model)
	assert.InDelta(t, 3.0, m.status.Throughput, 0.001)

	// Cleanup can shrink the counter; the rate never goes negative
	updatedModel, _ = m.Update(statusMsg(StatusSnapshot{Completed: 4}))
	m = updatedModel.(Model)
	assert.Equal(t, 0.0, m.status.Throughput)
}

func TestModel_Update_ErrMsg(t *testing.T) {
	model := NewModel("http://localhost:9190", 5*time.Second)

	// Send error message
	msg := errMsg(fmt.Errorf("connection refused"))
	updatedModel, cmd := model.Update(msg)

	// Model should store error
	m := updatedModel.(Model)
	assert.NotNil(t, m.err)
	assert.Contains(t, m.err.Error(), "connection refused")
	assert.Nil(t, cmd)
}

func TestModel_View_WithStatus(t *testing.T) {
	model := NewModel("http://localhost:9190", 5*time.Second)
	model.status = StatusSnapshot{
		Version:     "1.2.3",
		Total:       5,
		Queued:      1,
		Running:     1,
		Completed:   2,
		Failed:      1,
		SuccessRate: 2.0 / 3.0,
		Throughput:  0.4,
		Active: []ActiveRun{
			{ID: "a1b2c3d4", Template: "tpl1", Stage: "prompt_designer", Done: 7, Total: 12, Elapsed: 95},
		},
		Recent: []FinishedRun{
			{ID: "deadbeef", Template: "tpl1", Status: state.StatusCompleted, Duration: 240},
			{ID: "cafe0001", Template: "tpl2", Status: state.StatusFailed, Duration: 31},
		},
	}
	model.lastUpdate = time.Date(2024, 1, 1, 12, 34, 56, 0, time.UTC)

	view := model.View()

	// Verify view contains expected elements
	assert.Contains(t, view, "themesmith Monitor")
	assert.Contains(t, view, "12:34:56")
	assert.Contains(t, view, "1.2.3")
	assert.Contains(t, view, "Pipelines")
	assert.Contains(t, view, "Active Runs")
	assert.Contains(t, view, "a1b2c3d4")
	assert.Contains(t, view, "7/12")
	assert.Contains(t, view, "prompt_designer")
	assert.Contains(t, view, "Recent Runs")
	assert.Contains(t, view, "deadbeef")
	assert.Contains(t, view, "4m 0s")
	assert.Contains(t, view, "0.4 runs/min")
	assert.Contains(t, view, "[q]")
	assert.Contains(t, view, "[r]")
}

func TestModel_View_WithError(t *testing.T) {
	model := NewModel("http://localhost:9190", 5*time.Second)
	model.err = fmt.Errorf("connection refused")

	view := model.View()

	// Verify error message is displayed
	assert.Contains(t, view, "Cannot connect to themesmithd")
	assert.Contains(t, view, "connection refused")
	assert.Contains(t, view, "http://localhost:9190")
	assert.Contains(t, view, "[q]")
	assert.Contains(t, view, "[r]")
}

func TestModel_View_NoData(t *testing.T) {
	model := NewModel("http://localhost:9190", 5*time.Second)
	// No snapshot yet, no error

	view := model.View()

	// Should show the idle dashboard with placeholder rows
	assert.Contains(t, view, "themesmith Monitor")
	assert.Contains(t, view, "No pipelines running")
	assert.Contains(t, view, "No finished pipelines yet")
	assert.Contains(t, view, "[q]")
}

func TestModel_View_Quitting(t *testing.T) {
	model := NewModel("http://localhost:9190", 5*time.Second)
	model.quitting = true

	assert.Equal(t, "", model.View())
}
