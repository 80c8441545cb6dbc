package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/themesmith/internal/state"
)

// StatusClient queries the themesmithd HTTP API
type StatusClient struct {
	baseURL string
	client  *http.Client
}

// HealthInfo matches internal/http/server.go HealthResponse
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Overview matches internal/http/server.go ListResponse
type Overview struct {
	Summary   *state.Summary    `json:"summary"`
	Pipelines []*state.Pipeline `json:"pipelines"`
}

// NewStatusClient creates a new status client
func NewStatusClient(baseURL string) *StatusClient {
	return &StatusClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

// FetchHealth reads the daemon's health endpoint
func (c *StatusClient) FetchHealth(ctx context.Context) (HealthInfo, error) {
	var health HealthInfo
	if err := c.get(ctx, "/health", &health); err != nil {
		return HealthInfo{}, err
	}
	return health, nil
}

// FetchOverview reads the daemon's pipeline listing
func (c *StatusClient) FetchOverview(ctx context.Context) (Overview, error) {
	var overview Overview
	if err := c.get(ctx, "/api/v1/pipelines", &overview); err != nil {
		return Overview{}, err
	}
	return overview, nil
}

func (c *StatusClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// buildSnapshot reduces the daemon's pipeline listing to the counters and
// rows the dashboard renders.
func buildSnapshot(version string, overview Overview, now time.Time) StatusSnapshot {
	snap := StatusSnapshot{Version: version}

	counts := map[state.PipelineStatus]int{}
	if overview.Summary != nil {
		snap.Total = overview.Summary.TotalPipelines
		for status, n := range overview.Summary.ByStatus {
			counts[status] = n
		}
	} else {
		snap.Total = len(overview.Pipelines)
		for _, p := range overview.Pipelines {
			if p != nil {
				counts[p.Status]++
			}
		}
	}
	snap.Queued = counts[state.StatusQueued]
	snap.Running = counts[state.StatusRunning]
	snap.Completed = counts[state.StatusCompleted]
	snap.Failed = counts[state.StatusFailed]
	snap.Cancelled = counts[state.StatusCancelled]

	if finished := snap.Completed + snap.Failed; finished > 0 {
		snap.SuccessRate = float64(snap.Completed) / float64(finished)
	}

	for _, p := range overview.Pipelines {
		if p == nil || p.Status != state.StatusRunning {
			continue
		}
		done, total, stage := stageProgress(p)
		started := p.CreatedAt
		if p.StartedAt != nil {
			started = *p.StartedAt
		}
		snap.Active = append(snap.Active, ActiveRun{
			ID:       p.ID,
			Template: p.TemplateID,
			Stage:    stage,
			Done:     done,
			Total:    total,
			Elapsed:  now.Sub(started).Seconds(),
		})
	}

	// The summary's recent list is already sorted newest first; fall back
	// to the full listing when the server omits it.
	recent := overview.Pipelines
	if overview.Summary != nil && len(overview.Summary.Recent) > 0 {
		recent = overview.Summary.Recent
	}
	for _, p := range recent {
		if p == nil || !p.Status.Terminal() {
			continue
		}
		snap.Recent = append(snap.Recent, FinishedRun{
			ID:       p.ID,
			Template: p.TemplateID,
			Status:   p.Status,
			Duration: runDuration(p),
		})
		if len(snap.Recent) == maxRecentRows {
			break
		}
	}

	return snap
}

// stageProgress reports how many stages of p have finished and which one is
// executing now.
func stageProgress(p *state.Pipeline) (done, total int, stage string) {
	total = len(p.AgentOrder)
	for _, agentID := range p.AgentOrder {
		a := p.Agents[agentID]
		if a == nil {
			continue
		}
		if a.Status.Terminal() {
			done++
			continue
		}
		if a.Status == state.AgentRunning && stage == "" {
			stage = agentID
		}
	}
	return done, total, stage
}

func runDuration(p *state.Pipeline) float64 {
	if p.StartedAt == nil || p.CompletedAt == nil {
		return 0
	}
	return p.CompletedAt.Sub(*p.StartedAt).Seconds()
}
