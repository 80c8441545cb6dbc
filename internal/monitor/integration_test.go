//go:build integration
// +build integration

package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStatusClient_Integration tests against a running themesmithd
// Run with: go test -tags=integration ./internal/monitor/...
func TestStatusClient_Integration(t *testing.T) {
	serverURL := "http://localhost:9190"
	client := NewStatusClient(serverURL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("health", func(t *testing.T) {
		health, err := client.FetchHealth(ctx)
		require.NoError(t, err, "themesmithd should be reachable at %s", serverURL)
		assert.Equal(t, "ok", health.Status)
		t.Logf("Server version: %s", health.Version)
	})

	t.Run("overview", func(t *testing.T) {
		overview, err := client.FetchOverview(ctx)
		require.NoError(t, err)
		require.NotNil(t, overview.Summary)
		assert.GreaterOrEqual(t, overview.Summary.TotalPipelines, 0)
		t.Logf("Pipelines: %d", overview.Summary.TotalPipelines)
	})

	t.Run("snapshot", func(t *testing.T) {
		overview, err := client.FetchOverview(ctx)
		require.NoError(t, err)

		snap := buildSnapshot("", overview, time.Now())
		assert.Equal(t, snap.Total,
			snap.Queued+snap.Running+snap.Completed+snap.Failed+snap.Cancelled)
	})
}
