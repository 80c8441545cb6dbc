package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/themesmith/internal/paths"
	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/state"
	"github.com/fyrsmithlabs/themesmith/internal/theme"
)

// TestPipeline_EndToEnd drives the full agent roster from a request
// document to a packaged theme.
func TestPipeline_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	reg, root := newTestRegistry(t)

	var mu sync.Mutex
	var progress []string
	reg.Engine().OnProgress(func(pipelineID, agentID string, completed, total int) {
		mu.Lock()
		progress = append(progress, fmt.Sprintf("%s:%d/%d", agentID, completed, total))
		mu.Unlock()
	})

	rep, err := reg.Engine().Run(ctx, pipeline.RunRequest{Request: sampleRequest})
	require.NoError(t, err)
	require.NotNil(t, rep)

	assert.True(t, rep.Success, "run should succeed: %s", rep.Message)
	assert.Equal(t, state.StatusCompleted, rep.Status)

	total := len(pipeline.DefaultStages())
	assert.Equal(t, total, rep.Summary.TotalStages)
	assert.Equal(t, total, rep.Summary.Succeeded+rep.Summary.Skipped)
	assert.Zero(t, rep.Summary.Failed)
	assert.Len(t, progress, total, "every stage reports progress")

	// The packager leaves a complete package directory behind.
	require.NotEmpty(t, rep.OutputPath)
	assert.FileExists(t, filepath.Join(rep.OutputPath, "manifest.json"))
	assert.FileExists(t, filepath.Join(rep.OutputPath, "README.md"))
	assert.FileExists(t, filepath.Join(rep.OutputPath, "CHANGELOG.md"))

	// The packaged theme itself passes validation.
	themeDir := packagedThemeDir(t, rep.OutputPath)
	valRep, err := theme.Validate(themeDir)
	require.NoError(t, err)
	assert.True(t, valRep.Passed(), "packaged theme has %d validation error(s)", valRep.Summary.Errors)

	// The run report is persisted in the pipeline's log directory.
	reportPath := filepath.Join(paths.PipelineDir(root, rep.PipelineID), "logs", "pipeline_report.json")
	assert.FileExists(t, reportPath)
}

// TestPipeline_StateAfterRun checks the persisted record and summary a
// finished run leaves in the store.
func TestPipeline_StateAfterRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	reg, _ := newTestRegistry(t)

	rep, err := reg.Engine().Run(ctx, pipeline.RunRequest{Request: sampleRequest})
	require.NoError(t, err)
	require.True(t, rep.Success)

	p, err := reg.Store().Get(ctx, rep.PipelineID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusCompleted, p.Status)
	assert.NotNil(t, p.StartedAt)
	assert.NotNil(t, p.CompletedAt)
	require.Len(t, p.AgentOrder, len(pipeline.DefaultStages()))
	for _, agentID := range p.AgentOrder {
		a := p.Agents[agentID]
		require.NotNil(t, a, "agent %s has a record", agentID)
		assert.True(t, a.Status.Terminal(), "agent %s finished", agentID)
	}

	sum, err := reg.Engine().Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TotalPipelines)
	assert.Equal(t, 1, sum.ByStatus[state.StatusCompleted])
}

// TestPipeline_CleanupRemovesFinishedRuns checks that cleanup prunes both
// the store record and the workspace tree.
func TestPipeline_CleanupRemovesFinishedRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	reg, root := newTestRegistry(t)

	rep, err := reg.Engine().Run(ctx, pipeline.RunRequest{Request: sampleRequest})
	require.NoError(t, err)
	require.True(t, rep.Success)

	dir := paths.PipelineDir(root, rep.PipelineID)
	require.DirExists(t, dir)

	removed, err := reg.Engine().Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoDirExists(t, dir)

	_, err = reg.Store().Get(ctx, rep.PipelineID)
	assert.ErrorIs(t, err, state.ErrNotFound)
}

// packagedThemeDir finds the theme directory inside a package: the single
// subdirectory next to the manifest.
func packagedThemeDir(t *testing.T, pkgDir string) string {
	t.Helper()

	entries, err := os.ReadDir(pkgDir)
	require.NoError(t, err)
	for _, entry := range entries {
		if entry.IsDir() {
			return filepath.Join(pkgDir, entry.Name())
		}
	}
	t.Fatalf("no theme directory inside package %s", pkgDir)
	return ""
}
