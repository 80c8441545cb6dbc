package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
)

var testStages = []string{"request_interpreter", "template_engineer", "packager"}

func newTestStore(t *testing.T) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline_state.json")
	s, err := NewStore(&Config{Path: path, Logger: logging.NewTestLogger().Logger})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestNewStoreValidation(t *testing.T) {
	logger := logging.NewTestLogger().Logger

	_, err := NewStore(nil)
	assert.ErrorContains(t, err, "config")

	_, err = NewStore(&Config{Logger: logger})
	assert.ErrorContains(t, err, "path")

	_, err = NewStore(&Config{Path: "state.json"})
	assert.ErrorContains(t, err, "logger")
}

func TestCreatePipeline(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreatePipeline(ctx, "abc12345", "def67890", "a landing page", testStages)
	require.NoError(t, err)

	assert.Equal(t, "abc12345", p.ID)
	assert.Equal(t, "def67890", p.TemplateID)
	assert.Equal(t, StatusQueued, p.Status)
	assert.Equal(t, "a landing page", p.Request)
	assert.Equal(t, testStages, p.AgentOrder)
	require.Len(t, p.Agents, len(testStages))
	for _, stageID := range testStages {
		assert.Equal(t, AgentPending, p.Agents[stageID].Status)
	}
	assert.FileExists(t, path)
}

func TestCreatePipelineDuplicate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePipeline(ctx, "abc12345", "t1", "req", testStages)
	require.NoError(t, err)

	_, err = s.CreatePipeline(ctx, "abc12345", "t2", "req", testStages)
	assert.ErrorIs(t, err, ErrExists)
}

func TestCreatePipelineInvalid(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePipeline(ctx, "", "t1", "req", testStages)
	assert.ErrorContains(t, err, "ID cannot be empty")

	_, err = s.CreatePipeline(ctx, "p1", "t1", "req", nil)
	assert.ErrorContains(t, err, "no stages")
}

func TestSetPipelineStatus(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePipeline(ctx, "p1", "t1", "req", testStages)
	require.NoError(t, err)

	require.NoError(t, s.SetPipelineStatus(ctx, "p1", StatusRunning, "started"))
	p, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, p.Status)
	assert.Equal(t, "started", p.Message)
	require.NotNil(t, p.StartedAt)
	assert.Nil(t, p.CompletedAt)
	started := *p.StartedAt

	require.NoError(t, s.SetPipelineStatus(ctx, "p1", StatusCompleted, "done"))
	p, err = s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)
	assert.Equal(t, started, *p.StartedAt, "start time must be set only once")
}

func TestSetPipelineStatusErrors(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	err := s.SetPipelineStatus(ctx, "missing", StatusRunning, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CreatePipeline(ctx, "p1", "t1", "req", testStages)
	require.NoError(t, err)
	err = s.SetPipelineStatus(ctx, "p1", PipelineStatus("bogus"), "")
	assert.ErrorContains(t, err, "invalid pipeline status")
}

func TestSetAgentStatus(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePipeline(ctx, "p1", "t1", "req", testStages)
	require.NoError(t, err)

	require.NoError(t, s.SetAgentStatus(ctx, "p1", "template_engineer", AgentRunning, AgentUpdate{
		InputPath: "/work/prompts/prompt_t1.json",
	}))
	p, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	a := p.Agents["template_engineer"]
	assert.Equal(t, AgentRunning, a.Status)
	require.NotNil(t, a.StartedAt)
	assert.Equal(t, "/work/prompts/prompt_t1.json", a.InputPath)

	require.NoError(t, s.SetAgentStatus(ctx, "p1", "template_engineer", AgentSuccess, AgentUpdate{
		OutputPath: "/work/templates/template_t1.php",
		Metadata:   map[string]any{"sections": 4},
	}))
	p, err = s.Get(ctx, "p1")
	require.NoError(t, err)
	a = p.Agents["template_engineer"]
	assert.Equal(t, AgentSuccess, a.Status)
	require.NotNil(t, a.CompletedAt)
	assert.Equal(t, "/work/templates/template_t1.php", a.OutputPath)
	assert.Equal(t, 4, a.Metadata["sections"])
	assert.GreaterOrEqual(t, a.ExecutionTime, 0.0)
}

func TestSetAgentStatusExplicitExecutionTime(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePipeline(ctx, "p1", "t1", "req", testStages)
	require.NoError(t, err)

	require.NoError(t, s.SetAgentStatus(ctx, "p1", "packager", AgentFailed, AgentUpdate{
		Error:         "disk full",
		ExecutionTime: 12.5,
	}))
	p, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	a := p.Agents["packager"]
	assert.Equal(t, AgentFailed, a.Status)
	assert.Equal(t, "disk full", a.Error)
	assert.Equal(t, 12.5, a.ExecutionTime)
}

func TestSetAgentStatusErrors(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePipeline(ctx, "p1", "t1", "req", testStages)
	require.NoError(t, err)

	err = s.SetAgentStatus(ctx, "p1", "not_a_stage", AgentRunning, AgentUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.SetAgentStatus(ctx, "missing", "packager", AgentRunning, AgentUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.SetAgentStatus(ctx, "p1", "packager", AgentStatus("bogus"), AgentUpdate{})
	assert.ErrorContains(t, err, "invalid agent status")
}

func TestGetReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePipeline(ctx, "p1", "t1", "req", testStages)
	require.NoError(t, err)

	p, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	p.Status = StatusFailed
	p.Agents["packager"].Status = AgentFailed

	fresh, err := s.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, fresh.Status)
	assert.Equal(t, AgentPending, fresh.Agents["packager"].Status)
}

func TestList(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePipeline(ctx, "bbb11111", "t1", "req", testStages)
	require.NoError(t, err)
	_, err = s.CreatePipeline(ctx, "aaa22222", "t2", "req", testStages)
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "aaa22222", list[0].ID, "newest first")
	assert.Equal(t, "bbb11111", list[1].ID)
}

func TestSummary(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := s.CreatePipeline(ctx, fmt.Sprintf("run%05d", i), "t1", "req", testStages)
		require.NoError(t, err)
	}
	require.NoError(t, s.SetPipelineStatus(ctx, "run00000", StatusFailed, "boom"))
	require.NoError(t, s.SetPipelineStatus(ctx, "run00001", StatusCompleted, "done"))

	summary, err := s.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, 12, summary.TotalPipelines)
	assert.Equal(t, 10, summary.ByStatus[StatusQueued])
	assert.Equal(t, 1, summary.ByStatus[StatusFailed])
	assert.Equal(t, 1, summary.ByStatus[StatusCompleted])
	assert.Contains(t, summary.ByStatus, StatusRunning, "all statuses present even when zero")
	assert.Contains(t, summary.ByStatus, StatusCancelled)

	assert.Len(t, summary.Recent, 10)
	require.Len(t, summary.Problematic, 1)
	assert.Equal(t, "run00000", summary.Problematic[0].ID)
}

func TestCleanup(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePipeline(ctx, "old00001", "t1", "req", testStages)
	require.NoError(t, err)
	require.NoError(t, s.SetPipelineStatus(ctx, "old00001", StatusCompleted, "done"))
	_, err = s.CreatePipeline(ctx, "live0001", "t2", "req", testStages)
	require.NoError(t, err)
	require.NoError(t, s.SetPipelineStatus(ctx, "live0001", StatusRunning, "started"))
	require.NoError(t, s.Close())

	// Cleanup typically runs in a later daemon process than the one
	// that recorded the runs.
	reopened, err := NewStore(&Config{Path: path, Logger: logging.NewTestLogger().Logger})
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	removed, err := reopened.Cleanup(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "only the finished pipeline is removed")

	_, err = reopened.Get(ctx, "old00001")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reopened.Get(ctx, "live0001")
	assert.NoError(t, err, "running pipelines survive cleanup")
}

func TestCleanupKeepsRecentFinished(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePipeline(ctx, "new00001", "t1", "req", testStages)
	require.NoError(t, err)
	require.NoError(t, s.SetPipelineStatus(ctx, "new00001", StatusCompleted, "done"))

	removed, err := s.Cleanup(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCleanupRemovesMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline_state.json")
	raw := `{
  "pipelines": {
    "good1234": {"id": "good1234", "template_id": "t1", "status": "queued",
      "created_at": "2026-08-01T00:00:00Z", "updated_at": "2026-08-01T00:00:00Z",
      "agents": {}, "agent_order": ["packager"]},
    "bad99999": {"template_id": "t2", "status": "nonsense"}
  },
  "metadata": {"created_at": "2026-08-01T00:00:00Z", "updated_at": "2026-08-01T00:00:00Z"}
}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	s, err := NewStore(&Config{Path: path, Logger: logging.NewTestLogger().Logger})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	removed, err := s.Cleanup(context.Background(), 365*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Get(context.Background(), "good1234")
	assert.NoError(t, err)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreatePipeline(ctx, "p1", "t1", "dark portfolio site", testStages)
	require.NoError(t, err)
	require.NoError(t, s.SetAgentStatus(ctx, "p1", "request_interpreter", AgentSuccess, AgentUpdate{
		OutputPath: "/work/specs/template_spec_t1.json",
	}))
	require.NoError(t, s.Close())

	reopened, err := NewStore(&Config{Path: path, Logger: logging.NewTestLogger().Logger})
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	p, err := reopened.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "dark portfolio site", p.Request)
	assert.Equal(t, AgentSuccess, p.Agents["request_interpreter"].Status)
	assert.Equal(t, "/work/specs/template_spec_t1.json", p.Agents["request_interpreter"].OutputPath)
}

func TestCorruptPrimaryRestoredFromBackup(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	// Two writes: the second one backs up the first.
	_, err := s.CreatePipeline(ctx, "p1", "t1", "req", testStages)
	require.NoError(t, err)
	require.NoError(t, s.SetPipelineStatus(ctx, "p1", StatusRunning, "started"))
	require.NoError(t, s.Close())

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	reopened, err := NewStore(&Config{Path: path, Logger: logging.NewTestLogger().Logger})
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	p, err := reopened.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, p.Status, "backup holds the state before the last write")
	assert.FileExists(t, path+".corrupt")
}

func TestCorruptPrimaryAndBackupStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := NewStore(&Config{Path: path, Logger: logging.NewTestLogger().Logger})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestClosedStore(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	_, err := s.CreatePipeline(ctx, "p1", "t1", "req", testStages)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.List(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	err = s.SetPipelineStatus(ctx, "p1", StatusRunning, "")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Cleanup(ctx, time.Hour)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStateFilePermissions(t *testing.T) {
	if os.Getenv("GOOS") == "windows" {
		t.Skip("permission bits not meaningful on windows")
	}
	s, path := newTestStore(t)

	_, err := s.CreatePipeline(context.Background(), "p1", "t1", "req", testStages)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
