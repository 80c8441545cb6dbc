package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/themesmith/internal/state"
)

func TestRunHappyPath(t *testing.T) {
	e, store, root := newTestEngine(t, quickStages("alpha", "beta"))
	ctx := context.Background()

	var inputs []string
	var mu sync.Mutex
	record := func(id string) *fakeAgent {
		return &fakeAgent{id: id, run: func(ctx context.Context, in Input) (*Result, error) {
			mu.Lock()
			inputs = append(inputs, in.Path)
			mu.Unlock()
			out, err := in.Paths.OutputFor(id)
			if err != nil {
				return nil, err
			}
			res := NewResult(id)
			res.OutputPath = out
			res.QualityScore = 8.0
			return res, nil
		}}
	}
	require.NoError(t, e.Register(record("alpha")))
	require.NoError(t, e.Register(record("beta")))

	var progress []string
	e.OnProgress(func(pipelineID, agentID string, completed, total int) {
		progress = append(progress, fmt.Sprintf("%s:%d/%d", agentID, completed, total))
	})

	rep, err := e.Run(ctx, RunRequest{Request: "# A minimal dark portfolio\n"})
	require.NoError(t, err)
	require.NotNil(t, rep)

	assert.True(t, rep.Success)
	assert.Equal(t, state.StatusCompleted, rep.Status)
	assert.Equal(t, 2, rep.Summary.Succeeded)
	assert.Equal(t, []string{"alpha:1/2", "beta:2/2"}, progress)

	// The first stage reads the persisted request; the second reads the
	// first stage's output.
	require.Len(t, inputs, 2)
	pipelineDir := filepath.Join(root, "pipelines", "pipeline_"+rep.PipelineID)
	assert.Equal(t, filepath.Join(pipelineDir, "inputs", "request_"+rep.PipelineID+".md"), inputs[0])
	assert.Contains(t, inputs[1], filepath.Join(pipelineDir, "outputs"))

	requestData, err := os.ReadFile(inputs[0])
	require.NoError(t, err)
	assert.Equal(t, "# A minimal dark portfolio\n", string(requestData))

	assert.FileExists(t, filepath.Join(pipelineDir, "logs", "pipeline_report.json"))

	p, err := store.Get(ctx, rep.PipelineID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusCompleted, p.Status)
	assert.Equal(t, state.AgentSuccess, p.Agents["alpha"].Status)
	assert.Equal(t, state.AgentSuccess, p.Agents["beta"].Status)
	assert.Equal(t, 8.0, p.Agents["beta"].Metadata["quality_score"])
}

func TestRunEmptyRequest(t *testing.T) {
	e, store, _ := newTestEngine(t, quickStages("alpha"))
	ctx := context.Background()

	_, err := e.Run(ctx, RunRequest{Request: "   \n"})
	assert.ErrorContains(t, err, "request cannot be empty")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "no state is created for an invalid request")
}

func TestRunRequestFromFile(t *testing.T) {
	e, store, _ := newTestEngine(t, quickStages("alpha"))
	require.NoError(t, e.Register(okAgent("alpha")))

	reqPath := filepath.Join(t.TempDir(), "request.md")
	require.NoError(t, os.WriteFile(reqPath, []byte("a bakery landing page"), 0o644))

	rep, err := e.Run(context.Background(), RunRequest{RequestPath: reqPath})
	require.NoError(t, err)

	p, err := store.Get(context.Background(), rep.PipelineID)
	require.NoError(t, err)
	assert.Equal(t, "a bakery landing page", p.Request)
}

func TestRunMissingRequestFile(t *testing.T) {
	e, _, _ := newTestEngine(t, quickStages("alpha"))

	_, err := e.Run(context.Background(), RunRequest{RequestPath: "/does/not/exist.md"})
	assert.ErrorContains(t, err, "failed to read request file")
}

func TestRunInvalidPipelineID(t *testing.T) {
	e, _, _ := newTestEngine(t, quickStages("alpha"))

	_, err := e.Run(context.Background(), RunRequest{Request: "req", PipelineID: "bad id!"})
	assert.ErrorContains(t, err, "invalid pipeline ID")
}

type upperSanitizer struct{}

func (upperSanitizer) Scrub(ctx context.Context, input string) (string, error) {
	return strings.ReplaceAll(input, "hunter2", "[REDACTED]"), nil
}

func TestRunSanitizesRequest(t *testing.T) {
	root := t.TempDir()
	store, err := state.NewStore(&state.Config{
		Path:   filepath.Join(root, "pipeline_state.json"),
		Logger: testLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var seen string
	agent := &fakeAgent{id: "alpha", run: func(ctx context.Context, in Input) (*Result, error) {
		seen = in.Request
		return NewResult("alpha"), nil
	}}

	e, err := NewEngine(&Config{
		WorkspaceRoot: root,
		Stages:        quickStages("alpha"),
		Store:         store,
		Logger:        testLogger(),
		Sanitizer:     upperSanitizer{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	require.NoError(t, e.Register(agent))

	rep, err := e.Run(context.Background(), RunRequest{Request: "password is hunter2"})
	require.NoError(t, err)

	assert.Equal(t, "password is [REDACTED]", seen)
	p, err := store.Get(context.Background(), rep.PipelineID)
	require.NoError(t, err)
	assert.Equal(t, "password is [REDACTED]", p.Request)
}

func TestRunRequiredAgentMissing(t *testing.T) {
	e, store, _ := newTestEngine(t, quickStages("alpha"))

	rep, err := e.Run(context.Background(), RunRequest{Request: "req"})
	require.NoError(t, err, "a failed pipeline still yields a report")
	assert.False(t, rep.Success)
	assert.Equal(t, state.StatusFailed, rep.Status)

	p, err := store.Get(context.Background(), rep.PipelineID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusFailed, p.Status)
	assert.Equal(t, state.AgentFailed, p.Agents["alpha"].Status)
	assert.Contains(t, p.Agents["alpha"].Metadata["message"], "not registered")
}

func TestRunOptionalAgentMissing(t *testing.T) {
	stages := []Stage{
		{AgentID: "alpha", Required: true, Timeout: 5 * time.Second},
		{AgentID: "extra", Required: false, Timeout: 5 * time.Second},
		{AgentID: "omega", Required: true, Timeout: 5 * time.Second},
	}
	e, store, _ := newTestEngine(t, stages)

	var omegaInput string
	var alphaOutput string
	require.NoError(t, e.Register(&fakeAgent{id: "alpha", run: func(ctx context.Context, in Input) (*Result, error) {
		out, err := in.Paths.OutputFor("alpha")
		if err != nil {
			return nil, err
		}
		alphaOutput = out
		res := NewResult("alpha")
		res.OutputPath = out
		return res, nil
	}}))
	require.NoError(t, e.Register(&fakeAgent{id: "omega", run: func(ctx context.Context, in Input) (*Result, error) {
		omegaInput = in.Path
		return NewResult("omega"), nil
	}}))

	rep, err := e.Run(context.Background(), RunRequest{Request: "req"})
	require.NoError(t, err)

	assert.True(t, rep.Success)
	assert.Equal(t, 1, rep.Summary.Skipped)
	assert.Equal(t, alphaOutput, omegaInput, "skipped stage passes the previous output through")

	p, err := store.Get(context.Background(), rep.PipelineID)
	require.NoError(t, err)
	assert.Equal(t, state.AgentSkipped, p.Agents["extra"].Status)
}

func TestRunOptionalStageFailureContinues(t *testing.T) {
	stages := []Stage{
		{AgentID: "alpha", Required: true, Timeout: 5 * time.Second},
		{AgentID: "flaky", Required: false, Timeout: 5 * time.Second},
		{AgentID: "omega", Required: true, Timeout: 5 * time.Second},
	}
	e, store, _ := newTestEngine(t, stages)

	var omegaInput, alphaOutput string
	require.NoError(t, e.Register(&fakeAgent{id: "alpha", run: func(ctx context.Context, in Input) (*Result, error) {
		out, err := in.Paths.OutputFor("alpha")
		if err != nil {
			return nil, err
		}
		alphaOutput = out
		res := NewResult("alpha")
		res.OutputPath = out
		return res, nil
	}}))
	require.NoError(t, e.Register(&fakeAgent{id: "flaky", run: func(ctx context.Context, in Input) (*Result, error) {
		return nil, fmt.Errorf("upstream API unavailable")
	}}))
	require.NoError(t, e.Register(&fakeAgent{id: "omega", run: func(ctx context.Context, in Input) (*Result, error) {
		omegaInput = in.Path
		return NewResult("omega"), nil
	}}))

	rep, err := e.Run(context.Background(), RunRequest{Request: "req"})
	require.NoError(t, err)

	assert.True(t, rep.Success, "optional failures do not fail the pipeline")
	assert.Equal(t, alphaOutput, omegaInput, "failed stage's input threading is bypassed")

	p, err := store.Get(context.Background(), rep.PipelineID)
	require.NoError(t, err)
	assert.Equal(t, state.AgentFailed, p.Agents["flaky"].Status)
	assert.Contains(t, p.Agents["flaky"].Error, "upstream API unavailable")
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	stages := []Stage{{AgentID: "alpha", Required: true, Timeout: 5 * time.Second, Retries: 2}}
	e, store, _ := newTestEngine(t, stages)

	attempts := 0
	require.NoError(t, e.Register(&fakeAgent{id: "alpha", run: func(ctx context.Context, in Input) (*Result, error) {
		attempts++
		if attempts < 3 {
			return nil, fmt.Errorf("transient error %d", attempts)
		}
		return NewResult("alpha"), nil
	}}))

	rep, err := e.Run(context.Background(), RunRequest{Request: "req"})
	require.NoError(t, err)

	assert.Equal(t, 3, attempts)
	assert.True(t, rep.Success)

	p, err := store.Get(context.Background(), rep.PipelineID)
	require.NoError(t, err)
	assert.Equal(t, state.AgentSuccess, p.Agents["alpha"].Status)
}

func TestRunExhaustsRetries(t *testing.T) {
	stages := []Stage{{AgentID: "alpha", Required: true, Timeout: 5 * time.Second, Retries: 1}}
	e, store, _ := newTestEngine(t, stages)

	attempts := 0
	require.NoError(t, e.Register(&fakeAgent{id: "alpha", run: func(ctx context.Context, in Input) (*Result, error) {
		attempts++
		return nil, fmt.Errorf("permanent error")
	}}))

	rep, err := e.Run(context.Background(), RunRequest{Request: "req"})
	require.NoError(t, err)

	assert.Equal(t, 2, attempts)
	assert.False(t, rep.Success)

	p, err := store.Get(context.Background(), rep.PipelineID)
	require.NoError(t, err)
	assert.Equal(t, state.StatusFailed, p.Status)
	assert.Contains(t, p.Message, "required stage alpha failed")
}

func TestRunStageTimeout(t *testing.T) {
	stages := []Stage{{AgentID: "slowpoke", Required: true, Timeout: 50 * time.Millisecond}}
	e, store, _ := newTestEngine(t, stages)

	require.NoError(t, e.Register(&fakeAgent{id: "slowpoke", run: func(ctx context.Context, in Input) (*Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}))

	rep, err := e.Run(context.Background(), RunRequest{Request: "req"})
	require.NoError(t, err)

	assert.False(t, rep.Success)
	p, err := store.Get(context.Background(), rep.PipelineID)
	require.NoError(t, err)
	assert.Equal(t, state.AgentFailed, p.Agents["slowpoke"].Status)
	assert.Contains(t, p.Agents["slowpoke"].Metadata["message"], "timed out after")
}

func TestRunCancelMidStage(t *testing.T) {
	stages := []Stage{
		{AgentID: "blocker", Required: true, Timeout: time.Minute},
		{AgentID: "never", Required: true, Timeout: time.Minute},
	}
	e, store, _ := newTestEngine(t, stages)

	started := make(chan struct{})
	require.NoError(t, e.Register(&fakeAgent{id: "blocker", run: func(ctx context.Context, in Input) (*Result, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}))
	ranNever := false
	require.NoError(t, e.Register(&fakeAgent{id: "never", run: func(ctx context.Context, in Input) (*Result, error) {
		ranNever = true
		return NewResult("never"), nil
	}}))

	errCh := make(chan error, 1)
	go func() {
		_, err := e.Run(context.Background(), RunRequest{Request: "req", PipelineID: "cancelme"})
		errCh <- err
	}()

	<-started
	require.NoError(t, e.Cancel(context.Background(), "cancelme"))

	err := <-errCh
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ranNever, "stages after the cancelled one must not run")

	p, err := store.Get(context.Background(), "cancelme")
	require.NoError(t, err)
	assert.Equal(t, state.StatusCancelled, p.Status)
	assert.Equal(t, state.AgentPending, p.Agents["never"].Status)
}

func TestRunCleanupRemovesArtifacts(t *testing.T) {
	e, _, root := newTestEngine(t, quickStages("alpha"))
	require.NoError(t, e.Register(okAgent("alpha")))

	rep, err := e.Run(context.Background(), RunRequest{Request: "req"})
	require.NoError(t, err)

	dir := filepath.Join(root, "pipelines", "pipeline_"+rep.PipelineID)
	require.DirExists(t, dir)

	removed, err := e.Cleanup(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoDirExists(t, dir)

	_, err = e.Status(context.Background(), rep.PipelineID)
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestRunCleanupNegativeDays(t *testing.T) {
	e, _, _ := newTestEngine(t, quickStages("alpha"))

	_, err := e.Cleanup(context.Background(), -1)
	assert.ErrorContains(t, err, "negative")
}
