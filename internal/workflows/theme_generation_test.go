package workflows

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
	"github.com/fyrsmithlabs/themesmith/internal/report"
	"github.com/fyrsmithlabs/themesmith/internal/state"
)

// The real engine must satisfy the activity-facing interface.
var _ Engine = (*pipeline.Engine)(nil)

type stubEngine struct {
	mu       sync.Mutex
	runs     []pipeline.RunRequest
	report   *report.Report
	runErr   error
	cleaned  int
	cleanErr error
	progress pipeline.ProgressFunc
}

func (s *stubEngine) Run(ctx context.Context, req pipeline.RunRequest) (*report.Report, error) {
	s.mu.Lock()
	s.runs = append(s.runs, req)
	s.mu.Unlock()
	if s.runErr != nil {
		return nil, s.runErr
	}
	return s.report, nil
}

func (s *stubEngine) Cleanup(ctx context.Context, olderThanDays int) (int, error) {
	if s.cleanErr != nil {
		return 0, s.cleanErr
	}
	return s.cleaned, nil
}

func (s *stubEngine) OnProgress(fn pipeline.ProgressFunc) {
	s.progress = fn
}

// TestThemeGenerationWorkflow tests the main generation workflow.
func TestThemeGenerationWorkflow(t *testing.T) {
	t.Run("generates a theme with a pinned pipeline ID", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestWorkflowEnvironment()

		env.RegisterWorkflow(ThemeGenerationWorkflow)

		var a *Activities
		env.OnActivity(a.GenerateThemeActivity, mock.Anything, mock.Anything).Return(&GenerateThemeOutput{
			PipelineID: "run-pin-01",
			Status:     "completed",
			Success:    true,
			OutputPath: "/srv/themes/run-pin-01/theme_package",
			Message:    "Pipeline completed successfully",
			StagesRun:  12,
		}, nil)

		config := ThemeGenerationConfig{
			Request:    "A dark portfolio theme for a photographer",
			PipelineID: "run-pin-01",
		}
		env.ExecuteWorkflow(ThemeGenerationWorkflow, config)

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var result ThemeGenerationResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.Equal(t, "run-pin-01", result.PipelineID)
		assert.Equal(t, "completed", result.Status)
		assert.True(t, result.Success)
		assert.Equal(t, "/srv/themes/run-pin-01/theme_package", result.OutputPath)
		assert.Equal(t, 12, result.StagesRun)
		assert.Empty(t, result.Errors)
	})

	t.Run("assigns a pipeline ID when none is pinned", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestWorkflowEnvironment()

		env.RegisterWorkflow(ThemeGenerationWorkflow)

		var a *Activities
		env.OnActivity(a.GenerateThemeActivity, mock.Anything, mock.Anything).Return(&GenerateThemeOutput{
			Status:  "completed",
			Success: true,
		}, nil)

		env.ExecuteWorkflow(ThemeGenerationWorkflow, ThemeGenerationConfig{
			Request: "A minimal blog theme",
		})

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var result ThemeGenerationResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.NotEmpty(t, result.PipelineID)
		assert.True(t, pipeline.ValidRunID(result.PipelineID))
	})

	t.Run("rejects an empty request", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestWorkflowEnvironment()

		env.RegisterWorkflow(ThemeGenerationWorkflow)
		env.ExecuteWorkflow(ThemeGenerationWorkflow, ThemeGenerationConfig{Request: "   "})

		require.True(t, env.IsWorkflowCompleted())
		err := env.GetWorkflowError()
		require.Error(t, err)
		assert.ErrorContains(t, err, "request cannot be empty")
	})

	t.Run("rejects a malformed pipeline ID", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestWorkflowEnvironment()

		env.RegisterWorkflow(ThemeGenerationWorkflow)
		env.ExecuteWorkflow(ThemeGenerationWorkflow, ThemeGenerationConfig{
			Request:    "A minimal blog theme",
			PipelineID: "bad id!",
		})

		require.True(t, env.IsWorkflowCompleted())
		err := env.GetWorkflowError()
		require.Error(t, err)
		assert.ErrorContains(t, err, "invalid pipeline ID")
	})

	t.Run("records stage errors from a failed run", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestWorkflowEnvironment()

		env.RegisterWorkflow(ThemeGenerationWorkflow)

		var a *Activities
		env.OnActivity(a.GenerateThemeActivity, mock.Anything, mock.Anything).Return(&GenerateThemeOutput{
			PipelineID:   "run-fail-1",
			Status:       "failed",
			Message:      "Pipeline failed at stage theme_assembler",
			StagesRun:    12,
			StagesFailed: 1,
			StageErrors:  []string{"theme_assembler: template rendering failed"},
		}, nil)

		env.ExecuteWorkflow(ThemeGenerationWorkflow, ThemeGenerationConfig{
			Request:    "A dark portfolio theme",
			PipelineID: "run-fail-1",
		})

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var result ThemeGenerationResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.False(t, result.Success)
		assert.Equal(t, "failed", result.Status)
		assert.Equal(t, 1, result.StagesFailed)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "theme_assembler")
	})

	t.Run("prunes expired pipelines after the run", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestWorkflowEnvironment()

		env.RegisterWorkflow(ThemeGenerationWorkflow)

		var a *Activities
		env.OnActivity(a.GenerateThemeActivity, mock.Anything, mock.Anything).Return(&GenerateThemeOutput{
			PipelineID: "run-prune-1",
			Status:     "completed",
			Success:    true,
		}, nil)
		env.OnActivity(a.CleanupPipelinesActivity, mock.Anything, mock.Anything).Return(&CleanupPipelinesOutput{Removed: 3}, nil)

		env.ExecuteWorkflow(ThemeGenerationWorkflow, ThemeGenerationConfig{
			Request:              "A minimal blog theme",
			PipelineID:           "run-prune-1",
			CleanupOlderThanDays: 14,
		})

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var result ThemeGenerationResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.True(t, result.Success)
		assert.Equal(t, 3, result.PipelinesRemoved)
	})

	t.Run("continues when cleanup fails", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestWorkflowEnvironment()

		env.RegisterWorkflow(ThemeGenerationWorkflow)

		var a *Activities
		env.OnActivity(a.GenerateThemeActivity, mock.Anything, mock.Anything).Return(&GenerateThemeOutput{
			PipelineID: "run-prune-2",
			Status:     "completed",
			Success:    true,
		}, nil)
		env.OnActivity(a.CleanupPipelinesActivity, mock.Anything, mock.Anything).Return(nil, errors.New("state store unavailable"))

		env.ExecuteWorkflow(ThemeGenerationWorkflow, ThemeGenerationConfig{
			Request:              "A minimal blog theme",
			PipelineID:           "run-prune-2",
			CleanupOlderThanDays: 14,
		})

		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var result ThemeGenerationResult
		require.NoError(t, env.GetWorkflowResult(&result))
		assert.True(t, result.Success)
		assert.Zero(t, result.PipelinesRemoved)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "failed to prune expired pipelines")
	})

	t.Run("fails when the generation activity fails", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestWorkflowEnvironment()

		env.RegisterWorkflow(ThemeGenerationWorkflow)

		var a *Activities
		env.OnActivity(a.GenerateThemeActivity, mock.Anything, mock.Anything).Return(nil, errors.New("workspace root is not writable"))

		env.ExecuteWorkflow(ThemeGenerationWorkflow, ThemeGenerationConfig{
			Request:    "A minimal blog theme",
			PipelineID: "run-err-01",
		})

		require.True(t, env.IsWorkflowCompleted())
		err := env.GetWorkflowError()
		require.Error(t, err)
		assert.ErrorContains(t, err, "workspace root is not writable")
	})
}

// TestGenerateThemeActivity executes the real activity against a stub engine.
func TestGenerateThemeActivity(t *testing.T) {
	t.Run("maps the run report to activity output", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestActivityEnvironment()

		engine := &stubEngine{report: &report.Report{
			PipelineID: "run-act-01",
			Status:     state.StatusCompleted,
			Success:    true,
			Message:    "Pipeline completed successfully",
			OutputPath: "/srv/themes/run-act-01/theme_package",
			Summary: report.ExecutionSummary{
				TotalStages: 12,
				Succeeded:   11,
				Skipped:     1,
			},
		}}
		a, err := NewActivities(engine)
		require.NoError(t, err)
		env.RegisterActivity(a.GenerateThemeActivity)

		val, err := env.ExecuteActivity(a.GenerateThemeActivity, GenerateThemeInput{
			Request:    "A dark portfolio theme",
			PipelineID: "run-act-01",
		})
		require.NoError(t, err)

		var out GenerateThemeOutput
		require.NoError(t, val.Get(&out))
		assert.Equal(t, "run-act-01", out.PipelineID)
		assert.Equal(t, "completed", out.Status)
		assert.True(t, out.Success)
		assert.Equal(t, "/srv/themes/run-act-01/theme_package", out.OutputPath)
		assert.Equal(t, 12, out.StagesRun)
		assert.Empty(t, out.StageErrors)

		require.Len(t, engine.runs, 1)
		assert.Equal(t, "run-act-01", engine.runs[0].PipelineID)
		assert.Equal(t, "A dark portfolio theme", engine.runs[0].Request)
	})

	t.Run("collects stage errors from a failed run", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestActivityEnvironment()

		engine := &stubEngine{report: &report.Report{
			PipelineID: "run-act-02",
			Status:     state.StatusFailed,
			Message:    "Pipeline failed at stage packager",
			Summary: report.ExecutionSummary{
				TotalStages: 12,
				Succeeded:   11,
				Failed:      1,
			},
			Stages: []report.StageReport{
				{AgentID: "theme_validator", Status: state.AgentSuccess},
				{AgentID: "packager", Status: state.AgentFailed, Error: "archive write failed"},
			},
		}}
		a, err := NewActivities(engine)
		require.NoError(t, err)
		env.RegisterActivity(a.GenerateThemeActivity)

		val, err := env.ExecuteActivity(a.GenerateThemeActivity, GenerateThemeInput{
			Request:    "A dark portfolio theme",
			PipelineID: "run-act-02",
		})
		require.NoError(t, err)

		var out GenerateThemeOutput
		require.NoError(t, val.Get(&out))
		assert.False(t, out.Success)
		assert.Equal(t, 1, out.StagesFailed)
		require.Len(t, out.StageErrors, 1)
		assert.Equal(t, "packager: archive write failed", out.StageErrors[0])
	})

	t.Run("surfaces engine setup errors", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestActivityEnvironment()

		a, err := NewActivities(&stubEngine{runErr: errors.New("engine is closed")})
		require.NoError(t, err)
		env.RegisterActivity(a.GenerateThemeActivity)

		_, err = env.ExecuteActivity(a.GenerateThemeActivity, GenerateThemeInput{
			Request:    "A dark portfolio theme",
			PipelineID: "run-act-03",
		})
		require.Error(t, err)
		assert.ErrorContains(t, err, "pipeline run failed")
	})
}

func TestNewActivities(t *testing.T) {
	t.Run("requires an engine", func(t *testing.T) {
		_, err := NewActivities(nil)
		assert.ErrorContains(t, err, "engine cannot be nil")
	})

	t.Run("registers itself as the progress callback", func(t *testing.T) {
		engine := &stubEngine{}
		a, err := NewActivities(engine)
		require.NoError(t, err)
		require.NotNil(t, engine.progress)

		// Progress for an untracked pipeline is dropped.
		engine.progress("run-x", "prompt_designer", 2, 12)
		assert.Equal(t, HeartbeatDetails{}, a.progressFor("run-x"))

		a.track("run-x")
		engine.progress("run-x", "prompt_designer", 2, 12)
		assert.Equal(t, HeartbeatDetails{
			AgentID:         "prompt_designer",
			StagesCompleted: 2,
			StagesTotal:     12,
		}, a.progressFor("run-x"))

		a.untrack("run-x")
		assert.Equal(t, HeartbeatDetails{}, a.progressFor("run-x"))
	})
}
