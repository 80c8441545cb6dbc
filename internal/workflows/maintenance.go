package workflows

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// MaintenanceConfig configures the workspace maintenance workflow.
type MaintenanceConfig struct {
	OlderThanDays int // Terminal pipelines older than this many days are removed
}

// MaintenanceResult contains maintenance results.
type MaintenanceResult struct {
	Removed int      // Pipelines removed from the state store
	Errors  []string // Any errors encountered
}

// MaintenanceWorkflow prunes expired pipelines from the state store.
// It is intended to run on a cron schedule.
func MaintenanceWorkflow(ctx workflow.Context, config MaintenanceConfig) (*MaintenanceResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting workspace maintenance", "older_than_days", config.OlderThanDays)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	result := &MaintenanceResult{}

	if config.OlderThanDays < 0 {
		return result, errors.New("older_than_days cannot be negative")
	}

	var a *Activities
	var cleaned CleanupPipelinesOutput
	err := workflow.ExecuteActivity(ctx, a.CleanupPipelinesActivity, CleanupPipelinesInput{
		OlderThanDays: config.OlderThanDays,
	}).Get(ctx, &cleaned)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to prune expired pipelines: %v", err))
		return result, err
	}
	result.Removed = cleaned.Removed

	logger.Info("Workspace maintenance complete", "removed", cleaned.Removed)
	return result, nil
}
