package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
)

// CleanupPipelinesActivity removes terminal pipelines older than the
// cutoff along with their workspace directories.
func (a *Activities) CleanupPipelinesActivity(ctx context.Context, input CleanupPipelinesInput) (*CleanupPipelinesOutput, error) {
	log := activity.GetLogger(ctx)

	removed, err := a.engine.Cleanup(ctx, input.OlderThanDays)
	if err != nil {
		return nil, fmt.Errorf("pipeline cleanup failed: %w", err)
	}

	log.Info("Expired pipelines removed", "removed", removed, "older_than_days", input.OlderThanDays)
	return &CleanupPipelinesOutput{Removed: removed}, nil
}
