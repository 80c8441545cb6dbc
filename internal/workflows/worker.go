package workflows

import (
	"go.temporal.io/sdk/worker"
)

// RegisterAll registers every themesmith workflow and activity on the
// worker.
func RegisterAll(w worker.Worker, a *Activities) {
	w.RegisterWorkflow(ThemeGenerationWorkflow)
	w.RegisterWorkflow(MaintenanceWorkflow)
	w.RegisterActivity(a.GenerateThemeActivity)
	w.RegisterActivity(a.CleanupPipelinesActivity)
}
