// Package report summarizes finished pipeline runs for operators.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fyrsmithlabs/themesmith/internal/state"
)

// slowStageThreshold flags stages worth optimizing.
const slowStageThreshold = 300.0

// Report is the final summary of one pipeline run.
type Report struct {
	PipelineID      string               `json:"pipeline_id"`
	TemplateID      string               `json:"template_id"`
	Status          state.PipelineStatus `json:"status"`
	Success         bool                 `json:"success"`
	Message         string               `json:"message,omitempty"`
	GeneratedAt     time.Time            `json:"generated_at"`
	Timing          Timing               `json:"timing"`
	Summary         ExecutionSummary     `json:"execution_summary"`
	Stages          []StageReport        `json:"stages"`
	OutputPath      string               `json:"output_path,omitempty"`
	Recommendations []string             `json:"recommendations"`
}

// Timing captures the run's wall-clock boundaries.
type Timing struct {
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	TotalSeconds float64    `json:"total_seconds"`
}

// ExecutionSummary aggregates per-stage outcomes.
type ExecutionSummary struct {
	TotalStages int     `json:"total_stages"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	Skipped     int     `json:"skipped"`
	SuccessRate float64 `json:"success_rate"`
}

// StageReport is one row of the per-stage table.
type StageReport struct {
	AgentID         string            `json:"agent_id"`
	Status          state.AgentStatus `json:"status"`
	DurationSeconds float64           `json:"duration_seconds"`
	OutputPath      string            `json:"output_path,omitempty"`
	Error           string            `json:"error,omitempty"`
	QualityScore    float64           `json:"quality_score,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
}

// Build derives a report from a pipeline's state record.
func Build(p *state.Pipeline) *Report {
	rep := &Report{
		PipelineID:  p.ID,
		TemplateID:  p.TemplateID,
		Status:      p.Status,
		Success:     p.Status == state.StatusCompleted,
		Message:     p.Message,
		GeneratedAt: time.Now().UTC(),
		Timing: Timing{
			StartedAt:   p.StartedAt,
			CompletedAt: p.CompletedAt,
		},
	}
	if p.StartedAt != nil && p.CompletedAt != nil {
		rep.Timing.TotalSeconds = p.CompletedAt.Sub(*p.StartedAt).Seconds()
	}

	var failedStages, noOutput, slow []string
	for _, agentID := range p.AgentOrder {
		a := p.Agents[agentID]
		if a == nil {
			continue
		}
		row := StageReport{
			AgentID:         agentID,
			Status:          a.Status,
			DurationSeconds: a.ExecutionTime,
			OutputPath:      a.OutputPath,
			Error:           a.Error,
			QualityScore:    metaFloat(a.Metadata, "quality_score"),
			Warnings:        metaStrings(a.Metadata, "warnings"),
		}
		rep.Stages = append(rep.Stages, row)
		rep.Summary.TotalStages++

		switch a.Status {
		case state.AgentSuccess:
			rep.Summary.Succeeded++
			if a.OutputPath == "" {
				noOutput = append(noOutput, agentID)
			}
		case state.AgentFailed:
			rep.Summary.Failed++
			failedStages = append(failedStages, agentID)
		case state.AgentSkipped:
			rep.Summary.Skipped++
		}
		if a.ExecutionTime > slowStageThreshold {
			slow = append(slow, fmt.Sprintf("%s (%.0fs)", agentID, a.ExecutionTime))
		}
	}
	if rep.Summary.TotalStages > 0 {
		rep.Summary.SuccessRate = float64(rep.Summary.Succeeded) / float64(rep.Summary.TotalStages) * 100
	}

	rep.OutputPath = finalOutput(p)
	rep.Recommendations = recommendations(p, rep, failedStages, noOutput, slow)
	return rep
}

// finalOutput prefers the packager's artifact, falling back to the last
// successful stage's output.
func finalOutput(p *state.Pipeline) string {
	if a := p.Agents["packager"]; a != nil && a.Status == state.AgentSuccess && a.OutputPath != "" {
		return a.OutputPath
	}
	for i := len(p.AgentOrder) - 1; i >= 0; i-- {
		a := p.Agents[p.AgentOrder[i]]
		if a != nil && a.Status == state.AgentSuccess && a.OutputPath != "" {
			return a.OutputPath
		}
	}
	return ""
}

func recommendations(p *state.Pipeline, rep *Report, failedStages, noOutput, slow []string) []string {
	var recs []string

	if len(failedStages) > 0 {
		recs = append(recs, fmt.Sprintf("Address failures in: %s", strings.Join(failedStages, ", ")))
	}
	switch {
	case rep.Summary.SuccessRate < 50:
		recs = append(recs, "Pipeline health critical: less than half of the stages succeeded")
	case rep.Summary.SuccessRate < 80:
		recs = append(recs, "Pipeline health degraded: review skipped and failed stages")
	}
	if len(noOutput) > 0 {
		recs = append(recs, fmt.Sprintf("Stages completed without producing output: %s", strings.Join(noOutput, ", ")))
	}
	if len(slow) > 0 {
		recs = append(recs, fmt.Sprintf("Consider optimizing slow stages: %s", strings.Join(slow, ", ")))
	}
	if a := p.Agents["theme_validator"]; a != nil {
		recs = append(recs, metaStrings(a.Metadata, "recommendations")...)
	}

	if len(recs) == 0 {
		recs = append(recs, "Pipeline executed successfully with no issues detected")
	}
	return recs
}

// WriteJSON persists the report to path.
func WriteJSON(rep *Report, path string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Render formats the report as text for terminal output.
func Render(rep *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Pipeline %s (template %s)\n", rep.PipelineID, rep.TemplateID)
	fmt.Fprintf(&b, "Status:   %s\n", rep.Status)
	if rep.Message != "" {
		fmt.Fprintf(&b, "Message:  %s\n", rep.Message)
	}
	fmt.Fprintf(&b, "Duration: %.1fs\n", rep.Timing.TotalSeconds)
	fmt.Fprintf(&b, "Stages:   %d succeeded, %d failed, %d skipped (%.0f%% success)\n",
		rep.Summary.Succeeded, rep.Summary.Failed, rep.Summary.Skipped, rep.Summary.SuccessRate)
	if rep.OutputPath != "" {
		fmt.Fprintf(&b, "Output:   %s\n", rep.OutputPath)
	}

	b.WriteString("\n")
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tSTATUS\tDURATION\tSCORE\tERROR")
	for _, s := range rep.Stages {
		score := ""
		if s.QualityScore > 0 {
			score = fmt.Sprintf("%.1f", s.QualityScore)
		}
		fmt.Fprintf(w, "%s\t%s\t%.1fs\t%s\t%s\n",
			s.AgentID, s.Status, s.DurationSeconds, score, s.Error)
	}
	w.Flush()

	if len(rep.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, r := range rep.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
	}
	return b.String()
}

func metaFloat(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// metaStrings tolerates both in-memory []string values and the []any
// that JSON decoding produces.
func metaStrings(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
