package pipeline

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/themesmith/internal/config"
)

// Stage describes one slot in the pipeline's execution order.
type Stage struct {
	// AgentID names the agent that fills this slot.
	AgentID string

	// Required stops the pipeline when the stage fails or has no
	// registered agent. Optional stages are skipped instead.
	Required bool

	// Timeout bounds a single execution attempt.
	Timeout time.Duration

	// Retries is the number of additional attempts after a failure.
	Retries int
}

// DefaultStages returns the standard theme generation order.
//
// The order is load-bearing: each stage consumes the previous stage's
// output, so reordering changes what every agent receives.
func DefaultStages() []Stage {
	return []Stage{
		{AgentID: "request_interpreter", Required: true, Timeout: 60 * time.Second, Retries: 2},
		{AgentID: "prompt_designer", Required: true, Timeout: 60 * time.Second, Retries: 2},
		{AgentID: "design_variation", Required: false, Timeout: 120 * time.Second, Retries: 1},
		{AgentID: "template_engineer", Required: true, Timeout: 180 * time.Second, Retries: 2},
		{AgentID: "cta_optimizer", Required: true, Timeout: 90 * time.Second, Retries: 1},
		{AgentID: "theme_assembler", Required: true, Timeout: 240 * time.Second, Retries: 2},
		{AgentID: "mobile_enhancer", Required: false, Timeout: 180 * time.Second, Retries: 1},
		{AgentID: "seo_optimizer", Required: false, Timeout: 120 * time.Second, Retries: 1},
		{AgentID: "component_library", Required: false, Timeout: 150 * time.Second, Retries: 1},
		{AgentID: "theme_validator", Required: true, Timeout: 60 * time.Second, Retries: 1},
		{AgentID: "refinement", Required: false, Timeout: 600 * time.Second, Retries: 1},
		{AgentID: "packager", Required: true, Timeout: 120 * time.Second, Retries: 2},
	}
}

// StageIDs returns the agent IDs of stages in order.
func StageIDs(stages []Stage) []string {
	ids := make([]string, len(stages))
	for i, s := range stages {
		ids[i] = s.AgentID
	}
	return ids
}

// ApplyOverrides returns a copy of stages with per-stage configuration
// applied. Disabled stages are removed; a zero timeout or retry count
// leaves the default in place. Required stages cannot be disabled.
func ApplyOverrides(stages []Stage, overrides map[string]config.StageOverride) ([]Stage, error) {
	if len(overrides) == 0 {
		return append([]Stage(nil), stages...), nil
	}

	known := make(map[string]bool, len(stages))
	for _, s := range stages {
		known[s.AgentID] = true
	}
	for id := range overrides {
		if !known[id] {
			return nil, fmt.Errorf("stage override for unknown stage %q", id)
		}
	}

	out := make([]Stage, 0, len(stages))
	for _, s := range stages {
		o, ok := overrides[s.AgentID]
		if !ok {
			out = append(out, s)
			continue
		}
		if o.Disabled {
			if s.Required {
				return nil, fmt.Errorf("required stage %q cannot be disabled", s.AgentID)
			}
			continue
		}
		if d := o.Timeout.Duration(); d > 0 {
			s.Timeout = d
		}
		if o.Retries > 0 {
			s.Retries = o.Retries
		}
		out = append(out, s)
	}
	return out, nil
}
