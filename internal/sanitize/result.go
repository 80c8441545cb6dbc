package sanitize

import (
	"fmt"
	"sort"
	"time"
)

// Result describes one scrub pass. Finding records positions and rule
// metadata only; the matched text itself never leaves the scrubber, so a
// Result is safe to log or return over the API.
type Result struct {
	// Original is the input exactly as received
	Original string `json:"-"`

	// Scrubbed is the input with every detected secret replaced
	Scrubbed string `json:"scrubbed"`

	// Findings lists what matched, one entry per detection
	Findings []Finding `json:"findings,omitempty"`

	// Duration is the wall time the scan took
	Duration time.Duration `json:"duration"`

	// TotalFindings is len(Findings), kept for JSON consumers
	TotalFindings int `json:"total_findings"`

	// ByRule counts detections per gitleaks rule ID
	ByRule map[string]int `json:"by_rule,omitempty"`
}

// Finding locates a single detected secret within Original.
type Finding struct {
	// RuleID is the gitleaks rule that fired
	RuleID string `json:"rule_id"`

	// Description is the rule's human-readable description
	Description string `json:"description,omitempty"`

	// StartIndex and EndIndex bound the match within Original
	StartIndex int `json:"start_index"`
	EndIndex   int `json:"end_index"`

	// Line is the 1-indexed line of the match
	Line int `json:"line,omitempty"`

	// Entropy is the Shannon entropy of the matched value
	Entropy float32 `json:"entropy,omitempty"`
}

// HasFindings reports whether the scan detected anything.
func (r *Result) HasFindings() bool {
	return r.TotalFindings > 0
}

// RuleIDs returns the matched rule IDs in sorted order.
func (r *Result) RuleIDs() []string {
	ids := make([]string, 0, len(r.ByRule))
	for id := range r.ByRule {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Summary renders a one-line description of the scan outcome.
func (r *Result) Summary() string {
	if !r.HasFindings() {
		return "no secrets detected"
	}
	return fmt.Sprintf("%d secret(s) detected across %d rule(s)", r.TotalFindings, len(r.ByRule))
}
