package state

import (
	"time"
)

// PipelineStatus describes the lifecycle of a pipeline run.
type PipelineStatus string

const (
	StatusQueued    PipelineStatus = "queued"
	StatusRunning   PipelineStatus = "running"
	StatusCompleted PipelineStatus = "completed"
	StatusFailed    PipelineStatus = "failed"
	StatusCancelled PipelineStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s PipelineStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether s is a known pipeline status.
func (s PipelineStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// AgentStatus describes the lifecycle of a single stage within a pipeline.
type AgentStatus string

const (
	AgentPending AgentStatus = "pending"
	AgentRunning AgentStatus = "running"
	AgentSuccess AgentStatus = "success"
	AgentFailed  AgentStatus = "failed"
	AgentSkipped AgentStatus = "skipped"
)

// Terminal reports whether the status is final.
func (s AgentStatus) Terminal() bool {
	switch s {
	case AgentSuccess, AgentFailed, AgentSkipped:
		return true
	}
	return false
}

// Valid reports whether s is a known agent status.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentPending, AgentRunning, AgentSuccess, AgentFailed, AgentSkipped:
		return true
	}
	return false
}

// Pipeline is the persisted record of one pipeline run.
type Pipeline struct {
	ID          string                 `json:"id"`
	TemplateID  string                 `json:"template_id"`
	Status      PipelineStatus         `json:"status"`
	Request     string                 `json:"request,omitempty"`
	Message     string                 `json:"message,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Agents      map[string]*AgentState `json:"agents"`
	AgentOrder  []string               `json:"agent_order"`
}

// AgentState is the persisted record of one stage within a pipeline.
type AgentState struct {
	Status        AgentStatus    `json:"status"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	InputPath     string         `json:"input_path,omitempty"`
	OutputPath    string         `json:"output_path,omitempty"`
	Error         string         `json:"error,omitempty"`
	ExecutionTime float64        `json:"execution_time_seconds,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// AgentUpdate carries the optional fields of an agent status change.
// Zero-valued fields are left untouched.
type AgentUpdate struct {
	InputPath     string
	OutputPath    string
	Error         string
	ExecutionTime float64
	Metadata      map[string]any
}

// Summary aggregates the store's contents for status reporting.
type Summary struct {
	TotalPipelines int                    `json:"total_pipelines"`
	ByStatus       map[PipelineStatus]int `json:"by_status"`
	Recent         []*Pipeline            `json:"recent_pipelines"`
	Problematic    []*Pipeline            `json:"problematic_pipelines"`
}

// clone returns a deep copy so callers cannot mutate store internals.
func (p *Pipeline) clone() *Pipeline {
	if p == nil {
		return nil
	}
	c := *p
	c.StartedAt = cloneTime(p.StartedAt)
	c.CompletedAt = cloneTime(p.CompletedAt)
	c.AgentOrder = append([]string(nil), p.AgentOrder...)
	c.Agents = make(map[string]*AgentState, len(p.Agents))
	for id, a := range p.Agents {
		c.Agents[id] = a.clone()
	}
	return &c
}

func (a *AgentState) clone() *AgentState {
	if a == nil {
		return nil
	}
	c := *a
	c.StartedAt = cloneTime(a.StartedAt)
	c.CompletedAt = cloneTime(a.CompletedAt)
	if a.Metadata != nil {
		c.Metadata = make(map[string]any, len(a.Metadata))
		for k, v := range a.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
