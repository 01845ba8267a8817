// Package state defines the shared record threaded through one orchestration
// run and the partial update merged into it after every stage.
package state

import (
	"time"

	"github.com/google/uuid"
)

// Domain enumerates the downstream stages a planned task may target.
type Domain string

const (
	DomainTracking      Domain = "L2_Tracking"
	DomainCommunication Domain = "L2_Communication"
	DomainKnowledge     Domain = "Cross_Knowledge"
)

// ParseDomain maps a planner-supplied domain string onto a known Domain.
func ParseDomain(s string) (Domain, bool) {
	switch Domain(s) {
	case DomainTracking, DomainCommunication, DomainKnowledge:
		return Domain(s), true
	}
	return "", false
}

// TaskStatus tracks a planned task through its lifecycle.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
)

// ResultStatus is the outcome of one stage invocation.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "SUCCESS"
	ResultFailed  ResultStatus = "FAILED"
	ResultPartial ResultStatus = "PARTIAL"
)

// Output keys shared by stages and the evaluator's confidence scan.
const (
	KeyExtractionConfidence = "extraction_confidence"
	KeyGenerationConfidence = "generation_confidence"
)

// InputMessage is the unstructured record a run starts from. Immutable once
// constructed.
type InputMessage struct {
	Message   string    `json:"message"`
	Sender    string    `json:"sender"`
	ProjectID string    `json:"project_id"`
	MessageID string    `json:"message_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Task is one entry of the planner's delegation plan.
type Task struct {
	TaskID      string     `json:"task_id"`
	Domain      Domain     `json:"domain"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	Status      TaskStatus `json:"status"`
}

// ExecutionResult captures the outcome of a single stage invocation. The
// Output payload holds the stage's domain-tagged records plus, where the
// stage produces one, a confidence score under KeyExtractionConfidence or
// KeyGenerationConfidence.
type ExecutionResult struct {
	TaskID     string         `json:"task_id"`
	TaskType   Domain         `json:"task_type"`
	Status     ResultStatus   `json:"status"`
	Output     map[string]any `json:"output"`
	Error      string         `json:"error,omitempty"`
	DurationMS float64        `json:"duration_ms"`
}

// State is the unit of work for one run. Created empty at run start, mutated
// additively by applying stage updates, discarded after the caller consumes
// the final snapshot.
type State struct {
	Input     InputMessage               `json:"input_message"`
	Plan      []Task                     `json:"plan"`
	Results   map[string]ExecutionResult `json:"execution_results"`
	Context   map[string]any             `json:"cross_cutting_context"`
	Logs      []string                   `json:"logs"`
	RunID     string                     `json:"state_id"`
	CreatedAt time.Time                  `json:"created_at"`
}

// New constructs a fresh run state around input. The run identifier is
// assigned here exactly once.
func New(input InputMessage) *State {
	return &State{
		Input:     input,
		Results:   make(map[string]ExecutionResult),
		Context:   make(map[string]any),
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// Update is the partial update a stage returns. Absent (nil) fields are
// no-ops, never "clear": a nil Plan keeps the existing plan, Results and
// Context merge key-wise with colliding keys overwritten, and Logs append.
type Update struct {
	Plan    []Task
	Results map[string]ExecutionResult
	Context map[string]any
	Logs    []string
}

// Apply merges u into s. Safe to call with a nil update.
func (s *State) Apply(u *Update) {
	if u == nil {
		return
	}
	if u.Plan != nil {
		s.Plan = u.Plan
	}
	for key, result := range u.Results {
		s.Results[key] = result
	}
	for key, value := range u.Context {
		s.Context[key] = value
	}
	s.Logs = append(s.Logs, u.Logs...)
}

// Clone returns a deep copy of s. The executor hands clones to stages so a
// stage can never mutate the canonical run state directly.
func (s *State) Clone() *State {
	clone := &State{
		Input:     s.Input,
		RunID:     s.RunID,
		CreatedAt: s.CreatedAt,
		Results:   make(map[string]ExecutionResult, len(s.Results)),
		Context:   cloneAnyMap(s.Context),
	}
	if s.Plan != nil {
		clone.Plan = make([]Task, len(s.Plan))
		copy(clone.Plan, s.Plan)
	}
	for key, result := range s.Results {
		result.Output = cloneAnyMap(result.Output)
		clone.Results[key] = result
	}
	if s.Logs != nil {
		clone.Logs = make([]string, len(s.Logs))
		copy(clone.Logs, s.Logs)
	}
	return clone
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = cloneAnyMap(nested)
		}
		cp[k] = v
	}
	return cp
}
