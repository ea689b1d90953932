// Package execution implements ExecutionRecord: the per-pipeline-step
// tracked invocation, generalized from compute.ComputeExecution's
// tracked-provisioning-invocation shape.
package execution

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status represents an execution record's position in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ValidTransitions mirrors tenant.ValidTransitions' shape: pending ->
// running -> {completed|failed}.
var ValidTransitions = map[Status][]Status{
	StatusPending:   {StatusRunning, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
}

// IsValid reports whether s is a known execution status.
func (s Status) IsValid() bool {
	_, ok := ValidTransitions[s]
	return ok
}

// IsTerminal reports whether s has no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether s may transition to to.
func (s Status) CanTransition(to Status) bool {
	allowed, exists := ValidTransitions[s]
	if !exists {
		return false
	}
	for _, v := range allowed {
		if v == to {
			return true
		}
	}
	return false
}

// Record is one (job, processor step) invocation: the per-step analog of
// compute.ComputeExecution.
type Record struct {
	ID           string                 `json:"id" db:"id"`
	JobID        string                 `json:"job_id" db:"job_id"`
	ProcessorID  string                 `json:"processor_id" db:"processor_id"`
	Input        map[string]interface{} `json:"input,omitempty" db:"-"`
	Output       map[string]interface{} `json:"output,omitempty" db:"-"`
	Config       map[string]interface{} `json:"config,omitempty" db:"-"`
	DurationMs   int64                  `json:"duration_ms" db:"duration_ms"`
	Error        string                 `json:"error,omitempty" db:"error"`
	TokensUsed   int                    `json:"tokens_used" db:"tokens_used"`
	CostCredits  float64                `json:"cost_credits" db:"cost_credits"`
	Status       Status                 `json:"status" db:"status"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at" db:"updated_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty" db:"completed_at"`
}

// Transition moves r to the given status, stamping started_at/completed_at.
// Re-entry into a terminal state is a no-op.
func (r *Record) Transition(to Status) error {
	if r.Status == to && r.Status.IsTerminal() {
		return nil
	}
	if !r.Status.CanTransition(to) {
		return fmt.Errorf("execution: invalid transition from %s to %s", r.Status, to)
	}

	r.Status = to
	now := time.Now()
	switch to {
	case StatusRunning:
		r.StartedAt = &now
	case StatusCompleted, StatusFailed:
		r.CompletedAt = &now
		if r.StartedAt != nil {
			r.DurationMs = now.Sub(*r.StartedAt).Milliseconds()
		}
	}
	return nil
}

func (r *Record) inputJSON() ([]byte, error)  { return marshalOrEmpty(r.Input) }
func (r *Record) outputJSON() ([]byte, error) { return marshalOrEmpty(r.Output) }
func (r *Record) configJSON() ([]byte, error) { return marshalOrEmpty(r.Config) }

func marshalOrEmpty(m map[string]interface{}) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
