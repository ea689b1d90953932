// Package job implements the Job entity: one execution of a campaign's
// pipeline snapshot against one document.
package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jaxxstorm/docuflow/internal/campaign"
)

// Status represents a job's position in its execution lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ValidTransitions mirrors tenant.ValidTransitions' shape.
var ValidTransitions = map[Status][]Status{
	StatusPending:   {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// IsValid reports whether s is a known job status.
func (s Status) IsValid() bool {
	_, ok := ValidTransitions[s]
	return ok
}

// IsTerminal reports whether s has no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
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

// Job is one execution of a campaign's pipeline snapshot against one
// document.
type Job struct {
	ID                  string            `json:"id" db:"id"`
	PublicUUID          string            `json:"public_uuid" db:"public_uuid"`
	CampaignID          string            `json:"campaign_id" db:"campaign_id"`
	DocumentID          string            `json:"document_id" db:"document_id"`
	Pipeline            campaign.Pipeline `json:"pipeline" db:"-"`
	CurrentProcessorIdx int               `json:"current_processor_index" db:"current_processor_index"`
	QueueName           string            `json:"queue_name" db:"queue_name"`
	Attempts            int               `json:"attempts" db:"attempts"`
	MaxAttempts         int               `json:"max_attempts" db:"max_attempts"`
	ErrorLog            []string          `json:"error_log,omitempty" db:"-"`
	Status              Status            `json:"status" db:"status"`
	WorkflowExecutionID string            `json:"workflow_execution_id,omitempty" db:"workflow_execution_id"`
	CreatedAt           time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at" db:"updated_at"`
	StartedAt           *time.Time        `json:"started_at,omitempty" db:"started_at"`
	CompletedAt         *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
}

// snapshotPipeline deep-copies src via a JSON marshal/unmarshal round
// trip, the same idiom the teacher uses for Tenant.Clone()'s map fields,
// generalized here to a whole struct because a job's pipeline must be
// fully independent of later mutations to the owning campaign.
func snapshotPipeline(src campaign.Pipeline) (campaign.Pipeline, error) {
	raw, err := json.Marshal(src)
	if err != nil {
		return campaign.Pipeline{}, fmt.Errorf("marshal pipeline for snapshot: %w", err)
	}
	var dst campaign.Pipeline
	if err := json.Unmarshal(raw, &dst); err != nil {
		return campaign.Pipeline{}, fmt.Errorf("unmarshal pipeline snapshot: %w", err)
	}
	return dst, nil
}

// StepCount returns the number of processor steps in the snapshot.
func (j *Job) StepCount() int {
	return len(j.Pipeline.Processors)
}

// CurrentStep returns the step at CurrentProcessorIdx, or false if the
// pipeline has been exhausted.
func (j *Job) CurrentStep() (campaign.ProcessorStep, bool) {
	if j.CurrentProcessorIdx < 0 || j.CurrentProcessorIdx >= len(j.Pipeline.Processors) {
		return campaign.ProcessorStep{}, false
	}
	return j.Pipeline.Processors[j.CurrentProcessorIdx], true
}

// Transition moves j to the given status, stamping started_at/completed_at
// and incrementing Attempts/ErrorLog when entering failed (spec §4.4:
// "Entering failed increments attempts and appends to error_log").
// Re-entry into a terminal state is a no-op.
func (j *Job) Transition(to Status, reason string) error {
	if j.Status == to && j.Status.IsTerminal() {
		return nil
	}
	if !j.Status.CanTransition(to) {
		return fmt.Errorf("job: invalid transition from %s to %s", j.Status, to)
	}

	j.Status = to
	now := time.Now()
	switch to {
	case StatusRunning:
		if j.StartedAt == nil {
			j.StartedAt = &now
		}
	case StatusFailed:
		j.Attempts++
		if reason != "" {
			j.ErrorLog = append(j.ErrorLog, reason)
		}
		j.CompletedAt = &now
	case StatusCompleted, StatusCancelled:
		j.CompletedAt = &now
	}
	return nil
}

// CanRetry reports whether a failed job may be retried as a whole.
func (j *Job) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}
