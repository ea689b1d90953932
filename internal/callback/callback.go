// Package callback implements CallbackRegistry: the central-DB mapping
// from an outstanding async transaction (a credit check, a KYC vendor
// fetch, any processor awaiting an out-of-band result) back to the
// workflow execution that is suspended waiting on it.
package callback

import (
	"encoding/json"
	"time"
)

// Status represents a callback mapping's position in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusExpired   Status = "expired"
)

// Mapping binds an external transaction_id to the workflow execution
// suspended waiting on its result.
type Mapping struct {
	ID                  string          `json:"id" db:"id"`
	TenantID            string          `json:"tenant_id" db:"tenant_id"`
	TransactionID       string          `json:"transaction_id" db:"transaction_id"`
	JobID               string          `json:"job_id" db:"job_id"`
	WorkflowExecutionID string          `json:"workflow_execution_id" db:"workflow_execution_id"`
	ProviderType        string          `json:"provider_type" db:"provider_type"`
	SignalName          string          `json:"signal_name" db:"signal_name"`
	Status              Status          `json:"status" db:"status"`
	Result              json.RawMessage `json:"result,omitempty" db:"result"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
	DeliveredAt         *time.Time      `json:"delivered_at,omitempty" db:"delivered_at"`
}

// Payload is the signal payload dispatched to the suspended workflow,
// mirroring workflow.CallbackPayload's field shape.
type Payload struct {
	TransactionID string          `json:"transaction_id"`
	JobID         string          `json:"job_id"`
	Status        Status          `json:"status"`
	Result        json.RawMessage `json:"result,omitempty"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Options controls callback signal delivery, mirroring
// workflow.CallbackOptions.
type Options struct {
	MaxRetries          int
	RetryBackoffSeconds int
	TimeoutSeconds      int
}

// DefaultOptions returns reasonable defaults for callback delivery.
func DefaultOptions() Options {
	return Options{
		MaxRetries:          3,
		RetryBackoffSeconds: 2,
		TimeoutSeconds:      30,
	}
}
