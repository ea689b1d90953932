package workflow

import (
	"encoding/json"
	"time"
)

// CallbackPayload represents an external signal resolving a suspended
// pipeline step: a vendor webhook (KYC approval, a long-running OCR job)
// delivered against the transaction id the step parked on.
type CallbackPayload struct {
	// ExecutionID is the pipeline step execution record that is waiting
	// on this callback.
	ExecutionID string `json:"execution_id"`

	// TenantID is the associated tenant
	TenantID string `json:"tenant_id"`

	// WorkflowExecutionID links back to the workflow
	WorkflowExecutionID string `json:"workflow_execution_id"`

	// SignalName is the named signal the step is suspended on.
	SignalName string `json:"signal_name"`

	// Status is the final status the vendor reported for the callback.
	Status string `json:"status"`

	// Result carries the vendor's payload for a successful callback.
	Result json.RawMessage `json:"result,omitempty"`

	// ErrorCode is populated for failed callbacks
	ErrorCode *string `json:"error_code,omitempty"`

	// ErrorMessage is populated for failed callbacks
	ErrorMessage *string `json:"error_message,omitempty"`

	// IsRetriable indicates if the callback delivery can be retried
	IsRetriable bool `json:"is_retriable"`

	// Timestamp of callback generation
	Timestamp time.Time `json:"timestamp"`
}

// CallbackOptions controls callback delivery behavior
type CallbackOptions struct {
	// MaxRetries is the maximum number of retry attempts
	MaxRetries int

	// RetryBackoffSeconds is the base backoff duration
	RetryBackoffSeconds int

	// TimeoutSeconds is the timeout for callback delivery
	TimeoutSeconds int
}

// DefaultCallbackOptions returns reasonable defaults for callback delivery
func DefaultCallbackOptions() CallbackOptions {
	return CallbackOptions{
		MaxRetries:          3,
		RetryBackoffSeconds: 2,
		TimeoutSeconds:      30,
	}
}
