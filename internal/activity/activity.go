// Package activity implements the ActivityRunner: the unit of work a
// workflow provider dispatches once per pipeline step. It reconstitutes
// tenant context, resolves and invokes a processor, and records the
// outcome against the execution/document/job tables.
package activity

import (
	"encoding/json"
)

// Payload is what a workflow provider hands to Runner.Run for one step
// dispatch — the restate and mock providers both build it from the same
// workflow.StepDispatchRequest regardless of transport.
type Payload struct {
	TenantID   string `json:"tenant_id"`
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
	StepIndex  int    `json:"step_index"`

	// CallbackAwakeableID, when set, names the durable-execution
	// awakeable a provider has already parked waiting on before
	// dispatching this step. Runner registers it as the callback's
	// resumption identifier in place of the job's workflow execution ID,
	// so a provider whose suspend mechanism is a per-step awakeable (not
	// the whole execution) resumes the right one.
	CallbackAwakeableID string `json:"callback_awakeable_id,omitempty"`
}

// Outcome is what Runner.Run reports back to the calling workflow
// provider once a step has been attempted.
type Outcome struct {
	ExecutionID     string          `json:"execution_id"`
	Output          json.RawMessage `json:"output,omitempty"`
	CallbackPending bool            `json:"callback_pending"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	Retryable       bool            `json:"retryable"`
	Error           string          `json:"error,omitempty"`
}
