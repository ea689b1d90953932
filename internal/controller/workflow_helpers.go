package controller

import (
	"github.com/jaxxstorm/docuflow/internal/workflow"
)

// isDegradedWorkflow checks if a step execution is in a degraded state
// that warrants a fresh dispatch rather than continued polling.
//
// Degraded states are:
// - SubStateBackingOff: the provider is backing off due to upstream failures
//
// Executions in other non-terminal states are NOT considered degraded:
// - SubStateRunning: actively executing, should not be interrupted
// - SubStateWaiting: suspended on a callback signal, not an error state
func isDegradedWorkflow(execStatus *workflow.ExecutionStatus) bool {
	if execStatus == nil {
		return false
	}

	if execStatus.State == workflow.StateSucceeded ||
		execStatus.State == workflow.StateFailed ||
		execStatus.State == workflow.StateTimedOut ||
		execStatus.State == workflow.StateCancelled {
		return false
	}

	subState, _, _ := workflow.ExtractWorkflowDetails(execStatus)
	return subState == workflow.SubStateBackingOff
}
