package workflow

import (
	"context"
	"encoding/json"
)

// Provider defines the interface for workflow providers
type Provider interface {
	// Name returns the unique provider identifier
	Name() string

	// Invoke starts a workflow execution using a simplified request payload
	Invoke(ctx context.Context, workflowID string, request *StepDispatchRequest) (*ExecutionResult, error)

	// GetWorkflowStatus queries current execution status with simplified response
	GetWorkflowStatus(ctx context.Context, executionID string) (*WorkflowStatus, error)

	// CreateWorkflow creates a workflow definition
	CreateWorkflow(ctx context.Context, spec *WorkflowSpec) (*CreateWorkflowResult, error)

	// StartExecution starts a workflow execution
	// IMPORTANT: Implementations MUST be idempotent - if called multiple times with the same
	// ExecutionInput.ExecutionName, the provider should return the existing execution result
	// instead of creating a duplicate. This ensures that network retries and API retries don't
	// create duplicate workflow executions.
	StartExecution(ctx context.Context, workflowID string, input *ExecutionInput) (*ExecutionResult, error)

	// GetExecutionStatus queries current execution state
	GetExecutionStatus(ctx context.Context, executionID string) (*ExecutionStatus, error)

	// StopExecution stops a running execution
	StopExecution(ctx context.Context, executionID string, reason string) error

	// DeleteWorkflow removes a workflow definition
	DeleteWorkflow(ctx context.Context, workflowID string) error

	// Validate performs provider-specific validation
	Validate(ctx context.Context, spec *WorkflowSpec) error

	// PostCallback delivers an external callback (e.g. a vendor webhook
	// resolving a suspended step) into a running workflow execution as a
	// named signal.
	PostCallback(ctx context.Context, executionID string, payload *CallbackPayload, opts *CallbackOptions) error
}

// StepDispatchRequest is a simplified execution request for workflow
// providers: everything a provider needs to dispatch one pipeline step
// without knowing the shape of the job/document/campaign tables.
type StepDispatchRequest struct {
	TenantID      string                 `json:"tenant_id"`
	JobID         string                 `json:"job_id"`
	DocumentID    string                 `json:"document_id"`
	ProcessorSlug string                 `json:"processor_slug,omitempty"`
	StepIndex     int                    `json:"step_index"`
	Config        map[string]interface{} `json:"config,omitempty"`
	Metadata      map[string]string      `json:"metadata,omitempty"` // e.g. pipeline_version for change detection
}

// WorkflowStatus is a simplified execution status response
type WorkflowStatus struct {
	ExecutionID string          `json:"execution_id"`
	State       ExecutionState  `json:"state"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       *ExecutionError `json:"error,omitempty"`
}
