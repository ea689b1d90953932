package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jaxxstorm/docuflow/internal/activity"
	"github.com/jaxxstorm/docuflow/internal/tenantctx"
	"github.com/jaxxstorm/docuflow/internal/workflow"
	"go.uber.org/zap"
)

// TenantRunnerResolver builds the activity.Runner and tenant binding for
// one tenant. Declared again here rather than imported from
// workflow/providers/restate, the same narrow-interface duplication
// internal/controller's TenantJobRepositoryResolver applies against
// restate.TenantRunnerResolver, so this package never depends on the
// restate provider.
type TenantRunnerResolver interface {
	RunnerFor(ctx context.Context, tenantID string) (*activity.Runner, tenantctx.Tenant, error)
}

// Provider is an in-memory workflow provider that dispatches a pipeline
// step through a tenant's activity.Runner exactly as
// restate.PipelineStepService does, minus durable replay: useful for
// local development and integration tests that don't want to stand up a
// Restate server.
type Provider struct {
	mu          sync.RWMutex
	workflows   map[string]*workflowData
	executions  map[string]*executionData
	pending     map[string]chan workflow.CallbackPayload
	resolver    TenantRunnerResolver
	logger      *zap.Logger
	execCounter uint64
}

type workflowData struct {
	spec      *workflow.WorkflowSpec
	createdAt time.Time
}

type executionData struct {
	id            string
	workflowID    string
	input         *workflow.ExecutionInput
	status        *workflow.ExecutionStatus
	transactionID string
}

// New creates a mock provider that dispatches steps through resolver.
func New(resolver TenantRunnerResolver, logger *zap.Logger) *Provider {
	return &Provider{
		workflows:  make(map[string]*workflowData),
		executions: make(map[string]*executionData),
		pending:    make(map[string]chan workflow.CallbackPayload),
		resolver:   resolver,
		logger:     logger,
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "mock"
}

// Invoke starts a workflow execution using a simplified request payload
func (p *Provider) Invoke(ctx context.Context, workflowID string, request *workflow.StepDispatchRequest) (*workflow.ExecutionResult, error) {
	if request == nil {
		return nil, fmt.Errorf("step dispatch request is required")
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	executionName := fmt.Sprintf("job-%s-step-%d", request.JobID, request.StepIndex)
	input := &workflow.ExecutionInput{
		ExecutionName: executionName,
		Input:         payload,
		Tags: map[string]string{
			"tenant_id": request.TenantID,
			"job_id":    request.JobID,
		},
		TriggerSource: "controller",
	}

	return p.StartExecution(ctx, workflowID, input)
}

// GetWorkflowStatus returns a simplified workflow status for an execution
func (p *Provider) GetWorkflowStatus(ctx context.Context, executionID string) (*workflow.WorkflowStatus, error) {
	status, err := p.GetExecutionStatus(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if status == nil {
		return nil, fmt.Errorf("execution status is nil")
	}

	return &workflow.WorkflowStatus{
		ExecutionID: status.ExecutionID,
		State:       status.State,
		Output:      status.Output,
		Error:       status.Error,
	}, nil
}

// CreateWorkflow stores a workflow in memory
func (p *Provider) CreateWorkflow(ctx context.Context, spec *workflow.WorkflowSpec) (*workflow.CreateWorkflowResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.workflows[spec.WorkflowID]; exists {
		p.logger.Debug("workflow already exists", zap.String("workflow_id", spec.WorkflowID))
		return &workflow.CreateWorkflowResult{
			WorkflowID:   spec.WorkflowID,
			ProviderType: "mock",
			ResourceIDs:  map[string]string{"workflow_id": spec.WorkflowID},
			CreatedAt:    p.workflows[spec.WorkflowID].createdAt,
			Message:      "workflow already exists",
		}, nil
	}

	now := time.Now()
	p.workflows[spec.WorkflowID] = &workflowData{
		spec:      spec,
		createdAt: now,
	}

	p.logger.Info("created mock workflow",
		zap.String("workflow_id", spec.WorkflowID),
		zap.String("name", spec.Name))

	return &workflow.CreateWorkflowResult{
		WorkflowID:   spec.WorkflowID,
		ProviderType: "mock",
		ResourceIDs:  map[string]string{"workflow_id": spec.WorkflowID},
		CreatedAt:    now,
		Message:      "mock workflow created successfully",
	}, nil
}

// StartExecution dispatches one pipeline step through the tenant's
// activity.Runner and records the real outcome -- a callback-pending
// step parks on a per-transaction channel rather than reporting success
// immediately.
func (p *Provider) StartExecution(ctx context.Context, workflowID string, input *workflow.ExecutionInput) (*workflow.ExecutionResult, error) {
	p.mu.Lock()
	if _, exists := p.workflows[workflowID]; !exists {
		// The step dispatcher addresses executions by a workflow ID
		// derived from the job/step position rather than one registered
		// up front via CreateWorkflow; auto-provision it the first time
		// it's dispatched, the same as Restate's service-registration
		// model doesn't require a matching explicit "create".
		p.workflows[workflowID] = &workflowData{
			spec:      &workflow.WorkflowSpec{WorkflowID: workflowID, ProviderType: "mock"},
			createdAt: time.Now(),
		}
	}

	executionID := input.ExecutionName
	if executionID == "" {
		counter := atomic.AddUint64(&p.execCounter, 1)
		executionID = fmt.Sprintf("exec-%s-%d-%d", workflowID, time.Now().UnixNano(), counter)
	}

	// Idempotency: Return existing execution if already created with same execution name
	if execData, exists := p.executions[executionID]; exists {
		p.mu.Unlock()
		return &workflow.ExecutionResult{
			ExecutionID:  execData.id,
			WorkflowID:   execData.workflowID,
			ProviderType: "mock",
			State:        execData.status.State,
			StartedAt:    execData.status.StartTime,
			Message:      "execution already started (idempotent result)",
		}, nil
	}
	p.mu.Unlock()

	if p.resolver == nil {
		return nil, fmt.Errorf("mock provider has no tenant runner resolver configured")
	}

	var req workflow.StepDispatchRequest
	if err := json.Unmarshal(input.Input, &req); err != nil {
		return nil, fmt.Errorf("unmarshal step dispatch request: %w", err)
	}
	if req.JobID == "" {
		return nil, fmt.Errorf("step dispatch request missing job_id")
	}

	runner, tenant, err := p.resolver.RunnerFor(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant runner: %w", err)
	}

	outcome := runner.Run(ctx, tenant, activity.Payload{
		TenantID:   req.TenantID,
		JobID:      req.JobID,
		DocumentID: req.DocumentID,
		StepIndex:  req.StepIndex,
	})

	now := time.Now()
	status := &workflow.ExecutionStatus{
		ExecutionID:  executionID,
		WorkflowID:   workflowID,
		ProviderType: "mock",
		StartTime:    now,
		Input:        input.Input,
		History: []workflow.ExecutionEvent{
			{Timestamp: now, Type: "ExecutionStarted", Details: json.RawMessage(`{}`)},
		},
	}

	switch {
	case outcome.CallbackPending:
		status.State = workflow.StateRunning
		status.Metadata = map[string]string{"callback_transaction_id": outcome.TransactionID}
	case outcome.Error != "":
		status.State = workflow.StateFailed
		status.StopTime = &now
		status.Error = &workflow.ExecutionError{Message: outcome.Error}
		status.History = append(status.History, workflow.ExecutionEvent{Timestamp: now, Type: "ExecutionFailed", Details: json.RawMessage(`{}`)})
	default:
		status.State = workflow.StateSucceeded
		status.StopTime = &now
		status.Output = outcome.Output
		status.History = append(status.History, workflow.ExecutionEvent{Timestamp: now, Type: "ExecutionSucceeded", Details: json.RawMessage(`{}`)})
	}

	p.mu.Lock()
	p.executions[executionID] = &executionData{
		id:            executionID,
		workflowID:    workflowID,
		input:         input,
		status:        status,
		transactionID: outcome.TransactionID,
	}
	p.mu.Unlock()

	if outcome.CallbackPending {
		p.parkForCallback(executionID, outcome.TransactionID)
	}

	p.logger.Info("started mock execution",
		zap.String("execution_id", executionID),
		zap.String("workflow_id", workflowID),
		zap.String("state", string(status.State)))

	return &workflow.ExecutionResult{
		ExecutionID:  executionID,
		WorkflowID:   workflowID,
		ProviderType: "mock",
		State:        status.State,
		StartedAt:    now,
		Message:      "mock execution dispatched to processor pipeline",
	}, nil
}

// parkForCallback blocks executionID's resolution on a bounded (capacity
// one) channel keyed by transactionID, and resumes it the moment
// PostCallback delivers a signal against that transaction.
func (p *Provider) parkForCallback(executionID, transactionID string) {
	ch := make(chan workflow.CallbackPayload, 1)

	p.mu.Lock()
	p.pending[transactionID] = ch
	p.mu.Unlock()

	go func() {
		payload := <-ch

		p.mu.Lock()
		defer p.mu.Unlock()

		exec, ok := p.executions[executionID]
		if !ok {
			return
		}

		now := time.Now()
		exec.status.StopTime = &now
		exec.status.Metadata = nil
		if payload.ErrorMessage != nil {
			exec.status.State = workflow.StateFailed
			exec.status.Error = &workflow.ExecutionError{Message: *payload.ErrorMessage}
		} else {
			exec.status.State = workflow.StateSucceeded
			exec.status.Output = payload.Result
		}
		exec.status.History = append(exec.status.History, workflow.ExecutionEvent{
			Timestamp: now,
			Type:      "CallbackReceived",
			Details:   json.RawMessage(`{}`),
		})

		p.logger.Info("mock execution resumed from callback",
			zap.String("execution_id", executionID),
			zap.String("transaction_id", transactionID),
			zap.String("state", string(exec.status.State)))
	}()
}

// GetExecutionStatus returns the status of an execution
func (p *Provider) GetExecutionStatus(ctx context.Context, executionID string) (*workflow.ExecutionStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	exec, exists := p.executions[executionID]
	if !exists {
		return nil, workflow.ErrExecutionNotFound
	}

	return exec.status, nil
}

// StopExecution cancels a running execution
func (p *Provider) StopExecution(ctx context.Context, executionID string, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	exec, exists := p.executions[executionID]
	if !exists {
		return workflow.ErrExecutionNotFound
	}

	now := time.Now()
	exec.status.State = workflow.StateCancelled
	exec.status.StopTime = &now
	exec.status.History = append(exec.status.History, workflow.ExecutionEvent{
		Timestamp: now,
		Type:      "ExecutionCancelled",
		Details:   json.RawMessage(fmt.Sprintf(`{"reason": "%s"}`, reason)),
	})

	if exec.transactionID != "" {
		delete(p.pending, exec.transactionID)
	}

	p.logger.Info("stopped mock execution",
		zap.String("execution_id", executionID),
		zap.String("reason", reason))

	return nil
}

// DeleteWorkflow removes a workflow from memory
func (p *Provider) DeleteWorkflow(ctx context.Context, workflowID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.workflows[workflowID]; !exists {
		return workflow.ErrWorkflowNotFound
	}

	delete(p.workflows, workflowID)

	p.logger.Info("deleted mock workflow", zap.String("workflow_id", workflowID))

	return nil
}

// Validate performs basic validation on the workflow spec
func (p *Provider) Validate(ctx context.Context, spec *workflow.WorkflowSpec) error {
	if len(spec.Definition) > 0 {
		if !json.Valid(spec.Definition) {
			return fmt.Errorf("definition must be valid JSON")
		}
	}

	return nil
}

// PostCallback delivers a signal to the channel a suspended execution is
// parked on, resuming it.
func (p *Provider) PostCallback(ctx context.Context, executionID string, payload *workflow.CallbackPayload, opts *workflow.CallbackOptions) error {
	p.mu.RLock()
	exec, exists := p.executions[executionID]
	var ch chan workflow.CallbackPayload
	var transactionID string
	if exists {
		transactionID = exec.transactionID
		ch = p.pending[transactionID]
	}
	p.mu.RUnlock()

	if !exists {
		return fmt.Errorf("execution not found: %s", executionID)
	}

	p.logger.Debug("received step callback",
		zap.String("execution_id", executionID),
		zap.String("tenant_id", payload.TenantID),
		zap.String("signal_name", payload.SignalName),
		zap.String("status", payload.Status),
	)

	if ch == nil {
		return fmt.Errorf("execution %s has no step parked on a callback", executionID)
	}

	select {
	case ch <- *payload:
	default:
		return fmt.Errorf("callback already delivered for transaction %s", transactionID)
	}

	p.mu.Lock()
	delete(p.pending, transactionID)
	p.mu.Unlock()

	return nil
}
