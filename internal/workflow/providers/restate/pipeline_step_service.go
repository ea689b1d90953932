package restate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jaxxstorm/docuflow/internal/activity"
	"github.com/jaxxstorm/docuflow/internal/config"
	"github.com/jaxxstorm/docuflow/internal/tenantctx"
	"github.com/jaxxstorm/docuflow/internal/workflow"
	restate "github.com/restatedev/sdk-go"
	"github.com/restatedev/sdk-go/server"
	"go.uber.org/zap"
)

// TenantRunnerResolver builds the activity.Runner and tenant binding for
// one tenant, so the service can load the right per-tenant database
// connection without this package depending on internal/database
// directly.
type TenantRunnerResolver interface {
	RunnerFor(ctx context.Context, tenantID string) (*activity.Runner, tenantctx.Tenant, error)
}

// PipelineStepService defines the Restate service that dispatches one
// pipeline step per invocation. Restate's durable execution model
// means each retry/replay of an activity resumes exactly where the
// prior attempt left off.
type PipelineStepService struct {
	resolver TenantRunnerResolver
	logger   *zap.Logger
}

// StepRequest is the input for one pipeline step dispatch.
type StepRequest = workflow.StepDispatchRequest

// NewPipelineStepService creates a new pipeline step service.
func NewPipelineStepService(resolver TenantRunnerResolver, logger *zap.Logger) *PipelineStepService {
	return &PipelineStepService{
		resolver: resolver,
		logger:   logger.With(zap.String("component", "pipeline-step-service")),
	}
}

// Execute runs one pipeline step and reports the outcome back in the
// shape a Restate durable execution can persist and replay. It carries
// no awakeable, so a callback-pending outcome is reported as
// StateRunning without Restate itself suspending the invocation; Bind's
// handler calls executeWithAwakeable instead so a parked step actually
// blocks the durable execution until the external signal resolves it.
func (s *PipelineStepService) Execute(ctx context.Context, req *StepRequest) (*workflow.ExecutionStatus, error) {
	return s.executeWithAwakeable(ctx, req, "")
}

func (s *PipelineStepService) executeWithAwakeable(ctx context.Context, req *StepRequest, awakeableID string) (*workflow.ExecutionStatus, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if req.JobID == "" {
		return nil, fmt.Errorf("job_id is required")
	}

	s.logger.Info("executing pipeline step",
		zap.String("tenant_id", req.TenantID),
		zap.String("job_id", req.JobID),
		zap.Int("step_index", req.StepIndex),
	)

	runner, tenant, err := s.resolver.RunnerFor(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant runner: %w", err)
	}

	outcome := runner.Run(ctx, tenant, activity.Payload{
		TenantID:            req.TenantID,
		JobID:               req.JobID,
		DocumentID:          req.DocumentID,
		StepIndex:           req.StepIndex,
		CallbackAwakeableID: awakeableID,
	})

	return outcomeToExecutionStatus(req, outcome), nil
}

func outcomeToExecutionStatus(req *StepRequest, outcome activity.Outcome) *workflow.ExecutionStatus {
	status := &workflow.ExecutionStatus{
		ExecutionID:  outcome.ExecutionID,
		WorkflowID:   req.JobID,
		ProviderType: "restate",
		Output:       outcome.Output,
	}

	switch {
	case outcome.Error != "" && outcome.CallbackPending:
		status.State = workflow.StateFailed
	case outcome.CallbackPending:
		status.State = workflow.StateRunning
		status.Metadata = map[string]string{"callback_transaction_id": outcome.TransactionID}
	case outcome.Error != "":
		status.State = workflow.StateFailed
		status.Error = &workflow.ExecutionError{Message: outcome.Error}
	default:
		status.State = workflow.StateSucceeded
	}

	return status
}

// RegisterService registers the pipeline step service with Restate.
func (s *PipelineStepService) RegisterService(ctx context.Context, client *Client, serviceName string) error {
	if serviceName == "" {
		serviceName = workflowServiceName(config.RestateConfig{}, pipelineStepWorkflowID)
	}
	return client.RegisterService(ctx, serviceName)
}

// Bind registers the pipeline step handlers with a Restate server.
func (s *PipelineStepService) Bind(server *server.Restate, serviceName string) {
	if serviceName == "" {
		serviceName = workflowServiceName(config.RestateConfig{}, pipelineStepWorkflowID)
	}

	server.Bind(
		restate.NewService(serviceName).
			Handler("execute", restate.NewServiceHandler(func(rctx restate.Context, req StepRequest) (workflow.ExecutionStatus, error) {
				// Created unconditionally, before the step even runs, so
				// replay after a crash resumes deterministically instead
				// of minting a fresh awakeable ID every attempt.
				awakeable := rctx.Awakeable()

				status, err := s.executeWithAwakeable(rctx, &req, awakeable.Id())
				if err != nil {
					return workflow.ExecutionStatus{}, err
				}
				if status == nil {
					return workflow.ExecutionStatus{}, nil
				}

				if status.State == workflow.StateRunning && status.Metadata["callback_transaction_id"] != "" {
					var result json.RawMessage
					if err := awakeable.Result(&result); err != nil {
						return workflow.ExecutionStatus{}, fmt.Errorf("await callback awakeable: %w", err)
					}
					status.State = workflow.StateSucceeded
					status.Output = result
					status.Metadata = nil
				}

				return *status, nil
			})),
	)
}
