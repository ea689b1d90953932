package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/job"
	"github.com/jaxxstorm/docuflow/internal/workflow"
)

// StepDispatchClient wraps the workflow manager for dispatch-monitor use:
// starting the next pipeline step and polling its execution status.
type StepDispatchClient struct {
	manager      *workflow.Manager
	logger       *zap.Logger
	timeout      time.Duration
	providerType string
}

// NewStepDispatchClient creates a step dispatch client bound to one
// workflow provider.
func NewStepDispatchClient(manager *workflow.Manager, logger *zap.Logger, timeout time.Duration, providerType string) *StepDispatchClient {
	return &StepDispatchClient{
		manager:      manager,
		logger:       logger.With(zap.String("component", "step-dispatch-client")),
		timeout:      timeout,
		providerType: providerType,
	}
}

// DispatchStep starts execution of j's current pipeline step.
// Returns the provider execution ID to poll for completion.
func (c *StepDispatchClient) DispatchStep(ctx context.Context, tenantID string, j *job.Job) (string, error) {
	if c.manager == nil {
		return "", fmt.Errorf("workflow manager not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	step, ok := j.CurrentStep()
	if !ok {
		return "", fmt.Errorf("job %s has no step at index %d", j.ID, j.CurrentProcessorIdx)
	}

	c.logger.Info("dispatching pipeline step",
		zap.String("tenant_id", tenantID),
		zap.String("job_id", j.ID),
		zap.Int("step_index", j.CurrentProcessorIdx),
		zap.String("processor", step.ID))

	workflowID := fmt.Sprintf("job-%s-step-%d", j.ID, j.CurrentProcessorIdx)
	if c.providerType == "restate" {
		workflowID = "pipeline-step"
	}

	var config map[string]interface{}
	if len(step.Config) > 0 {
		if err := json.Unmarshal(step.Config, &config); err != nil {
			return "", fmt.Errorf("unmarshal step config: %w", err)
		}
	}

	request := &workflow.StepDispatchRequest{
		TenantID:      tenantID,
		JobID:         j.ID,
		DocumentID:    j.DocumentID,
		ProcessorSlug: step.ID,
		StepIndex:     j.CurrentProcessorIdx,
		Config:        config,
	}

	result, err := c.manager.Invoke(ctx, workflowID, c.providerType, request)
	if err != nil {
		c.logger.Error("step dispatch failed",
			zap.String("job_id", j.ID),
			zap.Int("step_index", j.CurrentProcessorIdx),
			zap.Error(err))
		return "", err
	}

	c.logger.Info("step dispatched",
		zap.String("job_id", j.ID),
		zap.String("execution_id", result.ExecutionID))

	return result.ExecutionID, nil
}

// GetExecutionStatus queries the status of an in-flight step execution.
func (c *StepDispatchClient) GetExecutionStatus(ctx context.Context, executionID string) (*workflow.ExecutionStatus, error) {
	if c.manager == nil {
		return nil, fmt.Errorf("workflow manager not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status, err := c.manager.GetExecutionStatus(ctx, executionID, c.providerType)
	if err != nil {
		c.logger.Error("failed to get execution status",
			zap.String("execution_id", executionID),
			zap.Error(err))
		return nil, err
	}
	if status == nil {
		return nil, fmt.Errorf("workflow status is nil")
	}

	return status, nil
}

// IsRetryableError classifies workflow errors as retryable or fatal.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case err == context.DeadlineExceeded:
		return true
	case err == context.Canceled:
		return false
	default:
		return true
	}
}
