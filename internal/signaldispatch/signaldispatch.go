// Package signaldispatch adapts the workflow provider registry to
// callback.SignalDispatcher, the same narrow-interface inversion
// internal/tenantdb applies to job.WorkflowDispatcher: callback.Registry
// depends on an interface it declares itself rather than importing
// internal/workflow, so this is the one place that bridges the two.
package signaldispatch

import (
	"context"
	"time"

	"github.com/jaxxstorm/docuflow/internal/callback"
	"github.com/jaxxstorm/docuflow/internal/workflow"
)

// Adapter delivers a callback.Payload to a suspended workflow execution
// by looking up the named provider in a *workflow.Registry and calling
// its PostCallback.
type Adapter struct {
	registry *workflow.Registry
}

// New wraps registry as a callback.SignalDispatcher.
func New(registry *workflow.Registry) *Adapter {
	return &Adapter{registry: registry}
}

// SendSignal implements callback.SignalDispatcher.
func (a *Adapter) SendSignal(ctx context.Context, providerType, workflowExecutionID, signalName string, payload callback.Payload) error {
	provider, err := a.registry.Get(providerType)
	if err != nil {
		return err
	}

	wp := &workflow.CallbackPayload{
		WorkflowExecutionID: workflowExecutionID,
		SignalName:          signalName,
		Status:              string(payload.Status),
		Result:              payload.Result,
		ErrorMessage:        payload.ErrorMessage,
		Timestamp:           payload.Timestamp,
	}
	if wp.Timestamp.IsZero() {
		wp.Timestamp = time.Now()
	}

	opts := workflow.DefaultCallbackOptions()
	return provider.PostCallback(ctx, workflowExecutionID, wp, &opts)
}
