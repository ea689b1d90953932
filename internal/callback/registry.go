package callback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SignalDispatcher delivers a named signal to the workflow execution
// suspended on it. Registry depends on this narrow interface rather than
// importing internal/workflow directly, the same inversion job.Manager
// uses against its WorkflowDispatcher.
type SignalDispatcher interface {
	SendSignal(ctx context.Context, providerType, workflowExecutionID, signalName string, payload Payload) error
}

// Store is the persistence surface Registry needs. *Repository satisfies
// it; Registry depends on the interface rather than the concrete type so
// it can be exercised in tests without a central database.
type Store interface {
	Register(ctx context.Context, m *Mapping) (*Mapping, error)
	Lookup(ctx context.Context, transactionID string) (*Mapping, error)
	MarkDelivered(ctx context.Context, transactionID string, status Status, result []byte) error
}

// Registry is the central-DB CallbackRegistry: it tracks outstanding
// external transactions and dispatches the signal that resumes the
// workflow execution waiting on each one.
type Registry struct {
	repo       Store
	dispatcher SignalDispatcher
	options    Options
	logger     *zap.Logger
}

// NewRegistry creates a CallbackRegistry.
func NewRegistry(repo Store, dispatcher SignalDispatcher, logger *zap.Logger) *Registry {
	return &Registry{
		repo:       repo,
		dispatcher: dispatcher,
		options:    DefaultOptions(),
		logger:     logger.With(zap.String("component", "callback-registry")),
	}
}

// Register idempotently records that jobID's workflow execution is
// waiting on transactionID, to be resumed via signalName once the vendor
// calls back.
func (r *Registry) Register(ctx context.Context, tenantID, transactionID, jobID, workflowExecutionID, providerType, signalName string) (*Mapping, error) {
	r.logger.Info("registering callback mapping",
		zap.String("tenant_id", tenantID),
		zap.String("transaction_id", transactionID),
		zap.String("job_id", jobID),
	)

	m := &Mapping{
		TenantID:            tenantID,
		TransactionID:       transactionID,
		JobID:               jobID,
		WorkflowExecutionID: workflowExecutionID,
		ProviderType:        providerType,
		SignalName:          signalName,
		Status:              StatusPending,
	}

	registered, err := r.repo.Register(ctx, m)
	if err != nil {
		r.logger.Error("callback mapping registration failed", zap.String("transaction_id", transactionID), zap.Error(err))
		return nil, err
	}
	return registered, nil
}

// Lookup finds the mapping for transactionID.
func (r *Registry) Lookup(ctx context.Context, transactionID string) (*Mapping, error) {
	return r.repo.Lookup(ctx, transactionID)
}

// RecordCallback marks the mapping for transactionID delivered, then
// dispatches its signal to the suspended workflow execution. Delivery is
// retried with linear backoff per Options — the vendor's callback must
// not be dropped just because the workflow provider briefly erred.
func (r *Registry) RecordCallback(ctx context.Context, transactionID string, result json.RawMessage, errorMessage *string) error {
	m, err := r.repo.Lookup(ctx, transactionID)
	if err != nil {
		return err
	}

	status := StatusDelivered
	if errorMessage != nil {
		status = StatusExpired
	}

	if err := r.repo.MarkDelivered(ctx, transactionID, status, result); err != nil {
		return fmt.Errorf("record callback: %w", err)
	}

	payload := Payload{
		TransactionID: transactionID,
		JobID:         m.JobID,
		Status:        status,
		Result:        result,
		ErrorMessage:  errorMessage,
		Timestamp:     time.Now(),
	}

	var lastErr error
	for attempt := 0; attempt <= r.options.MaxRetries; attempt++ {
		if attempt > 0 {
			r.logger.Info("retrying signal dispatch",
				zap.String("transaction_id", transactionID),
				zap.Int("attempt", attempt),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("dispatch signal: %w", ctx.Err())
			case <-time.After(time.Duration(attempt*r.options.RetryBackoffSeconds) * time.Second):
			}
		}
		lastErr = r.dispatcher.SendSignal(ctx, m.ProviderType, m.WorkflowExecutionID, m.SignalName, payload)
		if lastErr == nil {
			r.logger.Info("callback delivered",
				zap.String("transaction_id", transactionID),
				zap.String("job_id", m.JobID),
			)
			return nil
		}
	}

	r.logger.Error("signal dispatch exhausted retries",
		zap.String("transaction_id", transactionID),
		zap.Int("max_retries", r.options.MaxRetries),
		zap.Error(lastErr),
	)
	return fmt.Errorf("dispatch signal after %d retries: %w", r.options.MaxRetries, lastErr)
}

// RecordFetchCompleted marks a mapping delivered without dispatching a
// signal, for the polling path where an Activity itself fetched the
// vendor result rather than waiting on a pushed webhook.
func (r *Registry) RecordFetchCompleted(ctx context.Context, transactionID string, result json.RawMessage) error {
	r.logger.Info("recording fetch-completed callback", zap.String("transaction_id", transactionID))
	if err := r.repo.MarkDelivered(ctx, transactionID, StatusDelivered, result); err != nil {
		return fmt.Errorf("record fetch completed: %w", err)
	}
	return nil
}
