package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/credential"
	"github.com/jaxxstorm/docuflow/internal/document"
	"github.com/jaxxstorm/docuflow/internal/execution"
	"github.com/jaxxstorm/docuflow/internal/job"
	"github.com/jaxxstorm/docuflow/internal/pipelineerrors"
	"github.com/jaxxstorm/docuflow/internal/processor"
	"github.com/jaxxstorm/docuflow/internal/progress"
	"github.com/jaxxstorm/docuflow/internal/tenantctx"
)

// JobLoader is the slice of job.Repository Runner needs: reading the job
// a step belongs to. A narrow interface rather than *job.Repository so
// Runner is testable against an in-memory fake.
type JobLoader interface {
	Get(ctx context.Context, id string) (*job.Job, error)
}

// DocumentStore is the slice of document.Repository Runner needs: loading
// a document and persisting the metadata a step merges into it.
type DocumentStore interface {
	Get(ctx context.Context, id string) (*document.Document, error)
	Update(ctx context.Context, d *document.Document) error
}

// ExecutionStore is the slice of execution.Repository Runner needs:
// creating and updating the tracked record for one step invocation.
type ExecutionStore interface {
	Create(ctx context.Context, r *execution.Record) error
	Update(ctx context.Context, r *execution.Record) error
	ListByJob(ctx context.Context, jobID string) ([]*execution.Record, error)
}

// ProcessorResolver resolves a pipeline step's processor slug to the
// Handler that executes it. Satisfied by *processor.Registry.
type ProcessorResolver interface {
	Get(ctx context.Context, slug string) (processor.Handler, error)
}

// CredentialResolver resolves a credential key through the
// processor/campaign/tenant/system hierarchy. Satisfied by
// *credential.Vault.
type CredentialResolver interface {
	Resolve(ctx context.Context, tenantID, key, processorSlug, campaignID string) (credential.Value, error)
}

// CallbackRecorder registers the external transaction a step suspended
// on, so a later vendor callback can resume the right workflow execution.
// Runner depends on this narrow interface rather than importing
// internal/callback directly.
type CallbackRecorder interface {
	Register(ctx context.Context, tenantID, transactionID, jobID, workflowExecutionID, providerType, signalName string) error
}

// ProgressPublisher publishes step-transition events. Satisfied by
// *progress.Bus.
type ProgressPublisher interface {
	Publish(ev progress.Event)
}

// UsageRecorder meters a completed step's resource consumption. Runner
// depends on this narrow interface rather than importing internal/usage
// directly; a nil UsageRecorder simply skips metering. Satisfied by
// *usage.Repository via an adapter.
type UsageRecorder interface {
	Record(ctx context.Context, campaignID, jobID, metric string, quantity float64, unit string) error
}

// Runner executes one pipeline step: the same "receive job -> do work ->
// report result" loop restate/worker_engine.go drives, generalized from a
// single compute operation to an arbitrary processor.Handler, and wrapped
// in the tracked-execution-record bookkeeping
// compute.Manager.ProvisionTenantWithTracking applies around a provider
// call.
type Runner struct {
	jobs       JobLoader
	documents  DocumentStore
	executions ExecutionStore
	registry   ProcessorResolver
	vault      CredentialResolver
	callbacks  CallbackRecorder
	bus        ProgressPublisher
	usage      UsageRecorder
	logger     *zap.Logger
}

// Deps bundles Runner's collaborators.
type Deps struct {
	Jobs       JobLoader
	Documents  DocumentStore
	Executions ExecutionStore
	Registry   ProcessorResolver
	Vault      CredentialResolver
	Callbacks  CallbackRecorder
	Bus        ProgressPublisher
	Usage      UsageRecorder // optional; nil disables metering
}

// New constructs a Runner bound to one tenant's repositories.
func New(deps Deps, logger *zap.Logger) *Runner {
	return &Runner{
		jobs:       deps.Jobs,
		documents:  deps.Documents,
		executions: deps.Executions,
		registry:   deps.Registry,
		vault:      deps.Vault,
		callbacks:  deps.Callbacks,
		bus:        deps.Bus,
		usage:      deps.Usage,
		logger:     logger.With(zap.String("component", "activity-runner")),
	}
}

// Run executes the pipeline step named by p, in the order spec §4.7
// describes: reconstitute tenant context, load job + step, resolve the
// processor, create then transition the ExecutionRecord, invoke the
// handler, validate output, persist results, merge document metadata,
// record any pending callback, and publish a progress event.
func (r *Runner) Run(ctx context.Context, tenant tenantctx.Tenant, p Payload) Outcome {
	ctx = tenantctx.WithTenant(ctx, tenant)

	r.logger.Info("running activity",
		zap.String("tenant_id", tenant.ID),
		zap.String("job_id", p.JobID),
		zap.Int("step_index", p.StepIndex),
	)

	j, err := r.jobs.Get(ctx, p.JobID)
	if err != nil {
		return r.failOutcome("", fmt.Errorf("load job: %w", err))
	}

	step, ok := j.CurrentStep()
	if !ok || p.StepIndex != j.CurrentProcessorIdx {
		return r.failOutcome("", fmt.Errorf("%w: job %s has no step at index %d", pipelineerrors.ErrConfiguration, p.JobID, p.StepIndex))
	}

	d, err := r.documents.Get(ctx, p.DocumentID)
	if err != nil {
		return r.failOutcome("", fmt.Errorf("load document: %w", err))
	}

	handler, err := r.registry.Get(ctx, step.ID)
	if err != nil {
		return r.failOutcome("", pipelineerrors.ConfigurationError(err.Error()))
	}

	if !handler.CanProcess(d) {
		return r.failOutcome("", pipelineerrors.InputError(fmt.Sprintf("handler %s cannot process document %s (mime %s)", handler.Name(), d.ID, d.Mime)))
	}

	if schemaProvider, ok := handler.(processor.ConfigSchemaProvider); ok {
		if err := processor.ValidateAgainstSchema(schemaProvider.ConfigSchema(), step.Config); err != nil {
			return r.failOutcome("", pipelineerrors.ConfigurationError(err.Error()))
		}
	}

	priorSteps, err := r.executions.ListByJob(ctx, p.JobID)
	if err != nil {
		return r.failOutcome("", fmt.Errorf("list prior executions: %w", err))
	}
	completedSlugs := make(map[string]bool, len(priorSteps))
	previousOutputs := make(map[string]map[string]interface{}, len(priorSteps))
	for _, prior := range priorSteps {
		if prior.Status == execution.StatusCompleted {
			completedSlugs[prior.ProcessorID] = true
			previousOutputs[prior.ProcessorID] = prior.Output
		}
	}

	if declarer, ok := handler.(processor.DependencyDeclarer); ok {
		for _, dep := range declarer.DependencySlugs() {
			if !completedSlugs[dep] {
				return r.failOutcome("", pipelineerrors.DependencyNotSatisfiedError(dep))
			}
		}
	}

	rec := &execution.Record{JobID: p.JobID, ProcessorID: step.ID, Status: execution.StatusPending}
	if err := r.executions.Create(ctx, rec); err != nil {
		return r.failOutcome("", fmt.Errorf("create execution record: %w", err))
	}
	if err := rec.Transition(execution.StatusRunning); err != nil {
		return r.failOutcome(rec.ID, err)
	}
	if err := r.executions.Update(ctx, rec); err != nil {
		return r.failOutcome(rec.ID, fmt.Errorf("update execution record: %w", err))
	}

	r.bus.Publish(progress.Event{JobID: p.JobID, Step: p.StepIndex, State: progress.StepRunning, Timestamp: time.Now()})

	pctx := processor.ProcessorContext{
		JobID:           p.JobID,
		StepIndex:       p.StepIndex,
		PreviousOutputs: previousOutputs,
		ResolveCredential: func(ctx context.Context, key string) (string, error) {
			v, err := r.vault.Resolve(ctx, tenant.ID, key, step.ID, j.CampaignID)
			if err != nil {
				return "", pipelineerrors.CredentialError(err.Error())
			}
			return v.Reveal(), nil
		},
	}

	result, procErr := handler.Process(ctx, d, step.Config, pctx)
	if procErr != nil {
		return r.handleProcessError(ctx, tenant, j, rec, p, procErr)
	}

	outputJSON, err := json.Marshal(result.Output)
	if err != nil {
		return r.failOutcome(rec.ID, fmt.Errorf("marshal output: %w", err))
	}

	if schemaProvider, ok := handler.(processor.OutputSchemaProvider); ok {
		if err := processor.ValidateAgainstSchema(schemaProvider.OutputSchema(), outputJSON); err != nil {
			schemaErr := pipelineerrors.ConfigurationError("output schema: " + err.Error())
			rec.Error = schemaErr.Error()
			if tErr := rec.Transition(execution.StatusFailed); tErr != nil {
				r.logger.Error("failed to transition execution record to failed", zap.Error(tErr))
			}
			if uErr := r.executions.Update(ctx, rec); uErr != nil {
				r.logger.Error("failed to persist failed execution record", zap.Error(uErr))
			}
			return r.failOutcome(rec.ID, schemaErr)
		}
	}

	rec.Output = result.Output
	rec.TokensUsed = result.TokensUsed
	rec.CostCredits = result.CostCredits
	if err := rec.Transition(execution.StatusCompleted); err != nil {
		return r.failOutcome(rec.ID, err)
	}
	if err := r.executions.Update(ctx, rec); err != nil {
		return r.failOutcome(rec.ID, fmt.Errorf("update execution record: %w", err))
	}

	d.MergeMetadata(step.ID, result.Output)
	if err := r.documents.Update(ctx, d); err != nil {
		return r.failOutcome(rec.ID, fmt.Errorf("update document metadata: %w", err))
	}

	r.meterStep(ctx, j.CampaignID, p.JobID, result)

	r.bus.Publish(progress.Event{JobID: p.JobID, Step: p.StepIndex, State: progress.StepCompleted, Timestamp: time.Now()})

	r.logger.Info("activity completed",
		zap.String("job_id", p.JobID),
		zap.String("execution_id", rec.ID),
		zap.Int("step_index", p.StepIndex),
	)

	return Outcome{ExecutionID: rec.ID, Output: outputJSON}
}

// handleProcessError classifies procErr: a callback-pending error parks
// the step (registers the external transaction and reports back without
// marking the execution failed), everything else fails the execution
// record and reports the error's retry classification to the caller.
func (r *Runner) handleProcessError(ctx context.Context, tenant tenantctx.Tenant, j *job.Job, rec *execution.Record, p Payload, procErr error) Outcome {
	var detail *pipelineerrors.CallbackDetail
	if errors.As(procErr, &detail) {
		r.logger.Info("activity suspended pending callback",
			zap.String("job_id", p.JobID),
			zap.String("execution_id", rec.ID),
			zap.String("transaction_id", detail.TransactionID),
			zap.String("signal", detail.Signal),
		)

		resumeID := j.WorkflowExecutionID
		if p.CallbackAwakeableID != "" {
			resumeID = p.CallbackAwakeableID
		}
		if err := r.callbacks.Register(ctx, tenant.ID, detail.TransactionID, j.ID, resumeID, "", detail.Signal); err != nil {
			return r.failOutcome(rec.ID, fmt.Errorf("register callback: %w", err))
		}

		return Outcome{
			ExecutionID:     rec.ID,
			CallbackPending: true,
			TransactionID:   detail.TransactionID,
		}
	}

	rec.Error = procErr.Error()
	if err := rec.Transition(execution.StatusFailed); err != nil {
		r.logger.Error("failed to transition execution record to failed", zap.Error(err))
	}
	if err := r.executions.Update(ctx, rec); err != nil {
		r.logger.Error("failed to persist failed execution record", zap.Error(err))
	}

	r.bus.Publish(progress.Event{JobID: p.JobID, Step: p.StepIndex, State: progress.StepFailed, Error: procErr.Error(), Timestamp: time.Now()})

	r.logger.Error("activity failed",
		zap.String("job_id", p.JobID),
		zap.String("execution_id", rec.ID),
		zap.Error(procErr),
	)

	return Outcome{
		ExecutionID: rec.ID,
		Retryable:   pipelineerrors.IsRetryable(procErr),
		Error:       procErr.Error(),
	}
}

// meterStep records a completed step's resource consumption, if any was
// reported and a UsageRecorder is configured. Metering failures are
// logged, never propagated -- a billing sink going down must not fail
// the pipeline step that already completed successfully.
func (r *Runner) meterStep(ctx context.Context, campaignID, jobID string, result processor.Result) {
	if r.usage == nil {
		return
	}
	if result.TokensUsed > 0 {
		if err := r.usage.Record(ctx, campaignID, jobID, "tokens_used", float64(result.TokensUsed), "tokens"); err != nil {
			r.logger.Warn("failed to record token usage", zap.String("job_id", jobID), zap.Error(err))
		}
	}
	if result.CostCredits > 0 {
		if err := r.usage.Record(ctx, campaignID, jobID, "cost_credits", result.CostCredits, "credits"); err != nil {
			r.logger.Warn("failed to record cost usage", zap.String("job_id", jobID), zap.Error(err))
		}
	}
}

func (r *Runner) failOutcome(executionID string, err error) Outcome {
	r.logger.Error("activity runner error", zap.String("execution_id", executionID), zap.Error(err))
	return Outcome{
		ExecutionID: executionID,
		Retryable:   pipelineerrors.IsRetryable(err),
		Error:       err.Error(),
	}
}
