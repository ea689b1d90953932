package job

import (
	"context"
	"fmt"

	"github.com/jaxxstorm/docuflow/internal/campaign"
	"github.com/jaxxstorm/docuflow/internal/ids"
	"go.uber.org/zap"
)

// WorkflowDispatcher starts the durable execution that will advance a job
// through its pipeline snapshot. Manager depends on this narrow interface
// rather than importing internal/workflow directly, the same inversion
// compute.Manager used against its provider registry.
type WorkflowDispatcher interface {
	Dispatch(ctx context.Context, j *Job) (executionID string, err error)
	Cancel(ctx context.Context, j *Job, reason string) error
}

// Notifier is told when a job reaches a terminal state, so an external
// delivery (a campaign webhook) can fire without Manager depending on
// internal/webhook directly. Implementations are expected to treat
// delivery as best-effort and not block the caller.
type Notifier interface {
	NotifyCompleted(ctx context.Context, j *Job)
	NotifyFailed(ctx context.Context, j *Job, reason string)
}

// AuditRecorder records a before/after snapshot of a job lifecycle
// transition, so Manager doesn't need to import internal/audit directly.
// Implementations are expected to log and swallow their own failures; a
// broken audit sink must never fail the job operation it is observing.
type AuditRecorder interface {
	Record(ctx context.Context, action string, before, after *Job)
}

// Manager coordinates job lifecycle operations against the tenant database,
// grounded on workflow.Manager's logging/validation/delegate shape.
type Manager struct {
	repo       *Repository
	dispatcher WorkflowDispatcher
	notifier   Notifier
	auditor    AuditRecorder
	logger     *zap.Logger
}

// New creates a job Manager.
func New(repo *Repository, dispatcher WorkflowDispatcher, logger *zap.Logger) *Manager {
	return &Manager{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("component", "job-manager")),
	}
}

// SetNotifier attaches a terminal-state Notifier. Optional: a Manager
// with no notifier set simply skips the notification step.
func (m *Manager) SetNotifier(n Notifier) {
	m.notifier = n
}

// SetAuditor attaches an AuditRecorder. Optional: a Manager with no
// auditor set simply skips the audit step.
func (m *Manager) SetAuditor(a AuditRecorder) {
	m.auditor = a
}

// Create snapshots campaign's pipeline into a new pending job for document,
// then hands it to the workflow dispatcher to begin execution.
func (m *Manager) Create(ctx context.Context, c *campaign.Campaign, documentID string) (*Job, error) {
	m.logger.Info("creating job",
		zap.String("campaign_id", c.ID),
		zap.String("document_id", documentID),
	)

	if c.Status != campaign.StatusActive {
		return nil, fmt.Errorf("job: campaign %s is not active (status=%s)", c.ID, c.Status)
	}

	pipeline, err := snapshotPipeline(c.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("job: snapshot pipeline: %w", err)
	}

	j := &Job{
		PublicUUID:  ids.New(),
		CampaignID:  c.ID,
		DocumentID:  documentID,
		Pipeline:    pipeline,
		MaxAttempts: 3,
		Status:      StatusPending,
	}

	if err := m.repo.Create(ctx, j); err != nil {
		m.logger.Error("job creation failed", zap.String("document_id", documentID), zap.Error(err))
		return nil, err
	}

	executionID, err := m.dispatcher.Dispatch(ctx, j)
	if err != nil {
		m.logger.Error("workflow dispatch failed", zap.String("job_id", j.ID), zap.Error(err))
		return nil, err
	}
	j.WorkflowExecutionID = executionID

	if err := j.Transition(StatusRunning, ""); err != nil {
		return nil, err
	}
	if err := m.repo.Update(ctx, j); err != nil {
		m.logger.Error("job update after dispatch failed", zap.String("job_id", j.ID), zap.Error(err))
		return nil, err
	}

	m.logger.Info("job created",
		zap.String("job_id", j.ID),
		zap.String("workflow_execution_id", executionID),
	)
	if m.auditor != nil {
		m.auditor.Record(ctx, "job.create", nil, j)
	}
	return j, nil
}

// Advance moves j to the next pipeline step, persisting the new index.
// The caller (the durable workflow provider) has already dispatched and
// completed the step's activity by this point; Advance only records
// progress so a crash resumes from CurrentProcessorIdx rather than step 0.
func (m *Manager) Advance(ctx context.Context, jobID string) (*Job, bool, error) {
	j, err := m.repo.Get(ctx, jobID)
	if err != nil {
		return nil, false, err
	}

	j.CurrentProcessorIdx++
	done := j.CurrentProcessorIdx >= j.StepCount()

	if err := m.repo.Update(ctx, j); err != nil {
		m.logger.Error("job advance failed", zap.String("job_id", jobID), zap.Error(err))
		return nil, false, err
	}

	m.logger.Info("job advanced",
		zap.String("job_id", jobID),
		zap.Int("current_processor_index", j.CurrentProcessorIdx),
		zap.Bool("done", done),
	)
	return j, done, nil
}

// Complete transitions j to completed.
func (m *Manager) Complete(ctx context.Context, jobID string) (*Job, error) {
	j, err := m.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	before := *j
	if err := j.Transition(StatusCompleted, ""); err != nil {
		return nil, err
	}
	if err := m.repo.Update(ctx, j); err != nil {
		m.logger.Error("job completion failed", zap.String("job_id", jobID), zap.Error(err))
		return nil, err
	}
	m.logger.Info("job completed", zap.String("job_id", jobID))
	if m.notifier != nil {
		m.notifier.NotifyCompleted(ctx, j)
	}
	if m.auditor != nil {
		m.auditor.Record(ctx, "job.complete", &before, j)
	}
	return j, nil
}

// Fail transitions j to failed, recording reason in its error log. If the
// job has remaining attempts the caller is expected to re-dispatch rather
// than treat failure as final; Fail itself only records the outcome.
func (m *Manager) Fail(ctx context.Context, jobID string, reason string) (*Job, error) {
	j, err := m.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	before := *j
	if err := j.Transition(StatusFailed, reason); err != nil {
		return nil, err
	}
	if err := m.repo.Update(ctx, j); err != nil {
		m.logger.Error("job failure recording failed", zap.String("job_id", jobID), zap.Error(err))
		return nil, err
	}
	m.logger.Info("job failed",
		zap.String("job_id", jobID),
		zap.String("reason", reason),
		zap.Int("attempts", j.Attempts),
	)
	if m.notifier != nil {
		m.notifier.NotifyFailed(ctx, j, reason)
	}
	if m.auditor != nil {
		m.auditor.Record(ctx, "job.fail", &before, j)
	}
	return j, nil
}

// Cancel stops a pending or running job and asks the dispatcher to stop
// its underlying workflow execution.
func (m *Manager) Cancel(ctx context.Context, jobID string, reason string) (*Job, error) {
	m.logger.Info("cancelling job", zap.String("job_id", jobID), zap.String("reason", reason))

	j, err := m.repo.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	before := *j
	if err := j.Transition(StatusCancelled, reason); err != nil {
		return nil, err
	}

	if err := m.dispatcher.Cancel(ctx, j, reason); err != nil {
		m.logger.Error("workflow cancel failed", zap.String("job_id", jobID), zap.Error(err))
		return nil, err
	}

	if err := m.repo.Update(ctx, j); err != nil {
		m.logger.Error("job cancellation failed", zap.String("job_id", jobID), zap.Error(err))
		return nil, err
	}

	m.logger.Info("job cancelled", zap.String("job_id", jobID))
	if m.auditor != nil {
		m.auditor.Record(ctx, "job.cancel", &before, j)
	}
	return j, nil
}
