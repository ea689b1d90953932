package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/config"
	"github.com/jaxxstorm/docuflow/internal/job"
	"github.com/jaxxstorm/docuflow/internal/tenant"
	"github.com/jaxxstorm/docuflow/internal/workflow"
)

// stepDispatcher is the slice of StepDispatchClient the monitor needs. A
// narrow interface rather than *StepDispatchClient so DispatchMonitor is
// testable against an in-memory fake.
type stepDispatcher interface {
	DispatchStep(ctx context.Context, tenantID string, j *job.Job) (string, error)
	GetExecutionStatus(ctx context.Context, executionID string) (*workflow.ExecutionStatus, error)
}

// JobRepository is the slice of job.Repository the dispatch monitor needs.
type JobRepository interface {
	ListForDispatch(ctx context.Context) ([]*job.Job, error)
	Update(ctx context.Context, j *job.Job) error
}

// TenantJobRepositoryResolver resolves a tenant ID to that tenant's bound
// job repository, the way restate.TenantRunnerResolver resolves a
// tenant's activity.Runner -- both hide the per-tenant database
// connection behind a narrow interface so this package never imports
// internal/database directly.
type TenantJobRepositoryResolver interface {
	JobRepositoryFor(ctx context.Context, tenantID string) (JobRepository, error)
}

// DispatchMonitor polls every active tenant's non-terminal jobs, dispatching
// a job's current pipeline step when none is in flight and advancing the
// job when an in-flight step's execution has settled. It is the per-tenant
// analog of a tenant-provisioning reconciler: same poll-loop/worker-pool/
// rate-limited-retry shape, generalized from "converge a tenant onto its
// desired compute state" to "step a job through its pipeline snapshot".
type DispatchMonitor struct {
	tenantRepo tenant.Repository
	jobRepos   TenantJobRepositoryResolver
	dispatcher stepDispatcher
	queue      *Queue
	config     config.ControllerConfig
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	retryCount map[string]int
	retryMu    sync.RWMutex
}

// NewDispatchMonitor creates a new dispatch monitor instance.
func NewDispatchMonitor(
	tenantRepo tenant.Repository,
	jobRepos TenantJobRepositoryResolver,
	dispatcher *StepDispatchClient,
	cfg config.ControllerConfig,
	logger *zap.Logger,
) *DispatchMonitor {
	ctx, cancel := context.WithCancel(context.Background())

	return &DispatchMonitor{
		tenantRepo: tenantRepo,
		jobRepos:   jobRepos,
		dispatcher: dispatcher,
		queue:      NewRateLimitingQueue(),
		config:     cfg,
		logger:     logger.With(zap.String("component", "dispatch-monitor")),
		ctx:        ctx,
		cancel:     cancel,
		retryCount: make(map[string]int),
	}
}

// Start begins the polling loops and worker pool.
func (m *DispatchMonitor) Start() error {
	if !m.config.Enabled {
		m.logger.Info("dispatch monitor disabled, not starting")
		return nil
	}

	m.logger.Info("starting dispatch monitor",
		zap.Duration("interval", m.config.ReconciliationInterval),
		zap.Duration("status_interval", m.config.StatusPollInterval),
		zap.Int("workers", m.config.Workers))

	m.wg.Add(1)
	go m.pollInvocationLoop()

	m.wg.Add(1)
	go m.pollStatusLoop()

	for i := 0; i < m.config.Workers; i++ {
		m.wg.Add(1)
		go m.runWorker(i)
	}

	return nil
}

// Stop gracefully shuts down the monitor.
func (m *DispatchMonitor) Stop() error {
	m.logger.Info("stopping dispatch monitor", zap.Int("queue_depth", m.queue.Len()))

	m.cancel()
	m.queue.ShutDown()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("dispatch monitor stopped gracefully")
		return nil
	case <-time.After(m.config.ShutdownTimeout):
		m.logger.Warn("dispatch monitor shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// pollInvocationLoop polls for jobs with no step currently in flight.
func (m *DispatchMonitor) pollInvocationLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.ReconciliationInterval)
	defer ticker.Stop()

	m.logger.Info("invocation poll loop started")

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("invocation poll loop stopped")
			return
		case <-ticker.C:
			m.pollJobs(func(j *job.Job) bool { return j.WorkflowExecutionID == "" })
		}
	}
}

// pollStatusLoop polls for jobs with a step already dispatched.
func (m *DispatchMonitor) pollStatusLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.StatusPollInterval)
	defer ticker.Stop()

	m.logger.Info("status poll loop started")

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("status poll loop stopped")
			return
		case <-ticker.C:
			m.pollJobs(func(j *job.Job) bool { return j.WorkflowExecutionID != "" })
		}
	}
}

// pollJobs walks every active tenant's dispatch-eligible jobs and enqueues
// the ones matching want.
func (m *DispatchMonitor) pollJobs(want func(*job.Job) bool) {
	ctx, cancel := context.WithTimeout(m.ctx, 10*time.Second)
	defer cancel()

	tenants, err := m.tenantRepo.ListActiveTenants(ctx)
	if err != nil {
		m.logger.Error("failed to list active tenants", zap.Error(err))
		return
	}

	for _, t := range tenants {
		tenantID := t.ID.String()

		repo, err := m.jobRepos.JobRepositoryFor(ctx, tenantID)
		if err != nil {
			m.logger.Error("failed to resolve job repository",
				zap.String("tenant_id", tenantID), zap.Error(err))
			continue
		}

		jobs, err := repo.ListForDispatch(ctx)
		if err != nil {
			m.logger.Error("failed to list jobs for dispatch",
				zap.String("tenant_id", tenantID), zap.Error(err))
			continue
		}

		for _, j := range jobs {
			if want(j) {
				m.queue.Add(queueKey(tenantID, j.ID))
			}
		}
	}
}

func queueKey(tenantID, jobID string) string {
	return tenantID + "|" + jobID
}

func splitQueueKey(key string) (tenantID, jobID string, err error) {
	parts := strings.SplitN(key, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed queue key: %q", key)
	}
	return parts[0], parts[1], nil
}

// runWorker processes items from the queue.
func (m *DispatchMonitor) runWorker(id int) {
	defer m.wg.Done()

	m.logger.Info("worker started", zap.Int("worker_id", id))

	for {
		item, shutdown := m.queue.Get()
		if shutdown {
			m.logger.Info("worker stopped", zap.Int("worker_id", id))
			return
		}

		m.processItem(item)
	}
}

// processItem advances a single job.
func (m *DispatchMonitor) processItem(item interface{}) {
	defer m.queue.Done(item)

	key, ok := item.(string)
	if !ok {
		m.logger.Error("invalid item type in queue", zap.Any("item", item))
		return
	}

	if err := m.reconcile(key); err != nil {
		m.handleReconcileError(key, err)
	} else {
		m.queue.Forget(item)
		m.resetRetryCount(key)
	}
}

// reconcile advances one job by one unit of work: dispatching its current
// step if none is in flight, or checking and settling an in-flight step.
func (m *DispatchMonitor) reconcile(key string) error {
	ctx, cancel := context.WithTimeout(m.ctx, 30*time.Second)
	defer cancel()

	tenantID, jobID, err := splitQueueKey(key)
	if err != nil {
		return err
	}

	repo, err := m.jobRepos.JobRepositoryFor(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("resolve job repository: %w", err)
	}

	jobs, err := repo.ListForDispatch(ctx)
	if err != nil {
		return fmt.Errorf("list jobs for dispatch: %w", err)
	}

	var j *job.Job
	for _, candidate := range jobs {
		if candidate.ID == jobID {
			j = candidate
			break
		}
	}
	if j == nil {
		m.logger.Info("job no longer needs dispatch, skipping",
			zap.String("tenant_id", tenantID), zap.String("job_id", jobID))
		return nil
	}

	if j.WorkflowExecutionID == "" {
		return m.dispatchCurrentStep(ctx, tenantID, j, repo)
	}
	return m.pollInFlightStep(ctx, tenantID, j, repo)
}

func (m *DispatchMonitor) dispatchCurrentStep(ctx context.Context, tenantID string, j *job.Job, repo JobRepository) error {
	if j.Status == job.StatusPending {
		if err := j.Transition(job.StatusRunning, ""); err != nil {
			return fmt.Errorf("transition job to running: %w", err)
		}
	}

	executionID, err := m.dispatcher.DispatchStep(ctx, tenantID, j)
	if err != nil {
		return fmt.Errorf("dispatch step: %w", err)
	}

	j.WorkflowExecutionID = executionID
	if err := repo.Update(ctx, j); err != nil {
		return fmt.Errorf("persist dispatched job: %w", err)
	}

	m.logger.Info("step dispatched",
		zap.String("tenant_id", tenantID),
		zap.String("job_id", j.ID),
		zap.Int("step_index", j.CurrentProcessorIdx),
		zap.String("execution_id", executionID))

	return nil
}

func (m *DispatchMonitor) pollInFlightStep(ctx context.Context, tenantID string, j *job.Job, repo JobRepository) error {
	execStatus, err := m.dispatcher.GetExecutionStatus(ctx, j.WorkflowExecutionID)
	if err != nil {
		m.logger.Warn("failed to check step execution status, will retry later",
			zap.String("tenant_id", tenantID),
			zap.String("job_id", j.ID),
			zap.String("execution_id", j.WorkflowExecutionID),
			zap.Error(err))
		return nil
	}

	switch execStatus.State {
	case workflow.StatePending, workflow.StateRunning:
		if isDegradedWorkflow(execStatus) {
			m.logger.Warn("step execution backing off, clearing for redispatch",
				zap.String("job_id", j.ID), zap.String("execution_id", j.WorkflowExecutionID))
			j.WorkflowExecutionID = ""
			return repo.Update(ctx, j)
		}
		return nil

	case workflow.StateSucceeded:
		return m.advanceJob(ctx, tenantID, j, repo)

	default:
		return m.handleStepFailure(ctx, tenantID, j, execStatus, repo)
	}
}

// advanceJob moves a job to its next step, or to completed if the
// pipeline snapshot is exhausted.
func (m *DispatchMonitor) advanceJob(ctx context.Context, tenantID string, j *job.Job, repo JobRepository) error {
	j.CurrentProcessorIdx++
	j.WorkflowExecutionID = ""

	if j.CurrentProcessorIdx >= j.StepCount() {
		if err := j.Transition(job.StatusCompleted, ""); err != nil {
			return fmt.Errorf("transition job to completed: %w", err)
		}
		m.logger.Info("job completed",
			zap.String("tenant_id", tenantID), zap.String("job_id", j.ID))
	} else {
		m.logger.Info("step succeeded, advancing job",
			zap.String("tenant_id", tenantID),
			zap.String("job_id", j.ID),
			zap.Int("next_step_index", j.CurrentProcessorIdx))
	}

	return repo.Update(ctx, j)
}

// handleStepFailure retries the current step in place when attempts
// remain, or fails the job once they're exhausted.
func (m *DispatchMonitor) handleStepFailure(ctx context.Context, tenantID string, j *job.Job, execStatus *workflow.ExecutionStatus, repo JobRepository) error {
	message := fmt.Sprintf("step execution %s", execStatus.State)
	if execStatus.Error != nil && execStatus.Error.Message != "" {
		message = fmt.Sprintf("%s: %s", message, execStatus.Error.Message)
	}

	if j.CanRetry() {
		j.Attempts++
		j.ErrorLog = append(j.ErrorLog, message)
		j.WorkflowExecutionID = ""
		m.logger.Warn("step failed, will retry",
			zap.String("tenant_id", tenantID),
			zap.String("job_id", j.ID),
			zap.Int("attempts", j.Attempts),
			zap.String("reason", message))
		return repo.Update(ctx, j)
	}

	if err := j.Transition(job.StatusFailed, message); err != nil {
		return fmt.Errorf("transition job to failed: %w", err)
	}
	m.logger.Error("job failed, attempts exhausted",
		zap.String("tenant_id", tenantID),
		zap.String("job_id", j.ID),
		zap.Int("attempts", j.Attempts))

	return repo.Update(ctx, j)
}

// handleReconcileError tracks retries for transient (non-job-state)
// failures: repository errors, unreachable providers.
func (m *DispatchMonitor) handleReconcileError(key string, err error) {
	retryCount := m.incrementRetryCount(key)

	m.logger.Error("job dispatch failed",
		zap.String("key", key),
		zap.Error(err),
		zap.Int("retry_count", retryCount))

	if retryCount >= m.config.MaxRetries {
		m.logger.Error("max retries exceeded, giving up until next poll", zap.String("key", key))
		m.resetRetryCount(key)
		return
	}

	m.queue.AddRateLimited(key)
}

func (m *DispatchMonitor) incrementRetryCount(key string) int {
	m.retryMu.Lock()
	defer m.retryMu.Unlock()
	m.retryCount[key]++
	return m.retryCount[key]
}

func (m *DispatchMonitor) resetRetryCount(key string) {
	m.retryMu.Lock()
	defer m.retryMu.Unlock()
	delete(m.retryCount, key)
}

// IsReady returns whether the monitor is ready to accept work.
func (m *DispatchMonitor) IsReady() bool {
	return m.queue != nil && !m.queue.ShuttingDown()
}
