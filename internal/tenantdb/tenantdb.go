// Package tenantdb dials and caches each tenant's isolated database
// connection and assembles the per-tenant collaborators (repositories,
// credential vault, processor registry, activity runner) bound to it.
//
// It is the concrete backing for the narrow TenantRunnerResolver,
// TenantJobRepositoryResolver, and TenantResourceResolver interfaces that
// restate, controller, and api each declare against their own slice of
// need -- the same inversion the teacher's workflow.ComputeProviderResolver
// used against a tenant's desired compute provider, generalized from
// "resolve a provider" to "resolve and dial a whole tenant database".
package tenantdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/activity"
	"github.com/jaxxstorm/docuflow/internal/api"
	"github.com/jaxxstorm/docuflow/internal/audit"
	"github.com/jaxxstorm/docuflow/internal/callback"
	"github.com/jaxxstorm/docuflow/internal/campaign"
	"github.com/jaxxstorm/docuflow/internal/controller"
	"github.com/jaxxstorm/docuflow/internal/credential"
	"github.com/jaxxstorm/docuflow/internal/document"
	"github.com/jaxxstorm/docuflow/internal/execution"
	"github.com/jaxxstorm/docuflow/internal/job"
	"github.com/jaxxstorm/docuflow/internal/processor"
	"github.com/jaxxstorm/docuflow/internal/progress"
	"github.com/jaxxstorm/docuflow/internal/storage"
	"github.com/jaxxstorm/docuflow/internal/tenant"
	"github.com/jaxxstorm/docuflow/internal/tenantctx"
	"github.com/jaxxstorm/docuflow/internal/usage"
	"github.com/jaxxstorm/docuflow/internal/webhook"
	"github.com/jaxxstorm/docuflow/internal/workflow"
)

// pipelineStepWorkflowID must match the unexported constant of the same
// name in workflow/providers/restate/workflows.go -- it is the one
// workflow ID every provider registers a pipeline step executor under.
const pipelineStepWorkflowID = "pipeline-step"

// Registry dials and caches the per-tenant database connections and the
// repositories/adapters/runners built on top of them. A Registry is
// shared process-wide; the cache lets repeated activity invocations or
// API requests against the same tenant reuse one connection pool rather
// than dialing per call.
type Registry struct {
	tenants    tenant.Repository
	callbacks  *callback.Registry
	workflows  *workflow.Manager
	bus        *progress.Bus
	masterKey  credential.MasterKey
	storageCfg storage.Config
	awsCfg     aws.Config
	provider   string
	logger     *zap.Logger

	mu    sync.RWMutex
	conns map[string]*tenantConn
}

// tenantConn bundles one tenant's dialed connection with the
// collaborators built on top of it, so RunnerFor/JobRepositoryFor/Resolve
// all reuse the same dial and the same repositories.
type tenantConn struct {
	tenant    tenantctx.Tenant
	db        *sqlx.DB
	runner    *activity.Runner
	jobs      *job.Repository
	resources *api.TenantResources
}

// Options carries the process-wide collaborators every tenant connection
// is built against.
type Options struct {
	Tenants      tenant.Repository
	Callbacks    *callback.Registry
	Workflows    *workflow.Manager
	Bus          *progress.Bus
	MasterKey    credential.MasterKey
	Storage      storage.Config
	AWS          aws.Config
	ProviderName string // workflow provider type jobs dispatch through, e.g. "restate"
}

// New creates a Registry.
func New(opts Options, logger *zap.Logger) *Registry {
	return &Registry{
		tenants:    opts.Tenants,
		callbacks:  opts.Callbacks,
		workflows:  opts.Workflows,
		bus:        opts.Bus,
		masterKey:  opts.MasterKey,
		storageCfg: opts.Storage,
		awsCfg:     opts.AWS,
		provider:   opts.ProviderName,
		logger:     logger.With(zap.String("component", "tenantdb-registry")),
		conns:      make(map[string]*tenantConn),
	}
}

// Close closes every cached per-tenant connection. Safe to call once at
// process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.conns {
		if err := c.db.Close(); err != nil {
			r.logger.Warn("error closing tenant connection", zap.String("tenant_id", id), zap.Error(err))
		}
	}
	r.conns = make(map[string]*tenantConn)
}

// RunnerFor implements restate.TenantRunnerResolver.
func (r *Registry) RunnerFor(ctx context.Context, tenantID string) (*activity.Runner, tenantctx.Tenant, error) {
	c, err := r.connForID(ctx, tenantID)
	if err != nil {
		return nil, tenantctx.Tenant{}, err
	}
	return c.runner, c.tenant, nil
}

// JobRepositoryFor implements controller.TenantJobRepositoryResolver.
// *job.Repository satisfies controller.JobRepository directly, so this
// returns it without an adapter.
func (r *Registry) JobRepositoryFor(ctx context.Context, tenantID string) (controller.JobRepository, error) {
	c, err := r.connForID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return c.jobs, nil
}

// Resolve implements api.TenantResourceResolver.
func (r *Registry) Resolve(ctx context.Context, tenantSlug string) (*api.TenantResources, error) {
	t, err := r.tenants.GetTenantBySlug(ctx, tenantSlug)
	if err != nil {
		return nil, err
	}
	c, err := r.connFor(ctx, t)
	if err != nil {
		return nil, err
	}
	return c.resources, nil
}

func (r *Registry) connForID(ctx context.Context, tenantID string) (*tenantConn, error) {
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, fmt.Errorf("tenantdb: invalid tenant id %q: %w", tenantID, err)
	}
	t, err := r.tenants.GetTenantByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.connFor(ctx, t)
}

// connFor returns the cached connection+collaborators for t, dialing and
// building them on first use. A suspended tenant is refused whether or not
// its connection is already cached.
func (r *Registry) connFor(ctx context.Context, t *tenant.Tenant) (*tenantConn, error) {
	if t.Status == tenant.StatusSuspended {
		return nil, fmt.Errorf("tenantdb: tenant %s is suspended", t.Slug)
	}

	key := t.ID.String()

	r.mu.RLock()
	if c, ok := r.conns[key]; ok {
		r.mu.RUnlock()
		return c, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[key]; ok {
		return c, nil
	}

	if t.Status == tenant.StatusSuspended {
		return nil, fmt.Errorf("tenantdb: tenant %s is suspended", t.Slug)
	}

	db, err := sqlx.ConnectContext(ctx, "pgx", t.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("tenantdb: dial tenant %s database: %w", t.Slug, err)
	}

	c := r.build(t, db)
	r.conns[key] = c
	return c, nil
}

// build wires one tenant's repositories, vault, processor registry,
// activity runner, and HTTP-facing resources on top of an already-dialed
// connection.
func (r *Registry) build(t *tenant.Tenant, db *sqlx.DB) *tenantConn {
	logger := r.logger.With(zap.String("tenant_id", t.ID.String()), zap.String("tenant_slug", t.Slug))

	jobRepo := job.NewRepository(db)
	documents := document.NewRepository(db)
	executions := execution.NewRepository(db, logger)
	campaigns := campaign.NewRepository(db)

	catalog := processor.NewCatalog(db)
	registry := processor.NewRegistry(catalog, logger)

	credRepo := credential.NewRepository(db)
	vault := credential.NewVault(credRepo, r.masterKey, logger)

	runner := activity.New(activity.Deps{
		Jobs:       jobRepo,
		Documents:  documents,
		Executions: executions,
		Registry:   registry,
		Vault:      vault,
		Callbacks:  callbackRecorderAdapter{registry: r.callbacks},
		Bus:        r.bus,
		Usage:      usageRecorderAdapter{repo: usage.NewRepository(db)},
	}, logger)

	store, err := storage.NewStore(context.Background(), r.storageCfg, r.awsCfg, logger)
	if err != nil {
		logger.Error("failed to initialize tenant object store; storage operations will fail", zap.Error(err))
	}
	adapter := storage.NewAdapter(store, nil)

	jobManager := job.New(jobRepo, jobDispatcherAdapter{
		workflows:    r.workflows,
		providerType: r.provider,
		tenantID:     t.ID.String(),
	}, logger)
	jobManager.SetNotifier(webhookNotifier{
		campaigns:  campaigns,
		dispatcher: webhook.New(webhook.NewRepository(db), 5, logger),
		logger:     logger,
	})
	jobManager.SetAuditor(auditRecorderAdapter{repo: audit.NewRepository(db), logger: logger})

	tc := tenantctx.Tenant{ID: t.ID.String(), Slug: t.Slug, DB: db}

	return &tenantConn{
		tenant: tc,
		db:     db,
		runner: runner,
		jobs:   jobRepo,
		resources: &api.TenantResources{
			Campaigns: campaigns,
			Documents: documents,
			Jobs:      jobManager,
			Storage:   adapter,
		},
	}
}

// callbackRecorderAdapter satisfies activity.CallbackRecorder over
// *callback.Registry, which returns the created *callback.Mapping that
// Runner has no use for.
type callbackRecorderAdapter struct {
	registry *callback.Registry
}

func (a callbackRecorderAdapter) Register(ctx context.Context, tenantID, transactionID, jobID, workflowExecutionID, providerType, signalName string) error {
	_, err := a.registry.Register(ctx, tenantID, transactionID, jobID, workflowExecutionID, providerType, signalName)
	return err
}

// auditRecorderAdapter satisfies job.AuditRecorder over *audit.Repository,
// snapshotting before/after job state into an append-only audit entry. A
// write failure is logged and swallowed: a broken audit sink must never
// fail the job transition it is observing.
type auditRecorderAdapter struct {
	repo   *audit.Repository
	logger *zap.Logger
}

func (a auditRecorderAdapter) Record(ctx context.Context, action string, before, after *job.Job) {
	var beforeArg, afterArg interface{}
	if before != nil {
		beforeArg = before
	}
	if after != nil {
		afterArg = after
	}

	beforeSnap, err := audit.Snapshot(beforeArg)
	if err != nil {
		a.logger.Warn("audit: failed to snapshot before state", zap.String("action", action), zap.Error(err))
		return
	}
	afterSnap, err := audit.Snapshot(afterArg)
	if err != nil {
		a.logger.Warn("audit: failed to snapshot after state", zap.String("action", action), zap.Error(err))
		return
	}

	entry := &audit.Entry{
		ActorType:  audit.ActorSystem,
		ActorID:    "job-manager",
		Action:     action,
		EntityType: "job",
		EntityID:   after.ID,
		Before:     beforeSnap,
		After:      afterSnap,
	}
	if err := a.repo.Record(ctx, entry); err != nil {
		a.logger.Warn("audit: failed to record entry", zap.String("action", action), zap.String("job_id", after.ID), zap.Error(err))
	}
}

// usageRecorderAdapter satisfies activity.UsageRecorder over
// *usage.Repository, translating the runner's flat metering call into the
// usage.Event shape the repository persists.
type usageRecorderAdapter struct {
	repo *usage.Repository
}

func (a usageRecorderAdapter) Record(ctx context.Context, campaignID, jobID, metric string, quantity float64, unit string) error {
	ev := usage.Event{CampaignID: campaignID, JobID: jobID, Metric: metric, Quantity: quantity, Unit: unit}
	return a.repo.Record(ctx, &ev)
}

// jobDispatcherAdapter satisfies job.WorkflowDispatcher over
// *workflow.Manager, translating a job snapshot into the provider-neutral
// ExecutionInput/StopExecution calls the manager expects.
type jobDispatcherAdapter struct {
	workflows    *workflow.Manager
	providerType string
	tenantID     string
}

func (d jobDispatcherAdapter) Dispatch(ctx context.Context, j *job.Job) (string, error) {
	input := &workflow.ExecutionInput{
		ExecutionName: fmt.Sprintf("job-%s", j.ID),
		Input:         []byte(`{}`),
		Tags: map[string]string{
			"tenant_id": d.tenantID,
			"job_id":    j.ID,
		},
		TriggerSource: "api",
	}

	result, err := d.workflows.StartExecution(ctx, pipelineStepWorkflowID, d.providerType, input)
	if err != nil {
		return "", err
	}
	return result.ExecutionID, nil
}

func (d jobDispatcherAdapter) Cancel(ctx context.Context, j *job.Job, reason string) error {
	return d.workflows.StopExecution(ctx, j.WorkflowExecutionID, d.providerType, reason)
}

// webhookNotifier satisfies job.Notifier, translating a terminal job into
// a webhook.Event delivered to its campaign's configured WebhookURL. A
// campaign with no WebhookURL is silently skipped. Delivery runs
// detached from the caller's context so a slow or retrying webhook never
// delays the job-completion path that triggered it.
type webhookNotifier struct {
	campaigns  *campaign.Repository
	dispatcher *webhook.Dispatcher
	logger     *zap.Logger
}

func (n webhookNotifier) NotifyCompleted(ctx context.Context, j *job.Job) {
	n.notify(ctx, j, webhook.EventDocumentProcessingCompleted, "")
}

func (n webhookNotifier) NotifyFailed(ctx context.Context, j *job.Job, reason string) {
	n.notify(ctx, j, webhook.EventDocumentProcessingFailed, reason)
}

func (n webhookNotifier) notify(ctx context.Context, j *job.Job, eventType webhook.EventType, reason string) {
	c, err := n.campaigns.GetByID(ctx, j.CampaignID)
	if err != nil {
		n.logger.Warn("webhook notify: failed to load campaign", zap.String("campaign_id", j.CampaignID), zap.Error(err))
		return
	}
	if c.WebhookURL == "" {
		return
	}

	ev := webhook.Event{
		Type:       eventType,
		CampaignID: c.ID,
		JobID:      j.ID,
		DocumentID: j.DocumentID,
		Status:     string(j.Status),
		Error:      reason,
		Timestamp:  time.Now(),
	}

	go func() {
		deliverCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := n.dispatcher.Dispatch(deliverCtx, c.ID, j.ID, c.WebhookURL, ev); err != nil {
			n.logger.Warn("webhook delivery did not succeed",
				zap.String("campaign_id", c.ID), zap.String("job_id", j.ID), zap.Error(err))
		}
	}()
}
