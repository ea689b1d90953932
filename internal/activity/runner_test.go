package activity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/campaign"
	"github.com/jaxxstorm/docuflow/internal/credential"
	"github.com/jaxxstorm/docuflow/internal/document"
	"github.com/jaxxstorm/docuflow/internal/execution"
	"github.com/jaxxstorm/docuflow/internal/job"
	"github.com/jaxxstorm/docuflow/internal/pipelineerrors"
	"github.com/jaxxstorm/docuflow/internal/processor"
	"github.com/jaxxstorm/docuflow/internal/progress"
	"github.com/jaxxstorm/docuflow/internal/tenantctx"
)

type fakeJobLoader struct {
	job *job.Job
	err error
}

func (f *fakeJobLoader) Get(ctx context.Context, id string) (*job.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

type fakeDocumentStore struct {
	doc     *document.Document
	updated *document.Document
}

func (f *fakeDocumentStore) Get(ctx context.Context, id string) (*document.Document, error) {
	return f.doc, nil
}

func (f *fakeDocumentStore) Update(ctx context.Context, d *document.Document) error {
	f.updated = d
	return nil
}

type fakeExecutionStore struct {
	created *execution.Record
	updates []execution.Record
	nextID  int
	prior   []*execution.Record
}

func (f *fakeExecutionStore) Create(ctx context.Context, r *execution.Record) error {
	f.nextID++
	r.ID = "exec-fake"
	f.created = r
	return nil
}

func (f *fakeExecutionStore) Update(ctx context.Context, r *execution.Record) error {
	f.updates = append(f.updates, *r)
	return nil
}

func (f *fakeExecutionStore) ListByJob(ctx context.Context, jobID string) ([]*execution.Record, error) {
	return f.prior, nil
}

type fakeHandler struct {
	name      string
	canHandle bool
	result    processor.Result
	err       error
}

func (h *fakeHandler) Name() string                                  { return h.name }
func (h *fakeHandler) CanProcess(d *document.Document) bool           { return h.canHandle }
func (h *fakeHandler) Process(ctx context.Context, d *document.Document, config json.RawMessage, pctx processor.ProcessorContext) (processor.Result, error) {
	return h.result, h.err
}

type fakeResolver struct {
	handler processor.Handler
	err     error
}

func (f *fakeResolver) Get(ctx context.Context, slug string) (processor.Handler, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.handler, nil
}

type fakeCredentialResolver struct{}

func (f *fakeCredentialResolver) Resolve(ctx context.Context, tenantID, key, processorSlug, campaignID string) (credential.Value, error) {
	return credential.NewValue("secret-" + key), nil
}

type fakeCallbackRecorder struct {
	registered bool
	tenantID   string
	txnID      string
	signal     string
	err        error
}

func (f *fakeCallbackRecorder) Register(ctx context.Context, tenantID, transactionID, jobID, workflowExecutionID, providerType, signalName string) error {
	if f.err != nil {
		return f.err
	}
	f.registered = true
	f.tenantID = tenantID
	f.txnID = transactionID
	f.signal = signalName
	return nil
}

type fakeBus struct {
	events []progress.Event
}

func (f *fakeBus) Publish(ev progress.Event) {
	f.events = append(f.events, ev)
}

func newTestJob() *job.Job {
	return &job.Job{
		ID:         "job-1",
		CampaignID: "campaign-1",
		Pipeline: campaign.Pipeline{
			Processors: []campaign.ProcessorStep{
				{ID: "ocr", Type: "extraction", Config: json.RawMessage(`{}`)},
			},
		},
		CurrentProcessorIdx: 0,
		Status:              job.StatusRunning,
		WorkflowExecutionID: "wf-exec-1",
	}
}

func newTestDocument() *document.Document {
	return &document.Document{ID: "doc-1", CampaignID: "campaign-1", Filename: "a.pdf", Mime: "application/pdf"}
}

func testTenant() tenantctx.Tenant {
	return tenantctx.Tenant{ID: "tenant-1", Slug: "acme"}
}

func TestRunHappyPath(t *testing.T) {
	execs := &fakeExecutionStore{}
	docs := &fakeDocumentStore{doc: newTestDocument()}
	bus := &fakeBus{}
	handler := &fakeHandler{name: "ocr", canHandle: true, result: processor.Result{Output: map[string]interface{}{"text": "hello"}}}

	r := New(Deps{
		Jobs:       &fakeJobLoader{job: newTestJob()},
		Documents:  docs,
		Executions: execs,
		Registry:   &fakeResolver{handler: handler},
		Vault:      &fakeCredentialResolver{},
		Callbacks:  &fakeCallbackRecorder{},
		Bus:        bus,
	}, zap.NewNop())

	outcome := r.Run(context.Background(), testTenant(), Payload{JobID: "job-1", DocumentID: "doc-1", StepIndex: 0})

	if outcome.Error != "" {
		t.Fatalf("unexpected error: %s", outcome.Error)
	}
	if outcome.ExecutionID != "exec-fake" {
		t.Errorf("expected execution id exec-fake, got %q", outcome.ExecutionID)
	}
	if docs.updated == nil {
		t.Fatal("expected document to be updated with merged metadata")
	}
	if len(execs.updates) != 2 {
		t.Fatalf("expected 2 execution updates (running, completed), got %d", len(execs.updates))
	}
	if execs.updates[1].Status != execution.StatusCompleted {
		t.Errorf("expected final status completed, got %s", execs.updates[1].Status)
	}
	if len(bus.events) != 2 {
		t.Fatalf("expected running+completed progress events, got %d", len(bus.events))
	}
}

func TestRunOutputSchemaValidationRejection(t *testing.T) {
	execs := &fakeExecutionStore{}
	docs := &fakeDocumentStore{doc: newTestDocument()}
	bus := &fakeBus{}
	handler := &schemaHandler{
		fakeHandler: fakeHandler{name: "ocr", canHandle: true, result: processor.Result{Output: map[string]interface{}{"wrong": "shape"}}},
		outputSchema: json.RawMessage(`{"type":"object","required":["text"],"properties":{"text":{"type":"string"}}}`),
	}

	r := New(Deps{
		Jobs:       &fakeJobLoader{job: newTestJob()},
		Documents:  docs,
		Executions: execs,
		Registry:   &fakeResolver{handler: handler},
		Vault:      &fakeCredentialResolver{},
		Callbacks:  &fakeCallbackRecorder{},
		Bus:        bus,
	}, zap.NewNop())

	outcome := r.Run(context.Background(), testTenant(), Payload{JobID: "job-1", DocumentID: "doc-1", StepIndex: 0})

	if outcome.Error == "" {
		t.Fatal("expected schema validation failure")
	}
	if outcome.Retryable {
		t.Error("expected schema validation failure to be non-retryable")
	}
	if docs.updated != nil {
		t.Error("document should not be updated when output fails schema validation")
	}
}

type schemaHandler struct {
	fakeHandler
	outputSchema json.RawMessage
}

func (h *schemaHandler) OutputSchema() json.RawMessage { return h.outputSchema }

func TestRunCallbackPendingParksStepWithoutFailingExecution(t *testing.T) {
	execs := &fakeExecutionStore{}
	docs := &fakeDocumentStore{doc: newTestDocument()}
	bus := &fakeBus{}
	cb := &fakeCallbackRecorder{}
	handler := &fakeHandler{
		name:      "kyc-verify",
		canHandle: true,
		err:       pipelineerrors.CallbackPendingError("kyc-approved", "txn-99"),
	}

	r := New(Deps{
		Jobs:       &fakeJobLoader{job: newTestJob()},
		Documents:  docs,
		Executions: execs,
		Registry:   &fakeResolver{handler: handler},
		Vault:      &fakeCredentialResolver{},
		Callbacks:  cb,
		Bus:        bus,
	}, zap.NewNop())

	outcome := r.Run(context.Background(), testTenant(), Payload{JobID: "job-1", DocumentID: "doc-1", StepIndex: 0})

	if !outcome.CallbackPending {
		t.Fatal("expected outcome to report callback pending")
	}
	if outcome.TransactionID != "txn-99" {
		t.Errorf("expected transaction id txn-99, got %q", outcome.TransactionID)
	}
	if !cb.registered {
		t.Fatal("expected callback recorder to register the mapping")
	}
	if cb.tenantID != "tenant-1" || cb.signal != "kyc-approved" {
		t.Errorf("unexpected registration: tenant=%s signal=%s", cb.tenantID, cb.signal)
	}
	for _, u := range execs.updates {
		if u.Status == execution.StatusFailed {
			t.Error("callback-pending step must not mark the execution record failed")
		}
	}
}

func TestRunTransientErrorIsRetryable(t *testing.T) {
	execs := &fakeExecutionStore{}
	docs := &fakeDocumentStore{doc: newTestDocument()}
	bus := &fakeBus{}
	handler := &fakeHandler{
		name:      "ocr",
		canHandle: true,
		err:       pipelineerrors.TransientError(errors.New("upstream timeout")),
	}

	r := New(Deps{
		Jobs:       &fakeJobLoader{job: newTestJob()},
		Documents:  docs,
		Executions: execs,
		Registry:   &fakeResolver{handler: handler},
		Vault:      &fakeCredentialResolver{},
		Callbacks:  &fakeCallbackRecorder{},
		Bus:        bus,
	}, zap.NewNop())

	outcome := r.Run(context.Background(), testTenant(), Payload{JobID: "job-1", DocumentID: "doc-1", StepIndex: 0})

	if !outcome.Retryable {
		t.Error("expected transient processor error to be retryable")
	}
	if outcome.Error == "" {
		t.Error("expected an error message")
	}
	found := false
	for _, u := range execs.updates {
		if u.Status == execution.StatusFailed {
			found = true
		}
	}
	if !found {
		t.Error("expected execution record to be marked failed for a transient (but not callback-pending) error")
	}
}

func TestRunConfigSchemaValidationRejectsBeforeExecutionRecordCreated(t *testing.T) {
	execs := &fakeExecutionStore{}
	docs := &fakeDocumentStore{doc: newTestDocument()}
	bus := &fakeBus{}
	handler := &configSchemaHandler{
		fakeHandler:  fakeHandler{name: "ocr", canHandle: true},
		configSchema: json.RawMessage(`{"type":"object","required":["lang"]}`),
	}

	r := New(Deps{
		Jobs:       &fakeJobLoader{job: newTestJob()},
		Documents:  docs,
		Executions: execs,
		Registry:   &fakeResolver{handler: handler},
		Vault:      &fakeCredentialResolver{},
		Callbacks:  &fakeCallbackRecorder{},
		Bus:        bus,
	}, zap.NewNop())

	outcome := r.Run(context.Background(), testTenant(), Payload{JobID: "job-1", DocumentID: "doc-1", StepIndex: 0})

	if outcome.Error == "" {
		t.Fatal("expected config schema validation failure")
	}
	if execs.created != nil {
		t.Error("execution record should not be created when step config fails schema validation")
	}
}

type configSchemaHandler struct {
	fakeHandler
	configSchema json.RawMessage
}

func (h *configSchemaHandler) ConfigSchema() json.RawMessage   { return h.configSchema }
func (h *configSchemaHandler) ConfigDefaults() json.RawMessage { return json.RawMessage(`{}`) }
