package controller

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/activity"
	"github.com/jaxxstorm/docuflow/internal/campaign"
	"github.com/jaxxstorm/docuflow/internal/document"
	"github.com/jaxxstorm/docuflow/internal/execution"
	"github.com/jaxxstorm/docuflow/internal/job"
	"github.com/jaxxstorm/docuflow/internal/processor"
	"github.com/jaxxstorm/docuflow/internal/progress"
	"github.com/jaxxstorm/docuflow/internal/tenantctx"
	"github.com/jaxxstorm/docuflow/internal/workflow"
	"github.com/jaxxstorm/docuflow/internal/workflow/providers/mock"
)

type dispatchStubJobLoader struct{ job *job.Job }

func (s dispatchStubJobLoader) Get(ctx context.Context, id string) (*job.Job, error) {
	return s.job, nil
}

type dispatchStubDocumentStore struct{ doc *document.Document }

func (s dispatchStubDocumentStore) Get(ctx context.Context, id string) (*document.Document, error) {
	return s.doc, nil
}
func (s dispatchStubDocumentStore) Update(ctx context.Context, d *document.Document) error { return nil }

type dispatchStubExecutionStore struct{}

func (dispatchStubExecutionStore) Create(ctx context.Context, r *execution.Record) error {
	r.ID = "exec-1"
	return nil
}
func (dispatchStubExecutionStore) Update(ctx context.Context, r *execution.Record) error { return nil }
func (dispatchStubExecutionStore) ListByJob(ctx context.Context, jobID string) ([]*execution.Record, error) {
	return nil, nil
}

type dispatchStubHandler struct{}

func (dispatchStubHandler) Name() string                         { return "ocr" }
func (dispatchStubHandler) CanProcess(d *document.Document) bool { return true }
func (dispatchStubHandler) Process(ctx context.Context, d *document.Document, cfg json.RawMessage, pctx processor.ProcessorContext) (processor.Result, error) {
	return processor.Result{Output: map[string]interface{}{"text": "ok"}}, nil
}

type dispatchStubResolver struct{}

func (dispatchStubResolver) Get(ctx context.Context, slug string) (processor.Handler, error) {
	return dispatchStubHandler{}, nil
}

type dispatchStubCallbackRecorder struct{}

func (dispatchStubCallbackRecorder) Register(ctx context.Context, tenantID, transactionID, jobID, workflowExecutionID, providerType, signalName string) error {
	return nil
}

type dispatchStubBus struct{}

func (dispatchStubBus) Publish(ev progress.Event) {}

type dispatchStubRunnerResolver struct{ runner *activity.Runner }

func (s dispatchStubRunnerResolver) RunnerFor(ctx context.Context, tenantID string) (*activity.Runner, tenantctx.Tenant, error) {
	return s.runner, tenantctx.Tenant{ID: tenantID}, nil
}

func newTestStepDispatchClient(t *testing.T) *StepDispatchClient {
	t.Helper()
	logger := zap.NewNop()

	runner := activity.New(activity.Deps{
		Jobs:       dispatchStubJobLoader{job: testJob(0)},
		Documents:  dispatchStubDocumentStore{doc: &document.Document{ID: "doc-1", Filename: "a.pdf", Mime: "application/pdf"}},
		Executions: dispatchStubExecutionStore{},
		Registry:   dispatchStubResolver{},
		Callbacks:  dispatchStubCallbackRecorder{},
		Bus:        dispatchStubBus{},
	}, logger)

	provider := mock.New(dispatchStubRunnerResolver{runner: runner}, logger)
	for _, workflowID := range []string{"job-job-1-step-0", "job-job-1-step-1"} {
		if _, err := provider.CreateWorkflow(context.Background(), &workflow.WorkflowSpec{WorkflowID: workflowID, ProviderType: "mock", Name: workflowID}); err != nil {
			t.Fatalf("create workflow %s: %v", workflowID, err)
		}
	}

	registry := workflow.NewRegistry(logger)
	if err := registry.Register(provider); err != nil {
		t.Fatalf("register mock provider: %v", err)
	}
	manager := workflow.New(registry, logger)

	return NewStepDispatchClient(manager, logger, 5*time.Second, "mock")
}

func testJob(stepIndex int) *job.Job {
	config, _ := json.Marshal(map[string]string{"lang": "en"})
	return &job.Job{
		ID:                  "job-1",
		DocumentID:          "doc-1",
		CurrentProcessorIdx: stepIndex,
		Status:              job.StatusRunning,
		MaxAttempts:         3,
		Pipeline: campaign.Pipeline{
			Processors: []campaign.ProcessorStep{
				{ID: "ocr", Type: "extraction", Config: config},
				{ID: "classify", Type: "classification"},
			},
		},
	}
}

func TestStepDispatchClient_DispatchStep(t *testing.T) {
	client := newTestStepDispatchClient(t)
	j := testJob(0)

	executionID, err := client.DispatchStep(context.Background(), "tenant-1", j)
	if err != nil {
		t.Fatalf("DispatchStep() error = %v", err)
	}
	if executionID == "" {
		t.Error("DispatchStep() returned empty execution ID")
	}
}

func TestStepDispatchClient_DispatchStep_NoCurrentStep(t *testing.T) {
	client := newTestStepDispatchClient(t)
	j := testJob(5) // past the end of the two-step pipeline

	if _, err := client.DispatchStep(context.Background(), "tenant-1", j); err == nil {
		t.Error("DispatchStep() expected error for out-of-range step index")
	}
}

func TestStepDispatchClient_GetExecutionStatus(t *testing.T) {
	client := newTestStepDispatchClient(t)
	j := testJob(0)

	executionID, err := client.DispatchStep(context.Background(), "tenant-1", j)
	if err != nil {
		t.Fatalf("DispatchStep() error = %v", err)
	}

	status, err := client.GetExecutionStatus(context.Background(), executionID)
	if err != nil {
		t.Fatalf("GetExecutionStatus() error = %v", err)
	}
	if status.ExecutionID != executionID {
		t.Errorf("GetExecutionStatus() ExecutionID = %s, want %s", status.ExecutionID, executionID)
	}
}

func TestIsRetryableError(t *testing.T) {
	if IsRetryableError(nil) {
		t.Error("IsRetryableError(nil) = true, want false")
	}
	if IsRetryableError(context.Canceled) {
		t.Error("IsRetryableError(context.Canceled) = true, want false")
	}
	if !IsRetryableError(context.DeadlineExceeded) {
		t.Error("IsRetryableError(context.DeadlineExceeded) = false, want true")
	}
}
