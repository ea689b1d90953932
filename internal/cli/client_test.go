package cli

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaxxstorm/docuflow/internal/api/models"
	"github.com/jaxxstorm/docuflow/internal/tenant"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test server: %v", err)
	}

	server := httptest.NewUnstartedServer(handler)
	server.Listener = ln
	server.Start()
	t.Cleanup(server.Close)
	return server
}

func TestClientCreateListDelete(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/tenants":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"123","slug":"acme","status":"active"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/tenants":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"tenants":[{"id":"123","slug":"acme","status":"active"}],"total":1,"limit":50,"offset":0}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/tenants/acme":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	client := NewClient(server.URL)

	if _, err := client.CreateTenant(context.Background(), models.CreateTenantRequest{
		Slug: "acme",
	}); err != nil {
		t.Fatalf("create tenant failed: %v", err)
	}

	if _, err := client.ListTenants(context.Background()); err != nil {
		t.Fatalf("list tenants failed: %v", err)
	}

	if err := client.DeleteTenant(context.Background(), "acme"); err != nil {
		t.Fatalf("delete tenant failed: %v", err)
	}
}

func TestClientHandlesErrors(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad request"}`))
	}))

	client := NewClient(server.URL)
	_, err := client.ListTenants(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestClientGetUpdateTenant(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/tenants/acme":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"123","slug":"acme","status":"active"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/v1/tenants/acme":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"123","slug":"acme","status":"suspended"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	client := NewClient(server.URL)

	if _, err := client.GetTenant(context.Background(), "acme"); err != nil {
		t.Fatalf("get tenant failed: %v", err)
	}

	suspended := tenant.StatusSuspended
	if _, err := client.UpdateTenant(context.Background(), "acme", models.UpdateTenantRequest{
		Status: &suspended,
	}); err != nil {
		t.Fatalf("update tenant failed: %v", err)
	}
}

func TestClientIngestAndStatus(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "sample.pdf")
	if err := os.WriteFile(filePath, []byte("%PDF-1.4 sample"), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	server := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/tenants/acme/campaigns/onboarding/documents":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"id":"doc-1","campaign_id":"camp-1","filename":"sample.pdf","status":"pending"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/tenants/acme/documents/doc-1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"doc-1","campaign_id":"camp-1","filename":"sample.pdf","status":"completed"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	client := NewClient(server.URL)

	doc, err := client.IngestDocument(context.Background(), "acme", "onboarding", filePath)
	if err != nil {
		t.Fatalf("ingest document failed: %v", err)
	}
	if doc.ID != "doc-1" {
		t.Fatalf("expected id doc-1, got %s", doc.ID)
	}

	status, err := client.GetDocumentStatus(context.Background(), "acme", "doc-1")
	if err != nil {
		t.Fatalf("get document status failed: %v", err)
	}
	if status.Status != "completed" {
		t.Fatalf("expected status completed, got %s", status.Status)
	}
}
