package main

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
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

func TestCLICommands(t *testing.T) {
	server := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/tenants":
			var payload map[string]any
			_ = json.NewDecoder(r.Body).Decode(&payload)
			if payload["slug"] != "acme" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"slug missing"}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"123","slug":"acme","status":"active"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/tenants":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"tenants":[{"id":"123","slug":"acme","status":"active"}],"total":1,"limit":50,"offset":0}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/tenants/acme":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"123","slug":"acme","status":"active"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/v1/tenants/acme":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"123","slug":"acme","status":"suspended"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/tenants/acme":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/tenants/acme/campaigns/onboarding/documents":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"id":"doc-1","campaign_id":"camp-1","filename":"sample.txt","status":"pending"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/tenants/acme/documents/doc-1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"doc-1","campaign_id":"camp-1","filename":"sample.txt","status":"completed"}`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	t.Setenv("DOCUFLOW_CLI_API_URL", server.URL)

	run := func(args ...string) (string, error) {
		cmd := newRootCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	output, err := run("create", "--slug", "acme")
	if err != nil {
		t.Fatalf("create command failed: %v", err)
	}
	if !strings.Contains(output, "Tenant created") {
		t.Fatalf("expected create output, got %s", output)
	}

	output, err = run("list")
	if err != nil {
		t.Fatalf("list command failed: %v", err)
	}
	if !strings.Contains(output, "acme") {
		t.Fatalf("expected list output to contain tenant, got %s", output)
	}

	output, err = run("get", "--tenant", "acme")
	if err != nil {
		t.Fatalf("get command failed: %v", err)
	}
	if !strings.Contains(output, "Tenant details") {
		t.Fatalf("expected get output, got %s", output)
	}

	output, err = run("set", "--tenant", "acme", "--status", "suspended")
	if err != nil {
		t.Fatalf("set command failed: %v", err)
	}
	if !strings.Contains(output, "Tenant updated") {
		t.Fatalf("expected set output, got %s", output)
	}

	tempFile := t.TempDir() + "/sample.txt"
	if err := os.WriteFile(tempFile, []byte("hello"), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	output, err = run("ingest", "--tenant", "acme", "--campaign", "onboarding", "--file", tempFile)
	if err != nil {
		t.Fatalf("ingest command failed: %v", err)
	}
	if !strings.Contains(output, "Document accepted") {
		t.Fatalf("expected ingest output, got %s", output)
	}

	output, err = run("status", "--tenant", "acme", "--document", "doc-1")
	if err != nil {
		t.Fatalf("status command failed: %v", err)
	}
	if !strings.Contains(output, "Document status") {
		t.Fatalf("expected status output, got %s", output)
	}

	output, err = run("delete", "--tenant", "acme")
	if err != nil {
		t.Fatalf("delete command failed: %v", err)
	}
	if !strings.Contains(output, "Tenant deleted") {
		t.Fatalf("expected delete output, got %s", output)
	}
}
