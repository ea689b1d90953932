package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jaxxstorm/docuflow/internal/api/models"
	"github.com/jaxxstorm/docuflow/internal/tenant"
)

// newIntegrationRouter wires a full chi router against a mockTenantRepo,
// the same routes registerRoutes assembles for a production server, so
// these tests exercise routing and handler wiring together rather than
// calling handlers directly.
func newIntegrationRouter(repo *mockTenantRepo) *chi.Mux {
	srv := newTestServer(repo)
	srv.router = chi.NewRouter()
	srv.router.Use(middleware.RequestID)
	srv.registerRoutes()
	return srv.router
}

func TestIntegration_CreateThenGetTenant(t *testing.T) {
	repo := newMockTenantRepo()
	router := newIntegrationRouter(repo)

	createBody, _ := json.Marshal(models.CreateTenantRequest{Slug: "globex", Settings: map[string]interface{}{"region": "us-east-1"}})
	createReq := httptest.NewRequest(http.MethodPost, "/v1/tenants", bytes.NewReader(createBody))
	createW := httptest.NewRecorder()
	router.ServeHTTP(createW, createReq)

	if createW.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d, body=%s", createW.Code, http.StatusCreated, createW.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/v1/tenants/globex", nil)
	getW := httptest.NewRecorder()
	router.ServeHTTP(getW, getReq)

	if getW.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d, body=%s", getW.Code, http.StatusOK, getW.Body.String())
	}

	var resp models.TenantResponse
	if err := json.Unmarshal(getW.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Slug != "globex" {
		t.Errorf("Slug = %q, want globex", resp.Slug)
	}
	if resp.Settings["region"] != "us-east-1" {
		t.Errorf("Settings[region] = %v, want us-east-1", resp.Settings["region"])
	}
}

func TestIntegration_ListTenants(t *testing.T) {
	repo := newMockTenantRepo()
	router := newIntegrationRouter(repo)

	for _, slug := range []string{"acme", "globex", "initech"} {
		body, _ := json.Marshal(models.CreateTenantRequest{Slug: slug})
		req := httptest.NewRequest(http.MethodPost, "/v1/tenants", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("seed create %s: status = %d", slug, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/tenants", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	var resp models.ListTenantsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("Total = %d, want 3", resp.Total)
	}
}

func TestIntegration_SuspendThenReactivateTenant(t *testing.T) {
	repo := newMockTenantRepo()
	router := newIntegrationRouter(repo)

	createBody, _ := json.Marshal(models.CreateTenantRequest{Slug: "acme"})
	createReq := httptest.NewRequest(http.MethodPost, "/v1/tenants", bytes.NewReader(createBody))
	createW := httptest.NewRecorder()
	router.ServeHTTP(createW, createReq)

	suspended := tenant.StatusSuspended
	suspendBody, _ := json.Marshal(models.UpdateTenantRequest{Status: &suspended})
	suspendReq := httptest.NewRequest(http.MethodPut, "/v1/tenants/acme", bytes.NewReader(suspendBody))
	suspendW := httptest.NewRecorder()
	router.ServeHTTP(suspendW, suspendReq)

	if suspendW.Code != http.StatusOK {
		t.Fatalf("suspend status = %d, want %d, body=%s", suspendW.Code, http.StatusOK, suspendW.Body.String())
	}

	active := tenant.StatusActive
	reactivateBody, _ := json.Marshal(models.UpdateTenantRequest{Status: &active})
	reactivateReq := httptest.NewRequest(http.MethodPut, "/v1/tenants/acme", bytes.NewReader(reactivateBody))
	reactivateW := httptest.NewRecorder()
	router.ServeHTTP(reactivateW, reactivateReq)

	if reactivateW.Code != http.StatusOK {
		t.Fatalf("reactivate status = %d, want %d, body=%s", reactivateW.Code, http.StatusOK, reactivateW.Body.String())
	}
}

func TestIntegration_HealthEndpoint(t *testing.T) {
	router := newIntegrationRouter(newMockTenantRepo())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestIntegration_DeleteTenant(t *testing.T) {
	repo := newMockTenantRepo()
	router := newIntegrationRouter(repo)

	createBody, _ := json.Marshal(models.CreateTenantRequest{Slug: "acme"})
	createReq := httptest.NewRequest(http.MethodPost, "/v1/tenants", bytes.NewReader(createBody))
	createW := httptest.NewRecorder()
	router.ServeHTTP(createW, createReq)

	deleteReq := httptest.NewRequest(http.MethodDelete, "/v1/tenants/acme", nil)
	deleteW := httptest.NewRecorder()
	router.ServeHTTP(deleteW, deleteReq)

	if deleteW.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d, body=%s", deleteW.Code, http.StatusNoContent, deleteW.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/v1/tenants/acme", nil)
	getW := httptest.NewRecorder()
	router.ServeHTTP(getW, getReq)

	if getW.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want %d", getW.Code, http.StatusNotFound)
	}
}
