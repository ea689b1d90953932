package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/api/models"
	"github.com/jaxxstorm/docuflow/internal/tenant"
)

// mockTenantRepo implements tenant.Repository for testing.
type mockTenantRepo struct {
	tenant.Repository

	byID   map[uuid.UUID]*tenant.Tenant
	bySlug map[string]*tenant.Tenant

	createFunc func(ctx context.Context, t *tenant.Tenant) error
	updateFunc func(ctx context.Context, t *tenant.Tenant) error
}

func newMockTenantRepo() *mockTenantRepo {
	return &mockTenantRepo{
		byID:   make(map[uuid.UUID]*tenant.Tenant),
		bySlug: make(map[string]*tenant.Tenant),
	}
}

func (m *mockTenantRepo) seed(t *tenant.Tenant) {
	m.byID[t.ID] = t
	m.bySlug[t.Slug] = t
}

func (m *mockTenantRepo) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, t)
	}
	if _, exists := m.bySlug[t.Slug]; exists {
		return tenant.ErrTenantExists
	}
	t.ID = uuid.New()
	t.Version = 1
	m.seed(t)
	return nil
}

func (m *mockTenantRepo) GetTenantByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (m *mockTenantRepo) GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	t, ok := m.bySlug[slug]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

func (m *mockTenantRepo) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, t)
	}
	if _, ok := m.byID[t.ID]; !ok {
		return tenant.ErrTenantNotFound
	}
	t.Version++
	m.seed(t)
	return nil
}

func (m *mockTenantRepo) ListTenants(ctx context.Context, filters tenant.ListFilters) ([]*tenant.Tenant, error) {
	out := make([]*tenant.Tenant, 0, len(m.byID))
	for _, t := range m.byID {
		out = append(out, t)
	}
	return out, nil
}

func (m *mockTenantRepo) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	t, ok := m.byID[id]
	if !ok {
		return tenant.ErrTenantNotFound
	}
	delete(m.byID, id)
	delete(m.bySlug, t.Slug)
	return nil
}

func (m *mockTenantRepo) RecordStateTransition(ctx context.Context, st *tenant.StateTransition) error {
	return nil
}

func newTestServer(repo *mockTenantRepo) *Server {
	return &Server{
		tenantRepo: repo,
		logger:     zap.NewNop(),
	}
}

func TestHandleCreateTenant(t *testing.T) {
	repo := newMockTenantRepo()
	srv := newTestServer(repo)

	body, _ := json.Marshal(models.CreateTenantRequest{Slug: "acme-corp"})
	req := httptest.NewRequest(http.MethodPost, "/v1/tenants", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.handleCreateTenant(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}
	var resp models.TenantResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Slug != "acme-corp" {
		t.Errorf("Slug = %q, want acme-corp", resp.Slug)
	}
	if resp.Status != string(tenant.StatusActive) {
		t.Errorf("Status = %q, want %q", resp.Status, tenant.StatusActive)
	}
}

func TestHandleCreateTenant_MissingSlug(t *testing.T) {
	srv := newTestServer(newMockTenantRepo())

	body, _ := json.Marshal(models.CreateTenantRequest{})
	req := httptest.NewRequest(http.MethodPost, "/v1/tenants", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.handleCreateTenant(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleCreateTenant_DuplicateSlug(t *testing.T) {
	repo := newMockTenantRepo()
	repo.seed(&tenant.Tenant{ID: uuid.New(), Slug: "acme-corp", Status: tenant.StatusActive})
	srv := newTestServer(repo)

	body, _ := json.Marshal(models.CreateTenantRequest{Slug: "acme-corp"})
	req := httptest.NewRequest(http.MethodPost, "/v1/tenants", bytes.NewReader(body))
	w := httptest.NewRecorder()

	srv.handleCreateTenant(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestHandleGetTenant(t *testing.T) {
	repo := newMockTenantRepo()
	seeded := &tenant.Tenant{ID: uuid.New(), Slug: "acme-corp", Status: tenant.StatusActive}
	repo.seed(seeded)
	srv := newTestServer(repo)

	req := httptest.NewRequest(http.MethodGet, "/v1/tenants/acme-corp", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "acme-corp")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	srv.handleGetTenant(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestHandleGetTenant_NotFound(t *testing.T) {
	srv := newTestServer(newMockTenantRepo())

	req := httptest.NewRequest(http.MethodGet, "/v1/tenants/missing", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "missing")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	srv.handleGetTenant(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleUpdateTenant_SuspendsActiveTenant(t *testing.T) {
	repo := newMockTenantRepo()
	seeded := &tenant.Tenant{ID: uuid.New(), Slug: "acme-corp", Status: tenant.StatusActive, Version: 1}
	repo.seed(seeded)
	srv := newTestServer(repo)

	suspended := tenant.StatusSuspended
	body, _ := json.Marshal(models.UpdateTenantRequest{Status: &suspended})
	req := httptest.NewRequest(http.MethodPut, "/v1/tenants/acme-corp", bytes.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "acme-corp")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	srv.handleUpdateTenant(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	var resp models.TenantResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != string(tenant.StatusSuspended) {
		t.Errorf("Status = %q, want %q", resp.Status, tenant.StatusSuspended)
	}
}

func TestHandleDeleteTenant(t *testing.T) {
	repo := newMockTenantRepo()
	seeded := &tenant.Tenant{ID: uuid.New(), Slug: "acme-corp", Status: tenant.StatusActive}
	repo.seed(seeded)
	srv := newTestServer(repo)

	req := httptest.NewRequest(http.MethodDelete, "/v1/tenants/acme-corp", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "acme-corp")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	srv.handleDeleteTenant(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}
