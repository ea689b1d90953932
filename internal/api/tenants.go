package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	"github.com/jaxxstorm/docuflow/internal/api/models"
	"github.com/jaxxstorm/docuflow/internal/tenant"
)

// handleCreateTenant creates a new tenant
// @Summary Create a new tenant
// @Description Creates a new tenant with the given slug and settings
// @Tags tenants
// @Accept json
// @Produce json
// @Param body body models.CreateTenantRequest true "Tenant creation request"
// @Success 201 {object} models.TenantResponse "Tenant created successfully"
// @Failure 400 {object} models.ErrorResponse "Invalid request or validation error"
// @Failure 409 {object} models.ErrorResponse "Tenant slug already exists"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /v1/tenants [post]
func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := r.Header.Get("X-Request-ID")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Failed to read request body", nil, requestID)
		return
	}
	defer r.Body.Close()

	var req models.CreateTenantRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", []string{err.Error()}, requestID)
		return
	}

	req.Slug = strings.TrimSpace(req.Slug)
	if req.Slug == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "slug is required", nil, requestID)
		return
	}
	if len(req.Slug) > 255 {
		s.writeErrorResponse(w, http.StatusBadRequest, "slug must be <= 255 characters", nil, requestID)
		return
	}

	t := models.FromCreateRequest(&req)
	if err := t.Validate(); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid tenant", []string{err.Error()}, requestID)
		return
	}

	if err := s.tenantRepo.CreateTenant(ctx, t); err != nil {
		if errors.Is(err, tenant.ErrTenantExists) {
			s.writeErrorResponse(w, http.StatusConflict, "Tenant slug already exists", nil, requestID)
			return
		}
		s.logger.Error("failed to create tenant", zap.Error(err), zap.String("request_id", requestID))
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to create tenant", nil, requestID)
		return
	}

	s.logger.Info("tenant created", zap.String("tenant_slug", t.Slug), zap.String("request_id", requestID))

	resp := models.ToTenantResponse(t)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// handleGetTenant retrieves a single tenant by ID or slug
// @Summary Get a tenant
// @Description Retrieves a specific tenant resource by UUID or slug
// @Tags tenants
// @Produce json
// @Param id path string true "Tenant identifier (UUID or slug)"
// @Success 200 {object} models.TenantResponse "Tenant found"
// @Failure 400 {object} models.ErrorResponse "Invalid tenant identifier format"
// @Failure 404 {object} models.ErrorResponse "Tenant not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /v1/tenants/{id} [get]
func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := r.Header.Get("X-Request-ID")

	identifier := chi.URLParam(r, "id")
	if strings.TrimSpace(identifier) == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "tenant identifier is required", nil, requestID)
		return
	}

	t, err := s.lookupTenant(ctx, identifier)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "Tenant not found", nil, requestID)
			return
		}
		s.logger.Error("failed to get tenant", zap.Error(err), zap.String("request_id", requestID))
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve tenant", nil, requestID)
		return
	}

	resp := models.ToTenantResponse(t)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// handleListTenants lists all tenants with pagination
// @Summary List all tenants
// @Description Returns a paginated list of tenants
// @Tags tenants
// @Produce json
// @Param limit query int false "Maximum number of results (default 50)"
// @Param offset query int false "Number of results to skip (default 0)"
// @Param include_deleted query bool false "Include soft-deleted tenants in results"
// @Success 200 {object} models.ListTenantsResponse "List of tenants"
// @Failure 400 {object} models.ErrorResponse "Invalid pagination parameters"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /v1/tenants [get]
func (s *Server) handleListTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := r.Header.Get("X-Request-ID")

	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")
	includeDeletedStr := r.URL.Query().Get("include_deleted")

	limit := 50
	offset := 0
	includeDeleted := false

	if limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid limit parameter", []string{"limit must be a positive integer"}, requestID)
			return
		}
		limit = parsed
	}

	if offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil || parsed < 0 {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid offset parameter", []string{"offset must be a non-negative integer"}, requestID)
			return
		}
		offset = parsed
	}
	if includeDeletedStr != "" {
		parsed, err := strconv.ParseBool(includeDeletedStr)
		if err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid include_deleted parameter", []string{"include_deleted must be a boolean"}, requestID)
			return
		}
		includeDeleted = parsed
	}

	filters := tenant.ListFilters{Limit: limit, Offset: offset, IncludeDeleted: includeDeleted}
	tenants, err := s.tenantRepo.ListTenants(ctx, filters)
	if err != nil {
		s.logger.Error("failed to list tenants", zap.Error(err), zap.String("request_id", requestID))
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list tenants", nil, requestID)
		return
	}

	countFilters := filters
	countFilters.Limit = 0
	countFilters.Offset = 0
	allTenants, err := s.tenantRepo.ListTenants(ctx, countFilters)
	if err != nil {
		s.logger.Error("failed to count tenants", zap.Error(err), zap.String("request_id", requestID))
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list tenants", nil, requestID)
		return
	}

	responses := make([]models.TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		responses = append(responses, models.ToTenantResponse(t))
	}

	resp := models.ListTenantsResponse{
		Tenants: responses,
		Total:   len(allTenants),
		Limit:   limit,
		Offset:  offset,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// handleUpdateTenant updates a tenant's status or settings
// @Summary Update a tenant
// @Description Transitions a tenant's status (active/suspended) or replaces its settings
// @Tags tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant identifier (UUID or slug)"
// @Param body body models.UpdateTenantRequest true "Tenant update request"
// @Success 200 {object} models.TenantResponse "Tenant updated successfully"
// @Failure 400 {object} models.ErrorResponse "Invalid request or validation error"
// @Failure 404 {object} models.ErrorResponse "Tenant not found"
// @Failure 409 {object} models.ErrorResponse "Invalid state transition or version conflict"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /v1/tenants/{id} [put]
func (s *Server) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := r.Header.Get("X-Request-ID")

	identifier := chi.URLParam(r, "id")
	if strings.TrimSpace(identifier) == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "tenant identifier is required", nil, requestID)
		return
	}

	var req models.UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", []string{err.Error()}, requestID)
		return
	}
	defer r.Body.Close()

	t, err := s.lookupTenant(ctx, identifier)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "Tenant not found", nil, requestID)
			return
		}
		s.logger.Error("failed to get tenant", zap.Error(err), zap.String("request_id", requestID))
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve tenant", nil, requestID)
		return
	}

	if req.Status != nil && *req.Status != t.Status {
		if !t.Status.CanTransition(*req.Status) {
			s.writeInvalidStateError(w, "Invalid state transition", []string{
				string(t.Status) + " cannot transition to " + string(*req.Status),
			}, requestID)
			return
		}
		previous := t.Status
		t.Status = *req.Status
		transition := tenant.NewStateTransition(t, t.Status, "requested via API", "api")
		transition.FromStatus = &previous
		if err := s.tenantRepo.RecordStateTransition(ctx, transition); err != nil {
			s.logger.Error("failed to record tenant state transition", zap.Error(err), zap.String("request_id", requestID))
			s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to update tenant", nil, requestID)
			return
		}
	}

	models.ApplyUpdateRequest(t, &req)
	t.UpdatedAt = time.Now()

	if err := s.tenantRepo.UpdateTenant(ctx, t); err != nil {
		if errors.Is(err, tenant.ErrVersionConflict) {
			s.writeErrorResponse(w, http.StatusConflict, "Tenant was modified by another operation", nil, requestID)
			return
		}
		s.logger.Error("failed to update tenant", zap.Error(err), zap.String("request_id", requestID))
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to update tenant", nil, requestID)
		return
	}

	resp := models.ToTenantResponse(t)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// handleDeleteTenant deletes a tenant's central row
// @Summary Delete a tenant
// @Description Removes the tenant row from the central database; the row is not kept as a soft-deleted record, and the tenant's own database is not dropped
// @Tags tenants
// @Param id path string true "Tenant identifier (UUID or slug)"
// @Success 204 "Tenant deleted successfully"
// @Failure 400 {object} models.ErrorResponse "Invalid tenant identifier format"
// @Failure 404 {object} models.ErrorResponse "Tenant not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /v1/tenants/{id} [delete]
func (s *Server) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := r.Header.Get("X-Request-ID")

	identifier := chi.URLParam(r, "id")
	if strings.TrimSpace(identifier) == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "tenant identifier is required", nil, requestID)
		return
	}

	t, err := s.lookupTenant(ctx, identifier)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "Tenant not found", nil, requestID)
			return
		}
		s.logger.Error("failed to get tenant", zap.Error(err), zap.String("request_id", requestID))
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve tenant", nil, requestID)
		return
	}

	if err := s.tenantRepo.DeleteTenant(ctx, t.ID); err != nil {
		s.logger.Error("failed to delete tenant", zap.Error(err), zap.String("request_id", requestID))
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete tenant", nil, requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeErrorResponse writes a standardized error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, details []string, requestID string) {
	resp := models.ErrorResponse{
		Error:     message,
		Details:   details,
		RequestID: requestID,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// writeInvalidStateError writes a standardized error response for invalid state transitions (409)
func (s *Server) writeInvalidStateError(w http.ResponseWriter, message string, details []string, requestID string) {
	s.logger.Warn("invalid state transition",
		zap.String("message", message),
		zap.Strings("details", details),
		zap.String("request_id", requestID))
	s.writeErrorResponse(w, http.StatusConflict, message, details, requestID)
}

func (s *Server) lookupTenant(ctx context.Context, identifier string) (*tenant.Tenant, error) {
	if id, err := uuid.Parse(identifier); err == nil {
		return s.tenantRepo.GetTenantByID(ctx, id)
	}
	return s.tenantRepo.GetTenantBySlug(ctx, identifier)
}
