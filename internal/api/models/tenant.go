package models

import (
	"time"

	"github.com/jaxxstorm/docuflow/internal/tenant"
)

// CreateTenantRequest is the request body for creating a new tenant.
type CreateTenantRequest struct {
	// Slug is the unique, stable, user-facing tenant identifier.
	Slug string `json:"slug" validate:"required,min=1,max=255"`

	// Settings is tenant-specific configuration: default processor
	// concurrency limits, webhook defaults, timezone, and the like.
	Settings map[string]interface{} `json:"settings,omitempty"`
}

// UpdateTenantRequest is the request body for updating a tenant. Status
// and settings are the only fields a caller may change post-creation;
// credentials and the database DSN are managed out of band.
type UpdateTenantRequest struct {
	// Status transitions the tenant between active and suspended.
	Status *tenant.Status `json:"status,omitempty"`

	// Settings replaces the tenant's settings map when provided.
	Settings map[string]interface{} `json:"settings,omitempty"`
}

// TenantResponse is a tenant as rendered in API responses. Credentials
// and the database DSN never leave the server.
type TenantResponse struct {
	ID        string                 `json:"id"`
	Slug      string                 `json:"slug"`
	Status    string                 `json:"status"`
	Settings  map[string]interface{} `json:"settings,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Version   int                    `json:"version"`
}

// ListTenantsResponse is a paginated list of tenants.
type ListTenantsResponse struct {
	Tenants []TenantResponse `json:"tenants"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int               `json:"offset"`
}

// ErrorResponse is a standardized error response.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// ToTenantResponse converts a domain tenant to an API response.
func ToTenantResponse(t *tenant.Tenant) TenantResponse {
	return TenantResponse{
		ID:        t.ID.String(),
		Slug:      t.Slug,
		Status:    string(t.Status),
		Settings:  t.Settings,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
		Version:   t.Version,
	}
}

// FromCreateRequest converts a create request to a domain tenant.
func FromCreateRequest(req *CreateTenantRequest) *tenant.Tenant {
	return &tenant.Tenant{
		Slug:     req.Slug,
		Status:   tenant.StatusActive,
		Settings: req.Settings,
	}
}

// ApplyUpdateRequest applies an update request's fields onto t.
func ApplyUpdateRequest(t *tenant.Tenant, req *UpdateTenantRequest) {
	if req.Settings != nil {
		t.Settings = req.Settings
	}
}
