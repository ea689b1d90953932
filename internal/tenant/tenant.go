package tenant

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// slugPattern validates that a tenant slug is lowercase alphanumeric with hyphens
var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Status represents a tenant's position in its lifecycle
type Status string

const (
	// StatusActive: Tenant is operational; jobs may be submitted and dispatched
	StatusActive Status = "active"

	// StatusSuspended: Tenant is temporarily disabled; new job submission and
	// dispatch are rejected, but existing data is retained
	StatusSuspended Status = "suspended"
)

// ValidTransitions defines allowed state transitions
var ValidTransitions = map[Status][]Status{
	StatusActive:    {StatusSuspended},
	StatusSuspended: {StatusActive},
}

// IsValid checks if a status is a known valid status
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusSuspended:
		return true
	default:
		return false
	}
}

// IsHealthy returns true if the tenant may accept work
func (s Status) IsHealthy() bool {
	return s == StatusActive
}

// CanTransition checks if a transition is valid
func (s Status) CanTransition(to Status) bool {
	allowed, exists := ValidTransitions[s]
	if !exists {
		return false
	}
	for _, valid := range allowed {
		if valid == to {
			return true
		}
	}
	return false
}

// Tenant is a top-level customer with its own database and isolated data
type Tenant struct {
	// ID is the internal database identifier
	ID uuid.UUID `json:"id"`

	// Slug is the user-facing stable identifier, unique, lowercase
	// alphanumeric with hyphens, max 255 chars. Example: "acme-corp"
	Slug string `json:"slug"`

	// Status represents where the tenant is in its lifecycle
	Status Status `json:"status"`

	// EncryptedCredentials holds a nacl/secretbox-sealed blob of
	// tenant-wide provider credentials not scoped to a single campaign
	// or processor (see credential.Vault's scope walk)
	EncryptedCredentials []byte `json:"-"`

	// Settings is tenant-specific configuration: default processor
	// concurrency limits, webhook defaults, timezone, and the like
	Settings map[string]interface{} `json:"settings,omitempty"`

	// DatabaseDSN is the connection string for this tenant's isolated
	// database. Never serialized to API responses.
	DatabaseDSN string `json:"-"`

	// CreatedAt is when the tenant was first created
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the tenant was last modified
	UpdatedAt time.Time `json:"updated_at"`

	// Version is incremented on every update for optimistic locking
	Version int `json:"version"`

	// DeletedAt marks a soft-deleted tenant; nil means active/suspended
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Validate checks if a tenant is valid
func (t *Tenant) Validate() error {
	if t.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if len(t.Slug) > 255 {
		return fmt.Errorf("slug must be <= 255 characters")
	}
	if !slugPattern.MatchString(t.Slug) {
		return fmt.Errorf("slug must be lowercase alphanumeric with hyphens")
	}
	if t.Status == "" {
		return fmt.Errorf("status is required")
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	return nil
}

// IsDeleted returns true if the tenant has been soft-deleted
func (t *Tenant) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Clone creates a deep copy of the tenant
func (t *Tenant) Clone() *Tenant {
	clone := *t
	if t.EncryptedCredentials != nil {
		clone.EncryptedCredentials = make([]byte, len(t.EncryptedCredentials))
		copy(clone.EncryptedCredentials, t.EncryptedCredentials)
	}
	if t.Settings != nil {
		clone.Settings = make(map[string]interface{}, len(t.Settings))
		for k, v := range t.Settings {
			clone.Settings[k] = v
		}
	}
	if t.DeletedAt != nil {
		deletedAt := *t.DeletedAt
		clone.DeletedAt = &deletedAt
	}
	return &clone
}

// StateTransition represents a single state change in tenant lifecycle
// Immutable audit log entry
type StateTransition struct {
	ID uuid.UUID `json:"id"`

	// TenantID links this transition to a tenant
	TenantID uuid.UUID `json:"tenant_id"`

	// FromStatus is the previous state (nil for initial creation)
	FromStatus *Status `json:"from_status,omitempty"`

	// ToStatus is the new state after transition
	ToStatus Status `json:"to_status"`

	// Reason explains why the transition occurred
	// Examples: "operator suspended for non-payment", "operator reactivated"
	Reason string `json:"reason"`

	// TriggeredBy identifies who/what initiated the transition
	TriggeredBy string `json:"triggered_by,omitempty"`

	// CreatedAt is when this transition was recorded
	CreatedAt time.Time `json:"created_at"`
}

// NewStateTransition creates a new state transition record
func NewStateTransition(tenant *Tenant, toStatus Status, reason, triggeredBy string) *StateTransition {
	transition := &StateTransition{
		ID:          uuid.New(),
		TenantID:    tenant.ID,
		ToStatus:    toStatus,
		Reason:      reason,
		TriggeredBy: triggeredBy,
		CreatedAt:   time.Now(),
	}

	if tenant.Status != "" {
		fromStatus := tenant.Status
		transition.FromStatus = &fromStatus
	}

	return transition
}

// Validate checks if a state transition is valid
func (st *StateTransition) Validate() error {
	if st.TenantID == uuid.Nil {
		return fmt.Errorf("tenant_id is required")
	}
	if st.ToStatus == "" {
		return fmt.Errorf("to_status is required")
	}
	if !st.ToStatus.IsValid() {
		return fmt.Errorf("invalid to_status: %s", st.ToStatus)
	}
	if st.Reason == "" {
		return fmt.Errorf("reason is required")
	}

	if st.FromStatus != nil {
		if !st.FromStatus.CanTransition(st.ToStatus) {
			return fmt.Errorf("invalid transition from %s to %s", *st.FromStatus, st.ToStatus)
		}
	}

	return nil
}
