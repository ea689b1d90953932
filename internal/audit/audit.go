// Package audit implements AuditLog, an append-only record of who changed
// what in a tenant's data, generalized from tenant.StateTransition's
// from/to/reason/triggered_by shape to an arbitrary entity's before/after.
package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActorType distinguishes who performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
	ActorVendor ActorType = "vendor" // a callback-delivering third party
)

// Entry is one append-only audit record. Before/After are opaque
// snapshots of the entity at the point of change; a create has a nil
// Before, a delete has a nil After.
type Entry struct {
	ID         string          `json:"id" db:"id"`
	ActorType  ActorType       `json:"actor_type" db:"actor_type"`
	ActorID    string          `json:"actor_id" db:"actor_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	Before     json.RawMessage `json:"before,omitempty" db:"before"`
	After      json.RawMessage `json:"after,omitempty" db:"after"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Validate checks the fields required for any audit entry.
func (e *Entry) Validate() error {
	if e.ActorType == "" {
		return fmt.Errorf("actor_type is required")
	}
	if e.Action == "" {
		return fmt.Errorf("action is required")
	}
	if e.EntityType == "" {
		return fmt.Errorf("entity_type is required")
	}
	if e.EntityID == "" {
		return fmt.Errorf("entity_id is required")
	}
	return nil
}

// Snapshot marshals v into a RawMessage for Entry.Before/After, returning
// nil (not an error) for a nil v so callers can write Snapshot(nil)
// unconditionally on creates and deletes.
func Snapshot(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal audit snapshot: %w", err)
	}
	return json.RawMessage(b), nil
}
