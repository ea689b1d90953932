package audit

import (
	"context"
	"fmt"

	"github.com/jaxxstorm/docuflow/internal/ids"
	"github.com/jmoiron/sqlx"
)

// Repository persists audit Entries in the per-tenant database, mirroring
// tenant/postgres.Repository.RecordStateTransition's insert-only shape.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps a per-tenant sqlx connection.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const recordEntryQuery = `
INSERT INTO audit_logs (
    id, actor_type, actor_id, action, entity_type, entity_id, before, after
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at
`

// Record appends e, assigning an ID if unset. Audit entries are never
// updated or deleted through this repository.
func (r *Repository) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}

	row := r.db.QueryRowxContext(ctx, recordEntryQuery,
		e.ID, e.ActorType, e.ActorID, e.Action, e.EntityType, e.EntityID, e.Before, e.After,
	)
	if err := row.Scan(&e.CreatedAt); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

const listForEntityQuery = `
SELECT id, actor_type, actor_id, action, entity_type, entity_id, before, after, created_at
FROM audit_logs
WHERE entity_type = $1 AND entity_id = $2
ORDER BY created_at DESC
`

// ListForEntity returns an entity's audit trail, most recent first.
func (r *Repository) ListForEntity(ctx context.Context, entityType, entityID string) ([]*Entry, error) {
	var entries []*Entry
	if err := r.db.SelectContext(ctx, &entries, listForEntityQuery, entityType, entityID); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
