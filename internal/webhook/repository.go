package webhook

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository persists Deliveries in the per-tenant database, mirroring
// audit.Repository's insert-only shape.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps a per-tenant sqlx connection.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const recordDeliveryQuery = `
INSERT INTO webhook_deliveries (
    id, campaign_id, job_id, event_type, url, payload, attempt, status,
    response_code, error, delivered_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING created_at
`

// Record appends d as a new row (one per Dispatch call, carrying its
// attempt count); d.ID must
// already be set by the caller (Dispatcher.Dispatch assigns it).
func (r *Repository) Record(ctx context.Context, d *Delivery) error {
	row := r.db.QueryRowxContext(ctx, recordDeliveryQuery,
		d.ID, d.CampaignID, d.JobID, d.EventType, d.URL, d.Payload, d.Attempt,
		d.Status, nullableInt(d.ResponseCode), nullableString(d.Error), d.DeliveredAt,
	)
	if err := row.Scan(&d.CreatedAt); err != nil {
		return fmt.Errorf("record webhook delivery: %w", err)
	}
	return nil
}

func nullableInt(v int) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
