package usage

import (
	"context"
	"fmt"

	"github.com/jaxxstorm/docuflow/internal/ids"
	"github.com/jmoiron/sqlx"
)

// Repository persists usage Events in the per-tenant database, mirroring
// audit.Repository's insert-only shape.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps a per-tenant sqlx connection.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const recordEventQuery = `
INSERT INTO usage_events (
    id, campaign_id, job_id, metric, quantity, unit, metadata
) VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at
`

// Record appends e, assigning an ID if unset. Usage events are never
// updated or deleted through this repository.
func (r *Repository) Record(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("record usage event: %w", err)
	}

	row := r.db.QueryRowxContext(ctx, recordEventQuery,
		e.ID, e.CampaignID, e.JobID, e.Metric, e.Quantity, e.Unit, e.Metadata,
	)
	if err := row.Scan(&e.CreatedAt); err != nil {
		return fmt.Errorf("record usage event: %w", err)
	}
	return nil
}

const sumForCampaignQuery = `
SELECT COALESCE(SUM(quantity), 0)
FROM usage_events
WHERE campaign_id = $1 AND metric = $2
`

// SumForCampaign totals a metric's quantity across every event recorded
// for a campaign, e.g. for a monthly billing rollup.
func (r *Repository) SumForCampaign(ctx context.Context, campaignID, metric string) (float64, error) {
	var total float64
	if err := r.db.GetContext(ctx, &total, sumForCampaignQuery, campaignID, metric); err != nil {
		return 0, fmt.Errorf("sum usage events: %w", err)
	}
	return total, nil
}
