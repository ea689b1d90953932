package callback

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/ids"
)

// ErrNotFound is returned when no mapping exists for a transaction_id.
var ErrNotFound = errors.New("callback: mapping not found")

// Repository persists Mappings in the central database, mirroring
// tenant/postgres.Repository's query shape (it is the central DB's other
// tenant, not a per-tenant table).
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository wraps a central pgx pool.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	return &Repository{pool: pool, logger: logger.With(zap.String("component", "callback-repository"))}
}

const registerQuery = `
INSERT INTO callback_mappings (
    id, tenant_id, transaction_id, job_id, workflow_execution_id, provider_type, signal_name, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (transaction_id) DO NOTHING
RETURNING id, created_at, updated_at
`

const getByTransactionQuery = `
SELECT id, tenant_id, transaction_id, job_id, workflow_execution_id, provider_type,
    signal_name, status, result, created_at, updated_at, delivered_at
FROM callback_mappings
WHERE transaction_id = $1
`

// Register idempotently creates a mapping keyed on m.TransactionID. If a
// mapping already exists (the vendor retried its registration call, or two
// activities raced to register the same transaction), the existing row is
// returned instead of erroring, keyed on the unique transaction_id.
func (r *Repository) Register(ctx context.Context, m *Mapping) (*Mapping, error) {
	if m.ID == "" {
		m.ID = ids.New()
	}
	if m.Status == "" {
		m.Status = StatusPending
	}

	row := r.pool.QueryRow(ctx, registerQuery,
		m.ID, m.TenantID, m.TransactionID, m.JobID, m.WorkflowExecutionID, m.ProviderType, m.SignalName, m.Status,
	)
	err := row.Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("register callback mapping: %w", err)
	}

	r.logger.Debug("callback mapping already registered", zap.String("transaction_id", m.TransactionID))
	existing, lookupErr := r.Lookup(ctx, m.TransactionID)
	if lookupErr != nil {
		return nil, fmt.Errorf("register callback mapping: lookup after conflict: %w", lookupErr)
	}
	return existing, nil
}

// Lookup finds the mapping for transactionID.
func (r *Repository) Lookup(ctx context.Context, transactionID string) (*Mapping, error) {
	m := &Mapping{}
	row := r.pool.QueryRow(ctx, getByTransactionQuery, transactionID)
	err := row.Scan(
		&m.ID, &m.TenantID, &m.TransactionID, &m.JobID, &m.WorkflowExecutionID, &m.ProviderType,
		&m.SignalName, &m.Status, &m.Result, &m.CreatedAt, &m.UpdatedAt, &m.DeliveredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup callback mapping: %w", err)
	}
	return m, nil
}

const markDeliveredQuery = `
UPDATE callback_mappings SET
    status = $2,
    result = $3,
    delivered_at = NOW(),
    updated_at = NOW()
WHERE transaction_id = $1
RETURNING updated_at
`

// MarkDelivered transitions the mapping for transactionID to status,
// storing its result payload.
func (r *Repository) MarkDelivered(ctx context.Context, transactionID string, status Status, result []byte) error {
	row := r.pool.QueryRow(ctx, markDeliveredQuery, transactionID, status, result)
	var updatedAt interface{}
	if err := row.Scan(&updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("mark callback mapping delivered: %w", err)
	}
	return nil
}

