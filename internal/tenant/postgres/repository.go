package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/tenant"
)

// Repository implements tenant.Repository for PostgreSQL
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New creates a PostgreSQL repository
// Accepts interface{} to satisfy provider abstraction, type asserts to *pgxpool.Pool
func New(pool interface{}, logger *zap.Logger) (*Repository, error) {
	pgPool, ok := pool.(*pgxpool.Pool)
	if !ok {
		return nil, fmt.Errorf("expected *pgxpool.Pool, got %T", pool)
	}
	return &Repository{
		pool:   pgPool,
		logger: logger.With(zap.String("component", "tenant-postgres-repository")),
	}, nil
}

const createTenantQuery = `
INSERT INTO tenants (
    id, slug, status, encrypted_credentials, settings, database_dsn
) VALUES (
    $1, $2, $3, $4, $5, $6
)
RETURNING created_at, updated_at, version
`

func (r *Repository) CreateTenant(ctx context.Context, t *tenant.Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	r.logger.Debug("creating tenant",
		zap.String("slug", t.Slug),
		zap.String("id", t.ID.String()),
		zap.String("status", string(t.Status)))

	row := r.pool.QueryRow(ctx, createTenantQuery,
		t.ID.String(),
		t.Slug,
		t.Status,
		t.EncryptedCredentials,
		jsonbOrEmptyInterfaceMap(t.Settings),
		t.DatabaseDSN,
	)

	err := row.Scan(&t.CreatedAt, &t.UpdatedAt, &t.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return tenant.ErrTenantExists
		}
		return fmt.Errorf("create tenant: %w", err)
	}

	r.logger.Info("tenant created",
		zap.String("id", t.ID.String()),
		zap.String("slug", t.Slug))

	return nil
}

const getTenantColumns = `
    id, slug, status, encrypted_credentials, settings, database_dsn,
    created_at, updated_at, version, deleted_at
`

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	t := &tenant.Tenant{}
	var settingsJSON []byte

	err := row.Scan(
		&t.ID,
		&t.Slug,
		&t.Status,
		&t.EncryptedCredentials,
		&settingsJSON,
		&t.DatabaseDSN,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.Version,
		&t.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalInterfaceMap(settingsJSON, &t.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return t, nil
}

func (r *Repository) GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	r.logger.Debug("getting tenant", zap.String("slug", slug))

	t, err := scanTenant(r.pool.QueryRow(ctx, `SELECT `+getTenantColumns+` FROM tenants WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

func (r *Repository) GetTenantByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	r.logger.Debug("getting tenant by ID", zap.String("id", id.String()))

	t, err := scanTenant(r.pool.QueryRow(ctx, `SELECT `+getTenantColumns+` FROM tenants WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant by ID: %w", err)
	}
	return t, nil
}

const updateTenantQuery = `
UPDATE tenants SET
    slug = $2,
    status = $3,
    encrypted_credentials = $4,
    settings = $5,
    database_dsn = $6,
    deleted_at = $7,
    updated_at = NOW(),
    version = version + 1
WHERE id = $1 AND version = $8
RETURNING version, updated_at
`

func (r *Repository) UpdateTenant(ctx context.Context, t *tenant.Tenant) error {
	r.logger.Debug("updating tenant",
		zap.String("id", t.ID.String()),
		zap.Int("version", t.Version))

	row := r.pool.QueryRow(ctx, updateTenantQuery,
		t.ID,
		t.Slug,
		t.Status,
		t.EncryptedCredentials,
		jsonbOrEmptyInterfaceMap(t.Settings),
		t.DatabaseDSN,
		t.DeletedAt,
		t.Version,
	)

	err := row.Scan(&t.Version, &t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return tenant.ErrTenantExists
		}
		if errors.Is(err, pgx.ErrNoRows) {
			_, getErr := r.GetTenantByID(ctx, t.ID)
			if getErr != nil {
				return tenant.ErrTenantNotFound
			}
			return tenant.ErrVersionConflict
		}
		return fmt.Errorf("update tenant: %w", err)
	}

	r.logger.Info("tenant updated",
		zap.String("id", t.ID.String()),
		zap.Int("new_version", t.Version))

	return nil
}

func (r *Repository) ListTenants(ctx context.Context, filters tenant.ListFilters) ([]*tenant.Tenant, error) {
	query, args := r.buildListQuery(filters)

	r.logger.Debug("listing tenants", zap.Any("filters", filters))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenants: %w", err)
	}

	return tenants, nil
}

const listActiveTenantsQuery = `
SELECT ` + getTenantColumns + `
FROM tenants
WHERE status = 'active' AND deleted_at IS NULL
ORDER BY created_at ASC
`

func (r *Repository) ListActiveTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	r.logger.Debug("listing active tenants")

	rows, err := r.pool.Query(ctx, listActiveTenantsQuery)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active tenants: %w", err)
	}

	r.logger.Debug("found active tenants", zap.Int("count", len(tenants)))
	return tenants, nil
}

func (r *Repository) buildListQuery(filters tenant.ListFilters) (string, []interface{}) {
	query := `SELECT ` + getTenantColumns + ` FROM tenants WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if !filters.IncludeDeleted {
		query += " AND deleted_at IS NULL"
	}
	if len(filters.Statuses) > 0 {
		query += fmt.Sprintf(" AND status = ANY($%d)", argPos)
		statusStrings := make([]string, len(filters.Statuses))
		for i, s := range filters.Statuses {
			statusStrings[i] = string(s)
		}
		args = append(args, statusStrings)
		argPos++
	}

	if filters.CreatedAfter != nil {
		query += fmt.Sprintf(" AND created_at > $%d", argPos)
		args = append(args, *filters.CreatedAfter)
		argPos++
	}
	if filters.CreatedBefore != nil {
		query += fmt.Sprintf(" AND created_at < $%d", argPos)
		args = append(args, *filters.CreatedBefore)
		argPos++
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filters.Limit)
		argPos++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filters.Offset)
	}

	return query, args
}

const deleteTenantQuery = `
DELETE FROM tenants
WHERE id = $1
RETURNING id
`

func (r *Repository) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	r.logger.Debug("deleting tenant", zap.String("id", id.String()))

	var deletedID uuid.UUID
	err := r.pool.QueryRow(ctx, deleteTenantQuery, id).Scan(&deletedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tenant.ErrTenantNotFound
		}
		return fmt.Errorf("delete tenant: %w", err)
	}

	r.logger.Info("tenant deleted", zap.String("id", id.String()))
	return nil
}

const recordTransitionQuery = `
INSERT INTO tenant_state_history (
    tenant_id, from_status, to_status, reason, triggered_by
) VALUES (
    $1, $2, $3, $4, $5
)
RETURNING id, created_at
`

func (r *Repository) RecordStateTransition(ctx context.Context, st *tenant.StateTransition) error {
	r.logger.Debug("recording state transition",
		zap.String("tenant_id", st.TenantID.String()),
		zap.String("to_status", string(st.ToStatus)))

	row := r.pool.QueryRow(ctx, recordTransitionQuery,
		st.TenantID,
		st.FromStatus,
		st.ToStatus,
		st.Reason,
		st.TriggeredBy,
	)

	err := row.Scan(&st.ID, &st.CreatedAt)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}

	return nil
}

const getHistoryQuery = `
SELECT id, tenant_id, from_status, to_status, reason, triggered_by, created_at
FROM tenant_state_history
WHERE tenant_id = $1
ORDER BY created_at DESC
`

func (r *Repository) GetStateHistory(ctx context.Context, tenantID uuid.UUID) ([]*tenant.StateTransition, error) {
	r.logger.Debug("getting state history", zap.String("tenant_id", tenantID.String()))

	rows, err := r.pool.Query(ctx, getHistoryQuery, tenantID)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer rows.Close()

	var history []*tenant.StateTransition
	for rows.Next() {
		st := &tenant.StateTransition{}

		err := rows.Scan(
			&st.ID,
			&st.TenantID,
			&st.FromStatus,
			&st.ToStatus,
			&st.Reason,
			&st.TriggeredBy,
			&st.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}

		history = append(history, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return history, nil
}

func jsonbOrEmptyInterfaceMap(m map[string]interface{}) interface{} {
	if len(m) == 0 {
		return "{}"
	}
	return m
}

func unmarshalInterfaceMap(data []byte, m *map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, m)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
