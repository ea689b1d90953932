package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jaxxstorm/docuflow/internal/ids"
	"github.com/jmoiron/sqlx"
)

// Repository persists encrypted credentials in the per-tenant database.
// Queries are parameterized in the same style as
// internal/tenant/postgres.Repository.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps a per-tenant sqlx connection.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const upsertCredentialQuery = `
INSERT INTO credentials (id, tenant_id, scope, scope_ref, key, encrypted_value, nonce)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (tenant_id, scope, scope_ref, key) DO UPDATE SET
    encrypted_value = EXCLUDED.encrypted_value,
    nonce = EXCLUDED.nonce,
    updated_at = NOW()
RETURNING id, created_at, updated_at
`

// Put stores or replaces the credential at the given scope.
func (r *Repository) Put(ctx context.Context, c *Credential) error {
	if !c.Scope.Valid() {
		return ErrInvalidScope
	}
	if c.ID == "" {
		c.ID = ids.New()
	}

	row := r.db.QueryRowxContext(ctx, upsertCredentialQuery,
		c.ID, c.TenantID, c.Scope, c.ScopeRef, c.Key, c.EncryptedValue, c.Nonce,
	)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("put credential: %w", err)
	}
	return nil
}

const getCredentialQuery = `
SELECT id, tenant_id, scope, scope_ref, key, encrypted_value, nonce, created_at, updated_at, last_used_at
FROM credentials
WHERE tenant_id = $1 AND scope = $2 AND scope_ref = $3 AND key = $4
`

// Get looks up the credential at an exact scope/scope_ref/key, with no
// fallback walk. Vault.Resolve calls this once per scope in order.
func (r *Repository) Get(ctx context.Context, tenantID string, scope Scope, scopeRef, key string) (*Credential, error) {
	c := &Credential{}
	err := r.db.GetContext(ctx, c, getCredentialQuery, tenantID, scope, scopeRef, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return c, nil
}

const touchLastUsedQuery = `
UPDATE credentials SET last_used_at = NOW() WHERE id = $1
`

// TouchLastUsed records that the credential was used. Callers invoke this
// as a fire-and-forget goroutine — at-most-once delivery is acceptable
// per spec, so a failed update here is logged and dropped, never
// propagated to the caller resolving the credential.
func (r *Repository) TouchLastUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, touchLastUsedQuery, id)
	if err != nil {
		return fmt.Errorf("touch last_used_at: %w", err)
	}
	return nil
}

const deleteCredentialQuery = `
DELETE FROM credentials WHERE tenant_id = $1 AND scope = $2 AND scope_ref = $3 AND key = $4
`

// Delete removes a credential at an exact scope.
func (r *Repository) Delete(ctx context.Context, tenantID string, scope Scope, scopeRef, key string) error {
	_, err := r.db.ExecContext(ctx, deleteCredentialQuery, tenantID, scope, scopeRef, key)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
