package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jaxxstorm/docuflow/internal/ids"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a document does not exist in the bound
// tenant database.
var ErrNotFound = errors.New("document: not found")

// Repository persists documents in the per-tenant database.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps a per-tenant sqlx connection.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const createDocumentQuery = `
INSERT INTO documents (
    id, public_uuid, campaign_id, user_id, filename, mime, size,
    storage_path, disk, content_hash, status, metadata, retry_count
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING created_at, updated_at
`

// Create inserts d, assigning an ID if unset.
func (r *Repository) Create(ctx context.Context, d *Document) error {
	if d.ID == "" {
		d.ID = ids.New()
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	metadataJSON, err := d.MetadataJSON()
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	row := r.db.QueryRowxContext(ctx, createDocumentQuery,
		d.ID, d.PublicUUID, d.CampaignID, d.UserID, d.Filename, d.Mime, d.Size,
		d.StoragePath, d.Disk, d.ContentHash, d.Status, metadataJSON, d.RetryCount,
	)
	if err := row.Scan(&d.CreatedAt, &d.UpdatedAt); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

const getDocumentQuery = `
SELECT id, public_uuid, campaign_id, user_id, filename, mime, size,
    storage_path, disk, content_hash, status, metadata, retry_count,
    created_at, updated_at, processed_at, failed_at, deleted_at
FROM documents
WHERE id = $1
`

// Get loads a document by internal ID.
func (r *Repository) Get(ctx context.Context, id string) (*Document, error) {
	return r.scanOne(ctx, getDocumentQuery, id)
}

const getDocumentByPublicUUIDQuery = `
SELECT id, public_uuid, campaign_id, user_id, filename, mime, size,
    storage_path, disk, content_hash, status, metadata, retry_count,
    created_at, updated_at, processed_at, failed_at, deleted_at
FROM documents
WHERE public_uuid = $1
`

// GetByPublicUUID loads a document by its externally visible UUID.
func (r *Repository) GetByPublicUUID(ctx context.Context, publicUUID string) (*Document, error) {
	return r.scanOne(ctx, getDocumentByPublicUUIDQuery, publicUUID)
}

func (r *Repository) scanOne(ctx context.Context, query string, arg interface{}) (*Document, error) {
	d := &Document{}
	var metadataJSON []byte

	row := r.db.QueryRowxContext(ctx, query, arg)
	err := row.Scan(
		&d.ID, &d.PublicUUID, &d.CampaignID, &d.UserID, &d.Filename, &d.Mime, &d.Size,
		&d.StoragePath, &d.Disk, &d.ContentHash, &d.Status, &metadataJSON, &d.RetryCount,
		&d.CreatedAt, &d.UpdatedAt, &d.ProcessedAt, &d.FailedAt, &d.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &d.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return d, nil
}

const updateDocumentQuery = `
UPDATE documents SET
    status = $2,
    metadata = $3,
    retry_count = $4,
    processed_at = $5,
    failed_at = $6,
    deleted_at = $7,
    updated_at = NOW()
WHERE id = $1
RETURNING updated_at
`

// Update persists d's mutable fields (status, metadata, retry bookkeeping,
// timestamps).
func (r *Repository) Update(ctx context.Context, d *Document) error {
	metadataJSON, err := d.MetadataJSON()
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	row := r.db.QueryRowxContext(ctx, updateDocumentQuery,
		d.ID, d.Status, metadataJSON, d.RetryCount, d.ProcessedAt, d.FailedAt, d.DeletedAt,
	)
	if err := row.Scan(&d.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}
