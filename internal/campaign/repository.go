package campaign

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jaxxstorm/docuflow/internal/ids"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a campaign does not exist in the bound
// tenant database.
var ErrNotFound = errors.New("campaign: not found")

// ErrSlugExists is returned when creating a campaign whose slug is
// already taken within the tenant.
var ErrSlugExists = errors.New("campaign: slug already exists")

// Repository persists campaigns in the per-tenant database.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps a per-tenant sqlx connection.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const createCampaignQuery = `
INSERT INTO campaigns (
    id, slug, status, pipeline, checklist_template, allowed_mime_types,
    webhook_url, max_file_size, max_concurrency, retention_days
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at, updated_at
`

// Create inserts c, assigning an ID if unset.
func (r *Repository) Create(ctx context.Context, c *Campaign) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}

	pipelineJSON, err := json.Marshal(c.Pipeline)
	if err != nil {
		return fmt.Errorf("marshal pipeline: %w", err)
	}
	mimeJSON, err := json.Marshal(c.AllowedMimeTypes)
	if err != nil {
		return fmt.Errorf("marshal allowed_mime_types: %w", err)
	}

	row := r.db.QueryRowxContext(ctx, createCampaignQuery,
		c.ID, c.Slug, c.Status, pipelineJSON, c.ChecklistTemplate, mimeJSON,
		c.WebhookURL, c.MaxFileSize, c.MaxConcurrency, c.RetentionDays,
	)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrSlugExists
		}
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

const getCampaignBySlugQuery = `
SELECT id, slug, status, pipeline, checklist_template, allowed_mime_types,
    webhook_url, max_file_size, max_concurrency, retention_days, created_at, updated_at, published_at
FROM campaigns
WHERE slug = $1
`

// GetBySlug loads a campaign by its tenant-unique slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Campaign, error) {
	c := &Campaign{}
	var pipelineJSON, mimeJSON []byte

	row := r.db.QueryRowxContext(ctx, getCampaignBySlugQuery, slug)
	err := row.Scan(
		&c.ID, &c.Slug, &c.Status, &pipelineJSON, &c.ChecklistTemplate, &mimeJSON,
		&c.WebhookURL, &c.MaxFileSize, &c.MaxConcurrency, &c.RetentionDays,
		&c.CreatedAt, &c.UpdatedAt, &c.PublishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}

	if err := json.Unmarshal(pipelineJSON, &c.Pipeline); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline: %w", err)
	}
	if len(mimeJSON) > 0 {
		if err := json.Unmarshal(mimeJSON, &c.AllowedMimeTypes); err != nil {
			return nil, fmt.Errorf("unmarshal allowed_mime_types: %w", err)
		}
	}
	return c, nil
}

const getCampaignByIDQuery = `
SELECT id, slug, status, pipeline, checklist_template, allowed_mime_types,
    webhook_url, max_file_size, max_concurrency, retention_days, created_at, updated_at, published_at
FROM campaigns
WHERE id = $1
`

// GetByID loads a campaign by its internal ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*Campaign, error) {
	c := &Campaign{}
	var pipelineJSON, mimeJSON []byte

	row := r.db.QueryRowxContext(ctx, getCampaignByIDQuery, id)
	err := row.Scan(
		&c.ID, &c.Slug, &c.Status, &pipelineJSON, &c.ChecklistTemplate, &mimeJSON,
		&c.WebhookURL, &c.MaxFileSize, &c.MaxConcurrency, &c.RetentionDays,
		&c.CreatedAt, &c.UpdatedAt, &c.PublishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}

	if err := json.Unmarshal(pipelineJSON, &c.Pipeline); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline: %w", err)
	}
	if len(mimeJSON) > 0 {
		if err := json.Unmarshal(mimeJSON, &c.AllowedMimeTypes); err != nil {
			return nil, fmt.Errorf("unmarshal allowed_mime_types: %w", err)
		}
	}
	return c, nil
}

const updateCampaignQuery = `
UPDATE campaigns SET
    status = $2,
    pipeline = $3,
    checklist_template = $4,
    allowed_mime_types = $5,
    webhook_url = $6,
    max_file_size = $7,
    max_concurrency = $8,
    retention_days = $9,
    published_at = $10,
    updated_at = NOW()
WHERE id = $1
RETURNING updated_at
`

// Update persists c's mutable fields.
func (r *Repository) Update(ctx context.Context, c *Campaign) error {
	pipelineJSON, err := json.Marshal(c.Pipeline)
	if err != nil {
		return fmt.Errorf("marshal pipeline: %w", err)
	}
	mimeJSON, err := json.Marshal(c.AllowedMimeTypes)
	if err != nil {
		return fmt.Errorf("marshal allowed_mime_types: %w", err)
	}

	row := r.db.QueryRowxContext(ctx, updateCampaignQuery,
		c.ID, c.Status, pipelineJSON, c.ChecklistTemplate, mimeJSON,
		c.WebhookURL, c.MaxFileSize, c.MaxConcurrency, c.RetentionDays, c.PublishedAt,
	)
	if err := row.Scan(&c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update campaign: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && (containsCode(err, "23505"))
}

// containsCode is a narrow helper kept independent of the postgres driver
// type so this package doesn't need to import pgconn directly just for
// error inspection; callers on a real pgx-backed *sql.DB get a
// driver.Error whose Error() string contains the SQLSTATE code.
func containsCode(err error, code string) bool {
	type sqlState interface{ SQLState() string }
	var se sqlState
	if errors.As(err, &se) {
		return se.SQLState() == code
	}
	return false
}
