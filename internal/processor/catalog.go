package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CatalogEntry is one tenant's processor catalog row: indirection from a
// pipeline step's slug onto a statically registered Handler.
type CatalogEntry struct {
	ID              string          `db:"id"`
	Slug            string          `db:"slug"`
	HandlerKey      string          `db:"handler_key"`
	Category        string          `db:"category"`
	ConfigSchema    json.RawMessage `db:"config_schema"`
	OutputSchema    json.RawMessage `db:"output_schema"`
	DependencySlugs []string        `db:"-"`
	IsActive        bool            `db:"is_active"`
	Version         int             `db:"version"`
}

// CatalogLookup resolves a pipeline step's processor slug to its catalog
// row. *Catalog (backed by the per-tenant database) satisfies this; tests
// use a fake.
type CatalogLookup interface {
	Lookup(ctx context.Context, slug string) (*CatalogEntry, error)
}

// ErrCatalogEntryInactive is returned when a slug resolves to a catalog
// row that has been deactivated.
var ErrCatalogEntryInactive = errors.New("processor catalog entry inactive")

// Catalog is the sqlx-backed CatalogLookup for one tenant database.
type Catalog struct {
	db *sqlx.DB
}

// NewCatalog wraps a per-tenant sqlx connection.
func NewCatalog(db *sqlx.DB) *Catalog {
	return &Catalog{db: db}
}

const getCatalogEntryQuery = `
SELECT id, slug, handler_key, category, config_schema, output_schema, dependency_slugs, is_active, version
FROM processors
WHERE slug = $1
ORDER BY version DESC
LIMIT 1
`

// Lookup returns the latest version of the catalog entry for slug.
func (c *Catalog) Lookup(ctx context.Context, slug string) (*CatalogEntry, error) {
	entry := &CatalogEntry{}
	var dependencySlugsJSON []byte

	row := c.db.QueryRowxContext(ctx, getCatalogEntryQuery, slug)
	err := row.Scan(
		&entry.ID, &entry.Slug, &entry.HandlerKey, &entry.Category,
		&entry.ConfigSchema, &entry.OutputSchema, &dependencySlugsJSON,
		&entry.IsActive, &entry.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("lookup processor catalog entry %s: %w", slug, err)
	}

	if len(dependencySlugsJSON) > 0 {
		if err := json.Unmarshal(dependencySlugsJSON, &entry.DependencySlugs); err != nil {
			return nil, fmt.Errorf("unmarshal dependency_slugs: %w", err)
		}
	}

	if !entry.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrCatalogEntryInactive, slug)
	}
	return entry, nil
}
