package execution

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jaxxstorm/docuflow/internal/ids"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrNotFound is returned when an execution record does not exist.
var ErrNotFound = errors.New("execution: not found")

// Repository persists ExecutionRecords in the per-tenant database,
// mirroring compute.PgExecutionRepository's query shape.
type Repository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRepository wraps a per-tenant sqlx connection.
func NewRepository(db *sqlx.DB, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger.With(zap.String("component", "execution-repository"))}
}

const createRecordQuery = `
INSERT INTO execution_records (
    id, job_id, processor_id, input, output, config, status
) VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at
`

// Create inserts r, assigning an ID if unset.
func (repo *Repository) Create(ctx context.Context, r *Record) error {
	if r.ID == "" {
		r.ID = ids.New()
	}

	inputJSON, err := r.inputJSON()
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	outputJSON, err := r.outputJSON()
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	configJSON, err := r.configJSON()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	row := repo.db.QueryRowxContext(ctx, createRecordQuery,
		r.ID, r.JobID, r.ProcessorID, inputJSON, outputJSON, configJSON, r.Status,
	)
	if err := row.Scan(&r.CreatedAt, &r.UpdatedAt); err != nil {
		repo.logger.Error("failed to create execution record", zap.String("job_id", r.JobID), zap.Error(err))
		return fmt.Errorf("create execution record: %w", err)
	}
	return nil
}

const updateRecordQuery = `
UPDATE execution_records SET
    output = $2,
    status = $3,
    duration_ms = $4,
    error = $5,
    tokens_used = $6,
    cost_credits = $7,
    started_at = $8,
    completed_at = $9,
    updated_at = NOW()
WHERE id = $1
RETURNING updated_at
`

// Update persists r's mutable fields after a step completes or fails.
func (repo *Repository) Update(ctx context.Context, r *Record) error {
	outputJSON, err := r.outputJSON()
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	row := repo.db.QueryRowxContext(ctx, updateRecordQuery,
		r.ID, outputJSON, r.Status, r.DurationMs, r.Error, r.TokensUsed, r.CostCredits,
		r.StartedAt, r.CompletedAt,
	)
	if err := row.Scan(&r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		repo.logger.Error("failed to update execution record", zap.String("id", r.ID), zap.Error(err))
		return fmt.Errorf("update execution record: %w", err)
	}
	return nil
}

const getRecordQuery = `
SELECT id, job_id, processor_id, input, output, config, duration_ms, error,
    tokens_used, cost_credits, status, created_at, updated_at, started_at, completed_at
FROM execution_records
WHERE id = $1
`

// Get loads an execution record by ID.
func (repo *Repository) Get(ctx context.Context, id string) (*Record, error) {
	r := &Record{}
	var inputJSON, outputJSON, configJSON []byte

	row := repo.db.QueryRowxContext(ctx, getRecordQuery, id)
	err := row.Scan(
		&r.ID, &r.JobID, &r.ProcessorID, &inputJSON, &outputJSON, &configJSON,
		&r.DurationMs, &r.Error, &r.TokensUsed, &r.CostCredits, &r.Status,
		&r.CreatedAt, &r.UpdatedAt, &r.StartedAt, &r.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get execution record: %w", err)
	}

	if err := unmarshalOrNil(inputJSON, &r.Input); err != nil {
		return nil, fmt.Errorf("unmarshal input: %w", err)
	}
	if err := unmarshalOrNil(outputJSON, &r.Output); err != nil {
		return nil, fmt.Errorf("unmarshal output: %w", err)
	}
	if err := unmarshalOrNil(configJSON, &r.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return r, nil
}

const listByJobQuery = `
SELECT id, job_id, processor_id, input, output, config, duration_ms, error,
    tokens_used, cost_credits, status, created_at, updated_at, started_at, completed_at
FROM execution_records
WHERE job_id = $1
ORDER BY created_at ASC
`

// ListByJob returns all execution records for a job, in step order.
func (repo *Repository) ListByJob(ctx context.Context, jobID string) ([]*Record, error) {
	rows, err := repo.db.QueryxContext(ctx, listByJobQuery, jobID)
	if err != nil {
		return nil, fmt.Errorf("list execution records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r := &Record{}
		var inputJSON, outputJSON, configJSON []byte
		err := rows.Scan(
			&r.ID, &r.JobID, &r.ProcessorID, &inputJSON, &outputJSON, &configJSON,
			&r.DurationMs, &r.Error, &r.TokensUsed, &r.CostCredits, &r.Status,
			&r.CreatedAt, &r.UpdatedAt, &r.StartedAt, &r.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan execution record: %w", err)
		}
		if err := unmarshalOrNil(inputJSON, &r.Input); err != nil {
			return nil, fmt.Errorf("unmarshal input: %w", err)
		}
		if err := unmarshalOrNil(outputJSON, &r.Output); err != nil {
			return nil, fmt.Errorf("unmarshal output: %w", err)
		}
		if err := unmarshalOrNil(configJSON, &r.Config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution records: %w", err)
	}
	return records, nil
}

func unmarshalOrNil(data []byte, m *map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, m)
}
