package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jaxxstorm/docuflow/internal/ids"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a job does not exist in the bound tenant
// database.
var ErrNotFound = errors.New("job: not found")

// Repository persists jobs in the per-tenant database.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps a per-tenant sqlx connection.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const createJobQuery = `
INSERT INTO jobs (
    id, public_uuid, campaign_id, document_id, pipeline, current_processor_index,
    queue_name, attempts, max_attempts, error_log, status, workflow_execution_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING created_at, updated_at
`

// Create inserts j, assigning an ID if unset.
func (r *Repository) Create(ctx context.Context, j *Job) error {
	if j.ID == "" {
		j.ID = ids.New()
	}

	pipelineJSON, err := json.Marshal(j.Pipeline)
	if err != nil {
		return fmt.Errorf("marshal pipeline: %w", err)
	}
	errorLogJSON, err := json.Marshal(j.ErrorLog)
	if err != nil {
		return fmt.Errorf("marshal error_log: %w", err)
	}

	row := r.db.QueryRowxContext(ctx, createJobQuery,
		j.ID, j.PublicUUID, j.CampaignID, j.DocumentID, pipelineJSON, j.CurrentProcessorIdx,
		j.QueueName, j.Attempts, j.MaxAttempts, errorLogJSON, j.Status, j.WorkflowExecutionID,
	)
	if err := row.Scan(&j.CreatedAt, &j.UpdatedAt); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

const getJobQuery = `
SELECT id, public_uuid, campaign_id, document_id, pipeline, current_processor_index,
    queue_name, attempts, max_attempts, error_log, status, workflow_execution_id,
    created_at, updated_at, started_at, completed_at
FROM jobs
WHERE id = $1
`

// Get loads a job by ID.
func (r *Repository) Get(ctx context.Context, id string) (*Job, error) {
	return r.scanOne(ctx, getJobQuery, id)
}

const getActiveJobByDocumentQuery = `
SELECT id, public_uuid, campaign_id, document_id, pipeline, current_processor_index,
    queue_name, attempts, max_attempts, error_log, status, workflow_execution_id,
    created_at, updated_at, started_at, completed_at
FROM jobs
WHERE document_id = $1 AND status IN ('pending', 'running')
ORDER BY created_at DESC
LIMIT 1
`

// GetActiveByDocument returns the document's current non-terminal job, if
// any (spec §3: "at most one non-terminal job" per document).
func (r *Repository) GetActiveByDocument(ctx context.Context, documentID string) (*Job, error) {
	return r.scanOne(ctx, getActiveJobByDocumentQuery, documentID)
}

func (r *Repository) scanOne(ctx context.Context, query string, arg interface{}) (*Job, error) {
	j := &Job{}
	var pipelineJSON, errorLogJSON []byte

	row := r.db.QueryRowxContext(ctx, query, arg)
	err := row.Scan(
		&j.ID, &j.PublicUUID, &j.CampaignID, &j.DocumentID, &pipelineJSON, &j.CurrentProcessorIdx,
		&j.QueueName, &j.Attempts, &j.MaxAttempts, &errorLogJSON, &j.Status, &j.WorkflowExecutionID,
		&j.CreatedAt, &j.UpdatedAt, &j.StartedAt, &j.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	if err := json.Unmarshal(pipelineJSON, &j.Pipeline); err != nil {
		return nil, fmt.Errorf("unmarshal pipeline: %w", err)
	}
	if len(errorLogJSON) > 0 {
		if err := json.Unmarshal(errorLogJSON, &j.ErrorLog); err != nil {
			return nil, fmt.Errorf("unmarshal error_log: %w", err)
		}
	}
	return j, nil
}

const updateJobQuery = `
UPDATE jobs SET
    current_processor_index = $2,
    attempts = $3,
    error_log = $4,
    status = $5,
    workflow_execution_id = $6,
    started_at = $7,
    completed_at = $8,
    updated_at = NOW()
WHERE id = $1
RETURNING updated_at
`

// Update persists j's mutable fields (status, current_processor_index,
// attempts, error_log, timestamps). This is the write path job.Manager
// and the controller's DispatchMonitor use at every step boundary so a
// crash never loses more than the in-flight step.
func (r *Repository) Update(ctx context.Context, j *Job) error {
	errorLogJSON, err := json.Marshal(j.ErrorLog)
	if err != nil {
		return fmt.Errorf("marshal error_log: %w", err)
	}

	row := r.db.QueryRowxContext(ctx, updateJobQuery,
		j.ID, j.CurrentProcessorIdx, j.Attempts, errorLogJSON, j.Status, j.WorkflowExecutionID,
		j.StartedAt, j.CompletedAt,
	)
	if err := row.Scan(&j.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

const listForDispatchQuery = `
SELECT id, public_uuid, campaign_id, document_id, pipeline, current_processor_index,
    queue_name, attempts, max_attempts, error_log, status, workflow_execution_id,
    created_at, updated_at, started_at, completed_at
FROM jobs
WHERE status IN ('pending', 'running')
ORDER BY created_at ASC
`

// ListForDispatch returns jobs the scheduler should consider advancing,
// the per-tenant analog of tenant.Repository.ListActiveTenants.
func (r *Repository) ListForDispatch(ctx context.Context) ([]*Job, error) {
	rows, err := r.db.QueryxContext(ctx, listForDispatchQuery)
	if err != nil {
		return nil, fmt.Errorf("list jobs for dispatch: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j := &Job{}
		var pipelineJSON, errorLogJSON []byte
		err := rows.Scan(
			&j.ID, &j.PublicUUID, &j.CampaignID, &j.DocumentID, &pipelineJSON, &j.CurrentProcessorIdx,
			&j.QueueName, &j.Attempts, &j.MaxAttempts, &errorLogJSON, &j.Status, &j.WorkflowExecutionID,
			&j.CreatedAt, &j.UpdatedAt, &j.StartedAt, &j.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if err := json.Unmarshal(pipelineJSON, &j.Pipeline); err != nil {
			return nil, fmt.Errorf("unmarshal pipeline: %w", err)
		}
		if len(errorLogJSON) > 0 {
			if err := json.Unmarshal(errorLogJSON, &j.ErrorLog); err != nil {
				return nil, fmt.Errorf("unmarshal error_log: %w", err)
			}
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}
