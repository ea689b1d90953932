// Package document implements the Document entity: the record of one
// uploaded file moving through a campaign's pipeline.
package document

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status represents a document's position in its processing lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// ValidTransitions mirrors tenant.ValidTransitions' shape, populated with
// the document state machine's own edges (spec: pending may bypass the
// queue straight into processing, or resolve directly to a terminal
// state for zero-step pipelines).
var ValidTransitions = map[Status][]Status{
	StatusPending:    {StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled},
	StatusQueued:     {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {},
	StatusFailed:     {},
	StatusCancelled:  {},
}

// IsValid reports whether s is a known document status.
func (s Status) IsValid() bool {
	_, ok := ValidTransitions[s]
	return ok
}

// IsTerminal reports whether s has no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether s may transition to to.
func (s Status) CanTransition(to Status) bool {
	allowed, exists := ValidTransitions[s]
	if !exists {
		return false
	}
	for _, v := range allowed {
		if v == to {
			return true
		}
	}
	return false
}

// Document is one uploaded file moving through a campaign's pipeline.
type Document struct {
	ID           string                 `json:"id" db:"id"`
	PublicUUID   string                 `json:"public_uuid" db:"public_uuid"`
	CampaignID   string                 `json:"campaign_id" db:"campaign_id"`
	UserID       string                 `json:"user_id,omitempty" db:"user_id"`
	Filename     string                 `json:"filename" db:"filename"`
	Mime         string                 `json:"mime" db:"mime"`
	Size         int64                  `json:"size" db:"size"`
	StoragePath  string                 `json:"storage_path" db:"storage_path"`
	Disk         string                 `json:"disk" db:"disk"`
	ContentHash  string                 `json:"content_hash" db:"content_hash"`
	Status       Status                 `json:"status" db:"status"`
	Metadata     map[string]interface{} `json:"metadata,omitempty" db:"-"`
	RetryCount   int                    `json:"retry_count" db:"retry_count"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at" db:"updated_at"`
	ProcessedAt  *time.Time             `json:"processed_at,omitempty" db:"processed_at"`
	FailedAt     *time.Time             `json:"failed_at,omitempty" db:"failed_at"`
	DeletedAt    *time.Time             `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Validate checks required fields before a Document is persisted.
func (d *Document) Validate() error {
	if d.CampaignID == "" {
		return fmt.Errorf("campaign_id is required")
	}
	if d.Filename == "" {
		return fmt.Errorf("filename is required")
	}
	if d.StoragePath == "" {
		return fmt.Errorf("storage_path is required")
	}
	if d.Status == "" {
		return fmt.Errorf("status is required")
	}
	if !d.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", d.Status)
	}
	return nil
}

// IsDeleted reports whether the document has been soft-deleted.
func (d *Document) IsDeleted() bool {
	return d.DeletedAt != nil
}

// MergeMetadata merges well-known processor outputs (OCR text,
// classification category, extracted fields) into the document's
// metadata map, keyed by processor slug per spec §4.7 step 9.
func (d *Document) MergeMetadata(processorSlug string, output map[string]interface{}) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]interface{})
	}
	d.Metadata[processorSlug] = output
}

// MetadataJSON marshals Metadata for storage in a jsonb column.
func (d *Document) MetadataJSON() ([]byte, error) {
	if len(d.Metadata) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(d.Metadata)
}
