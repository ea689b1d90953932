package models

import (
	"time"

	"github.com/jaxxstorm/docuflow/internal/document"
)

// DocumentResponse is a document as rendered in API responses.
type DocumentResponse struct {
	ID          string                 `json:"id"`
	CampaignID  string                 `json:"campaign_id"`
	Filename    string                 `json:"filename"`
	Mime        string                 `json:"mime"`
	Size        int64                  `json:"size"`
	Status      string                 `json:"status"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	FailedAt    *time.Time             `json:"failed_at,omitempty"`
}

// ToDocumentResponse converts a domain document to an API response,
// keyed by its externally visible public UUID rather than its internal ID.
func ToDocumentResponse(d *document.Document) DocumentResponse {
	return DocumentResponse{
		ID:          d.PublicUUID,
		CampaignID:  d.CampaignID,
		Filename:    d.Filename,
		Mime:        d.Mime,
		Size:        d.Size,
		Status:      string(d.Status),
		Metadata:    d.Metadata,
		RetryCount:  d.RetryCount,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		ProcessedAt: d.ProcessedAt,
		FailedAt:    d.FailedAt,
	}
}
