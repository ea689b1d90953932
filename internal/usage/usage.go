// Package usage implements UsageEvent, an append-only metering record
// emitted per pipeline step so campaigns can be billed or rate-limited on
// actual processor consumption (pages OCR'd, API calls made to a vendor,
// and so on) rather than job count alone.
package usage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is one append-only metering record.
type Event struct {
	ID         string          `json:"id" db:"id"`
	CampaignID string          `json:"campaign_id" db:"campaign_id"`
	JobID      string          `json:"job_id,omitempty" db:"job_id"`
	Metric     string          `json:"metric" db:"metric"`
	Quantity   float64         `json:"quantity" db:"quantity"`
	Unit       string          `json:"unit" db:"unit"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Validate checks the fields required for any usage event.
func (e *Event) Validate() error {
	if e.CampaignID == "" {
		return fmt.Errorf("campaign_id is required")
	}
	if e.Metric == "" {
		return fmt.Errorf("metric is required")
	}
	if e.Unit == "" {
		return fmt.Errorf("unit is required")
	}
	if e.Quantity < 0 {
		return fmt.Errorf("quantity must be non-negative, got %v", e.Quantity)
	}
	return nil
}
