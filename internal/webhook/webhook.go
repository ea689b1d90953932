// Package webhook delivers DocumentProcessingCompleted/Failed events to a
// campaign's configured WebhookURL, grounded on internal/cli.Client's
// http.Client usage and the teacher's hand-rolled exponential backoff in
// internal/database/providers/postgres.New (generalized here to use
// cenkalti/backoff/v4, already an indirect dependency via the AWS/restate
// SDK tree, promoted to direct use for a cleaner retry policy than a
// hand-rolled loop would give an outbound-delivery path).
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// EventType distinguishes the two deliveries spec §1 names.
type EventType string

const (
	EventDocumentProcessingCompleted EventType = "document.processing.completed"
	EventDocumentProcessingFailed    EventType = "document.processing.failed"
)

// Event is the payload delivered to a campaign's webhook URL.
type Event struct {
	Type       EventType `json:"type"`
	CampaignID string    `json:"campaign_id"`
	JobID      string    `json:"job_id"`
	DocumentID string    `json:"document_id"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Delivery is one append-only record of a Dispatch call: how many
// attempts it made and its final outcome.
type Delivery struct {
	ID           string          `json:"id" db:"id"`
	CampaignID   string          `json:"campaign_id" db:"campaign_id"`
	JobID        string          `json:"job_id" db:"job_id"`
	EventType    EventType       `json:"event_type" db:"event_type"`
	URL          string          `json:"url" db:"url"`
	Payload      json.RawMessage `json:"payload" db:"payload"`
	Attempt      int             `json:"attempt" db:"attempt"`
	Status       Status          `json:"status" db:"status"`
	ResponseCode int             `json:"response_code,omitempty" db:"response_code"`
	Error        string          `json:"error,omitempty" db:"error"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty" db:"delivered_at"`
}

// Status is a delivery attempt's outcome.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Store persists delivery attempts. *Repository (sqlx-backed, per-tenant)
// satisfies this; tests use a fake.
type Store interface {
	Record(ctx context.Context, d *Delivery) error
}

// errPermanent wraps a response status a destination is not expected to
// ever accept on retry (anything 4xx except 429, mirroring the posture
// most webhook vendors take toward client-error responses).
var errPermanent = fmt.Errorf("webhook: destination rejected delivery")

func handleErrorResponse(resp *http.Response) (statusCode int, err error) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	wrapped := fmt.Errorf("webhook delivery failed: status %d: %s", resp.StatusCode, body)
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return resp.StatusCode, fmt.Errorf("%w: %v", errPermanent, wrapped)
	}
	return resp.StatusCode, wrapped
}
