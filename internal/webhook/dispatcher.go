package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/ids"
)

// Dispatcher delivers Events over HTTP with retry/backoff, persisting
// one Delivery per Dispatch call (its attempt count and final outcome)
// through Store so a delivery's history survives a restart.
type Dispatcher struct {
	httpClient *http.Client
	store      Store
	maxRetries uint64
	logger     *zap.Logger
}

// New builds a Dispatcher. maxRetries bounds the exponential backoff
// retry loop per delivery; 0 disables retries after the first attempt.
func New(store Store, maxRetries uint64, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		store:      store,
		maxRetries: maxRetries,
		logger:     logger.With(zap.String("component", "webhook-dispatcher")),
	}
}

// Dispatch delivers ev to url, retrying transient failures with
// exponential backoff up to d.maxRetries times after the first attempt.
// A permanent failure (4xx other than 429) or exhausting the retry budget
// both record a failed Delivery and return an error; the caller
// (tenantdb's job notifier, on job completion or failure) runs it in the
// background and only logs that error, so the job is never failed over it.
func (d *Dispatcher) Dispatch(ctx context.Context, campaignID, jobID, url string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.maxRetries)
	policy = backoff.WithContext(policy, ctx)

	attempt := 0
	var lastStatus int
	var lastErr error

	op := func() error {
		attempt++
		status, err := d.send(ctx, url, payload)
		lastStatus = status
		lastErr = err
		if err != nil && errors.Is(err, errPermanent) {
			return backoff.Permanent(err)
		}
		return err
	}

	deliveryErr := backoff.Retry(op, policy)

	delivery := &Delivery{
		ID:         ids.New(),
		CampaignID: campaignID,
		JobID:      jobID,
		EventType:  ev.Type,
		URL:        url,
		Payload:    json.RawMessage(payload),
		Attempt:    attempt,
	}
	if lastStatus != 0 {
		delivery.ResponseCode = lastStatus
	}

	if deliveryErr != nil {
		delivery.Status = StatusFailed
		delivery.Error = lastErr.Error()
		d.logger.Warn("webhook delivery exhausted retries",
			zap.String("campaign_id", campaignID), zap.String("job_id", jobID),
			zap.Int("attempts", attempt), zap.Error(deliveryErr))
	} else {
		now := time.Now()
		delivery.Status = StatusDelivered
		delivery.DeliveredAt = &now
	}

	if recordErr := d.store.Record(ctx, delivery); recordErr != nil {
		d.logger.Error("failed to persist webhook delivery attempt", zap.Error(recordErr))
	}

	return deliveryErr
}

func (d *Dispatcher) send(ctx context.Context, url string, payload []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	return handleErrorResponse(resp)
}
