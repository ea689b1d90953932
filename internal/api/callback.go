package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// handleKYCCallback is the public, unauthenticated endpoint vendors call
// back on when an out-of-band transaction (a KYC check, a credit pull)
// resolves. It always responds 200 regardless of downstream workflow
// state: a vendor retrying on a non-2xx response would otherwise pile up
// duplicate deliveries against a mapping that already resumed.
// @Summary Vendor callback
// @Description Public callback endpoint for external KYC/verification vendors
// @Tags callbacks
// @Produce json
// @Param uuid path string true "Transaction ID"
// @Success 200 {object} map[string]string "Callback acknowledged"
// @Router /kyc/callback/{uuid} [get]
func (s *Server) handleKYCCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transactionID := chi.URLParam(r, "uuid")

	var errorMessage *string
	if msg := r.URL.Query().Get("error"); msg != "" {
		errorMessage = &msg
	}

	var result json.RawMessage
	if raw := r.URL.Query().Get("result"); raw != "" {
		result = json.RawMessage(raw)
	} else {
		result = json.RawMessage(`{}`)
	}

	if err := s.callbacks.RecordCallback(ctx, transactionID, result, errorMessage); err != nil {
		s.logger.Warn("callback delivery failed",
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "acknowledged"})
}
