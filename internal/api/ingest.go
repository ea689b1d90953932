package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/api/models"
	"github.com/jaxxstorm/docuflow/internal/campaign"
	"github.com/jaxxstorm/docuflow/internal/document"
	"github.com/jaxxstorm/docuflow/internal/ids"
)

// maxIngestMemory bounds how much of a multipart upload is held in memory
// before the remainder spills to a temp file, matching net/http's own
// multipart default.
const maxIngestMemory = 32 << 20

// handleIngestDocument accepts a multipart file upload against a
// campaign's pipeline and creates the job that will execute it.
// @Summary Ingest a document
// @Description Uploads a document for processing through a campaign's pipeline
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param tenant path string true "Tenant slug"
// @Param campaign path string true "Campaign slug"
// @Param file formData file true "Document to ingest"
// @Success 202 {object} models.DocumentResponse "Document accepted for processing"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 404 {object} models.ErrorResponse "Tenant or campaign not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /v1/tenants/{tenant}/campaigns/{campaign}/documents [post]
func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := r.Header.Get("X-Request-ID")

	tenantSlug := chi.URLParam(r, "tenant")
	campaignSlug := chi.URLParam(r, "campaign")

	resources, err := s.resources.Resolve(ctx, tenantSlug)
	if err != nil {
		s.writeErrorResponse(w, http.StatusNotFound, "Tenant not found", nil, requestID)
		return
	}

	c, err := resources.Campaigns.GetBySlug(ctx, campaignSlug)
	if err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "Campaign not found", nil, requestID)
			return
		}
		s.logger.Error("failed to load campaign", zap.Error(err), zap.String("request_id", requestID))
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to load campaign", nil, requestID)
		return
	}
	if c.Status != campaign.StatusActive {
		s.writeErrorResponse(w, http.StatusBadRequest, "Campaign is not active", nil, requestID)
		return
	}

	if err := r.ParseMultipartForm(maxIngestMemory); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid multipart form", []string{err.Error()}, requestID)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "file is required", []string{err.Error()}, requestID)
		return
	}
	defer file.Close()

	if c.MaxFileSize > 0 && header.Size > c.MaxFileSize {
		s.writeErrorResponse(w, http.StatusBadRequest, "file exceeds campaign's maximum size", nil, requestID)
		return
	}
	contentType := header.Header.Get("Content-Type")
	if len(c.AllowedMimeTypes) > 0 && !mimeAllowed(contentType, c.AllowedMimeTypes) {
		s.writeErrorResponse(w, http.StatusBadRequest, "file type not allowed for this campaign", nil, requestID)
		return
	}

	d := &document.Document{
		PublicUUID: ids.New(),
		CampaignID: c.ID,
		Filename:   header.Filename,
		Mime:       contentType,
		Disk:       "default",
		Status:     document.StatusPending,
	}

	hasher := sha256.New()
	d.StoragePath = fmt.Sprintf("documents/%s/%s/%s", c.ID, d.PublicUUID, header.Filename)
	size, err := resources.Storage.Store().Put(ctx, d.StoragePath, io.TeeReader(file, hasher), contentType)
	if err != nil {
		s.logger.Error("failed to store document", zap.Error(err), zap.String("request_id", requestID))
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to store document", nil, requestID)
		return
	}
	d.Size = size
	d.ContentHash = hex.EncodeToString(hasher.Sum(nil))

	if err := resources.Documents.Create(ctx, d); err != nil {
		s.logger.Error("failed to create document record", zap.Error(err), zap.String("request_id", requestID))
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to create document", nil, requestID)
		return
	}

	if _, err := resources.Jobs.Create(ctx, c, d.ID); err != nil {
		s.logger.Error("failed to create job", zap.Error(err), zap.String("request_id", requestID))
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to dispatch document for processing", nil, requestID)
		return
	}

	s.logger.Info("document ingested",
		zap.String("tenant", tenantSlug),
		zap.String("campaign", campaignSlug),
		zap.String("document_id", d.PublicUUID),
	)

	resp := models.ToDocumentResponse(d)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(resp)
}

// handleGetDocumentStatus retrieves a document's current processing status.
// @Summary Get document status
// @Description Retrieves the processing status and metadata for a document
// @Tags documents
// @Produce json
// @Param tenant path string true "Tenant slug"
// @Param id path string true "Document public UUID"
// @Success 200 {object} models.DocumentResponse "Document found"
// @Failure 404 {object} models.ErrorResponse "Tenant or document not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /v1/tenants/{tenant}/documents/{id} [get]
func (s *Server) handleGetDocumentStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := r.Header.Get("X-Request-ID")

	tenantSlug := chi.URLParam(r, "tenant")
	publicUUID := chi.URLParam(r, "id")

	resources, err := s.resources.Resolve(ctx, tenantSlug)
	if err != nil {
		s.writeErrorResponse(w, http.StatusNotFound, "Tenant not found", nil, requestID)
		return
	}

	d, err := resources.Documents.GetByPublicUUID(ctx, publicUUID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			s.writeErrorResponse(w, http.StatusNotFound, "Document not found", nil, requestID)
			return
		}
		s.logger.Error("failed to get document", zap.Error(err), zap.String("request_id", requestID))
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve document", nil, requestID)
		return
	}

	resp := models.ToDocumentResponse(d)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// mimeAllowed reports whether contentType matches one of allowed, ignoring
// any parameters on contentType (e.g. "; charset=utf-8").
func mimeAllowed(contentType string, allowed []string) bool {
	base, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		base = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	for _, a := range allowed {
		if strings.EqualFold(a, base) {
			return true
		}
	}
	return false
}
