// Package api provides the HTTP API server and request handlers.
// @title Docuflow API
// @version 1.0
// @description HTTP API for the docuflow document pipeline engine
// @basePath /v1
// @schemes http https
// @consumes application/json
// @produces application/json
// @consumes multipart/form-data
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jaxxstorm/docuflow/internal/apiversion"
	"github.com/jaxxstorm/docuflow/internal/callback"
	"github.com/jaxxstorm/docuflow/internal/campaign"
	"github.com/jaxxstorm/docuflow/internal/config"
	"github.com/jaxxstorm/docuflow/internal/database"
	"github.com/jaxxstorm/docuflow/internal/document"
	"github.com/jaxxstorm/docuflow/internal/job"
	"github.com/jaxxstorm/docuflow/internal/logger"
	"github.com/jaxxstorm/docuflow/internal/storage"
	"github.com/jaxxstorm/docuflow/internal/tenant"
)

// TenantResources bundles the per-tenant-database collaborators a request
// against a specific tenant needs.
type TenantResources struct {
	Campaigns *campaign.Repository
	Documents *document.Repository
	Jobs      *job.Manager
	Storage   *storage.Adapter
}

// TenantResourceResolver dials (or returns a cached) per-tenant database
// connection and builds the repositories/adapters bound to it, given a
// tenant's slug. Server depends on this narrow interface rather than a
// concrete connection pool so it can be exercised in tests without a
// database.
type TenantResourceResolver interface {
	Resolve(ctx context.Context, tenantSlug string) (*TenantResources, error)
}

// CallbackStore is the lookup/record surface the vendor callback endpoint
// needs from the central CallbackRegistry.
type CallbackStore interface {
	Lookup(ctx context.Context, transactionID string) (*callback.Mapping, error)
	RecordCallback(ctx context.Context, transactionID string, result json.RawMessage, errorMessage *string) error
}

// Server represents the HTTP API server
type Server struct {
	router     *chi.Mux
	server     *http.Server
	provider   database.Provider
	tenantRepo tenant.Repository
	resources  TenantResourceResolver
	callbacks  CallbackStore
	controller ControllerHealthChecker
	logger     *zap.Logger
}

// ControllerHealthChecker defines the interface for checking controller health
type ControllerHealthChecker interface {
	IsReady() bool
}

// New creates a new HTTP API server
func New(cfg *config.HTTPConfig, dbProvider database.Provider, tenantRepo tenant.Repository, resources TenantResourceResolver, callbacks CallbackStore, log *zap.Logger) *Server {
	log = log.With(zap.String("component", "api"))

	r := chi.NewRouter()

	// Base middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.HTTPMiddleware(log))
	r.Use(logger.CorrelationIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		router:     r,
		provider:   dbProvider,
		tenantRepo: tenantRepo,
		resources:  resources,
		callbacks:  callbacks,
		controller: nil, // Set later with SetController()
		logger:     log,
		server: &http.Server{
			Addr:         cfg.Address(),
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}

	// Register routes
	srv.registerRoutes()

	return srv
}

// SetController sets the controller health checker
func (s *Server) SetController(controller ControllerHealthChecker) {
	s.controller = controller
}

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)

	s.router.Get("/kyc/callback/{uuid}", s.handleKYCCallback)

	s.router.Route("/"+apiversion.Current, func(r chi.Router) {
		r.Get("/swagger.json", s.handleSwaggerSpec)
		r.Get("/docs", s.handleDocsUI)

		// Tenant routes
		r.Post("/tenants", s.handleCreateTenant)
		r.Get("/tenants", s.handleListTenants)
		r.Get("/tenants/{id}", s.handleGetTenant)
		r.Put("/tenants/{id}", s.handleUpdateTenant)
		r.Delete("/tenants/{id}", s.handleDeleteTenant)

		// Ingest/status routes
		r.Post("/tenants/{tenant}/campaigns/{campaign}/documents", s.handleIngestDocument)
		r.Get("/tenants/{tenant}/documents/{id}", s.handleGetDocumentStatus)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Handle("/", http.HandlerFunc(s.handleVersionRequired))
		r.Handle("/*", http.HandlerFunc(s.handleVersionRequired))
	})

	s.router.Route("/v{version}", func(r chi.Router) {
		r.Handle("/", http.HandlerFunc(s.handleUnsupportedVersion))
		r.Handle("/*", http.HandlerFunc(s.handleUnsupportedVersion))
	})
}

// handleHealth is the liveness check endpoint
// @Summary Health check
// @Description Returns server health status
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string "Server health status"
// @Router /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleReady is the readiness check endpoint
// @Summary Readiness check
// @Description Returns server readiness status and dependency health
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{} "Server is ready"
// @Failure 503 {object} map[string]interface{} "Server is unavailable"
// @Router /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := make(map[string]string)

	// Check database health
	if err := s.provider.Health(ctx); err != nil {
		s.logger.Warn("readiness check failed: database unhealthy", zap.Error(err))
		checks["database"] = "unhealthy"
		response := map[string]interface{}{
			"status": "unavailable",
			"checks": checks,
			"error":  err.Error(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(response)
		return
	}
	checks["database"] = "healthy"

	// Check controller health if enabled
	if s.controller != nil {
		if s.controller.IsReady() {
			checks["controller"] = "ready"
		} else {
			checks["controller"] = "not_ready"
			response := map[string]interface{}{
				"status": "unavailable",
				"checks": checks,
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(response)
			return
		}
	}

	response := map[string]interface{}{
		"status": "ready",
		"checks": checks,
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleSwaggerSpec serves the OpenAPI specification
// @Summary OpenAPI specification
// @Description Returns the OpenAPI 3.0 specification for the API
// @Tags documentation
// @Produce json
// @Success 200 {object} map[string]interface{} "OpenAPI specification"
// @Router /v1/swagger.json [get]
func (s *Server) handleSwaggerSpec(w http.ResponseWriter, r *http.Request) {
	// Note: This handler serves the generated swagger.json file
	// The file is generated by swag init and should be served from the docs directory
	http.ServeFile(w, r, "docs/swagger.json")
}

// handleDocsUI serves the API documentation UI
// @Summary API documentation
// @Description Serves the interactive API documentation using Redoc
// @Tags documentation
// @Produce html
// @Success 200 "API documentation HTML page"
// @Router /v1/docs [get]
func (s *Server) handleDocsUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	html := `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Docuflow API Docs</title>
  <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
  <style>
    html, body {
      height: 100%;
      margin: 0;
      padding: 0;
      font-family: sans-serif;
    }
    #redoc-container {
      height: 100%;
    }
  </style>
</head>
<body>
  <div id="redoc-container"></div>
  <script>
    Redoc.init('/v1/swagger.json', {
      scrollYOffset: 50,
      hideLoading: false,
    }, document.getElementById('redoc-container'));
  </script>
</body>
</html>`
	w.Write([]byte(html))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("server shutdown failed", zap.Error(err))
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server shut down successfully")
	return nil
}
