package processor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry stores registered processor handlers, mirroring
// compute.Registry's mutex-guarded map shape.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	catalog  CatalogLookup
	logger   *zap.Logger
}

// NewRegistry creates an empty registry. catalog may be nil; without it,
// Get only resolves bare registered handler names.
func NewRegistry(catalog CatalogLookup, logger *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		catalog:  catalog,
		logger:   logger.With(zap.String("component", "processor-registry")),
	}
}

// Register adds a handler under its own Name().
func (r *Registry) Register(h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := h.Name()
	if name == "" {
		return fmt.Errorf("handler name cannot be empty")
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrHandlerConflict, name)
	}

	r.handlers[name] = h
	r.logger.Info("registered processor handler", zap.String("handler", name))
	return nil
}

// Has reports whether name is a statically registered handler name (not
// a catalog slug).
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.handlers[name]
	return exists
}

// List returns all statically registered handler names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get resolves a pipeline step's processor reference to a Handler. It
// first checks the in-memory registered-handler map by bare name; on
// miss, it consults the tenant-scoped catalog (if configured) and
// resolves the catalog row's handler_key against the same map. A catalog
// row whose handler_key is not registered is a ConfigurationError-class
// failure the caller should treat as non-retryable.
func (r *Registry) Get(ctx context.Context, slug string) (Handler, error) {
	if h, ok := r.getRegistered(slug); ok {
		return h, nil
	}

	if r.catalog == nil {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, slug)
	}

	entry, err := r.catalog.Lookup(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCatalogEntryNotFound, slug, err)
	}

	h, ok := r.getRegistered(entry.HandlerKey)
	if !ok {
		return nil, fmt.Errorf("%w: slug %s -> handler_key %s", ErrHandlerKeyUnresolved, slug, entry.HandlerKey)
	}
	return h, nil
}

func (r *Registry) getRegistered(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}
