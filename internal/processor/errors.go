package processor

import "errors"

var (
	// ErrHandlerNotFound is returned when a handler is not registered.
	ErrHandlerNotFound = errors.New("processor handler not found")

	// ErrHandlerConflict is returned when registering a duplicate name.
	ErrHandlerConflict = errors.New("processor handler already registered")

	// ErrCatalogEntryNotFound is returned when a pipeline step references
	// a processor slug that has no catalog row for the bound tenant.
	ErrCatalogEntryNotFound = errors.New("processor catalog entry not found")

	// ErrHandlerKeyUnresolved is returned when a catalog row's
	// handler_key does not match any statically registered Handler.
	ErrHandlerKeyUnresolved = errors.New("processor catalog handler_key does not resolve to a registered handler")
)
