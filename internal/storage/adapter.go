package storage

import (
	"context"
	"fmt"
)

// ExecutionLocator resolves a document to the execution_id of the most
// recent completed processor invocation of a given category, so a caller
// that only has a document can still find the right artifact without
// knowing the job/execution schema. No implementation of it exists in this
// repository: tenantdb builds its Adapter with a nil locator, so
// LatestArtifactPath returns an error there.
type ExecutionLocator interface {
	LatestCompletedExecutionID(ctx context.Context, documentID, processorCategory string) (string, error)
}

// Adapter wraps an ObjectStore with the artifact addressing convention
// used throughout the pipeline: artifacts are namespaced by
// (execution_id, collection_name), matching spec's "execution artifacts
// are addressed by (execution_id, collection_name)".
type Adapter struct {
	store   ObjectStore
	locator ExecutionLocator
}

// NewAdapter wraps store with artifact-path conventions. locator may be
// nil if the caller never needs LatestArtifactPath.
func NewAdapter(store ObjectStore, locator ExecutionLocator) *Adapter {
	return &Adapter{store: store, locator: locator}
}

// ArtifactPath returns the canonical storage path for one collection of
// one execution's artifacts.
func ArtifactPath(executionID, collectionName string) string {
	return fmt.Sprintf("executions/%s/%s", executionID, collectionName)
}

// Store returns the underlying ObjectStore for direct Put/Get/Delete/URL
// calls keyed by an already-known path.
func (a *Adapter) Store() ObjectStore { return a.store }

// LatestArtifactPath finds the most recent completed execution of
// processorCategory for documentID's latest job, returning the storage
// path for its collectionName artifact.
func (a *Adapter) LatestArtifactPath(ctx context.Context, documentID, processorCategory, collectionName string) (string, error) {
	if a.locator == nil {
		return "", fmt.Errorf("storage: adapter has no execution locator configured")
	}
	executionID, err := a.locator.LatestCompletedExecutionID(ctx, documentID, processorCategory)
	if err != nil {
		return "", err
	}
	return ArtifactPath(executionID, collectionName), nil
}
