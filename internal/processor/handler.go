// Package processor defines the processor plugin contract and registry
// document-processing steps are dispatched through. It mirrors
// internal/compute's Provider/Registry shape field-for-field, re-themed
// from infrastructure provisioning to document processing.
package processor

import (
	"context"
	"encoding/json"

	"github.com/jaxxstorm/docuflow/internal/document"
)

// ProcessorContext carries the per-invocation context a Handler needs
// beyond the document and its own config: the job/step position and the
// outputs of prior steps in the pipeline.
type ProcessorContext struct {
	JobID            string
	StepIndex        int
	PreviousOutputs  map[string]map[string]interface{} // keyed by processor slug
	ResolveCredential func(ctx context.Context, key string) (string, error)
}

// Result is what a Handler returns on a successful Process call.
type Result struct {
	Output       map[string]interface{}
	TokensUsed   int
	CostCredits  float64
	ArtifactRefs []string // collection names written via the storage adapter
}

// Handler is the contract every document processor implements.
type Handler interface {
	// Name returns the unique identifier this handler is registered
	// under. Examples: "ocr", "classify", "kyc-verify".
	Name() string

	// CanProcess reports whether this handler is able to operate on d
	// (mime type, size, or other static precondition).
	CanProcess(d *document.Document) bool

	// Process executes one pipeline step against d using the step's
	// config and the invocation context.
	Process(ctx context.Context, d *document.Document, config json.RawMessage, pctx ProcessorContext) (Result, error)
}

// OutputSchemaProvider is an optional interface a Handler may implement
// to have its result validated against a JSON Schema before being
// accepted (spec §4.7 step 8). Mirrors compute.Provider's
// ConfigSchema/ConfigDefaults optional-capability pattern.
type OutputSchemaProvider interface {
	OutputSchema() json.RawMessage
}

// ConfigSchemaProvider is an optional interface a Handler may implement
// to have its step config validated before Process is called.
type ConfigSchemaProvider interface {
	ConfigSchema() json.RawMessage
	ConfigDefaults() json.RawMessage
}

// DependencyDeclarer is an optional interface a Handler may implement to
// declare which other processor slugs in the pipeline must have
// completed before this one may run.
type DependencyDeclarer interface {
	DependencySlugs() []string
}
