package processor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidationError captures JSON Schema validation issues, same
// shape as compute.SchemaValidationError.
type SchemaValidationError struct {
	Details []string
}

func (e *SchemaValidationError) Error() string {
	if len(e.Details) == 0 {
		return "schema validation failed"
	}
	return fmt.Sprintf("schema validation failed: %s", e.Details[0])
}

// ValidateAgainstSchema validates payload against schema (draft 2020-12).
// Used both for a processor's step config (before Process is called) and
// its result output (spec §4.7 step 8), since both are "validate this
// JSON value against this JSON Schema" with identical semantics.
func ValidateAgainstSchema(schema, payload json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var value interface{}
	if err := json.Unmarshal(payload, &value); err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}

	if err := compiled.Validate(value); err != nil {
		if vErr, ok := err.(*jsonschema.ValidationError); ok {
			return &SchemaValidationError{Details: flattenValidationErrors(vErr)}
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func flattenValidationErrors(err *jsonschema.ValidationError) []string {
	var details []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		location := e.InstanceLocation
		if location == "" {
			location = "/"
		}
		details = append(details, fmt.Sprintf("%s: %s", location, e.Message))
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(err)
	return details
}
