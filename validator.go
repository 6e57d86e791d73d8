package ucpschema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks payload against schema using the configured validation
// engine and returns every failure found, not just the first. A nil error
// with a non-nil *ValidateError never happens: conformance is reported by
// the returned error being nil.
func Validate(schema map[string]any, payload any) error {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	raw, err := json.Marshal(schema)
	if err != nil {
		return &SchemaError{Err: fmt.Errorf("schema not serializable: %w", err)}
	}
	const resourceID = "urn:ucp:resolved-schema"
	if err := compiler.AddResource(resourceID, bytes.NewReader(raw)); err != nil {
		return &SchemaError{Err: fmt.Errorf("invalid schema: %w", err)}
	}
	validator, err := compiler.Compile(resourceID)
	if err != nil {
		return &SchemaError{Err: fmt.Errorf("invalid schema: %w", err)}
	}

	payloadRaw, err := json.Marshal(payload)
	if err != nil {
		return &SchemaError{Err: fmt.Errorf("payload not serializable: %w", err)}
	}
	payloadDecoder := json.NewDecoder(bytes.NewReader(payloadRaw))
	payloadDecoder.UseNumber()
	var payloadDoc any
	if err := payloadDecoder.Decode(&payloadDoc); err != nil {
		return &SchemaError{Err: fmt.Errorf("payload not valid JSON: %w", err)}
	}

	if err := validator.Validate(payloadDoc); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return &SchemaError{Err: err}
		}
		return &ValidateError{Failures: flattenValidationError(ve)}
	}
	return nil
}

// flattenValidationError walks the engine's nested cause tree into the flat
// {path, message} list the external interface exposes.
func flattenValidationError(ve *jsonschema.ValidationError) []ValidationFailure {
	var out []ValidationFailure
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, ValidationFailure{
				Path:    e.InstanceLocation,
				Message: e.Message,
			})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return out
}
