package ucpschema

import "strings"

// Schema is the untyped representation of a JSON Schema document or node.
// Kept intentionally free of any particular JSON Schema library so this
// package can hand its output to whichever validation engine the caller
// wants (see Validate for the one this repository wires by default).
type Schema = map[string]any

// Direction selects which of the two UCP annotation keys applies:
// ucp_request or ucp_response.
type Direction string

const (
	Request  Direction = "request"
	Response Direction = "response"
)

// AnnotationKey returns the schema keyword carrying this direction's
// visibility annotation.
func (d Direction) AnnotationKey() string {
	switch d {
	case Request:
		return "ucp_request"
	case Response:
		return "ucp_response"
	default:
		return ""
	}
}

// FromRequestFlag mirrors the CLI's mutually-exclusive --request/--response
// flags: true means Request, false means Response.
func FromRequestFlag(isRequest bool) Direction {
	if isRequest {
		return Request
	}
	return Response
}

// Visibility is the resolved effect an annotation has on a property for a
// given (direction, operation) pair.
type Visibility int

const (
	// Include leaves the property and its required-array membership as-is.
	// This is the zero value: a property with no annotation for the
	// requested operation is Include by default.
	Include Visibility = iota
	// Omit removes the property from both properties and required.
	Omit
	// Required keeps the property and adds it to required.
	Required
	// Optional keeps the property and removes it from required.
	Optional
)

// ParseVisibility parses one of the three annotation string values.
// ok is false for any other string, which callers must treat as a fatal
// SchemaError ("unknown visibility").
func ParseVisibility(s string) (v Visibility, ok bool) {
	switch s {
	case "omit":
		return Omit, true
	case "required":
		return Required, true
	case "optional":
		return Optional, true
	default:
		return Include, false
	}
}

// conventionalOperations are the operation names the linter recognizes
// without warning; the resolver itself treats operation names opaquely.
var conventionalOperations = map[string]struct{}{
	"create":   {},
	"read":     {},
	"update":   {},
	"complete": {},
	"delete":   {},
}

// IsConventionalOperation reports whether op is one of the operation names
// commonly used in UCP schemas.
func IsConventionalOperation(op string) bool {
	_, ok := conventionalOperations[strings.ToLower(op)]
	return ok
}

// ResolveOptions parameterizes annotation resolution (§4.1) and, when
// Strict is set, closure injection (§4.5).
type ResolveOptions struct {
	Direction Direction
	// Operation is normalized to lowercase for case-insensitive matching,
	// matching UCP's convention that operation names are case-folded at
	// the boundary.
	Operation string
	// Strict, when true, additionally sets additionalProperties: false on
	// every object schema node that doesn't already forbid it.
	Strict bool
}

// NewResolveOptions builds options with strict mode disabled, which is the
// default: UCP schemas validate known fields but allow additional
// properties unless the caller opts into strict mode.
func NewResolveOptions(direction Direction, operation string) ResolveOptions {
	return ResolveOptions{
		Direction: direction,
		Operation: strings.ToLower(operation),
	}
}

// WithStrict returns a copy of opts with Strict set.
func (o ResolveOptions) WithStrict(strict bool) ResolveOptions {
	o.Strict = strict
	return o
}
