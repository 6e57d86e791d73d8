// Package ucpschema resolves UCP-annotated JSON Schemas into plain JSON
// Schemas and validates payloads against them.
//
// UCP annotations are the two keywords ucp_request and ucp_response,
// attached to a property, declaring how that property appears per
// direction and operation: omitted, required, optional, or unannotated
// (kept as-is).
//
// JSON Schema documents are represented as map[string]any, decoded with
// json.Number preserved so integer literals round-trip through
// resolve/bundle/compose without being widened to float64.
//
// # Quick Start
//
//	schema := map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	        "id": map[string]any{
//	            "type": "string",
//	            "ucp_request": map[string]any{"create": "omit", "update": "required"},
//	        },
//	        "name": map[string]any{"type": "string"},
//	    },
//	}
//	opts := ucpschema.NewResolveOptions(ucpschema.Request, "create")
//	resolved, err := ucpschema.Resolve(schema, opts)
//
// # Pipeline
//
// A full validation run composes the five components in this package plus
// refbundle: Driver -> (Composer | direct load) -> Bundler -> Resolver ->
// Strict Injector -> validation engine. The Resolve, Compose and InjectStrict
// functions and refbundle.Bundler can also be used individually; every
// transformation returns a fresh tree and never mutates its input.
//
// # Concurrency
//
// All exported functions are pure with respect to their arguments (plus
// whatever Fetcher they are given) and safe for concurrent use on different
// inputs. A refbundle.Bundler value, once constructed, is not safe for
// concurrent use on the same value.
//
// # Subpackages
//
//   - canonicaljson: RFC 8785 (JCS) deterministic JSON serialization
//   - refbundle: $ref inlining with cross-file cycle detection
package ucpschema
