// Package refbundle inlines external $ref targets of a JSON Schema document
// into a single self-contained schema.
//
// It is intentionally:
//   - pure with respect to a supplied Fetcher (no direct file/network IO of its own)
//   - deterministic (stable results across executions for the same fetcher responses)
//   - narrow in scope: it understands $ref, $defs/definitions and JSON Pointer
//     fragments, and nothing else about the JSON Schema vocabulary.
//
// Self-recursive refs (a bare "#" or "#/..." pointer within the document being
// bundled) are preserved verbatim; refs that would otherwise form a cycle
// across documents are rejected.
package refbundle
