package refbundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-openapi/jsonpointer"
)

// navigateFragment walks doc according to a URL fragment (the part after "#").
// An empty fragment returns doc itself. A non-empty fragment must be a JSON
// Pointer ("/a/b/0"); navigation is delegated to go-openapi/jsonpointer rather
// than a hand-rolled walker.
func navigateFragment(doc any, fragment string) (any, error) {
	if fragment == "" {
		return doc, nil
	}
	ptr, err := jsonpointer.New(fragment)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON pointer %q: %w", fragment, err)
	}
	v, _, err := ptr.Get(doc)
	if err != nil {
		return nil, fmt.Errorf("pointer %q not found: %w", fragment, err)
	}
	return v, nil
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// decodeJSON is used for fetched documents (UseNumber to preserve numeric intent).
func decodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return nil, errors.New("invalid JSON: trailing data")
	}
	return v, nil
}
