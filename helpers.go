package ucpschema

import (
	"bytes"
	"encoding/json"
	"errors"
)

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// decodeJSON decodes JSON with json.Number preserved, rejecting trailing
// data after the first value.
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
