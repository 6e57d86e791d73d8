package ucpschema

import (
	"context"
	"testing"
)

type mapContextFetcher map[string][]byte

func (m mapContextFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	b, ok := m[location]
	if !ok {
		return nil, &IoError{Location: location, Err: errNotFound(location)}
	}
	return b, nil
}

type notFoundErr struct{ location string }

func (e notFoundErr) Error() string { return "not found: " + e.location }

func errNotFound(location string) error { return notFoundErr{location} }

func TestCompose_ResponsePattern(t *testing.T) {
	fetch := mapContextFetcher{
		"https://schemas.example.com/checkout.json": []byte(`{
			"type": "object",
			"properties": {"total": {"type": "number"}}
		}`),
		"https://schemas.example.com/discount.json": []byte(`{
			"$defs": {
				"checkout": {
					"properties": {"discounts": {"type": "array"}}
				}
			}
		}`),
	}
	payload := []byte(`{
		"ucp": {
			"capabilities": {
				"checkout": [{"version": "1", "schema": "https://schemas.example.com/checkout.json"}],
				"discount": [{"version": "1", "schema": "https://schemas.example.com/discount.json", "extends": "checkout"}]
			}
		}
	}`)

	composed, direction, err := Compose(context.Background(), payload, ComposeOptions{Fetch: fetch})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if direction != Response {
		t.Fatalf("expected Response direction, got %v", direction)
	}
	allOf, ok := composed["allOf"].([]any)
	if !ok || len(allOf) != 2 {
		t.Fatalf("expected 2-element allOf, got %#v", composed["allOf"])
	}
	root := allOf[0].(map[string]any)
	if _, ok := root["properties"].(map[string]any)["total"]; !ok {
		t.Fatalf("expected root schema first, got %#v", root)
	}
	contribution := allOf[1].(map[string]any)
	if _, ok := contribution["properties"].(map[string]any)["discounts"]; !ok {
		t.Fatalf("expected discount contribution, got %#v", contribution)
	}
}

func TestCompose_RequestPatternFetchesProfile(t *testing.T) {
	fetch := mapContextFetcher{
		"https://agent.example.com/.well-known/ucp": []byte(`{
			"ucp": {"capabilities": {"checkout": [{"version": "1", "schema": "https://schemas.example.com/checkout.json"}]}}
		}`),
		"https://schemas.example.com/checkout.json": []byte(`{"type": "object"}`),
	}
	payload := []byte(`{"ucp": {"meta": {"profile": "https://agent.example.com/.well-known/ucp"}}}`)

	_, direction, err := Compose(context.Background(), payload, ComposeOptions{Fetch: fetch})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if direction != Request {
		t.Fatalf("expected Request direction, got %v", direction)
	}
}

func TestCompose_MissingContributionIsEmptyObject(t *testing.T) {
	fetch := mapContextFetcher{
		"root.json": []byte(`{"type": "object"}`),
		"ext.json":  []byte(`{"type": "object"}`),
	}
	payload := []byte(`{
		"ucp": {
			"capabilities": {
				"root": [{"version": "1", "schema": "root.json"}],
				"ext":  [{"version": "1", "schema": "ext.json", "extends": "root"}]
			}
		}
	}`)
	composed, _, err := Compose(context.Background(), payload, ComposeOptions{Fetch: fetch})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	allOf := composed["allOf"].([]any)
	contribution := allOf[1].(map[string]any)
	if len(contribution) != 0 {
		t.Fatalf("expected empty contribution, got %#v", contribution)
	}
}

func TestCompose_OrphanCapabilityIsFatal(t *testing.T) {
	payload := []byte(`{
		"ucp": {
			"capabilities": {
				"root":   [{"version": "1", "schema": "root.json"}],
				"orphan": [{"version": "1", "schema": "orphan.json", "extends": "nonexistent"}]
			}
		}
	}`)
	_, _, err := Compose(context.Background(), payload, ComposeOptions{Fetch: mapContextFetcher{}})
	if _, ok := err.(*SchemaError); !ok {
		t.Fatalf("expected *SchemaError, got %T (%v)", err, err)
	}
}

func TestCompose_NotSelfDescribing(t *testing.T) {
	_, _, err := Compose(context.Background(), []byte(`{}`), ComposeOptions{})
	if _, ok := err.(*SchemaError); !ok {
		t.Fatalf("expected *SchemaError, got %T (%v)", err, err)
	}
}

func TestDetectDirection(t *testing.T) {
	cases := []struct {
		name    string
		payload map[string]any
		want    Direction
		wantOk  bool
	}{
		{"response", map[string]any{"ucp": map[string]any{"capabilities": map[string]any{}}}, Response, true},
		{"request", map[string]any{"ucp": map[string]any{"meta": map[string]any{"profile": "x"}}}, Request, true},
		{"neither", map[string]any{"ucp": map[string]any{}}, "", false},
		{"no ucp", map[string]any{}, "", false},
	}
	for _, c := range cases {
		dir, ok := DetectDirection(c.payload)
		if ok != c.wantOk || dir != c.want {
			t.Errorf("%s: got (%v, %v), want (%v, %v)", c.name, dir, ok, c.want, c.wantOk)
		}
	}
}
