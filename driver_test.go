package ucpschema

import (
	"context"
	"testing"
)

func TestDriver_ExplicitMode_ResolveThenValidateRejectsOmittedField(t *testing.T) {
	fetch := mapContextFetcher{
		"schema.json": []byte(`{
			"type": "object",
			"properties": {
				"id":   {"type": "string", "ucp_request": {"create": "omit", "update": "required"}},
				"name": {"type": "string"}
			},
			"required": ["name"]
		}`),
	}
	driver := NewDriver(DriverOptions{
		Mode:           ModeExplicit,
		SchemaLocation: "schema.json",
		Direction:      Request,
		Operation:      "create",
		Strict:         true,
		Fetch:          fetch,
	})

	result, err := driver.ValidatePayload(context.Background(), nil, map[string]any{"id": "x", "name": "n"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected invalid result rejecting omitted field under strict mode")
	}
}

func TestDriver_ExplicitMode_AllowsUpdateWithId(t *testing.T) {
	fetch := mapContextFetcher{
		"schema.json": []byte(`{
			"type": "object",
			"properties": {
				"id":   {"type": "string", "ucp_request": {"create": "omit", "update": "required"}},
				"name": {"type": "string"}
			},
			"required": ["name"]
		}`),
	}
	driver := NewDriver(DriverOptions{
		Mode:           ModeExplicit,
		SchemaLocation: "schema.json",
		Direction:      Request,
		Operation:      "update",
		Strict:         true,
		Fetch:          fetch,
	})

	result, err := driver.ValidatePayload(context.Background(), nil, map[string]any{"id": "x", "name": "n"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid result, got errors %#v", result.Errors)
	}
}

func TestDriver_ExplicitMode_RequiresDirection(t *testing.T) {
	driver := NewDriver(DriverOptions{
		Mode:           ModeExplicit,
		SchemaLocation: "schema.json",
	})
	_, err := driver.ResolveSchema(context.Background(), nil)
	if _, ok := err.(*UsageError); !ok {
		t.Fatalf("expected *UsageError, got %T (%v)", err, err)
	}
}

func TestDriver_SelfDescribingMode_InfersDirectionFromPayload(t *testing.T) {
	fetch := mapContextFetcher{
		"checkout.json": []byte(`{"type": "object", "properties": {"total": {"type": "number"}}}`),
	}
	payload := []byte(`{
		"ucp": {"capabilities": {"checkout": [{"version": "1", "schema": "checkout.json"}]}},
		"total": 12
	}`)
	driver := NewDriver(DriverOptions{Mode: ModeSelfDescribing, Fetch: fetch})

	result, err := driver.ValidatePayload(context.Background(), payload, map[string]any{
		"ucp":   map[string]any{"capabilities": map[string]any{"checkout": []any{map[string]any{"version": "1", "schema": "checkout.json"}}}},
		"total": 12.0,
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid, got errors %#v", result.Errors)
	}
}
