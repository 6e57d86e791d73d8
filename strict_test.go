package ucpschema

import "testing"

func TestInjectStrict_ClosesObjectWithoutAdditionalProperties(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
	}
	out, err := InjectStrict(schema)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	if out["additionalProperties"] != false {
		t.Fatalf("expected additionalProperties: false, got %#v", out["additionalProperties"])
	}
}

func TestInjectStrict_LeavesExplicitFalseUnchanged(t *testing.T) {
	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
	}
	out, err := InjectStrict(schema)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	if out["additionalProperties"] != false {
		t.Fatalf("expected unchanged false, got %#v", out["additionalProperties"])
	}
}

func TestInjectStrict_LeavesSchemaValuedAdditionalPropertiesUnchanged(t *testing.T) {
	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": map[string]any{"type": "string"},
	}
	out, err := InjectStrict(schema)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	ap, ok := out["additionalProperties"].(map[string]any)
	if !ok || ap["type"] != "string" {
		t.Fatalf("expected schema-valued additionalProperties preserved, got %#v", out["additionalProperties"])
	}
}

func TestInjectStrict_RecursesIntoNestedObjects(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"address": map[string]any{
				"properties": map[string]any{"city": map[string]any{"type": "string"}},
			},
		},
	}
	out, err := InjectStrict(schema)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	address := out["properties"].(map[string]any)["address"].(map[string]any)
	if address["additionalProperties"] != false {
		t.Fatalf("expected nested closure, got %#v", address)
	}
}

func TestInjectStrict_Idempotent(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
	}
	once, err := InjectStrict(schema)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	twice, err := InjectStrict(once)
	if err != nil {
		t.Fatalf("inject again: %v", err)
	}
	if once["additionalProperties"] != twice["additionalProperties"] {
		t.Fatalf("not idempotent: %#v vs %#v", once, twice)
	}
}
