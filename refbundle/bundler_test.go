package refbundle

import (
	"errors"
	"testing"
)

type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(location string) ([]byte, error) {
	b, ok := m[location]
	if !ok {
		return nil, errors.New("not found: " + location)
	}
	return b, nil
}

func TestBundle_PreservesSelfRef(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"child": map[string]any{"$ref": "#"},
		},
	}
	out, err := NewBundler(nil).Bundle(schema, "root.json")
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	props := out["properties"].(map[string]any)
	child := props["child"].(map[string]any)
	if child["$ref"] != "#" {
		t.Fatalf("expected self ref preserved, got %#v", child)
	}
}

func TestBundle_InlinesExternalFile(t *testing.T) {
	fetch := mapFetcher{
		"buyer.json": []byte(`{"type":"object","properties":{"name":{"type":"string"}}}`),
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"buyer": map[string]any{"$ref": "buyer.json"},
		},
	}
	out, err := NewBundler(fetch).Bundle(schema, "root.json")
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	buyer := out["properties"].(map[string]any)["buyer"].(map[string]any)
	if _, hasRef := buyer["$ref"]; hasRef {
		t.Fatalf("expected no $ref remaining, got %#v", buyer)
	}
	props := buyer["properties"].(map[string]any)
	if _, ok := props["name"]; !ok {
		t.Fatalf("expected inlined buyer schema, got %#v", buyer)
	}
}

func TestBundle_InlinesFragment(t *testing.T) {
	fetch := mapFetcher{
		"defs.json": []byte(`{"$defs":{"money":{"type":"number"}}}`),
	}
	schema := map[string]any{
		"properties": map[string]any{
			"price": map[string]any{"$ref": "defs.json#/$defs/money"},
		},
	}
	out, err := NewBundler(fetch).Bundle(schema, "root.json")
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	price := out["properties"].(map[string]any)["price"].(map[string]any)
	if price["type"] != "number" {
		t.Fatalf("expected inlined fragment, got %#v", price)
	}
}

func TestBundle_RejectsPathQualifiedCycleWithinExternalDoc(t *testing.T) {
	// Only the bare whole-document self ref ("#") is a permitted cycle inside
	// an already-inlined document; a path-qualified structural cycle like
	// "#/$defs/node" is fatal, even though it never leaves a single file.
	fetch := mapFetcher{
		"node.json": []byte(`{
			"$defs": {
				"node": {
					"type": "object",
					"properties": {
						"next": {"$ref": "#/$defs/node"}
					}
				}
			},
			"$ref": "#/$defs/node"
		}`),
	}
	schema := map[string]any{"properties": map[string]any{
		"list": map[string]any{"$ref": "node.json"},
	}}
	_, err := NewBundler(fetch).Bundle(schema, "root.json")
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
}

func TestBundle_PreservesSiblingKeywordsNextToRef(t *testing.T) {
	fetch := mapFetcher{
		"buyer.json": []byte(`{"type":"object","properties":{"name":{"type":"string"}}}`),
	}
	schema := map[string]any{
		"properties": map[string]any{
			"buyer": map[string]any{
				"$ref":        "buyer.json",
				"description": "the buyer",
			},
		},
	}
	out, err := NewBundler(fetch).Bundle(schema, "root.json")
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	buyer := out["properties"].(map[string]any)["buyer"].(map[string]any)
	if buyer["description"] != "the buyer" {
		t.Fatalf("expected sibling keyword preserved, got %#v", buyer)
	}
	if _, ok := buyer["properties"]; !ok {
		t.Fatalf("expected ref target still inlined, got %#v", buyer)
	}
}

func TestBundle_RejectsCrossFileCycle(t *testing.T) {
	fetch := mapFetcher{
		"a.json": []byte(`{"$ref": "b.json"}`),
		"b.json": []byte(`{"$ref": "a.json"}`),
	}
	schema := map[string]any{"$ref": "a.json"}
	_, err := NewBundler(fetch).Bundle(schema, "root.json")
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
}
