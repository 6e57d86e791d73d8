package ucpschema

import "fmt"

// InjectStrict returns a copy of schema in which every object schema node
// (one with a properties keyword, or with "type": "object") whose
// additionalProperties is missing or the literal true has
// additionalProperties: false inserted. A node whose additionalProperties
// is already false, or is itself a schema (used to type-check extra
// properties), is left unchanged. InjectStrict is idempotent.
func InjectStrict(schema map[string]any) (map[string]any, error) {
	out, err := injectNode(schema)
	if err != nil {
		return nil, err
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, &SchemaError{Err: fmt.Errorf("schema root is not an object")}
	}
	return m, nil
}

func injectNode(node any) (any, error) {
	m, ok := node.(map[string]any)
	if !ok {
		return node, nil
	}
	out := cloneMap(m)

	if isObjectSchema(out) {
		if needsClosing(out["additionalProperties"]) {
			out["additionalProperties"] = false
		}
	}

	if props, ok := out["properties"].(map[string]any); ok {
		newProps := make(map[string]any, len(props))
		for name, raw := range props {
			resolved, err := injectNode(raw)
			if err != nil {
				return nil, err
			}
			newProps[name] = resolved
		}
		out["properties"] = newProps
	}

	switch items := out["items"].(type) {
	case map[string]any:
		resolved, err := injectNode(items)
		if err != nil {
			return nil, err
		}
		out["items"] = resolved
	case []any:
		newItems := make([]any, len(items))
		for i, raw := range items {
			resolved, err := injectNode(raw)
			if err != nil {
				return nil, err
			}
			newItems[i] = resolved
		}
		out["items"] = newItems
	}

	if ap, ok := out["additionalProperties"].(map[string]any); ok {
		resolved, err := injectNode(ap)
		if err != nil {
			return nil, err
		}
		out["additionalProperties"] = resolved
	}

	for _, key := range []string{"$defs", "definitions"} {
		if defs, ok := out[key].(map[string]any); ok {
			newDefs := make(map[string]any, len(defs))
			for name, raw := range defs {
				resolved, err := injectNode(raw)
				if err != nil {
					return nil, err
				}
				newDefs[name] = resolved
			}
			out[key] = newDefs
		}
	}

	for _, key := range recursedKeywords {
		if arr, ok := out[key].([]any); ok {
			newArr := make([]any, len(arr))
			for i, raw := range arr {
				resolved, err := injectNode(raw)
				if err != nil {
					return nil, err
				}
				newArr[i] = resolved
			}
			out[key] = newArr
		}
	}

	if not, ok := out["not"]; ok {
		resolved, err := injectNode(not)
		if err != nil {
			return nil, err
		}
		out["not"] = resolved
	}

	return out, nil
}

func isObjectSchema(m map[string]any) bool {
	if _, ok := m["properties"]; ok {
		return true
	}
	t, _ := m["type"].(string)
	return t == "object"
}

func needsClosing(ap any) bool {
	if ap == nil {
		return true
	}
	b, ok := ap.(bool)
	return ok && b
}
