package ucpschema

import "fmt"

// recursedKeywords are the array-valued combinator keywords the resolver and
// strict injector both descend into element by element. The other keywords
// they descend into (properties, items, additionalProperties, $defs,
// definitions, not) are handled individually; everything else passes
// through verbatim.
var recursedKeywords = []string{"allOf", "anyOf", "oneOf"}

// Resolve walks schema and rewrites every property carrying a ucp_<direction>
// annotation according to its visibility for opts.Operation, per the
// resolution table: omit removes the property and its required-array entry,
// required keeps it and adds it to required, optional keeps it and removes
// it from required, and an operation with no annotation entry leaves the
// property and its required-array membership unchanged.
//
// When opts.Strict is set, the resolved tree is also passed through
// InjectStrict.
//
// Resolve never mutates schema; it returns a fresh tree. Applying Resolve to
// its own output with the same options is a no-op.
func Resolve(schema map[string]any, opts ResolveOptions) (map[string]any, error) {
	out, err := resolveNode(schema, opts, "")
	if err != nil {
		return nil, err
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, &SchemaError{Err: fmt.Errorf("resolved root is not an object")}
	}
	if opts.Strict {
		return InjectStrict(m)
	}
	return m, nil
}

func resolveNode(node any, opts ResolveOptions, path string) (any, error) {
	m, ok := node.(map[string]any)
	if !ok {
		return node, nil
	}
	out := cloneMap(m)

	if props, ok := out["properties"].(map[string]any); ok {
		newProps := make(map[string]any, len(props))
		required, _ := asStringSlice(out["required"])

		for name, raw := range props {
			propSchema, ok := raw.(map[string]any)
			if !ok {
				newProps[name] = raw
				continue
			}
			vis, annotated, err := propVisibility(propSchema, opts, schemaPointer(path, name))
			if err != nil {
				return nil, err
			}
			if annotated && vis == Omit {
				required = removeString(required, name)
				continue
			}
			resolvedProp, err := resolveNode(propSchema, opts, schemaPointer(path, name))
			if err != nil {
				return nil, err
			}
			resolvedPropMap := resolvedProp.(map[string]any)
			delete(resolvedPropMap, Request.AnnotationKey())
			delete(resolvedPropMap, Response.AnnotationKey())
			newProps[name] = resolvedPropMap

			if annotated {
				switch vis {
				case Required:
					required = addString(required, name)
				case Optional:
					required = removeString(required, name)
				}
			}
		}
		out["properties"] = newProps
		if required != nil {
			out["required"] = toAnySlice(required)
		} else {
			delete(out, "required")
		}
	}

	if items, ok := out["items"]; ok {
		resolvedItems, err := resolveItems(items, opts, schemaPointer(path, "items"))
		if err != nil {
			return nil, err
		}
		out["items"] = resolvedItems
	}

	if ap, ok := out["additionalProperties"].(map[string]any); ok {
		resolved, err := resolveNode(ap, opts, schemaPointer(path, "additionalProperties"))
		if err != nil {
			return nil, err
		}
		out["additionalProperties"] = resolved
	}

	for _, key := range []string{"$defs", "definitions"} {
		if defs, ok := out[key].(map[string]any); ok {
			newDefs := make(map[string]any, len(defs))
			for name, raw := range defs {
				resolved, err := resolveNode(raw, opts, schemaPointer(path, key+"/"+name))
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
				resolved, err := resolveNode(raw, opts, schemaPointer(path, key))
				if err != nil {
					return nil, err
				}
				newArr[i] = resolved
			}
			out[key] = newArr
		}
	}

	if not, ok := out["not"]; ok {
		resolved, err := resolveNode(not, opts, schemaPointer(path, "not"))
		if err != nil {
			return nil, err
		}
		out["not"] = resolved
	}

	return out, nil
}

func resolveItems(items any, opts ResolveOptions, path string) (any, error) {
	switch v := items.(type) {
	case map[string]any:
		return resolveNode(v, opts, path)
	case []any:
		out := make([]any, len(v))
		for i, raw := range v {
			resolved, err := resolveNode(raw, opts, path)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return items, nil
	}
}

// propVisibility inspects propSchema's ucp_<direction> annotation (if any)
// for opts.Operation. annotated is false when there is no entry applicable
// to this operation, in which case vis is meaningless.
func propVisibility(propSchema map[string]any, opts ResolveOptions, path string) (vis Visibility, annotated bool, err error) {
	raw, ok := propSchema[opts.Direction.AnnotationKey()]
	if !ok {
		return Include, false, nil
	}
	switch v := raw.(type) {
	case string:
		parsed, ok := ParseVisibility(v)
		if !ok {
			return Include, false, &SchemaError{Path: path, Err: fmt.Errorf("unknown visibility %q", v)}
		}
		return parsed, true, nil
	case map[string]any:
		entry, ok := v[opts.Operation]
		if !ok {
			return Include, false, nil
		}
		s, ok := entry.(string)
		if !ok {
			return Include, false, &SchemaError{Path: path, Err: fmt.Errorf("visibility for operation %q must be a string", opts.Operation)}
		}
		parsed, ok := ParseVisibility(s)
		if !ok {
			return Include, false, &SchemaError{Path: path, Err: fmt.Errorf("unknown visibility %q", s)}
		}
		return parsed, true, nil
	default:
		return Include, false, &SchemaError{Path: path, Err: fmt.Errorf("%s must be a string or an object", opts.Direction.AnnotationKey())}
	}
}

func asStringSlice(v any) ([]string, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

func toAnySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func removeString(s []string, target string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s))
	for _, v := range s {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

func addString(s []string, target string) []string {
	for _, v := range s {
		if v == target {
			return s
		}
	}
	return append(s, target)
}

func schemaPointer(prefix, next string) string {
	if prefix == "" {
		return "/" + next
	}
	return prefix + "/" + next
}
