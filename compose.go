package ucpschema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ucp-dev/ucp-schema-go/refbundle"
)

// orderedEntry is one key/value pair of a JSON object, decoded in the order
// it appeared on the wire.
type orderedEntry struct {
	Key   string
	Value json.RawMessage
}

// orderedObject decodes a JSON object while preserving declaration order,
// which a plain map[string]any cannot do. It is used only for
// ucp.capabilities, where sibling composition order is observable.
type orderedObject []orderedEntry

func (o *orderedObject) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object")
	}
	var entries []orderedEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		entries = append(entries, orderedEntry{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil { // consume closing '}'
		return err
	}
	*o = entries
	return nil
}

// capabilityRecord is one parsed entry of a ucp.capabilities declaration,
// after taking only the first version-array element.
type capabilityRecord struct {
	Name      string
	Version   string
	SchemaURL string
	Extends   *string
}

type capabilityVersionEntry struct {
	Version   string  `json:"version"`
	SchemaURL string  `json:"schema"`
	Extends   *string `json:"extends"`
}

// DetectDirection inspects a decoded payload for the two self-description
// markers. ok is false when neither is present.
func DetectDirection(payload map[string]any) (dir Direction, ok bool) {
	ucp, _ := payload["ucp"].(map[string]any)
	if ucp == nil {
		return "", false
	}
	if _, present := ucp["capabilities"]; present {
		return Response, true
	}
	if meta, _ := ucp["meta"].(map[string]any); meta != nil {
		if _, present := meta["profile"]; present {
			return Request, true
		}
	}
	return "", false
}

// ComposeOptions carries the collaborators the composer needs to resolve a
// self-describing payload into a single validatable schema.
type ComposeOptions struct {
	Fetch  ContextFetcher
	Mapper URLMapper
}

// Compose extracts capability declarations from a self-describing payload
// (response payloads carry them inline under ucp.capabilities; request
// payloads carry a ucp.meta.profile URL that is itself fetched and must
// carry ucp.capabilities) and composes them into { "allOf": [root, ...] }
// per the declared extension graph.
func Compose(ctx context.Context, rawPayload []byte, opts ComposeOptions) (map[string]any, Direction, error) {
	top, err := decodeRawObject(rawPayload)
	if err != nil {
		return nil, "", &SchemaError{Err: fmt.Errorf("invalid payload JSON: %w", err)}
	}
	ucpRaw, ok := top["ucp"]
	if !ok {
		return nil, "", &SchemaError{Err: fmt.Errorf("payload is not self-describing: missing ucp")}
	}
	ucp, err := decodeRawObject(ucpRaw)
	if err != nil {
		return nil, "", &SchemaError{Err: fmt.Errorf("invalid ucp object: %w", err)}
	}

	if capsRaw, ok := ucp["capabilities"]; ok {
		caps, err := parseCapabilities(capsRaw)
		if err != nil {
			return nil, "", err
		}
		composed, err := composeFromCapabilities(ctx, caps, opts)
		return composed, Response, err
	}

	if metaRaw, ok := ucp["meta"]; ok {
		meta, err := decodeRawObject(metaRaw)
		if err != nil {
			return nil, "", &SchemaError{Err: fmt.Errorf("invalid ucp.meta object: %w", err)}
		}
		if profileRaw, ok := meta["profile"]; ok {
			var profileURL string
			if err := json.Unmarshal(profileRaw, &profileURL); err != nil {
				return nil, "", &SchemaError{Err: fmt.Errorf("ucp.meta.profile must be a string: %w", err)}
			}
			profileBytes, err := fetchLocation(ctx, profileURL, opts)
			if err != nil {
				return nil, "", err
			}
			profileTop, err := decodeRawObject(profileBytes)
			if err != nil {
				return nil, "", &SchemaError{Err: fmt.Errorf("invalid profile JSON at %s: %w", profileURL, err)}
			}
			profileUCPRaw, ok := profileTop["ucp"]
			if !ok {
				return nil, "", &SchemaError{Err: fmt.Errorf("profile %s missing ucp.capabilities", profileURL)}
			}
			profileUCP, err := decodeRawObject(profileUCPRaw)
			if err != nil {
				return nil, "", &SchemaError{Err: err}
			}
			capsRaw, ok := profileUCP["capabilities"]
			if !ok {
				return nil, "", &SchemaError{Err: fmt.Errorf("profile %s missing ucp.capabilities", profileURL)}
			}
			caps, err := parseCapabilities(capsRaw)
			if err != nil {
				return nil, "", err
			}
			composed, err := composeFromCapabilities(ctx, caps, opts)
			return composed, Request, err
		}
	}

	return nil, "", &SchemaError{Err: fmt.Errorf("payload is not self-describing: missing ucp.capabilities and ucp.meta.profile")}
}

func decodeRawObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func parseCapabilities(raw json.RawMessage) ([]capabilityRecord, error) {
	var obj orderedObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, &SchemaError{Err: fmt.Errorf("ucp.capabilities must be an object: %w", err)}
	}
	if len(obj) == 0 {
		return nil, &SchemaError{Err: fmt.Errorf("ucp.capabilities has no entries")}
	}
	records := make([]capabilityRecord, 0, len(obj))
	for _, entry := range obj {
		var versions []capabilityVersionEntry
		if err := json.Unmarshal(entry.Value, &versions); err != nil {
			return nil, &SchemaError{Err: fmt.Errorf("capability %q: expected array of version entries: %w", entry.Key, err)}
		}
		if len(versions) == 0 {
			return nil, &SchemaError{Err: fmt.Errorf("capability %q: empty version array", entry.Key)}
		}
		first := versions[0]
		if first.Version == "" {
			return nil, &SchemaError{Err: fmt.Errorf("capability %q: missing version", entry.Key)}
		}
		if first.SchemaURL == "" {
			return nil, &SchemaError{Err: fmt.Errorf("capability %q: missing schema", entry.Key)}
		}
		records = append(records, capabilityRecord{
			Name:      entry.Key,
			Version:   first.Version,
			SchemaURL: first.SchemaURL,
			Extends:   first.Extends,
		})
	}
	return records, nil
}

// composeFromCapabilities validates the extension graph, loads every
// participating schema document, and assembles the allOf array in
// declaration order with the root document first.
func composeFromCapabilities(ctx context.Context, caps []capabilityRecord, opts ComposeOptions) (map[string]any, error) {
	var root *capabilityRecord
	byName := make(map[string]*capabilityRecord, len(caps))
	for i := range caps {
		byName[caps[i].Name] = &caps[i]
		if caps[i].Extends == nil {
			if root != nil {
				return nil, &SchemaError{Err: fmt.Errorf("multiple root capabilities: %q and %q", root.Name, caps[i].Name)}
			}
			root = &caps[i]
		}
	}
	if root == nil {
		return nil, &SchemaError{Err: fmt.Errorf("no root capability (every entry declares extends)")}
	}
	for _, c := range caps {
		if c.Name == root.Name {
			continue
		}
		if err := checkReachesRoot(c, byName, root.Name, nil); err != nil {
			return nil, err
		}
	}

	rootDoc, err := loadAndBundleSchema(ctx, root.SchemaURL, opts)
	if err != nil {
		return nil, err
	}
	allOf := []any{rootDoc}

	for _, c := range caps {
		if c.Name == root.Name {
			continue
		}
		extDoc, err := loadAndBundleSchema(ctx, c.SchemaURL, opts)
		if err != nil {
			return nil, err
		}
		contribution := extensionContribution(extDoc, root.Name)
		allOf = append(allOf, contribution)
	}

	return map[string]any{"allOf": allOf}, nil
}

// loadAndBundleSchema loads a capability's schema document and inlines its
// external refs immediately, while its own source location is still known;
// by the time it is inserted into the composed allOf array, relative refs
// would no longer resolve against the composed document's location.
func loadAndBundleSchema(ctx context.Context, schemaURL string, opts ComposeOptions) (map[string]any, error) {
	doc, err := loadSchemaDoc(ctx, schemaURL, opts)
	if err != nil {
		return nil, err
	}
	bundler := refbundle.NewBundler(composeFetcher{ctx: ctx, opts: opts})
	bundled, err := bundler.Bundle(doc, schemaURL)
	if err != nil {
		return nil, &SchemaError{Err: fmt.Errorf("bundling %s: %w", schemaURL, err)}
	}
	return bundled, nil
}

// composeFetcher adapts the composer's context-aware fetch-or-map pipeline
// into refbundle.Fetcher's plain signature.
type composeFetcher struct {
	ctx  context.Context
	opts ComposeOptions
}

func (f composeFetcher) Fetch(location string) ([]byte, error) {
	return fetchLocation(f.ctx, location, f.opts)
}

func checkReachesRoot(c capabilityRecord, byName map[string]*capabilityRecord, rootName string, visited []string) error {
	for _, v := range visited {
		if v == c.Name {
			return &SchemaError{Err: fmt.Errorf("capability %q: extends cycle", c.Name)}
		}
	}
	if c.Extends == nil {
		if c.Name == rootName {
			return nil
		}
		return &SchemaError{Err: fmt.Errorf("capability %q: does not reach root %q", c.Name, rootName)}
	}
	parent, ok := byName[*c.Extends]
	if !ok {
		return &SchemaError{Err: fmt.Errorf("capability %q: extends unknown capability %q", c.Name, *c.Extends)}
	}
	return checkReachesRoot(*parent, byName, rootName, append(visited, c.Name))
}

// extensionContribution returns D.$defs[rootName], or an empty object
// schema if absent.
func extensionContribution(doc map[string]any, rootName string) map[string]any {
	defs, _ := doc["$defs"].(map[string]any)
	if defs == nil {
		return map[string]any{}
	}
	contribution, ok := defs[rootName].(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return contribution
}

func loadSchemaDoc(ctx context.Context, schemaURL string, opts ComposeOptions) (map[string]any, error) {
	b, err := fetchLocation(ctx, schemaURL, opts)
	if err != nil {
		return nil, err
	}
	doc, err := decodeJSON(b)
	if err != nil {
		return nil, &SchemaError{Err: fmt.Errorf("invalid schema JSON at %s: %w", schemaURL, err)}
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, &SchemaError{Err: fmt.Errorf("schema at %s is not an object", schemaURL)}
	}
	return m, nil
}

func fetchLocation(ctx context.Context, location string, opts ComposeOptions) ([]byte, error) {
	if local, ok := opts.Mapper.MapURL(location); ok {
		return FileFetcher{}.Fetch(ctx, local)
	}
	if opts.Fetch == nil {
		return nil, &IoError{Location: location, Err: fmt.Errorf("no fetcher configured")}
	}
	return opts.Fetch.Fetch(ctx, location)
}
