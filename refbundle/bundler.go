package refbundle

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Fetcher supplies the bytes for a resolved $ref target location (a file path
// or URL string joined against the referencing document's location by this
// package's own ref resolution — never a raw, un-resolved $ref string). The
// path is relative when the bundled document's own location is relative.
type Fetcher interface {
	Fetch(location string) ([]byte, error)
}

// CycleError reports a $ref cycle that cannot be inlined without infinite
// recursion and is therefore fatal: a cycle spanning more than one document,
// or a path-qualified cycle ("#/...") inside an inlined external document.
type CycleError struct {
	// Chain lists the document locations involved in the cycle, in the order
	// they were entered.
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular reference between files: %s", strings.Join(e.Chain, " -> "))
}

// location identifies a single (document, JSON-pointer-fragment) pair
// currently being expanded, for cycle detection.
type location struct {
	doc string
	ptr string
}

// Bundler inlines external $ref targets of a schema document into a single
// self-contained tree. A Bundler is not safe for concurrent use; create one
// per call (or per goroutine).
type Bundler struct {
	Fetch Fetcher

	topDoc string
	stack  []location
	cache  map[string]any
}

// NewBundler returns a Bundler that loads external documents through fetch.
func NewBundler(fetch Fetcher) *Bundler {
	return &Bundler{Fetch: fetch}
}

// Bundle inlines every $ref in schema that targets a document other than
// docLocation. Refs intra to docLocation itself (bare "#" or "#/...") are
// always preserved verbatim, matching the resolver's and the engine's
// expectation that they still mean "this document's own root".
func (b *Bundler) Bundle(schema map[string]any, docLocation string) (map[string]any, error) {
	b.topDoc = docLocation
	b.stack = []location{{doc: docLocation, ptr: ""}}
	b.cache = map[string]any{docLocation: schema}

	out, err := b.walk(schema, docLocation)
	if err != nil {
		return nil, err
	}
	m, ok := asMap(out)
	if !ok {
		return nil, fmt.Errorf("bundled document root is not an object")
	}
	return m, nil
}

func (b *Bundler) walk(node any, currentDoc string) (any, error) {
	switch v := node.(type) {
	case map[string]any:
		if ref, ok := v["$ref"].(string); ok {
			resolved, err := b.resolveRef(ref, currentDoc)
			if err != nil {
				return nil, err
			}
			if len(v) == 1 {
				return resolved, nil
			}
			siblings := make(map[string]any, len(v)-1)
			for k, val := range v {
				if k == "$ref" {
					continue
				}
				nv, err := b.walk(val, currentDoc)
				if err != nil {
					return nil, err
				}
				siblings[k] = nv
			}
			resolvedMap, ok := asMap(resolved)
			if !ok {
				// The ref target isn't an object, so sibling keywords have
				// nothing to merge into; the author's own keywords win.
				return siblings, nil
			}
			merged := make(map[string]any, len(resolvedMap)+len(siblings))
			for k, val := range resolvedMap {
				merged[k] = val
			}
			for k, val := range siblings {
				merged[k] = val
			}
			return merged, nil
		}
		out := make(map[string]any, len(v))
		for k, val := range v {
			nv, err := b.walk(val, currentDoc)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			nv, err := b.walk(val, currentDoc)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		return node, nil
	}
}

func (b *Bundler) resolveRef(ref string, currentDoc string) (any, error) {
	targetDoc, fragment := resolveRefLocation(ref, currentDoc)

	// Refs written directly in the document the caller handed us are always
	// preserved, whether or not they happen to form a cycle: this is the
	// document the caller (and, later, the engine) still owns.
	if currentDoc == b.topDoc && targetDoc == b.topDoc {
		return map[string]any{"$ref": ref}, nil
	}

	for i, loc := range b.stack {
		if loc.doc == targetDoc && loc.ptr == fragment {
			if targetDoc == currentDoc && fragment == "" {
				// The bare whole-document self ref ("#") is the one cycle
				// form the spec permits inside an already-inlined document;
				// substituting would recurse forever, so keep the pointer.
				return map[string]any{"$ref": ref}, nil
			}
			chain := make([]string, 0, len(b.stack)-i+1)
			for _, l := range b.stack[i:] {
				chain = append(chain, l.doc)
			}
			chain = append(chain, targetDoc)
			return nil, &CycleError{Chain: chain}
		}
	}

	doc, err := b.load(targetDoc)
	if err != nil {
		return nil, fmt.Errorf("$ref %q: %w", ref, err)
	}

	sub, err := navigateFragment(doc, fragment)
	if err != nil {
		return nil, fmt.Errorf("$ref %q: %w", ref, err)
	}

	b.stack = append(b.stack, location{doc: targetDoc, ptr: fragment})
	result, err := b.walk(sub, targetDoc)
	b.stack = b.stack[:len(b.stack)-1]
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (b *Bundler) load(docLocation string) (any, error) {
	if cached, ok := b.cache[docLocation]; ok {
		return cached, nil
	}
	if b.Fetch == nil {
		return nil, fmt.Errorf("no fetcher configured to load %q", docLocation)
	}
	raw, err := b.Fetch.Fetch(docLocation)
	if err != nil {
		return nil, err
	}
	doc, err := decodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", docLocation, err)
	}
	b.cache[docLocation] = doc
	return doc, nil
}

// resolveRefLocation splits a $ref into the document it targets (resolved
// against currentDoc when the ref has a non-empty file part) and the JSON
// Pointer fragment within that document. A ref with no file part (starting
// with "#", or empty) targets currentDoc itself.
func resolveRefLocation(ref, currentDoc string) (targetDoc, fragment string) {
	filePart, frag, hasFrag := strings.Cut(ref, "#")
	if hasFrag && frag != "" {
		fragment = "/" + strings.TrimPrefix(frag, "/")
	}
	if filePart == "" {
		return currentDoc, fragment
	}
	return joinLocation(currentDoc, filePart), fragment
}

// joinLocation resolves a relative reference's file part against the base
// document location, which may be a filesystem path or a URL.
func joinLocation(base, rel string) string {
	if u, err := url.Parse(base); err == nil && u.IsAbs() {
		ru, err := url.Parse(rel)
		if err == nil {
			return u.ResolveReference(ru).String()
		}
	}
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	dir := filepath.Dir(base)
	return path.Join(dir, rel)
}
