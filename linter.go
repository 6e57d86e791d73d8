package ucpschema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Severity classifies a Diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a single lint finding.
type Diagnostic struct {
	Severity Severity
	Code     string
	Path     string
	Message  string
}

// FileStatus summarizes a file's diagnostics.
type FileStatus string

const (
	StatusOk      FileStatus = "ok"
	StatusWarning FileStatus = "warning"
	StatusError   FileStatus = "error"
)

// FileResult is one schema file's lint outcome.
type FileResult struct {
	File        string
	Status      FileStatus
	Diagnostics []Diagnostic
}

// LintResult aggregates every file checked by Lint.
type LintResult struct {
	// RunID stamps this run for correlation in CI logs; it has no bearing
	// on diagnostic content.
	RunID        string
	Files        []FileResult
	ErrorCount   int
	WarningCount int
}

// Lint walks path — a single schema file or a directory of *.json files —
// and returns diagnostics for each, without performing full resolution.
func Lint(path string) (LintResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return LintResult{}, &IoError{Location: path, Err: err}
	}

	var files []string
	if info.IsDir() {
		err := filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(p, ".json") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return LintResult{}, &IoError{Location: path, Err: err}
		}
	} else {
		files = append(files, path)
	}

	result := LintResult{RunID: uuid.NewString()}
	for _, f := range files {
		fr := lintFile(f)
		result.Files = append(result.Files, fr)
		for _, d := range fr.Diagnostics {
			if d.Severity == SeverityError {
				result.ErrorCount++
			} else {
				result.WarningCount++
			}
		}
	}
	return result, nil
}

func lintFile(file string) FileResult {
	raw, err := os.ReadFile(file)
	if err != nil {
		return FileResult{
			File:   file,
			Status: StatusError,
			Diagnostics: []Diagnostic{{
				Severity: SeverityError, Code: "E001", Path: "",
				Message: fmt.Sprintf("cannot read file: %v", err),
			}},
		}
	}
	doc, err := decodeJSON(raw)
	if err != nil {
		return FileResult{
			File:   file,
			Status: StatusError,
			Diagnostics: []Diagnostic{{
				Severity: SeverityError, Code: "E001", Path: "",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			}},
		}
	}
	root, ok := doc.(map[string]any)
	if !ok {
		return FileResult{
			File:   file,
			Status: StatusError,
			Diagnostics: []Diagnostic{{
				Severity: SeverityError, Code: "E001", Path: "",
				Message: "top-level document is not an object",
			}},
		}
	}

	var diags []Diagnostic
	if _, ok := root["$id"]; !ok {
		diags = append(diags, Diagnostic{Severity: SeverityWarning, Code: "W001", Path: "", Message: "missing $id"})
	}

	dir := filepath.Dir(file)
	lintNode(root, "", dir, &diags)

	fr := FileResult{File: file, Diagnostics: diags}
	fr.Status = StatusOk
	for _, d := range diags {
		if d.Severity == SeverityError {
			fr.Status = StatusError
			break
		}
		fr.Status = StatusWarning
	}
	return fr
}

func lintNode(node any, path, dir string, diags *[]Diagnostic) {
	m, ok := node.(map[string]any)
	if !ok {
		if arr, ok := node.([]any); ok {
			for i, v := range arr {
				lintNode(v, fmt.Sprintf("%s/%d", path, i), dir, diags)
			}
		}
		return
	}

	if ref, ok := m["$ref"].(string); ok {
		lintRef(ref, path, dir, diags)
	}

	for _, key := range []string{"ucp_request", "ucp_response"} {
		if raw, ok := m[key]; ok {
			lintAnnotation(raw, key, path, diags)
		}
	}

	for k, v := range m {
		lintNode(v, path+"/"+k, dir, diags)
	}
}

func lintRef(ref, path, dir string, diags *[]Diagnostic) {
	filePart, fragment, hasFrag := strings.Cut(ref, "#")
	if filePart != "" && !strings.Contains(filePart, "://") {
		target := filePart
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}
		if _, err := os.Stat(target); err != nil {
			*diags = append(*diags, Diagnostic{
				Severity: SeverityError, Code: "E002", Path: path,
				Message: fmt.Sprintf("ref target not found: %s", filePart),
			})
			return
		}
		if hasFrag && fragment != "" {
			raw, err := os.ReadFile(target)
			if err != nil {
				*diags = append(*diags, Diagnostic{Severity: SeverityError, Code: "E002", Path: path, Message: err.Error()})
				return
			}
			doc, err := decodeJSON(raw)
			if err != nil {
				*diags = append(*diags, Diagnostic{Severity: SeverityError, Code: "E002", Path: path, Message: err.Error()})
				return
			}
			if _, err := navigatePointer(doc, "/"+strings.TrimPrefix(fragment, "/")); err != nil {
				*diags = append(*diags, Diagnostic{
					Severity: SeverityError, Code: "E003", Path: path,
					Message: fmt.Sprintf("anchor not found: %s", ref),
				})
			}
		}
		return
	}
	if hasFrag {
		// Self ref: can't verify against the already-parsed document without
		// re-parsing it here, so only malformed pointers are caught.
		if fragment != "" && !strings.HasPrefix(fragment, "/") {
			*diags = append(*diags, Diagnostic{
				Severity: SeverityError, Code: "E003", Path: path,
				Message: fmt.Sprintf("malformed pointer: %s", ref),
			})
		}
	}
}

func lintAnnotation(raw any, key, path string, diags *[]Diagnostic) {
	switch v := raw.(type) {
	case string:
		if _, ok := ParseVisibility(v); !ok {
			*diags = append(*diags, Diagnostic{
				Severity: SeverityError, Code: "E005", Path: path + "/" + key,
				Message: fmt.Sprintf("unknown visibility %q", v),
			})
		}
	case map[string]any:
		for op, visRaw := range v {
			vis, ok := visRaw.(string)
			if !ok {
				*diags = append(*diags, Diagnostic{
					Severity: SeverityError, Code: "E004", Path: path + "/" + key,
					Message: fmt.Sprintf("visibility for operation %q must be a string", op),
				})
				continue
			}
			if _, ok := ParseVisibility(vis); !ok {
				*diags = append(*diags, Diagnostic{
					Severity: SeverityError, Code: "E005", Path: path + "/" + key + "/" + op,
					Message: fmt.Sprintf("unknown visibility %q", vis),
				})
			}
			if !IsConventionalOperation(op) {
				*diags = append(*diags, Diagnostic{
					Severity: SeverityWarning, Code: "W002", Path: path + "/" + key + "/" + op,
					Message: fmt.Sprintf("unrecognized operation %q", op),
				})
			}
		}
	default:
		*diags = append(*diags, Diagnostic{
			Severity: SeverityError, Code: "E004", Path: path + "/" + key,
			Message: fmt.Sprintf("%s must be a string or an object", key),
		})
	}
}

// navigatePointer is a minimal JSON Pointer check local to the linter: it
// only needs to know whether the target exists, not its value.
func navigatePointer(doc any, pointer string) (any, error) {
	cur := doc
	if pointer == "/" || pointer == "" {
		return cur, nil
	}
	for _, tok := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[tok]
			if !ok {
				return nil, fmt.Errorf("no such key %q", tok)
			}
			cur = next
		case []any:
			return nil, fmt.Errorf("array indexing not supported in lint pointer check")
		default:
			return nil, fmt.Errorf("cannot navigate into scalar")
		}
	}
	return cur, nil
}
