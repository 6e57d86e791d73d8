package ucpschema

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLintFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLint_DirectoryWithCleanWarningAndErrorFiles(t *testing.T) {
	dir := t.TempDir()
	writeLintFile(t, dir, "clean.json", `{
		"$id": "https://example.com/clean.json",
		"type": "object",
		"properties": {
			"name": {"type": "string", "ucp_request": {"create": "required"}}
		}
	}`)
	writeLintFile(t, dir, "warning.json", `{
		"type": "object",
		"properties": {
			"id": {"type": "string", "ucp_request": {"approve": "required"}}
		}
	}`)
	writeLintFile(t, dir, "broken.json", `{not valid json`)

	result, err := Lint(dir)
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(result.Files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(result.Files))
	}
	if result.ErrorCount == 0 {
		t.Fatalf("expected at least one error diagnostic")
	}
	if result.WarningCount == 0 {
		t.Fatalf("expected at least one warning diagnostic")
	}

	byName := map[string]FileResult{}
	for _, fr := range result.Files {
		byName[filepath.Base(fr.File)] = fr
	}
	if byName["clean.json"].Status != StatusOk {
		t.Errorf("clean.json: expected ok, got %v (%#v)", byName["clean.json"].Status, byName["clean.json"].Diagnostics)
	}
	if byName["warning.json"].Status != StatusWarning {
		t.Errorf("warning.json: expected warning, got %v", byName["warning.json"].Status)
	}
	if byName["broken.json"].Status != StatusError {
		t.Errorf("broken.json: expected error, got %v", byName["broken.json"].Status)
	}
}

func TestLint_MissingFileRefIsE002(t *testing.T) {
	dir := t.TempDir()
	writeLintFile(t, dir, "root.json", `{
		"$id": "root",
		"properties": {"buyer": {"$ref": "buyer.json"}}
	}`)

	result, err := Lint(filepath.Join(dir, "root.json"))
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	found := false
	for _, d := range result.Files[0].Diagnostics {
		if d.Code == "E002" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E002 diagnostic, got %#v", result.Files[0].Diagnostics)
	}
}

func TestLint_UnknownVisibilityIsE005(t *testing.T) {
	dir := t.TempDir()
	writeLintFile(t, dir, "root.json", `{
		"$id": "root",
		"properties": {"id": {"type": "string", "ucp_request": "hidden"}}
	}`)

	result, err := Lint(filepath.Join(dir, "root.json"))
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	found := false
	for _, d := range result.Files[0].Diagnostics {
		if d.Code == "E005" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected E005 diagnostic, got %#v", result.Files[0].Diagnostics)
	}
}
