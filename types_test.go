package ucpschema

import "testing"

func TestParseVisibility(t *testing.T) {
	cases := map[string]Visibility{"omit": Omit, "required": Required, "optional": Optional}
	for s, want := range cases {
		got, ok := ParseVisibility(s)
		if !ok || got != want {
			t.Errorf("ParseVisibility(%q) = (%v, %v), want (%v, true)", s, got, ok, want)
		}
	}
	if _, ok := ParseVisibility("hidden"); ok {
		t.Errorf("expected ParseVisibility(\"hidden\") to fail")
	}
}

func TestDirection_AnnotationKey(t *testing.T) {
	if Request.AnnotationKey() != "ucp_request" {
		t.Errorf("got %q", Request.AnnotationKey())
	}
	if Response.AnnotationKey() != "ucp_response" {
		t.Errorf("got %q", Response.AnnotationKey())
	}
}

func TestNewResolveOptions_LowercasesOperation(t *testing.T) {
	opts := NewResolveOptions(Request, "CrEaTe")
	if opts.Operation != "create" {
		t.Errorf("got %q", opts.Operation)
	}
	if opts.Strict {
		t.Errorf("expected strict false by default")
	}
	strict := opts.WithStrict(true)
	if !strict.Strict || opts.Strict {
		t.Errorf("WithStrict should not mutate the receiver")
	}
}

func TestIsConventionalOperation(t *testing.T) {
	if !IsConventionalOperation("CREATE") {
		t.Errorf("expected create to be conventional (case-insensitive)")
	}
	if IsConventionalOperation("approve") {
		t.Errorf("expected approve to be non-conventional")
	}
}
