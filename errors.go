package ucpschema

import (
	"fmt"
	"strings"
)

// SchemaError reports a malformed UCP annotation or an otherwise unusable
// schema document: unknown visibility strings, wrongly-shaped ucp_request/
// ucp_response values, or a capability graph that cannot be composed.
// SchemaError and UsageError map to exit code 2; IoError maps to 3;
// ValidateError maps to 1 (see ExitCode).
type SchemaError struct {
	Path string
	Err  error
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func (e *SchemaError) ExitCode() int { return 2 }

// IoError wraps a failure to read a local file or fetch a remote document.
type IoError struct {
	Location string
	Err      error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

func (e *IoError) ExitCode() int { return 3 }

// UsageError reports missing or conflicting caller-supplied options, such
// as an explicit schema given without a direction, or neither or both of
// the request and response directions selected.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

func (e *UsageError) ExitCode() int { return 2 }

// ValidationFailure is a single payload/schema mismatch, identified by the
// JSON Pointer into the payload at which it occurred.
type ValidationFailure struct {
	Path    string
	Message string
}

func (f ValidationFailure) String() string {
	if f.Path == "" || f.Path == "/" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Path, f.Message)
}

// ValidateError aggregates every ValidationFailure found while checking a
// payload against a schema. It is returned as a single error so callers
// that only care whether validation failed can use a plain error check,
// while callers that want the full diagnostic list can type-assert to it.
type ValidateError struct {
	Failures []ValidationFailure
}

func (e *ValidateError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

func (e *ValidateError) ExitCode() int { return 1 }

// exitCoder is implemented by every error type this package returns from a
// top-level operation, letting a CLI map an error straight to os.Exit.
type exitCoder interface {
	ExitCode() int
}

// ExitCode returns the process exit code associated with err, or 1 for any
// error that doesn't declare one (including a plain non-UCP error).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ec, ok := err.(exitCoder); ok {
		return ec.ExitCode()
	}
	return 1
}
