package ucpschema

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ucp-dev/ucp-schema-go/refbundle"
)

// Mode selects how the driver obtains the schema to validate against.
type Mode int

const (
	// ModeSelfDescribing composes the schema from the payload's own
	// ucp.capabilities / ucp.meta.profile declaration.
	ModeSelfDescribing Mode = iota
	// ModeExplicit uses a caller-supplied schema location, ignoring any
	// capability declaration present in the payload.
	ModeExplicit
)

// DriverOptions configures one Validate or Resolve run.
type DriverOptions struct {
	Mode Mode

	// SchemaLocation is required in ModeExplicit: a file path or URL.
	SchemaLocation string

	// Direction and Operation select the resolution performed after
	// loading/bundling. In ModeSelfDescribing, Direction may be left zero
	// and is then inferred from the payload; an explicit value here still
	// overrides that inference.
	Direction Direction
	Operation string
	Strict    bool

	// BundleOnly stops the pipeline after reference bundling, skipping
	// annotation resolution and strict injection. Used by `resolve --bundle`.
	BundleOnly bool

	Fetch   ContextFetcher
	Mapper  URLMapper
	Logger  *slog.Logger
	Metrics *Metrics
}

func (o DriverOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(discardHandler{})
}

// ValidationResult is the external-facing translation of an engine run.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationFailure
}

// Driver runs the full load -> bundle -> resolve -> [strict] pipeline, and
// optionally validates a payload against the result.
type Driver struct {
	Options DriverOptions
}

// NewDriver returns a Driver with a default DispatchFetcher filled in when
// Fetch is left unset. A zero Mapper performs no URL mapping.
func NewDriver(opts DriverOptions) *Driver {
	if opts.Fetch == nil {
		opts.Fetch = NewDispatchFetcher()
	}
	return &Driver{Options: opts}
}

// ResolveSchema runs the pipeline up to and including the strict injector
// (if enabled), stopping short of validation. rawPayload is only consulted
// in ModeSelfDescribing, to compose the schema and infer direction.
func (d *Driver) ResolveSchema(ctx context.Context, rawPayload []byte) (map[string]any, error) {
	opts := d.Options
	log := opts.logger()
	if m := opts.Metrics; m != nil {
		start := time.Now()
		defer func() { m.ResolveDurations.Observe(time.Since(start).Seconds()) }()
	}

	var schema map[string]any
	var direction Direction
	var bundleLocation string

	switch opts.Mode {
	case ModeExplicit:
		if opts.SchemaLocation == "" {
			return nil, &UsageError{Message: "explicit mode requires a schema location"}
		}
		if opts.Direction == "" {
			return nil, &UsageError{Message: "direction required when an explicit schema is given"}
		}
		raw, err := fetchLocation(ctx, opts.SchemaLocation, ComposeOptions{Fetch: opts.Fetch, Mapper: opts.Mapper})
		if err != nil {
			return nil, err
		}
		doc, err := decodeJSON(raw)
		if err != nil {
			return nil, &SchemaError{Err: fmt.Errorf("invalid schema JSON at %s: %w", opts.SchemaLocation, err)}
		}
		m, ok := doc.(map[string]any)
		if !ok {
			return nil, &SchemaError{Err: fmt.Errorf("schema at %s is not an object", opts.SchemaLocation)}
		}
		schema, direction, bundleLocation = m, opts.Direction, opts.SchemaLocation
		log.Debug("schema loaded", "stage", "load", "path", opts.SchemaLocation)

	case ModeSelfDescribing:
		composed, inferredDirection, err := Compose(ctx, rawPayload, ComposeOptions{Fetch: opts.Fetch, Mapper: opts.Mapper})
		if err != nil {
			return nil, err
		}
		direction = inferredDirection
		if opts.Direction != "" {
			direction = opts.Direction
		}
		schema, bundleLocation = composed, "composed://payload"
		log.Debug("capabilities composed", "stage", "compose", "direction", string(direction))

	default:
		return nil, &UsageError{Message: "unknown driver mode"}
	}

	bundler := refbundle.NewBundler(composeFetcher{ctx: ctx, opts: ComposeOptions{Fetch: opts.Fetch, Mapper: opts.Mapper}})
	bundled, err := bundler.Bundle(schema, bundleLocation)
	if err != nil {
		log.Error("bundling failed", "stage", "bundle", "cause", err)
		return nil, &SchemaError{Err: fmt.Errorf("bundling refs: %w", err)}
	}
	log.Debug("refs bundled", "stage", "bundle")

	if opts.BundleOnly {
		return bundled, nil
	}

	resolveOpts := NewResolveOptions(direction, opts.Operation).WithStrict(opts.Strict)
	resolved, err := Resolve(bundled, resolveOpts)
	if err != nil {
		log.Error("resolution failed", "stage", "resolve", "cause", err)
		return nil, err
	}
	log.Debug("annotations resolved", "stage", "resolve", "direction", string(direction), "operation", opts.Operation)

	if opts.Strict {
		resolved, err = InjectStrict(resolved)
		if err != nil {
			log.Error("strict injection failed", "stage", "strict", "cause", err)
			return nil, err
		}
		log.Debug("strict closure injected", "stage", "strict")
	}

	return resolved, nil
}

// ValidatePayload runs the full pipeline and then validates the payload
// against the resulting schema, translating the engine's verdict into a
// ValidationResult rather than returning *ValidateError directly, so a
// caller can distinguish "ran successfully but payload is invalid" from a
// pipeline failure.
func (d *Driver) ValidatePayload(ctx context.Context, rawPayload []byte, payload any) (ValidationResult, error) {
	schema, err := d.ResolveSchema(ctx, rawPayload)
	if err != nil {
		d.Options.Metrics.observeValidate("error")
		return ValidationResult{}, err
	}
	if err := Validate(schema, payload); err != nil {
		if ve, ok := err.(*ValidateError); ok {
			d.Options.Metrics.observeValidate("invalid")
			return ValidationResult{Valid: false, Errors: ve.Failures}, nil
		}
		d.Options.Metrics.observeValidate("error")
		return ValidationResult{}, err
	}
	d.Options.Metrics.observeValidate("valid")
	return ValidationResult{Valid: true}, nil
}

// discardHandler is a slog.Handler that drops every record, used as the
// nil-safe default logger so the driver never needs a nil check at each
// call site.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
