// Command ucp-schema resolves UCP-annotated JSON Schemas, validates payloads
// against them, and lints schema files for common annotation mistakes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ucp-dev/ucp-schema-go"
	"github.com/ucp-dev/ucp-schema-go/canonicaljson"
)

const appName = "ucp-schema"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ucpschema.ExitCode(err))
	}
}

// cliConfig holds --config flag defaults, loaded from an optional YAML
// file; individual flags still override whatever it sets.
type cliConfig struct {
	LocalBase  string `yaml:"local_base"`
	RemoteBase string `yaml:"remote_base"`
	Strict     bool   `yaml:"strict"`
}

func loadCLIConfig(path string) (cliConfig, error) {
	var cfg cliConfig
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Resolve, validate, and lint UCP-annotated JSON Schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogging(logLevel)
	}

	cmd.AddCommand(resolveCmd(), validateCmd(), lintCmd())
	return cmd
}

func setupLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func resolveCmd() *cobra.Command {
	var (
		isRequest, isResponse bool
		operation             string
		output                string
		pretty, bundleOnly    bool
		strict                bool
		localBase, remoteBase string
		configPath            string
	)

	cmd := &cobra.Command{
		Use:   "resolve [schema]",
		Short: "Resolve a UCP-annotated schema for one direction and operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if isRequest == isResponse {
				return &ucpschema.UsageError{Message: "exactly one of --request or --response is required"}
			}
			cfg, err := loadCLIConfig(configPath)
			if err != nil {
				return err
			}
			if localBase == "" {
				localBase = cfg.LocalBase
			}
			if remoteBase == "" {
				remoteBase = cfg.RemoteBase
			}
			if !cmd.Flags().Changed("strict") {
				strict = cfg.Strict
			}

			driver := ucpschema.NewDriver(ucpschema.DriverOptions{
				Mode:           ucpschema.ModeExplicit,
				SchemaLocation: args[0],
				Direction:      ucpschema.FromRequestFlag(isRequest),
				Operation:      operation,
				Strict:         strict,
				BundleOnly:     bundleOnly,
				Mapper:         ucpschema.URLMapper{LocalBase: localBase, RemoteBase: remoteBase},
				Logger:         slog.Default(),
			})

			resolved, err := driver.ResolveSchema(context.Background(), nil)
			if err != nil {
				return err
			}

			var out []byte
			if pretty {
				out, err = json.MarshalIndent(resolved, "", "  ")
			} else {
				// Canonical (RFC 8785) bytes, not plain json.Marshal: repeated
				// resolve runs on the same input then diff/hash identically.
				out, err = canonicaljson.Marshal(resolved)
			}
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				fmt.Println(string(out))
				return nil
			}
			return os.WriteFile(output, out, 0o644)
		},
	}

	cmd.Flags().BoolVar(&isRequest, "request", false, "Resolve for the request direction")
	cmd.Flags().BoolVar(&isResponse, "response", false, "Resolve for the response direction")
	cmd.Flags().StringVarP(&operation, "op", "o", "", "Operation name")
	cmd.Flags().StringVar(&output, "output", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print output JSON")
	cmd.Flags().BoolVar(&bundleOnly, "bundle", false, "Bundle refs without resolving annotations")
	cmd.Flags().BoolVar(&strict, "strict", false, "Inject additionalProperties: false closures")
	cmd.Flags().StringVar(&localBase, "schema-local-base", "", "Local directory to map schema URLs into")
	cmd.Flags().StringVar(&remoteBase, "schema-remote-base", "", "URL prefix to strip when mapping to local paths")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML file of default flag values")
	return cmd
}

func validateCmd() *cobra.Command {
	var (
		schemaLocation        string
		isRequest, isResponse bool
		operation             string
		jsonOutput            bool
		strict                bool
		localBase, remoteBase string
		configPath            string
		metricsAddr           string
	)

	cmd := &cobra.Command{
		Use:   "validate [payload]",
		Short: "Validate a payload against its self-describing schema or an explicit one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCLIConfig(configPath)
			if err != nil {
				return err
			}
			if localBase == "" {
				localBase = cfg.LocalBase
			}
			if remoteBase == "" {
				remoteBase = cfg.RemoteBase
			}
			if !cmd.Flags().Changed("strict") {
				strict = cfg.Strict
			}

			rawPayload, err := os.ReadFile(args[0])
			if err != nil {
				return &ucpschema.IoError{Location: args[0], Err: err}
			}
			var payload any
			if err := json.Unmarshal(rawPayload, &payload); err != nil {
				return &ucpschema.SchemaError{Err: fmt.Errorf("invalid payload JSON: %w", err)}
			}

			mode := ucpschema.ModeSelfDescribing
			if schemaLocation != "" {
				mode = ucpschema.ModeExplicit
			}
			var direction ucpschema.Direction
			if isRequest || isResponse {
				direction = ucpschema.FromRequestFlag(isRequest)
			}
			if mode == ucpschema.ModeExplicit && direction == "" {
				return &ucpschema.UsageError{Message: "direction required when an explicit schema is given"}
			}

			var metrics *ucpschema.Metrics
			if metricsAddr != "" {
				metrics = ucpschema.NewMetrics(prometheus.DefaultRegisterer)
				go func() {
					if err := http.ListenAndServe(metricsAddr, ucpschema.MetricsHandler()); err != nil {
						slog.Error("metrics server stopped", "cause", err)
					}
				}()
			}

			driver := ucpschema.NewDriver(ucpschema.DriverOptions{
				Mode:           mode,
				SchemaLocation: schemaLocation,
				Direction:      direction,
				Operation:      operation,
				Strict:         strict,
				Mapper:         ucpschema.URLMapper{LocalBase: localBase, RemoteBase: remoteBase},
				Logger:         slog.Default(),
				Metrics:        metrics,
			})

			result, err := driver.ValidatePayload(context.Background(), rawPayload, payload)
			if err != nil {
				if jsonOutput {
					printJSONError(err)
					os.Exit(ucpschema.ExitCode(err))
				}
				return err
			}

			if jsonOutput {
				printResultJSON(result)
			} else {
				printResultText(result)
			}
			if !result.Valid {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaLocation, "schema", "", "Explicit schema file or URL")
	cmd.Flags().BoolVar(&isRequest, "request", false, "Validate for the request direction")
	cmd.Flags().BoolVar(&isResponse, "response", false, "Validate for the response direction")
	cmd.Flags().StringVarP(&operation, "op", "o", "", "Operation name")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON result")
	cmd.Flags().BoolVar(&strict, "strict", false, "Inject additionalProperties: false closures")
	cmd.Flags().StringVar(&localBase, "schema-local-base", "", "Local directory to map schema URLs into")
	cmd.Flags().StringVar(&remoteBase, "schema-remote-base", "", "URL prefix to strip when mapping to local paths")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML file of default flag values")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (optional)")
	return cmd
}

func lintCmd() *cobra.Command {
	var (
		format string
		strict bool
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "lint [path]",
		Short: "Check schema files for annotation and reference mistakes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := ucpschema.Lint(args[0])
			if err != nil {
				// A missing or unreadable lint path exits 2, not the IoError's 3.
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(2)
			}

			if format == "json" {
				printLintJSON(result)
			} else if !quiet {
				printLintText(result)
			}

			if result.ErrorCount > 0 || (strict && result.WarningCount > 0) {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as failures")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress text output, exit code only")
	return cmd
}

func printResultText(r ucpschema.ValidationResult) {
	if r.Valid {
		fmt.Println("valid")
		return
	}
	fmt.Println("invalid:")
	for _, f := range r.Errors {
		fmt.Printf("  %s\n", f.String())
	}
}

func printResultJSON(r ucpschema.ValidationResult) {
	type wireFailure struct {
		Path    string `json:"path"`
		Message string `json:"message"`
	}
	out := struct {
		Valid  bool          `json:"valid"`
		Errors []wireFailure `json:"errors"`
	}{Valid: r.Valid}
	for _, f := range r.Errors {
		out.Errors = append(out.Errors, wireFailure{Path: f.Path, Message: f.Message})
	}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}

func printJSONError(err error) {
	b, _ := json.Marshal(struct {
		Valid bool   `json:"valid"`
		Error string `json:"error"`
	}{Valid: false, Error: err.Error()})
	fmt.Println(string(b))
}

func printLintText(r ucpschema.LintResult) {
	for _, fr := range r.Files {
		icon := "✓"
		switch fr.Status {
		case ucpschema.StatusWarning:
			icon = "⚠"
		case ucpschema.StatusError:
			icon = "✗"
		}
		fmt.Printf("%s %s\n", icon, fr.File)
		for _, d := range fr.Diagnostics {
			fmt.Printf("    [%s] %s %s\n", d.Code, d.Path, d.Message)
		}
	}
	fmt.Printf("%d error(s), %d warning(s)\n", r.ErrorCount, r.WarningCount)
}

func printLintJSON(r ucpschema.LintResult) {
	b, _ := json.Marshal(r)
	fmt.Println(string(b))
}
