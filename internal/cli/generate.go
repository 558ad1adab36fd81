package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/grape2openapi/internal/config"
	"github.com/mark3labs/grape2openapi/internal/converter"
	"github.com/mark3labs/grape2openapi/internal/emitter"
	"github.com/mark3labs/grape2openapi/internal/fetch"
	"github.com/mark3labs/grape2openapi/internal/route"
	"github.com/mark3labs/grape2openapi/internal/spec"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, environment, config file values, and CLI overrides.
type GenerateConfig struct {
	Input       string
	Base        string
	Out         string
	Format      string
	APIPrefix   string
	APIVersion  string
	Title       string
	Version     string
	Description string
	Servers     []string
	Concurrency int
	Sanitize    bool
	Fragments   bool
	HTTPTimeout time.Duration
	EnvFile     string
	ConfigPath  string
	DryRun      bool
	Force       bool
	Verbose     bool
}

// defaultGenerateConfig seeds the config from the environment (and .env).
func defaultGenerateConfig(envFile string) (GenerateConfig, error) {
	env, err := config.Load(envFile)
	if err != nil {
		return GenerateConfig{}, newUsageError(fmt.Sprintf("generate: %v", err))
	}
	return GenerateConfig{
		Input:       env.Input,
		Base:        env.Base,
		Out:         env.Out,
		Format:      env.Format,
		APIPrefix:   env.APIPrefix,
		APIVersion:  env.APIVersion,
		Title:       env.Title,
		Version:     env.Version,
		Description: env.Description,
		Servers:     env.Servers,
		Concurrency: env.Concurrency,
		Sanitize:    env.Sanitize,
		Fragments:   env.Fragments,
		HTTPTimeout: env.HTTPTimeout,
		EnvFile:     envFile,
		Verbose:     env.Verbose,
	}, nil
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an OpenAPI 3 document from a Grape route manifest",
		Long: "Generate OpenAPI 3 schemas, paths and tags from a route manifest exported by a Grape API. " +
			"Options can be provided via flags, config files, GRAPE2OPENAPI_* environment variables, or defaults.",
		Example: strings.TrimSpace(`  grape2openapi generate --input routes.yaml --out openapi.yaml
  grape2openapi generate --input routes.yaml --base base.yaml --fragments --force
  grape2openapi --config grape2openapi.yaml generate --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the route manifest (YAML or JSON)")
	flags.String("base", "", "Path or URL to a base OpenAPI/Swagger document to merge into")
	flags.String("out", "", "Output document path, or - for stdout (default openapi.json)")
	flags.String("format", "", "Output format (json|yaml); derived from --out when omitted")
	flags.String("api-prefix", "", "Path segment dropped before tag derivation (default api)")
	flags.String("api-version", "", "Value substituted for :version in paths (default v4)")
	flags.String("title", "", "Document info.title")
	flags.String("doc-version", "", "Document info.version")
	flags.String("description", "", "Document info.description")
	flags.StringSlice("servers", nil, "Server URLs to list in the document")
	flags.Int("concurrency", 0, "Number of path groups converted in parallel")
	flags.Bool("sanitize", false, "Strip HTML from route descriptions")
	flags.Bool("fragments", false, "Also write schemas, paths and tags as separate fragment files")
	flags.Duration("http-timeout", 0, "Timeout for fetching remote inputs")
	flags.String("env-file", "", "Load environment variables from this file (default .env when present)")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}
	cfg, err := defaultGenerateConfig(strings.TrimSpace(envFile))
	if err != nil {
		return nil, err
	}

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	stringFlags := map[string]*string{
		"input":       &cfg.Input,
		"base":        &cfg.Base,
		"out":         &cfg.Out,
		"format":      &cfg.Format,
		"api-prefix":  &cfg.APIPrefix,
		"api-version": &cfg.APIVersion,
		"title":       &cfg.Title,
		"doc-version": &cfg.Version,
		"description": &cfg.Description,
	}
	for name, dst := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	boolFlags := map[string]*bool{
		"sanitize":  &cfg.Sanitize,
		"fragments": &cfg.Fragments,
		"dry-run":   &cfg.DryRun,
		"force":     &cfg.Force,
		"verbose":   &cfg.Verbose,
	}
	for name, dst := range boolFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	if flags.Changed("servers") {
		value, err := flags.GetStringSlice("servers")
		if err != nil {
			return err
		}
		cfg.Servers = value
	}
	if flags.Changed("concurrency") {
		value, err := flags.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = value
	}
	if flags.Changed("http-timeout") {
		value, err := flags.GetDuration("http-timeout")
		if err != nil {
			return err
		}
		cfg.HTTPTimeout = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Base = strings.TrimSpace(c.Base)
	c.Out = strings.TrimSpace(c.Out)
	if c.Out == "" {
		c.Out = "openapi.json"
	}
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.APIPrefix = strings.TrimSpace(c.APIPrefix)
	c.APIVersion = strings.TrimSpace(c.APIVersion)
	c.Title = strings.TrimSpace(c.Title)
	c.Version = strings.TrimSpace(c.Version)
	c.Description = strings.TrimSpace(c.Description)
	c.Servers = sanitizeList(c.Servers)
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag, config file, or GRAPE2OPENAPI_INPUT)")
	}
	if c.Format != "" {
		if _, err := emitter.ParseFormat(c.Format); err != nil {
			return newUsageError(fmt.Sprintf("generate: unsupported --format %q (allowed: json, yaml)", c.Format))
		}
	}
	if c.Concurrency < 1 {
		return newUsageError(fmt.Sprintf("generate: --concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.HTTPTimeout < 0 {
		return newUsageError("generate: --http-timeout must not be negative")
	}
	if c.Out == "-" && c.Fragments {
		return newUsageError("generate: --fragments needs a file --out, not stdout")
	}
	return nil
}

// layout resolves the API layout: defaults, then the manifest's own config,
// then explicit settings.
func (c *GenerateConfig) layout(fromManifest *route.Config) route.Config {
	layout := route.DefaultConfig()
	if fromManifest != nil {
		if fromManifest.APIPrefix != "" {
			layout.APIPrefix = fromManifest.APIPrefix
		}
		if fromManifest.APIVersion != "" {
			layout.APIVersion = fromManifest.APIVersion
		}
	}
	if c.APIPrefix != "" {
		layout.APIPrefix = c.APIPrefix
	}
	if c.APIVersion != "" {
		layout.APIVersion = c.APIVersion
	}
	return layout
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	logger := newLogger(os.Stderr, cfg.Verbose)
	var fetchOpts []fetch.Option
	if cfg.HTTPTimeout > 0 {
		fetchOpts = append(fetchOpts, fetch.WithHTTPTimeout(cfg.HTTPTimeout))
	}

	// 1) Load the route manifest (file or http/https URL) and check its contract
	manifest, err := route.LoadManifest(ctx, cfg.Input, fetchOpts...)
	if err != nil {
		var me *route.ManifestError
		if errors.As(err, &me) {
			return newUsageError(describeLoadError("manifest", me.Message, me.Location, me.JSONPointer))
		}
		return err
	}

	// 2) Convert routes into fragments
	layout := cfg.layout(manifest.Config)
	gen := converter.NewGenerator(layout,
		converter.WithLogger(logger),
		converter.WithConcurrency(cfg.Concurrency),
		converter.WithSanitizedDescriptions(cfg.Sanitize),
	)
	frags, err := gen.Generate(manifest.Routes)
	if err != nil {
		if errors.Is(err, converter.ErrInvalidRoute) {
			return newUsageError(fmt.Sprintf("manifest: %v\nLocation: %s", err, cfg.Input))
		}
		return fmt.Errorf("generate: %w", err)
	}
	logger.Debug("converted routes",
		"routes", len(manifest.Routes),
		"paths", len(frags.Paths),
		"schemas", len(frags.Schemas),
		"tags", len(frags.Tags),
		"prefix", layout.APIPrefix,
		"version", layout.APIVersion,
	)

	// 3) Assemble a fresh document or merge into the host's base document
	doc, err := buildDocument(ctx, cfg, layout, frags, fetchOpts)
	if err != nil {
		return err
	}

	// 4) Emit
	absOut := cfg.Out
	if cfg.Out != "-" {
		if ap, err := filepath.Abs(cfg.Out); err == nil {
			absOut = ap
		}
	}
	var format emitter.Format
	if cfg.Format != "" {
		format, _ = emitter.ParseFormat(cfg.Format)
	}
	res, err := emitter.Emit(ctx, doc, frags, emitter.Options{
		Out:       cfg.Out,
		Format:    format,
		Fragments: cfg.Fragments,
		Force:     cfg.Force,
		DryRun:    cfg.DryRun,
		Stdout:    os.Stdout,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}

	paths := make([]string, 0, len(res.Planned))
	for _, p := range res.Planned {
		paths = append(paths, p.RelPath)
	}
	switch {
	case cfg.DryRun:
		printPlan(filepath.Dir(absOut), len(res.Planned), paths)
	case cfg.Out != "-":
		logger.Info("wrote document", "out", absOut, "format", res.Format, "files", len(paths))
	}
	return nil
}

func buildDocument(ctx context.Context, cfg *GenerateConfig, layout route.Config, frags *spec.Fragments, fetchOpts []fetch.Option) (*openapi3.T, error) {
	info := spec.Info{
		Title:       cfg.Title,
		Version:     cfg.Version,
		Description: cfg.Description,
		Servers:     cfg.Servers,
	}
	if cfg.Base == "" {
		if info.Title == "" {
			info.Title = "API"
		}
		if info.Version == "" {
			info.Version = layout.APIVersion
		}
		if info.Version == "" {
			info.Version = "1.0.0"
		}
		return spec.Assemble(frags, info), nil
	}

	doc, err := spec.LoadBase(ctx, cfg.Base,
		spec.WithFetchOptions(fetchOpts...),
		spec.WithLogger(newLogger(os.Stderr, cfg.Verbose)),
	)
	if err != nil {
		var se *spec.SpecError
		if errors.As(err, &se) {
			return nil, newUsageError(describeLoadError("base", se.Message, se.Location, se.JSONPointer))
		}
		return nil, err
	}
	spec.ApplyInfo(doc, info)
	spec.Merge(doc, frags)
	return doc, nil
}

func describeLoadError(kind, message, location, pointer string) string {
	msg := fmt.Sprintf("%s: %s", kind, message)
	if location != "" {
		msg = fmt.Sprintf("%s\nLocation: %s", msg, location)
	}
	if pointer != "" {
		msg = fmt.Sprintf("%s\nPointer: %s", msg, pointer)
	}
	return msg
}

func printPlan(outDir string, count int, relPaths []string) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, count)
	for _, p := range relPaths {
		fmt.Fprintf(os.Stdout, "- %s\n", p)
	}
}

func wrapOutputError(err error, out string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "already exists") || strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", out, msg))
	}
	return err
}

func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		var err error
		switch normalizeKey(key) {
		case "input":
			cfg.Input, err = valueAsString(value)
		case "base":
			cfg.Base, err = valueAsString(value)
		case "out":
			cfg.Out, err = valueAsString(value)
		case "format":
			cfg.Format, err = valueAsString(value)
		case "apiprefix":
			cfg.APIPrefix, err = valueAsString(value)
		case "apiversion":
			cfg.APIVersion, err = valueAsString(value)
		case "title":
			cfg.Title, err = valueAsString(value)
		case "version", "docversion":
			cfg.Version, err = valueAsString(value)
		case "description":
			cfg.Description, err = valueAsString(value)
		case "servers":
			cfg.Servers, err = valueAsStringSlice(value)
		case "concurrency":
			cfg.Concurrency, err = valueAsInt(value)
		case "sanitize":
			cfg.Sanitize, err = valueAsBool(value)
		case "fragments":
			cfg.Fragments, err = valueAsBool(value)
		case "httptimeout":
			cfg.HTTPTimeout, err = valueAsDuration(value)
		case "dryrun":
			cfg.DryRun, err = valueAsBool(value)
		case "force":
			cfg.Force, err = valueAsBool(value)
		case "verbose":
			cfg.Verbose, err = valueAsBool(value)
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
		if err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

// valueAsDuration accepts Go duration strings ("10s") or whole seconds.
func valueAsDuration(v any) (time.Duration, error) {
	switch val := v.(type) {
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", val)
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Second, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected duration, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
