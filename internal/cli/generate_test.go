package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/grape2openapi/internal/route"
)

func captureGenerateConfig(t *testing.T, args ...string) (*GenerateConfig, error) {
	t.Helper()

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs(args)
	err := root.Execute()
	return captured, err
}

func TestGenerateConfigFromFlags(t *testing.T) {
	captured, err := captureGenerateConfig(t,
		"--verbose",
		"generate",
		"--input", "routes.yaml",
		"--base", "base.yaml",
		"--out", "./build/openapi.yaml",
		"--format", "YAML",
		"--api-prefix", "rest",
		"--api-version", "v2",
		"--title", "GitLab API",
		"--doc-version", "v4",
		"--servers", "https://a.example.com,https://b.example.com,https://a.example.com",
		"--concurrency", "4",
		"--sanitize",
		"--fragments",
		"--http-timeout", "3s",
		"--dry-run",
		"--force",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if captured.Input != "routes.yaml" {
		t.Errorf("input mismatch: got %q", captured.Input)
	}
	if captured.Base != "base.yaml" {
		t.Errorf("base mismatch: got %q", captured.Base)
	}
	if captured.Out != "./build/openapi.yaml" {
		t.Errorf("out mismatch: got %q", captured.Out)
	}
	if captured.Format != "yaml" {
		t.Errorf("format mismatch: got %q", captured.Format)
	}
	if captured.APIPrefix != "rest" || captured.APIVersion != "v2" {
		t.Errorf("layout mismatch: got %q/%q", captured.APIPrefix, captured.APIVersion)
	}
	if captured.Title != "GitLab API" || captured.Version != "v4" {
		t.Errorf("info mismatch: got %q/%q", captured.Title, captured.Version)
	}
	if want := []string{"https://a.example.com", "https://b.example.com"}; !equalStringSlices(captured.Servers, want) {
		t.Errorf("servers mismatch: got %v", captured.Servers)
	}
	if captured.Concurrency != 4 {
		t.Errorf("concurrency mismatch: got %d", captured.Concurrency)
	}
	if !captured.Sanitize || !captured.Fragments {
		t.Errorf("expected sanitize and fragments true")
	}
	if captured.HTTPTimeout != 3*time.Second {
		t.Errorf("http timeout mismatch: got %s", captured.HTTPTimeout)
	}
	if !captured.DryRun {
		t.Errorf("expected dry-run true")
	}
	if !captured.Force {
		t.Errorf("expected force true")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true")
	}
}

func TestGenerateConfigDefaults(t *testing.T) {
	captured, err := captureGenerateConfig(t, "generate", "--input", "routes.yaml")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured.Out != "openapi.json" {
		t.Errorf("out: want openapi.json got %q", captured.Out)
	}
	if captured.Concurrency != 1 {
		t.Errorf("concurrency: want 1 got %d", captured.Concurrency)
	}
	if captured.HTTPTimeout != 10*time.Second {
		t.Errorf("http timeout: want 10s got %s", captured.HTTPTimeout)
	}
	if captured.APIPrefix != "" || captured.APIVersion != "" {
		t.Errorf("layout must stay unset so the manifest can provide it, got %q/%q", captured.APIPrefix, captured.APIVersion)
	}
}

func TestGenerateConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := strings.TrimSpace(`input: config-routes.yaml
out: from-config.yaml
api-prefix: cfg
servers:
  - https://cfg.example.com
concurrency: 2
httpTimeout: 5
dryRun: true
force: false
verbose: true
`) + "\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	envPath := filepath.Join(tmpDir, "test.env")
	envContent := "GRAPE2OPENAPI_TITLE=From Env\nGRAPE2OPENAPI_OUT=from-env.json\n"
	if err := os.WriteFile(envPath, []byte(envContent), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("GRAPE2OPENAPI_API_VERSION", "v3")
	t.Setenv("GRAPE2OPENAPI_TITLE", "")
	t.Setenv("GRAPE2OPENAPI_OUT", "")
	os.Unsetenv("GRAPE2OPENAPI_TITLE")
	os.Unsetenv("GRAPE2OPENAPI_OUT")

	captured, err := captureGenerateConfig(t,
		"--config", configPath,
		"generate",
		"--env-file", envPath,
		"--input", "flag-routes.yaml",
		"--dry-run=false",
		"--force",
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if captured == nil {
		t.Fatalf("expected config to be captured")
	}

	if captured.Input != "flag-routes.yaml" {
		t.Errorf("input: want %q got %q", "flag-routes.yaml", captured.Input)
	}
	if captured.Out != "from-config.yaml" {
		t.Errorf("out: config must win over env, got %q", captured.Out)
	}
	if captured.Title != "From Env" {
		t.Errorf("title: want env value, got %q", captured.Title)
	}
	if captured.APIVersion != "v3" {
		t.Errorf("api version: want env value v3, got %q", captured.APIVersion)
	}
	if captured.APIPrefix != "cfg" {
		t.Errorf("api prefix: want cfg got %q", captured.APIPrefix)
	}
	if want := []string{"https://cfg.example.com"}; !equalStringSlices(captured.Servers, want) {
		t.Errorf("servers: want %v got %v", want, captured.Servers)
	}
	if captured.Concurrency != 2 {
		t.Errorf("concurrency: want 2 got %d", captured.Concurrency)
	}
	if captured.HTTPTimeout != 5*time.Second {
		t.Errorf("http timeout: want 5s got %s", captured.HTTPTimeout)
	}
	if captured.DryRun {
		t.Errorf("expected dry-run false after flag override")
	}
	if !captured.Force {
		t.Errorf("expected force true after flag override")
	}
	if !captured.Verbose {
		t.Errorf("expected verbose true from config file")
	}
	if captured.ConfigPath != configPath {
		t.Errorf("config path mismatch: got %q", captured.ConfigPath)
	}
	if captured.EnvFile != envPath {
		t.Errorf("env file mismatch: got %q", captured.EnvFile)
	}
}

func TestGenerateConfigUnknownKey(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("lang: go\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	root.SetArgs([]string{
		"--config", configPath,
		"generate",
		"--input", "routes.yaml",
	})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestGenerateConfigValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing input", args: []string{"generate"}, want: "--input is required"},
		{name: "bad format", args: []string{"generate", "--input", "r.yaml", "--format", "toml"}, want: "unsupported --format"},
		{name: "zero concurrency", args: []string{"generate", "--input", "r.yaml", "--concurrency", "0"}, want: "--concurrency"},
		{name: "fragments to stdout", args: []string{"generate", "--input", "r.yaml", "--out", "-", "--fragments"}, want: "--fragments"},
	}
	for _, tc := range cases {
		root := NewRootCmd()
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs(tc.args)

		err := root.Execute()
		if !errors.Is(err, ErrUsage) {
			t.Errorf("%s: expected usage error, got %v", tc.name, err)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: expected %q in %v", tc.name, tc.want, err)
		}
	}
}

func TestGenerateConfigBadValueType(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configPath, []byte("concurrency: lots\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--config", configPath, "generate", "--input", "routes.yaml"})

	err := root.Execute()
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), `config field "concurrency"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLayoutPrecedence(t *testing.T) {
	t.Parallel()

	cfg := &GenerateConfig{}
	if got := cfg.layout(nil); got != route.DefaultConfig() {
		t.Errorf("defaults: got %+v", got)
	}
	fromManifest := &route.Config{APIPrefix: "rest", APIVersion: ""}
	if got := cfg.layout(fromManifest); got.APIPrefix != "rest" || got.APIVersion != "v4" {
		t.Errorf("manifest layout: got %+v", got)
	}
	cfg.APIVersion = "v5"
	if got := cfg.layout(fromManifest); got.APIPrefix != "rest" || got.APIVersion != "v5" {
		t.Errorf("explicit settings must win over the manifest: got %+v", got)
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
