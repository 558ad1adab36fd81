package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/grape2openapi/internal/route"
)

func TestInit_WritesSampleConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"init", "--out", path})

	captureStdout(func() {
		if err := root.Execute(); err != nil {
			t.Fatalf("init execute: %v", err)
		}
	})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "grape2openapi configuration") {
		t.Fatalf("unexpected config contents: %s", s)
	}
}

func TestInit_WritesParsableManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "routes.yaml")

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"init", "--out", filepath.Join(dir, "config.yaml"), "--manifest", manifest})

	captureStdout(func() {
		if err := root.Execute(); err != nil {
			t.Fatalf("init execute: %v", err)
		}
	})

	data, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	m, err := route.ParseManifest(data, manifest)
	if err != nil {
		t.Fatalf("sample manifest must parse: %v", err)
	}
	if len(m.Routes) != 3 || len(m.Entities) != 2 {
		t.Fatalf("unexpected sample manifest: %d routes, %d entities", len(m.Routes), len(m.Entities))
	}
}

func TestInit_ExistingWithoutForce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"init", "--out", path})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected error for existing file without --force")
	}
	if _, ok := err.(usageError); !ok {
		t.Fatalf("expected usage error, got %T: %v", err, err)
	}
}
