// Package emitter renders the assembled OpenAPI document and the raw
// fragments to disk.
package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/grape2openapi/internal/spec"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml and yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("emitter: unsupported format %q (expected json or yaml)", s)
	}
}

// Options controls where and how the document is written.
type Options struct {
	Out    string // document path; "-" writes the document to Stdout
	Format Format // derived from the Out extension when empty
	// Fragments also writes schemas, paths and tags as separate files under
	// <dir of Out>/fragments for hosts that merge them into their own document.
	Fragments bool
	Force     bool // overwrite existing files
	DryRun    bool // don't write, only plan
	Stdout    io.Writer
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result returns the planned files and the resolved format.
type Result struct {
	Format  Format
	Planned []PlannedFile
}

// Emit renders doc (and frags when requested) according to opts.
func Emit(ctx context.Context, doc *openapi3.T, frags *spec.Fragments, opts Options) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("emitter: nil document")
	}
	out := strings.TrimSpace(opts.Out)
	if out == "" {
		return nil, fmt.Errorf("emitter: Out is required")
	}
	format := opts.Format
	if format == "" {
		format = formatFromPath(out)
	}

	rendered, err := render(doc, format)
	if err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}

	toStdout := out == "-"
	baseDir := "."
	files := map[string][]byte{}
	if toStdout {
		if opts.Fragments {
			return nil, fmt.Errorf("emitter: fragments cannot be written to stdout")
		}
	} else {
		baseDir = filepath.Dir(out)
		files[filepath.Base(out)] = rendered
	}

	if opts.Fragments && frags != nil {
		ext := "." + string(format)
		parts := map[string]any{
			"schemas": frags.Schemas,
			"paths":   frags.Paths,
			"tags":    frags.Tags,
		}
		for name, v := range parts {
			b, err := render(v, format)
			if err != nil {
				return nil, fmt.Errorf("render %s fragment: %w", name, err)
			}
			files[filepath.Join("fragments", name+ext)] = b
		}
	}

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)
	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: filepath.ToSlash(rel), Size: len(files[rel]), Mode: 0o644})
	}
	res := &Result{Format: format, Planned: planned}

	if opts.DryRun {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if toStdout {
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		if _, err := w.Write(rendered); err != nil {
			return nil, fmt.Errorf("write stdout: %w", err)
		}
		return res, nil
	}
	if err := writeFiles(baseDir, files, opts.Force); err != nil {
		return nil, err
	}
	return res, nil
}

func formatFromPath(p string) Format {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// render encodes v as indented JSON or as YAML with the JSON key order kept.
func render(v any, format Format) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case FormatYAML:
		// JSON is valid YAML; decoding into a node keeps key order.
		var node yaml.Node
		if err := yaml.Unmarshal(raw, &node); err != nil {
			return nil, err
		}
		clearStyle(&node)
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(&node); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// clearStyle drops the flow and quoting styles inherited from JSON input.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

func writeFiles(outDir string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if !force {
		for rel := range files {
			if _, err := os.Stat(filepath.Join(abs, rel)); err == nil {
				return fmt.Errorf("emitter: %q already exists (use --force to overwrite)", filepath.Join(abs, rel))
			}
		}
	}
	for rel, content := range files {
		p := filepath.Join(abs, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}
