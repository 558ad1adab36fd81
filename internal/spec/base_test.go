package spec

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/grape2openapi/internal/fetch"
)

const baseV3 = `openapi: 3.0.3
info:
  title: GitLab API
  version: v4
components:
  securitySchemes:
    token:
      type: apiKey
      in: header
      name: PRIVATE-TOKEN
paths:
  /health:
    get:
      operationId: health
      responses:
        '200':
          description: OK
`

const baseV2 = `swagger: "2.0"
info:
  title: GitLab API
  version: v4
paths:
  /api/v4/projects/{id}/uploads:
    post:
      consumes: [multipart/form-data]
      parameters:
      - in: path
        name: id
        required: true
        type: string
      - in: body
        name: description
        schema: { type: string }
      - in: formData
        name: file
        type: file
        required: true
      responses:
        '201': { description: Created }
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadBaseV3File(t *testing.T) {
	t.Parallel()

	doc, err := LoadBase(context.Background(), writeTemp(t, "base.yaml", baseV3))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Info.Title != "GitLab API" {
		t.Fatalf("unexpected title %q", doc.Info.Title)
	}
	if doc.Components == nil || doc.Components.SecuritySchemes["token"] == nil {
		t.Fatalf("expected security scheme to survive loading")
	}
	if doc.Paths["/health"] == nil {
		t.Fatalf("expected /health path")
	}
}

func TestLoadBaseConvertsSwagger2(t *testing.T) {
	t.Parallel()

	doc, err := LoadBase(context.Background(), writeTemp(t, "base.yaml", baseV2))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.OpenAPI == "" || doc.OpenAPI[0] != '3' {
		t.Fatalf("expected a v3 document, got %q", doc.OpenAPI)
	}
	item := doc.Paths["/api/v4/projects/{id}/uploads"]
	if item == nil || item.Post == nil {
		t.Fatalf("expected converted POST operation")
	}
	if item.Post.RequestBody == nil || item.Post.RequestBody.Value.Content["multipart/form-data"] == nil {
		t.Fatalf("expected multipart request body after conversion")
	}
}

func TestLoadBaseRemote(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(baseV3))
	}))
	defer srv.Close()

	doc, err := LoadBase(context.Background(), srv.URL+"/base.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Paths["/health"] == nil {
		t.Fatalf("expected /health path")
	}
}

func TestLoadBaseErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cases := []struct {
		name  string
		input string
		opts  []BaseOption
		code  ErrorCode
	}{
		{name: "empty", input: " ", code: InputError},
		{name: "unsupported scheme", input: "ftp://example.com/base.yaml", code: InputError},
		{name: "missing file", input: filepath.Join(t.TempDir(), "missing.yaml"), code: InputError},
		{name: "unknown version", input: writeTemp(t, "base.yaml", "info: {title: x}\n"), code: ParseError},
		{
			name:  "network",
			input: "http://127.0.0.1:1/base.yaml",
			opts:  []BaseOption{WithFetchOptions(fetch.WithHTTPTimeout(200*time.Millisecond), fetch.WithMaxRetries(1))},
			code:  NetworkError,
		},
	}
	for _, tc := range cases {
		_, err := LoadBase(ctx, tc.input, tc.opts...)
		var se *SpecError
		if !errors.As(err, &se) {
			t.Errorf("%s: expected SpecError, got %v (%T)", tc.name, err, err)
			continue
		}
		if se.Code != tc.code {
			t.Errorf("%s: expected %s, got %s (%v)", tc.name, tc.code, se.Code, err)
		}
	}
}
