package e2e

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	cli "github.com/mark3labs/grape2openapi/internal/cli"
)

// manifest covering collisions, wildcards, unions, uploads and recursion
const manifest = `config:
  apiPrefix: api
  apiVersion: v4
entities:
  - name: API::Entities::Namespace
    attributes:
      - { name: id, type: Integer }
      - { name: parent, using: API::Entities::Namespace }
  - name: API::Entities::User
    attributes:
      - { name: id, type: Integer }
      - { name: username, type: String }
      - { name: namespace, using: API::Entities::Namespace }
  - name: API::Entities::Upload
    attributes:
      - { name: url, type: String }
      - { name: size, type: [Integer, String] }
routes:
  - method: GET
    path: /api/:version/users/:id/keys
    params:
      - { name: id, type: Integer, required: true }
    success: { model: API::Entities::User, isArray: true }
  - method: GET
    path: /api/:version/users_id/keys
  - method: PUT
    path: /api/:version/users/:id
    tags: [users]
    params:
      - { name: id, type: Integer, required: true }
      - { name: email, type: String }
      - { name: "identities[provider]", type: String, required: true }
    success: API::Entities::User
  - method: POST
    path: /api/:version/projects/:id/uploads(.:format)
    params:
      - { name: id, type: String, required: true }
      - { name: file, type: "API::Validations::Types::WorkhorseFile", required: true }
    success: API::Entities::Upload
  - method: GET
    path: /api/:version/search
    params:
      - { name: scope, type: "[String, Integer]" }
  - method: "*"
    path: /api/:version/users
  - method: GET
    path: /api/:version/*path
`

func writeManifest(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "routes.yaml")
	if err := os.WriteFile(p, []byte(manifest), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return p
}

func runCLI(t *testing.T, args ...string) {
	t.Helper()
	root := cli.NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("cli execute %v: %v", args, err)
	}
}

func digestDir(t *testing.T, dir string) (files []string, sum string) {
	t.Helper()
	var list []string
	h := sha256.New()
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(dir, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)
		list = append(list, rel)
		// hash path + contents to be robust
		_, _ = h.Write([]byte(rel))
		b, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		_, _ = h.Write(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	sort.Strings(list)
	return list, hex.EncodeToString(h.Sum(nil))
}

func TestE2E_Generate_Deterministic_Across_Concurrency(t *testing.T) {
	input := writeManifest(t)
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	runCLI(t, "generate", "--input", input, "--out", filepath.Join(dir1, "openapi.json"), "--fragments", "--concurrency", "1")
	runCLI(t, "generate", "--input", input, "--out", filepath.Join(dir2, "openapi.json"), "--fragments", "--concurrency", "8")

	files1, sum1 := digestDir(t, dir1)
	files2, sum2 := digestDir(t, dir2)
	if !slicesEqual(files1, files2) || sum1 != sum2 {
		t.Fatalf("generated outputs differ between runs\nfiles1=%v\nfiles2=%v\nsum1=%s\nsum2=%s", files1, files2, sum1, sum2)
	}

	want := []string{"fragments/paths.json", "fragments/schemas.json", "fragments/tags.json", "openapi.json"}
	if !slicesEqual(files1, want) {
		t.Fatalf("unexpected files %v", files1)
	}
}

func TestE2E_Generate_Document_Shape(t *testing.T) {
	input := writeManifest(t)
	out := filepath.Join(t.TempDir(), "openapi.json")
	runCLI(t, "generate", "--input", input, "--out", out, "--concurrency", "4")

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		t.Fatalf("output does not load as OpenAPI: %v", err)
	}
	if os.Getenv("GRAPE2OPENAPI_E2E_VALIDATE") == "1" {
		if err := doc.Validate(context.Background()); err != nil {
			t.Fatalf("output does not validate: %v", err)
		}
	}

	// wildcard method and splat paths are dropped
	if doc.Paths["/api/v4/users"] != nil {
		t.Fatalf("wildcard method route must be filtered")
	}
	for p := range doc.Paths {
		if filepath.Base(p) == "*path" {
			t.Fatalf("splat path %q must be filtered", p)
		}
	}

	// colliding ids get numeric suffixes in route order
	if got := doc.Paths["/api/v4/users/{id}/keys"].Get.OperationID; got != "getApiV4UsersIdKeys" {
		t.Fatalf("first operation id: got %q", got)
	}
	if got := doc.Paths["/api/v4/users_id/keys"].Get.OperationID; got != "getApiV4UsersIdKeys2" {
		t.Fatalf("second operation id: got %q", got)
	}

	upload := doc.Paths["/api/v4/projects/{id}/uploads"]
	if upload == nil || upload.Post == nil {
		t.Fatalf("expected upload route with the format suffix stripped")
	}
	if upload.Post.RequestBody == nil || upload.Post.RequestBody.Value.Content.Get("multipart/form-data") == nil {
		t.Fatalf("file params must produce a multipart body")
	}
	if upload.Post.Responses.Get(201) == nil {
		t.Fatalf("POST without declared code must respond 201")
	}

	put := doc.Paths["/api/v4/users/{id}"].Put
	body := put.RequestBody.Value.Content.Get("application/json").Schema.Value
	identities := body.Properties["identities"]
	if identities == nil || identities.Value.Properties["provider"] == nil {
		t.Fatalf("bracket params must nest into objects")
	}
	if len(put.Parameters) != 1 || put.Parameters[0].Value.In != "path" {
		t.Fatalf("PUT keeps only the path parameter, got %d params", len(put.Parameters))
	}

	search := doc.Paths["/api/v4/search"].Get
	if len(search.Parameters) != 1 || len(search.Parameters[0].Value.Schema.Value.OneOf) != 2 {
		t.Fatalf("union param must produce oneOf with two members")
	}

	for _, name := range []string{"APIEntitiesUser", "APIEntitiesNamespace", "APIEntitiesUpload"} {
		if doc.Components.Schemas[name] == nil {
			t.Fatalf("missing schema %s", name)
		}
	}
	parent := doc.Components.Schemas["APIEntitiesNamespace"].Value.Properties["parent"]
	if parent == nil || parent.Ref != "#/components/schemas/APIEntitiesNamespace" {
		t.Fatalf("self reference must be a $ref, got %+v", parent)
	}

	var tags []string
	for _, tag := range doc.Tags {
		tags = append(tags, tag.Name)
	}
	if !slicesEqual(tags, []string{"projects", "search", "users", "users_id"}) {
		t.Fatalf("unexpected tags %v", tags)
	}

}

func slicesEqual(a, b []string) bool {
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
