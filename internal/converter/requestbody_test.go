package converter

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mark3labs/grape2openapi/internal/route"
	"github.com/mark3labs/grape2openapi/internal/spec"
)

func TestRequestBodyConverterNestedParams(t *testing.T) {
	t.Parallel()

	r := route.Route{
		Method: "POST",
		Path:   "/api/:version/projects/:id/releases",
		Params: []route.ParamSpec{
			{Name: "id", Type: "String", Required: true},
			{Name: "tag_name", Type: "String", Desc: "The tag", Required: true},
			{Name: "assets[links]", Type: "Array", Desc: "Link info"},
			{Name: "assets[links][name]", Type: "String", Required: true},
			{Name: "assets[links][url]", Type: "String", Required: true},
		},
	}
	path := NormalizePath(r.Path, route.DefaultConfig())
	got := NewRequestBodyConverter(nil).Convert(r, path)
	if got == nil {
		t.Fatalf("expected a request body")
	}

	link := &spec.Schema{
		Type: "object",
		Properties: props(
			"name", &spec.Schema{Type: "string"},
			"url", &spec.Schema{Type: "string"},
		),
		Required: []string{"name", "url"},
	}
	want := &spec.RequestBody{
		Required: true,
		Content: map[string]spec.MediaType{spec.ContentTypeJSON: {Schema: &spec.Schema{
			Type: "object",
			Properties: props(
				"tag_name", &spec.Schema{Type: "string", Description: "The tag"},
				"assets", &spec.Schema{Type: "object", Properties: props(
					"links", &spec.Schema{Type: "array", Description: "Link info", Items: link},
				)},
			),
			Required: []string{"tag_name"},
		}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestRequestBodyConverterMultipart(t *testing.T) {
	t.Parallel()

	r := route.Route{
		Method: "POST",
		Path:   "/api/v4/projects/:id/uploads",
		Params: []route.ParamSpec{
			{Name: "id", Type: "String"},
			{Name: "file", Type: "API::Validations::Types::WorkhorseFile", Desc: "The attachment"},
		},
	}
	got := NewRequestBodyConverter(nil).Convert(r, NormalizePath(r.Path, route.DefaultConfig()))
	if got == nil {
		t.Fatalf("expected a request body")
	}
	if got.Required {
		t.Errorf("body without required params must not be required")
	}
	mt, ok := got.Content[spec.ContentTypeMultipart]
	if !ok {
		t.Fatalf("expected multipart content, got %v", got.Content)
	}
	file, _ := mt.Schema.Properties.Get("file")
	if file == nil || file.Type != "string" || file.Format != "binary" {
		t.Fatalf("unexpected file schema: %+v", file)
	}
}

func TestRequestBodyConverterNoBody(t *testing.T) {
	t.Parallel()

	c := NewRequestBodyConverter(nil)
	get := route.Route{Method: "GET", Path: "/api/v4/projects", Params: []route.ParamSpec{{Name: "search", Type: "String"}}}
	if got := c.Convert(get, "/api/v4/projects"); got != nil {
		t.Errorf("GET must not have a body, got %+v", got)
	}
	put := route.Route{Method: "PUT", Path: "/api/v4/projects/:id", Params: []route.ParamSpec{{Name: "id", Type: "String"}}}
	if got := c.Convert(put, "/api/v4/projects/{id}"); got != nil {
		t.Errorf("path-only params must not produce a body, got %+v", got)
	}
}

func TestSplitBracketName(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"name":                {"name"},
		"assets[links]":       {"assets", "links"},
		"assets[links][name]": {"assets", "links", "name"},
		"broken[":             {"broken["},
		"[lead]":              {"[lead]"},
		"a[]":                 {"a[]"},
	}
	for in, want := range cases {
		if diff := cmp.Diff(want, splitBracketName(in)); diff != "" {
			t.Errorf("splitBracketName(%q) mismatch (-want +got):\n%s", in, diff)
		}
	}
}
