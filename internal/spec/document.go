package spec

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Info is the host-owned document metadata.
type Info struct {
	Title       string
	Version     string
	Description string
	Servers     []string
}

// Assemble builds a fresh OpenAPI 3.0.3 document from fragments. Only the
// metadata passed in Info is added; security schemes and the like stay with
// the host.
func Assemble(frags *Fragments, info Info) *openapi3.T {
	doc := &openapi3.T{OpenAPI: "3.0.3", Info: &openapi3.Info{}}
	ApplyInfo(doc, info)
	Merge(doc, frags)
	return doc
}

// ApplyInfo copies the non-empty fields of info onto doc.
func ApplyInfo(doc *openapi3.T, info Info) {
	if doc.Info == nil {
		doc.Info = &openapi3.Info{}
	}
	if t := strings.TrimSpace(info.Title); t != "" {
		doc.Info.Title = t
	}
	if v := strings.TrimSpace(info.Version); v != "" {
		doc.Info.Version = v
	}
	if d := strings.TrimSpace(info.Description); d != "" {
		doc.Info.Description = d
	}
	for _, u := range info.Servers {
		if u = strings.TrimSpace(u); u != "" && !hasServer(doc.Servers, u) {
			doc.Servers = append(doc.Servers, &openapi3.Server{URL: u})
		}
	}
}

// Merge adds fragments to doc. Generated schemas replace components of the
// same name and generated operations replace the same method on the same
// path; everything else already in doc is kept. Tags are unioned and sorted.
func Merge(doc *openapi3.T, frags *Fragments) {
	if doc.Paths == nil {
		doc.Paths = openapi3.Paths{}
	}
	if doc.Components == nil {
		doc.Components = &openapi3.Components{}
	}
	if doc.Components.Schemas == nil {
		doc.Components.Schemas = openapi3.Schemas{}
	}
	if frags == nil {
		return
	}

	for name, s := range frags.Schemas {
		doc.Components.Schemas[name] = toSchemaRef(s)
	}

	for path, item := range frags.Paths {
		pi := doc.Paths[path]
		if pi == nil {
			pi = &openapi3.PathItem{}
			doc.Paths[path] = pi
		}
		for method, op := range item {
			if op == nil {
				continue
			}
			pi.SetOperation(strings.ToUpper(method), toOperation(op))
		}
	}

	seen := make(map[string]bool, len(doc.Tags)+len(frags.Tags))
	for _, t := range doc.Tags {
		seen[t.Name] = true
	}
	for _, name := range frags.Tags {
		if !seen[name] {
			seen[name] = true
			doc.Tags = append(doc.Tags, &openapi3.Tag{Name: name})
		}
	}
	sort.SliceStable(doc.Tags, func(i, j int) bool { return doc.Tags[i].Name < doc.Tags[j].Name })
}

func hasServer(servers openapi3.Servers, u string) bool {
	for _, s := range servers {
		if s != nil && s.URL == u {
			return true
		}
	}
	return false
}

func toOperation(op *Operation) *openapi3.Operation {
	out := &openapi3.Operation{
		OperationID: op.OperationID,
		Description: op.Description,
		Tags:        append([]string(nil), op.Tags...),
		Responses:   openapi3.Responses{},
	}
	for i := range op.Parameters {
		p := op.Parameters[i]
		out.Parameters = append(out.Parameters, &openapi3.ParameterRef{Value: &openapi3.Parameter{
			Name:        p.Name,
			In:          p.In,
			Description: p.Description,
			Required:    p.Required,
			Schema:      toSchemaRef(p.Schema),
			Example:     p.Example,
		}})
	}
	if op.RequestBody != nil {
		out.RequestBody = &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
			Required: op.RequestBody.Required,
			Content:  toContent(op.RequestBody.Content),
		}}
	}
	for code, r := range op.Responses {
		if r == nil {
			continue
		}
		desc := r.Description
		out.Responses[code] = &openapi3.ResponseRef{Value: &openapi3.Response{
			Description: &desc,
			Content:     toContent(r.Content),
		}}
	}
	return out
}

func toContent(content map[string]MediaType) openapi3.Content {
	if len(content) == 0 {
		return nil
	}
	out := make(openapi3.Content, len(content))
	for mime, mt := range content {
		out[mime] = &openapi3.MediaType{Schema: toSchemaRef(mt.Schema)}
	}
	return out
}

func toSchemaRef(s *Schema) *openapi3.SchemaRef {
	if s == nil {
		return nil
	}
	if s.Ref != "" {
		return openapi3.NewSchemaRef(s.Ref, nil)
	}
	v := &openapi3.Schema{
		Type:        s.Type,
		Format:      s.Format,
		Description: s.Description,
		Default:     s.Default,
		Example:     s.Example,
		Pattern:     s.Pattern,
		Min:         s.Minimum,
		Max:         s.Maximum,
		Required:    append([]string(nil), s.Required...),
	}
	if s.Enum != nil {
		v.Enum = append([]any{}, s.Enum...)
	}
	if s.Items != nil {
		v.Items = toSchemaRef(s.Items)
	}
	if s.Properties.Len() > 0 {
		v.Properties = make(openapi3.Schemas, s.Properties.Len())
		for _, name := range s.Properties.Keys() {
			child, _ := s.Properties.Get(name)
			v.Properties[name] = toSchemaRef(child)
		}
	}
	for _, alt := range s.OneOf {
		v.OneOf = append(v.OneOf, toSchemaRef(alt))
	}
	return openapi3.NewSchemaRef("", v)
}
