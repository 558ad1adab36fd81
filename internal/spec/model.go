package spec

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// OpenAPI fragment model produced by the converters. Values are built fresh
// per generation run and treated as immutable once returned.

const (
	ContentTypeJSON      = "application/json"
	ContentTypeMultipart = "multipart/form-data"

	// ComponentsPrefix is the $ref prefix for registered schemas.
	ComponentsPrefix = "#/components/schemas/"
)

type Schema struct {
	Ref         string
	Type        string
	Format      string
	Description string
	Properties  *Properties
	Items       *Schema
	OneOf       []*Schema
	// Enum is nil when absent; an empty non-nil slice encodes as [].
	Enum     []any
	Default  any
	Example  any
	Pattern  string
	Minimum  *float64
	Maximum  *float64
	Required []string
}

// RefTo returns a reference-only schema.
func RefTo(ref string) *Schema {
	return &Schema{Ref: ref}
}

// MarshalJSON writes keys in a stable, OpenAPI-conventional order.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	w := objectWriter{}
	w.field("$ref", s.Ref, s.Ref != "")
	w.field("type", s.Type, s.Type != "")
	w.field("format", s.Format, s.Format != "")
	w.field("description", s.Description, s.Description != "")
	w.field("properties", s.Properties, s.Properties != nil)
	w.field("items", s.Items, s.Items != nil)
	w.field("oneOf", s.OneOf, len(s.OneOf) > 0)
	w.field("enum", s.Enum, s.Enum != nil)
	w.field("default", s.Default, s.Default != nil)
	w.field("example", s.Example, s.Example != nil)
	w.field("pattern", s.Pattern, s.Pattern != "")
	w.field("minimum", s.Minimum, s.Minimum != nil)
	w.field("maximum", s.Maximum, s.Maximum != nil)
	w.field("required", s.Required, len(s.Required) > 0)
	return w.close()
}

// Properties is an insertion-ordered property map.
type Properties struct {
	keys   []string
	values map[string]*Schema
}

func NewProperties() *Properties {
	return &Properties{values: make(map[string]*Schema)}
}

// Set stores a property; re-setting a name keeps its original position.
func (p *Properties) Set(name string, s *Schema) {
	if p.values == nil {
		p.values = make(map[string]*Schema)
	}
	if _, exists := p.values[name]; !exists {
		p.keys = append(p.keys, name)
	}
	p.values[name] = s
}

func (p *Properties) Get(name string) (*Schema, bool) {
	if p == nil {
		return nil, false
	}
	s, ok := p.values[name]
	return s, ok
}

func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Equal lets go-cmp compare property maps including their order.
func (p *Properties) Equal(o *Properties) bool {
	if p.Len() != o.Len() {
		return false
	}
	if p.Len() == 0 {
		return true
	}
	for i, k := range p.keys {
		if o.keys[i] != k || !reflect.DeepEqual(p.values[k], o.values[k]) {
			return false
		}
	}
	return true
}

func (p *Properties) MarshalJSON() ([]byte, error) {
	w := objectWriter{}
	if p != nil {
		for _, k := range p.keys {
			w.field(k, p.values[k], true)
		}
	}
	return w.close()
}

type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"` // path|query
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required"`
	Schema      *Schema `json:"schema"`
	Example     any     `json:"example,omitempty"`
}

type MediaType struct {
	Schema *Schema `json:"schema"`
}

type RequestBody struct {
	Required bool                 `json:"required"`
	Content  map[string]MediaType `json:"content"`
}

type Response struct {
	StatusCode  string               `json:"-"`
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

type Operation struct {
	OperationID string               `json:"operationId"`
	Description string               `json:"description,omitempty"`
	Tags        []string             `json:"tags"`
	Parameters  []Parameter          `json:"parameters,omitempty"`
	RequestBody *RequestBody         `json:"requestBody,omitempty"`
	Responses   map[string]*Response `json:"responses"`
}

// PathItem maps a lowercase HTTP method to its operation.
type PathItem map[string]*Operation

// Fragments are the three pieces a host merges into its OpenAPI document.
type Fragments struct {
	Schemas map[string]*Schema  `json:"schemas"`
	Paths   map[string]PathItem `json:"paths"`
	Tags    []string            `json:"tags"`
	// RequestBodies is keyed by operation id. It is kept for callers that
	// want to lift bodies into components; the document inlines them.
	RequestBodies map[string]*RequestBody `json:"-"`
}

// objectWriter emits a JSON object with caller-controlled key order.
type objectWriter struct {
	buf bytes.Buffer
	n   int
	err error
}

func (w *objectWriter) field(key string, value any, include bool) {
	if !include || w.err != nil {
		return
	}
	if w.n == 0 {
		w.buf.WriteByte('{')
	} else {
		w.buf.WriteByte(',')
	}
	k, err := json.Marshal(key)
	if err != nil {
		w.err = err
		return
	}
	v, err := json.Marshal(value)
	if err != nil {
		w.err = err
		return
	}
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(v)
	w.n++
}

func (w *objectWriter) close() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.n == 0 {
		return []byte("{}"), nil
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes(), nil
}
