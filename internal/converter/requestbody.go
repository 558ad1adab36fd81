package converter

import (
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/grape2openapi/internal/route"
	"github.com/mark3labs/grape2openapi/internal/spec"
)

// RequestBodyConverter folds the non-path params of body-carrying routes
// into a request body schema.
type RequestBodyConverter struct {
	logger *slog.Logger
}

func NewRequestBodyConverter(logger *slog.Logger) *RequestBodyConverter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RequestBodyConverter{logger: logger}
}

// Convert returns nil when r has no body: GET/DELETE routes or routes
// without body params.
func (c *RequestBodyConverter) Convert(r route.Route, path string) *spec.RequestBody {
	if !HasBody(r.Method) {
		return nil
	}
	var params []route.ParamSpec
	contentType := spec.ContentTypeJSON
	for _, p := range r.Params {
		if strings.TrimSpace(p.Name) == "" || InValue(p.Name, path) == "path" {
			continue
		}
		if IsFileType(p.Type) {
			contentType = spec.ContentTypeMultipart
		}
		params = append(params, p)
	}
	if len(params) == 0 {
		return nil
	}

	schema := c.objectSchema(nestParams(params), r.Validations)
	return &spec.RequestBody{
		Required: len(schema.Required) > 0,
		Content:  map[string]spec.MediaType{contentType: {Schema: schema}},
	}
}

func (c *RequestBodyConverter) objectSchema(nodes []*paramNode, validations []route.Validation) *spec.Schema {
	s := &spec.Schema{Type: "object", Properties: spec.NewProperties()}
	for _, n := range nodes {
		s.Properties.Set(n.key, c.nodeSchema(n, validations))
		if n.param.Required {
			s.Required = append(s.Required, n.key)
		}
	}
	return s
}

func (c *RequestBodyConverter) nodeSchema(n *paramNode, validations []route.Validation) *spec.Schema {
	desc := paramDescription(n.param)
	if len(n.children) == 0 {
		s := ParameterSchema(n.param, validations, c.logger)
		s.Description = desc
		s.Example = n.param.Documentation.Example
		return s
	}

	obj := c.objectSchema(n.children, validations)
	if isArrayType(n.param.Type) {
		return &spec.Schema{Type: "array", Description: desc, Items: obj}
	}
	obj.Description = desc
	return obj
}

func isArrayType(declared string) bool {
	if _, ok := arrayInner(declared); ok {
		return true
	}
	return ResolveType(declared) == "array"
}

// paramNode is one level of a bracket-notation parameter tree.
type paramNode struct {
	key      string
	param    route.ParamSpec
	children []*paramNode
	index    map[string]*paramNode
}

func (n *paramNode) child(key string) (*paramNode, bool) {
	c, ok := n.index[key]
	return c, ok
}

func (n *paramNode) add(c *paramNode) {
	if n.index == nil {
		n.index = make(map[string]*paramNode)
	}
	n.index[c.key] = c
	n.children = append(n.children, c)
}

// nestParams builds a tree from names like assets[links][name]. Parents that
// were never declared become optional Hash params. Order of first
// appearance is kept at every level.
func nestParams(params []route.ParamSpec) []*paramNode {
	root := &paramNode{}
	for _, p := range params {
		segments := splitBracketName(p.Name)
		parent := root
		for i, seg := range segments {
			last := i == len(segments)-1
			n, ok := parent.child(seg)
			if !ok {
				n = &paramNode{key: seg, param: route.ParamSpec{Name: seg, Type: "Hash"}}
				parent.add(n)
			}
			if last {
				n.param = p
			}
			parent = n
		}
	}
	return root.children
}

// splitBracketName splits a[b][c] into [a b c]. Malformed names are kept whole.
func splitBracketName(name string) []string {
	open := strings.IndexByte(name, '[')
	if open <= 0 || !strings.HasSuffix(name, "]") {
		return []string{name}
	}
	segments := []string{name[:open]}
	rest := name[open:]
	for rest != "" {
		if rest[0] != '[' {
			return []string{name}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{name}
		}
		seg := rest[1:end]
		if seg == "" {
			return []string{name}
		}
		segments = append(segments, seg)
		rest = rest[end+1:]
	}
	return segments
}
