package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

var swaggerMethods = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true, "patch": true, "options": true, "head": true,
}

// normalizeSwagger2 rewrites operations that grape-swagger emits but
// openapi2conv rejects:
//
//   - several `in: body` params are merged into one object body;
//   - body params next to formData params become formData params and the
//     operation consumes multipart/form-data.
//
// On error the input is returned unchanged with changed=false.
func normalizeSwagger2(data []byte) (out []byte, changed bool, err error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return data, false, err
	}
	paths, _ := doc["paths"].(map[string]any)
	for _, item := range paths {
		ops, _ := item.(map[string]any)
		for method, raw := range ops {
			if !swaggerMethods[strings.ToLower(method)] {
				continue
			}
			if op, ok := raw.(map[string]any); ok && normalizeSwagger2Operation(op) {
				changed = true
			}
		}
	}
	if !changed {
		return data, false, nil
	}
	out, err = yaml.Marshal(doc)
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

func normalizeSwagger2Operation(op map[string]any) bool {
	params, _ := op["parameters"].([]any)
	var bodies, others []map[string]any
	hasForm := false
	for _, p := range params {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		switch in := stringField(pm, "in"); {
		case strings.EqualFold(in, "body"):
			bodies = append(bodies, pm)
		case strings.EqualFold(in, "formData"):
			hasForm = true
			others = append(others, pm)
		default:
			others = append(others, pm)
		}
	}

	switch {
	case len(bodies) == 0:
		return false
	case hasForm:
		rewritten := make([]any, 0, len(params))
		for _, p := range params {
			pm, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if strings.EqualFold(stringField(pm, "in"), "body") {
				pm = bodyAsFormData(pm)
			}
			rewritten = append(rewritten, pm)
		}
		op["parameters"] = rewritten
		consumes, _ := op["consumes"].([]any)
		if !hasString(consumes, ContentTypeMultipart) {
			op["consumes"] = append(consumes, ContentTypeMultipart)
		}
		return true
	case len(bodies) > 1:
		merged := mergeBodies(bodies)
		rewritten := make([]any, 0, len(others)+1)
		rewritten = append(rewritten, merged)
		for _, pm := range others {
			rewritten = append(rewritten, pm)
		}
		op["parameters"] = rewritten
		return true
	default:
		return false
	}
}

func mergeBodies(bodies []map[string]any) map[string]any {
	props := map[string]any{}
	var required []any
	for _, pm := range bodies {
		name := stringField(pm, "name")
		if name == "" {
			name = "field"
		}
		schema := paramSchema(pm)
		if schema == nil {
			schema = map[string]any{"type": "string"}
		}
		props[name] = schema
		if req, _ := pm["required"].(bool); req {
			required = append(required, name)
		}
	}
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return map[string]any{"in": "body", "name": "body", "schema": schema}
}

// paramSchema returns the schema of a body param, synthesizing one from
// type/items/format when absent.
func paramSchema(pm map[string]any) map[string]any {
	if s, ok := pm["schema"].(map[string]any); ok {
		return s
	}
	typ := stringField(pm, "type")
	if typ == "" {
		return nil
	}
	s := map[string]any{"type": typ}
	if items, ok := pm["items"].(map[string]any); ok {
		s["items"] = items
	}
	if f := stringField(pm, "format"); f != "" {
		s["format"] = f
	}
	return s
}

func bodyAsFormData(pm map[string]any) map[string]any {
	name := stringField(pm, "name")
	if name == "" {
		name = "field"
	}
	out := map[string]any{"in": "formData", "name": name}
	if desc := stringField(pm, "description"); desc != "" {
		out["description"] = desc
	}
	if req, ok := pm["required"].(bool); ok {
		out["required"] = req
	}

	typ, format := "", ""
	var items any
	if s, ok := pm["schema"].(map[string]any); ok {
		typ, format = stringField(s, "type"), stringField(s, "format")
		items = s["items"]
		if typ == "" && s["$ref"] != nil {
			// formData cannot carry a referenced object
			typ = "string"
		}
	}
	if typ == "" {
		typ, format = stringField(pm, "type"), stringField(pm, "format")
		items = pm["items"]
	}
	if typ == "" {
		typ = "string"
	}
	out["type"] = typ
	if items != nil {
		out["items"] = items
	}
	if format != "" {
		out["format"] = format
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func hasString(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}
