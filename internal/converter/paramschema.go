package converter

import (
	"log/slog"
	"strings"

	"github.com/mark3labs/grape2openapi/internal/route"
	"github.com/mark3labs/grape2openapi/internal/spec"
)

// ParameterSchema builds the schema of a declared parameter. It is shared by
// query/path parameters and request body properties.
//
// Precedence: union, enum values, range, array, then the plain type with its
// default and regexp pattern.
func ParameterSchema(p route.ParamSpec, validations []route.Validation, logger *slog.Logger) *spec.Schema {
	declared := strings.TrimSpace(p.Type)

	var s *spec.Schema
	switch {
	case isUnionType(declared):
		members := unionMembers(declared)
		alts := make([]*spec.Schema, 0, len(members))
		for _, m := range members {
			alts = append(alts, &spec.Schema{Type: orString(ResolveType(m))})
		}
		s = &spec.Schema{OneOf: alts}
	case p.Values != nil || p.Range != nil:
		// constraints apply to the elements of array-shaped params
		inner, isArray := arrayInner(declared)
		if !isArray {
			inner = declared
		}
		s = &spec.Schema{Type: orString(ResolveType(inner))}
		if p.Values != nil {
			s.Enum = p.Values
		} else {
			lo, hi := p.Range.Min, p.Range.Max
			s.Minimum, s.Maximum = &lo, &hi
		}
		if isArray {
			s = &spec.Schema{Type: "array", Items: s}
		}
	default:
		if inner, ok := arrayInner(declared); ok {
			s = &spec.Schema{
				Type:  "array",
				Items: &spec.Schema{Type: orString(ResolveType(inner)), Format: ResolveFormat("", inner)},
			}
			break
		}
		s = &spec.Schema{
			Type:   orString(ResolveType(declared)),
			Format: ResolveFormat(p.Documentation.Format, declared),
		}
		if includeDefault(p.Default) {
			s.Default = p.Default
		}
		if pattern, ok := regexpPattern(p.Name, validations, logger); ok {
			s.Pattern = pattern
		}
		if s.Type == "array" {
			s.Items = &spec.Schema{Type: "string"}
		}
	}

	if p.Documentation.IsArray && s.Type != "array" {
		s = &spec.Schema{Type: "array", Items: s}
	}
	return s
}

// includeDefault drops absent and false defaults.
func includeDefault(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok && !b {
		return false
	}
	return true
}

// regexpPattern returns the pattern of the single regexp validation that
// targets name. Several competing patterns yield none.
func regexpPattern(name string, validations []route.Validation, logger *slog.Logger) (string, bool) {
	var found []string
	for _, v := range validations {
		if v.IsRegexp() && v.Targets(name) {
			found = append(found, v.Options)
		}
	}
	switch len(found) {
	case 0:
		return "", false
	case 1:
		p := stripRegexpDelimiters(found[0])
		return p, p != ""
	default:
		if logger != nil {
			logger.Warn("multiple regexp validations, pattern omitted", "param", name, "count", len(found))
		}
		return "", false
	}
}

// stripRegexpDelimiters turns /^[a-z]+$/i into ^[a-z]+$.
func stripRegexpDelimiters(literal string) string {
	literal = strings.TrimSpace(literal)
	if !strings.HasPrefix(literal, "/") {
		return literal
	}
	end := strings.LastIndex(literal, "/")
	if end <= 0 {
		return literal
	}
	return literal[1:end]
}

func paramDescription(p route.ParamSpec) string {
	if p.Desc != "" {
		return p.Desc
	}
	return p.Documentation.Desc
}
