package converter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mark3labs/grape2openapi/internal/route"
	"github.com/mark3labs/grape2openapi/internal/spec"
)

// OperationConverter builds the operation object of a single route.
type OperationConverter struct {
	cfg       route.Config
	responses *ResponseConverter
	sanitizer *bluemonday.Policy // nil keeps descriptions verbatim
}

func NewOperationConverter(cfg route.Config, responses *ResponseConverter, sanitize bool) *OperationConverter {
	c := &OperationConverter{cfg: cfg, responses: responses}
	if sanitize {
		c.sanitizer = bluemonday.StrictPolicy()
	}
	return c
}

// Convert builds the operation of r served at the normalized path.
// Parameters and the request body are attached by the caller.
func (c *OperationConverter) Convert(r route.Route, path string) *spec.Operation {
	return &spec.Operation{
		OperationID: OperationID(r.Method, path),
		Description: c.description(r.Settings),
		Tags:        Tags(path, c.cfg),
		Responses:   c.responses.Convert(r),
	}
}

func (c *OperationConverter) description(s route.Settings) string {
	desc := s.Description
	if desc == "" && s.Detail != nil {
		desc = s.Detail.Description
	}
	if c.sanitizer != nil {
		desc = c.sanitizer.Sanitize(desc)
	}
	return strings.TrimSpace(desc)
}

// OperationID derives an id from the lowercase method and one token per path
// segment, e.g. GET /api/v4/projects/{id}/merge_requests becomes
// getApiV4ProjectsIdMergeRequests.
func OperationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		b.WriteString(segmentToken(seg))
	}
	return b.String()
}

func segmentToken(seg string) string {
	if seg == "-" {
		return "Dash"
	}
	if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
		return camelize(seg[1 : len(seg)-1])
	}
	var b strings.Builder
	for _, part := range strings.FieldsFunc(seg, func(r rune) bool {
		return r == '@' || r == '.' || r == '-' || r == '{' || r == '}'
	}) {
		b.WriteString(camelize(part))
	}
	return b.String()
}

// camelize turns merge_requests into MergeRequests.
func camelize(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(part[size:])
	}
	return b.String()
}

// Tags returns the resource tag of path: the first segment that is neither
// a placeholder, the API prefix, the version token nor "-". The result is
// empty, never nil, when no such segment exists.
func Tags(path string, cfg route.Config) []string {
	for _, seg := range strings.Split(path, "/") {
		switch {
		case seg == "", seg == "-":
		case seg == cfg.APIPrefix, seg == cfg.APIVersion:
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
		default:
			return []string{seg}
		}
	}
	return []string{}
}
