package converter

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mark3labs/grape2openapi/internal/route"
	"github.com/mark3labs/grape2openapi/internal/spec"
)

// ParameterConverter turns declared params into path and query parameters.
type ParameterConverter struct {
	logger *slog.Logger
}

func NewParameterConverter(logger *slog.Logger) *ParameterConverter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ParameterConverter{logger: logger}
}

// Convert returns the parameter for p on route r whose normalized path is
// path. It returns nil for params that travel in the request body.
func (c *ParameterConverter) Convert(p route.ParamSpec, r route.Route, path string) *spec.Parameter {
	if strings.TrimSpace(p.Name) == "" {
		return nil
	}
	in := InValue(p.Name, path)
	if in == "query" && HasBody(r.Method) {
		return nil
	}
	param := &spec.Parameter{
		Name:        p.Name,
		In:          in,
		Description: paramDescription(p),
		Required:    p.Required || in == "path",
		Schema:      ParameterSchema(p, r.Validations, c.logger),
		Example:     p.Documentation.Example,
	}
	return param
}

// ConvertAll converts every param of r, keeping declaration order.
func (c *ParameterConverter) ConvertAll(r route.Route, path string) []spec.Parameter {
	var out []spec.Parameter
	for _, p := range r.Params {
		if param := c.Convert(p, r, path); param != nil {
			out = append(out, *param)
		}
	}
	return out
}

// InValue is "path" when the normalized path has a {name} placeholder and
// "query" otherwise.
func InValue(name, path string) string {
	if strings.Contains(path, "{"+name+"}") {
		return "path"
	}
	return "query"
}

// HasBody reports whether params of method travel in a request body.
func HasBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodDelete:
		return false
	}
	return true
}
