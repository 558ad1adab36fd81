package converter

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mark3labs/grape2openapi/internal/route"
	"github.com/mark3labs/grape2openapi/internal/spec"
)

// ResponseConverter builds the responses map of a route from its success
// and failure declarations. It never fails.
type ResponseConverter struct {
	entities *EntityConverter
	logger   *slog.Logger
}

func NewResponseConverter(entities *EntityConverter, logger *slog.Logger) *ResponseConverter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ResponseConverter{entities: entities, logger: logger}
}

// InferSuccessCode is the default success status for method.
func InferSuccessCode(method string) int {
	switch strings.ToUpper(method) {
	case http.MethodPost:
		return http.StatusCreated
	case http.MethodDelete:
		return http.StatusNoContent
	default:
		return http.StatusOK
	}
}

func (c *ResponseConverter) Convert(r route.Route) map[string]*spec.Response {
	out := make(map[string]*spec.Response)
	c.success(r.Success, r.Method, out)

	for _, f := range r.Failures {
		if f.Code <= 0 {
			c.logger.Warn("skipping failure without status code", "method", r.Method, "path", r.Path)
			continue
		}
		code := strconv.Itoa(f.Code)
		desc := f.Message
		if desc == "" {
			desc = statusText(f.Code)
		}
		out[code] = &spec.Response{StatusCode: code, Description: desc}
	}

	if len(out) == 0 {
		status := InferSuccessCode(r.Method)
		code := strconv.Itoa(status)
		out[code] = &spec.Response{StatusCode: code, Description: statusText(status)}
	}
	return out
}

func (c *ResponseConverter) success(s route.SuccessSpec, method string, out map[string]*spec.Response) {
	switch v := s.(type) {
	case nil:
	case route.SingleEntity:
		c.emit(v.Model, InferSuccessCode(method), "", false, out)
	case route.EntityWithMeta:
		status := v.Code
		if status <= 0 {
			status = InferSuccessCode(method)
		}
		c.emit(v.Model, status, v.Message, v.IsArray, out)
	case route.SuccessList:
		for _, item := range v {
			c.success(item, method, out)
		}
	}
}

func (c *ResponseConverter) emit(model route.Model, status int, message string, isArray bool, out map[string]*spec.Response) {
	code := strconv.Itoa(status)
	desc := message
	if desc == "" {
		desc = statusText(status)
	}
	resp := &spec.Response{StatusCode: code, Description: desc}
	if model != nil {
		if ref, ok := c.entities.Register(model); ok {
			schema := spec.RefTo(ref)
			if isArray {
				schema = &spec.Schema{Type: "array", Items: schema}
			}
			resp.Content = map[string]spec.MediaType{spec.ContentTypeJSON: {Schema: schema}}
		}
	}
	out[code] = resp
}

func statusText(status int) string {
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "Status " + strconv.Itoa(status)
}
