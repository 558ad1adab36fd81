package spec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/grape2openapi/internal/fetch"
)

// ErrorCode categorizes base document errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	JSONPointer string // e.g. "#/paths/~1pets/get"
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

type baseSettings struct {
	fetch []fetch.Option
	// allowFileRefs permits file refs from remote documents. Local roots
	// always allow them so multi-file documents keep working.
	allowFileRefs bool
	logger        *slog.Logger
}

// BaseOption configures LoadBase.
type BaseOption func(*baseSettings)

func WithFetchOptions(opts ...fetch.Option) BaseOption {
	return func(s *baseSettings) { s.fetch = append(s.fetch, opts...) }
}

func WithAllowFileRefs(allow bool) BaseOption {
	return func(s *baseSettings) { s.allowFileRefs = allow }
}

func WithLogger(l *slog.Logger) BaseOption {
	return func(s *baseSettings) {
		if l != nil {
			s.logger = l
		}
	}
}

// LoadBase reads the host's hand-written document (security schemes,
// servers, extra paths) that generated fragments are merged into. Swagger
// 2.0 documents, such as older grape-swagger output, are converted to v3.
//
// input may be a filesystem path or an http/https URL. Validation problems
// are logged and do not fail the load.
func LoadBase(ctx context.Context, input string, opts ...BaseOption) (*openapi3.T, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "base: input is empty"}
	}
	settings := baseSettings{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&settings)
	}

	var (
		raw      []byte
		location *url.URL
		name     string
		isFile   bool
	)
	u, err := fetch.Classify(input)
	switch {
	case err != nil:
		return nil, &SpecError{Code: InputError, Message: "base: " + err.Error(), Location: input, Cause: err}
	case u != nil:
		name, location = input, u
		raw, err = fetch.Get(ctx, input, fetch.Apply(settings.fetch...))
		if err != nil {
			return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
	default:
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
		}
		name, location, isFile = abs, &url.URL{Path: abs}, true
		raw, err = os.ReadFile(abs)
		if err != nil {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
		}
	}

	version, err := detectSpecVersion(raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: name, Cause: err}
	}

	loader := newLoader(settings.allowFileRefs || isFile)
	var doc *openapi3.T
	switch version {
	case 3:
		doc, err = loader.LoadFromDataWithPath(raw, location)
		if err != nil {
			return nil, mapLoadErr(err, name)
		}
	case 2:
		if fixed, changed, _ := normalizeSwagger2(raw); changed {
			raw = fixed
		}
		doc, err = convertV2ToV3(raw)
		if err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: name, Cause: err}
		}
		if err := loader.ResolveRefsIn(doc, location); err != nil {
			settings.logger.Warn("unresolved refs after conversion", "location", name, "error", err)
		}
	}

	if err := doc.Validate(ctx); err != nil {
		settings.logger.Warn("base document does not validate", "location", name, "pointer", extractJSONPointer(err), "error", err)
	}
	return doc, nil
}

func newLoader(allowFile bool) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	client := &http.Client{Timeout: fetch.DefaultSettings().HTTPTimeout}
	loader.ReadFromURIFunc = func(l *openapi3.Loader, uri *url.URL) ([]byte, error) {
		switch strings.ToLower(uri.Scheme) {
		case "", "file":
			if !allowFile {
				return nil, fmt.Errorf("blocked file ref: %s", uri.String())
			}
			path := uri.Path
			if path == "" {
				path = uri.Opaque
			}
			return os.ReadFile(path)
		case "http", "https":
			req, err := http.NewRequest(http.MethodGet, uri.String(), nil)
			if err != nil {
				return nil, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, uri.String())
			}
			return io.ReadAll(resp.Body)
		default:
			return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
		}
	}
	return loader
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse base document: %w", err)
	}
	if s, _ := root["openapi"].(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
		return 3, nil
	}
	if s, _ := root["swagger"].(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
		return 2, nil
	}
	return 0, errors.New("base: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	// openapi2.T only knows its JSON field names.
	encoded, err := json.Marshal(stringKeys(raw))
	if err != nil {
		return nil, err
	}
	var v2 openapi2.T
	if err := json.Unmarshal(encoded, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

// stringKeys rewrites non-string YAML keys such as unquoted status codes.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	default:
		return v
	}
}

func mapLoadErr(err error, location string) error {
	code := ValidationError
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") || strings.Contains(lower, "unmarshal") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: extractJSONPointer(err), Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	var me openapi3.MultiError
	if errors.As(err, &me) && len(me) > 0 {
		return extractJSONPointer(me[0])
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	return jsonPtrRe.FindString(err.Error())
}
