package route

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/grape2openapi/internal/fetch"
)

// ErrorCode categorizes manifest errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
)

// ManifestError is a structured error with optional location and JSON Pointer.
type ManifestError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	JSONPointer string // e.g. "/routes/3/method"
	Cause       error
}

func (e *ManifestError) Error() string { return e.Message }
func (e *ManifestError) Unwrap() error { return e.Cause }

// LoadManifest reads and validates a route manifest exported by the host
// application. input may be a filesystem path or an http/https URL.
func LoadManifest(ctx context.Context, input string, opts ...fetch.Option) (*Manifest, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &ManifestError{Code: InputError, Message: "manifest: input is empty"}
	}

	u, err := fetch.Classify(input)
	if err != nil {
		return nil, &ManifestError{Code: InputError, Message: "manifest: " + err.Error(), Location: input, Cause: err}
	}
	if u != nil {
		raw, err := fetch.Get(ctx, input, fetch.Apply(opts...))
		if err != nil {
			return nil, &ManifestError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		return ParseManifest(raw, input)
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, &ManifestError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, &ManifestError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return ParseManifest(raw, abs)
}
