// Package fetch downloads remote inputs with bounded retries.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Settings configures remote fetching.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }

// Apply returns the defaults with opts applied.
func Apply(opts ...Option) Settings {
	s := DefaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// ErrUnsupportedScheme is returned by Classify for URLs that are neither
// http nor https.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// Classify reports whether input is a remote URL. Local paths return
// (nil, nil).
func Classify(input string) (*url.URL, error) {
	u, err := url.Parse(input)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, nil
	}
	switch scheme := strings.ToLower(u.Scheme); scheme {
	case "http", "https":
		return u, nil
	default:
		return nil, fmt.Errorf("%w %q (only http/https allowed)", ErrUnsupportedScheme, scheme)
	}
}

// Get downloads rawURL, retrying transient failures with exponential backoff.
func Get(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err == nil {
			body, status, rerr := drain(resp)
			switch {
			case rerr != nil:
				lastErr = rerr
			case status < 300:
				return body, nil
			case status >= 500 || status == http.StatusTooManyRequests:
				lastErr = fmt.Errorf("transient http error %d", status)
			default:
				return nil, fmt.Errorf("http %d: %s", status, strings.TrimSpace(string(body)))
			}
		} else {
			lastErr = err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

// drain reads the body; error responses are read up to 1KB only.
func drain(resp *http.Response) ([]byte, int, error) {
	defer resp.Body.Close()
	var r io.Reader = resp.Body
	if resp.StatusCode >= 300 {
		r = io.LimitReader(resp.Body, 1024)
	}
	body, err := io.ReadAll(r)
	return body, resp.StatusCode, err
}
