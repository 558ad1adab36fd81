// Package converter turns Grape route metadata into OpenAPI 3.0 fragments:
// component schemas, path items and tags.
package converter

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/grape2openapi/internal/route"
	"github.com/mark3labs/grape2openapi/internal/spec"
)

type options struct {
	logger      *slog.Logger
	concurrency int
	sanitize    bool
}

// Option configures a Generator.
type Option func(*options)

// WithLogger sets the logger used for skipped or degraded declarations.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithConcurrency bounds how many path groups are converted at once.
// Values below 1 are treated as 1.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.concurrency = n
	}
}

// WithSanitizedDescriptions strips markup from operation descriptions.
func WithSanitizedDescriptions(enabled bool) Option {
	return func(o *options) { o.sanitize = enabled }
}

// Generator runs the conversion pipeline. Each call to Generate starts from
// empty registries.
type Generator struct {
	cfg    route.Config
	opts   options
	logger *slog.Logger

	schemas *SchemaRegistry
	tags    *TagRegistry
	bodies  *RequestBodyRegistry
}

func NewGenerator(cfg route.Config, opts ...Option) *Generator {
	o := options{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Generator{cfg: cfg, opts: o, logger: o.logger}
}

// Generate converts routes into OpenAPI fragments.
func (g *Generator) Generate(routes []route.Route) (*spec.Fragments, error) {
	for i, r := range routes {
		if strings.TrimSpace(r.Method) == "" {
			return nil, &ContractError{Index: i, Field: "method"}
		}
		if strings.TrimSpace(r.Path) == "" {
			return nil, &ContractError{Index: i, Field: "path"}
		}
	}

	g.schemas = NewSchemaRegistry()
	g.schemas.logger = g.logger
	g.tags = NewTagRegistry()
	g.bodies = NewRequestBodyRegistry()

	NewTagConverter(g.tags).Convert(routes)

	paths, order, err := (&PathConverter{gen: g}).Convert(routes)
	if err != nil {
		return nil, fmt.Errorf("convert paths: %w", err)
	}
	for _, p := range order {
		for _, m := range sortedMethods(paths[p]) {
			for _, t := range paths[p][m].Tags {
				g.tags.Register(t)
			}
		}
	}

	g.logger.Debug("generated fragments",
		"paths", len(paths), "schemas", g.schemas.Len(), "tags", len(g.tags.Tags()))

	return &spec.Fragments{
		Schemas:       g.schemas.Schemas(),
		Paths:         paths,
		Tags:          g.tags.Tags(),
		RequestBodies: g.bodies.All(),
	}, nil
}

// Schemas returns the schema registry of the last Generate call.
func (g *Generator) Schemas() *SchemaRegistry { return g.schemas }
