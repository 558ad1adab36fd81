package converter

import (
	"io"
	"log/slog"

	"github.com/mark3labs/grape2openapi/internal/route"
	"github.com/mark3labs/grape2openapi/internal/spec"
)

// EntityConverter turns entity declarations into object schemas and
// registers them. It is not safe for concurrent use; give each goroutine its
// own converter over a shared registry.
type EntityConverter struct {
	registry *SchemaRegistry
	logger   *slog.Logger
	visiting map[string]bool
}

func NewEntityConverter(registry *SchemaRegistry, logger *slog.Logger) *EntityConverter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &EntityConverter{registry: registry, logger: logger, visiting: make(map[string]bool)}
}

// Register converts model, stores it in the registry and returns its $ref.
// ok is false when model is not an entity.
func (c *EntityConverter) Register(model route.Model) (ref string, ok bool) {
	ent, isEntity := model.(route.Entity)
	if !isEntity || ent == nil {
		return "", false
	}
	identity := ent.ModelName()
	if identity == "" {
		return "", false
	}
	ref = c.registry.Reference(identity)
	if c.visiting[identity] || c.registry.Get(identity) != nil {
		return ref, true
	}

	c.visiting[identity] = true
	schema := c.convert(ent)
	delete(c.visiting, identity)

	c.registry.Register(identity, schema)
	return ref, true
}

// Convert builds the object schema of model without registering it. It
// returns nil for models that are not entities.
func (c *EntityConverter) Convert(model route.Model) *spec.Schema {
	ent, ok := model.(route.Entity)
	if !ok || ent == nil || ent.ModelName() == "" {
		return nil
	}
	return c.convert(ent)
}

func (c *EntityConverter) convert(ent route.Entity) *spec.Schema {
	props := spec.NewProperties()
	for _, attr := range ent.Attributes() {
		key := attr.Key()
		if key == "" {
			continue
		}
		props.Set(key, c.property(attr))
	}
	return &spec.Schema{Type: "object", Properties: props}
}

func (c *EntityConverter) property(attr route.Attribute) *spec.Schema {
	if len(attr.Types) > 1 {
		alts := make([]*spec.Schema, 0, len(attr.Types))
		for _, t := range attr.Types {
			alts = append(alts, &spec.Schema{Type: orString(ResolveType(t)), Format: ResolveFormat("", t)})
		}
		return &spec.Schema{OneOf: alts, Description: attr.Desc}
	}

	var declared string
	if len(attr.Types) == 1 {
		declared = attr.Types[0]
	}
	if inner, ok := arrayInner(declared); ok {
		declared = inner
	}

	base := &spec.Schema{
		Type:        orString(ResolveType(declared)),
		Format:      ResolveFormat(attr.Format, declared),
		Description: attr.Desc,
		Default:     attr.Default,
		Example:     attr.Example,
	}
	if base.Format != "" && !KnownFormat(base.Format) {
		c.logger.Debug("unknown format", "attribute", attr.Key(), "format", base.Format)
	}

	var ref string
	if attr.Using != nil {
		r, ok := c.Register(attr.Using)
		if ok {
			ref = r
		} else {
			c.logger.Warn("skipping non-entity reference", "attribute", attr.Key(), "using", attr.Using.ModelName())
		}
	}

	switch {
	case attr.IsArray && ref != "":
		base.Type, base.Format = "array", ""
		base.Items = spec.RefTo(ref)
	case attr.IsArray:
		base.Items = &spec.Schema{Type: base.Type, Format: base.Format}
		base.Type, base.Format = "array", ""
	case ref != "":
		base.Type, base.Format = "", ""
		base.Ref = ref
	}
	return base
}
