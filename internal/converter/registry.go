package converter

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/grape2openapi/internal/spec"
)

var namespaceSeparators = strings.NewReplacer("::", "", ".", "", "/", "")

// NormalizeName turns an entity identity such as API::Entities::User into a
// component name (APIEntitiesUser).
func NormalizeName(identity string) string {
	return namespaceSeparators.Replace(strings.TrimSpace(identity))
}

// Collision records two identities that normalize to the same component name.
type Collision struct {
	Name    string
	Kept    string
	Dropped string
}

// SchemaRegistry caches entity schemas by identity. Registration is
// idempotent and the first schema registered for an identity wins.
type SchemaRegistry struct {
	mu         sync.Mutex
	byIdentity map[string]*spec.Schema
	owners     map[string]string // normalized name -> identity
	collisions []Collision
	logger     *slog.Logger
}

func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		byIdentity: make(map[string]*spec.Schema),
		owners:     make(map[string]string),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Register stores s under identity unless a schema is already present and
// returns the canonical schema.
func (r *SchemaRegistry) Register(identity string, s *spec.Schema) *spec.Schema {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byIdentity[identity]; ok {
		return existing
	}
	r.byIdentity[identity] = s

	name := NormalizeName(identity)
	if owner, taken := r.owners[name]; taken {
		r.collisions = append(r.collisions, Collision{Name: name, Kept: owner, Dropped: identity})
		r.logger.Warn("schema name collision", "name", name, "kept", owner, "dropped", identity)
		return s
	}
	r.owners[name] = identity
	return s
}

// Get returns the schema registered for identity, or nil.
func (r *SchemaRegistry) Get(identity string) *spec.Schema {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byIdentity[identity]
}

// Reference returns the components $ref for identity.
func (r *SchemaRegistry) Reference(identity string) string {
	return spec.ComponentsPrefix + NormalizeName(identity)
}

// Schemas returns a snapshot keyed by normalized name.
func (r *SchemaRegistry) Schemas() map[string]*spec.Schema {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*spec.Schema, len(r.owners))
	for name, identity := range r.owners {
		out[name] = r.byIdentity[identity]
	}
	return out
}

func (r *SchemaRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners)
}

func (r *SchemaRegistry) Collisions() []Collision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Collision(nil), r.collisions...)
}

// TagRegistry is an insertion-ordered set of tag names.
type TagRegistry struct {
	mu   sync.Mutex
	seen map[string]struct{}
	tags []string
}

func NewTagRegistry() *TagRegistry {
	return &TagRegistry{seen: make(map[string]struct{})}
}

// Register adds name and reports whether it was new. Blank names are ignored.
func (r *TagRegistry) Register(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[name]; ok {
		return false
	}
	r.seen[name] = struct{}{}
	r.tags = append(r.tags, name)
	return true
}

func (r *TagRegistry) Tags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.tags...)
}

// RequestBodyRegistry records request bodies by operation id.
type RequestBodyRegistry struct {
	mu     sync.Mutex
	bodies map[string]*spec.RequestBody
}

func NewRequestBodyRegistry() *RequestBodyRegistry {
	return &RequestBodyRegistry{bodies: make(map[string]*spec.RequestBody)}
}

func (r *RequestBodyRegistry) Register(operationID string, body *spec.RequestBody) *spec.RequestBody {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.bodies[operationID]; ok {
		return existing
	}
	r.bodies[operationID] = body
	return body
}

func (r *RequestBodyRegistry) Get(operationID string) *spec.RequestBody {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodies[operationID]
}

func (r *RequestBodyRegistry) All() map[string]*spec.RequestBody {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*spec.RequestBody, len(r.bodies))
	for k, v := range r.bodies {
		out[k] = v
	}
	return out
}
