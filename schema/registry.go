package schema

// Wildcard is the populate/projection marker meaning "all fields".
const Wildcard = "*"

// Registry holds all known entity metadata. It is populated once at startup
// and read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	entities map[string]*Entity
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*Entity),
	}
}

// Register adds entity metadata to the registry.
// This should be called during init() for each entity.
func (r *Registry) Register(e Entity) {
	e.index()
	r.entities[e.Name] = &e
}

// Find returns the metadata for an entity name, or nil if unknown.
func (r *Registry) Find(name string) *Entity {
	return r.entities[name]
}

// ShouldHaveColumn reports whether a property produces a physical column that
// the store can fetch. Formula properties, properties without physical
// backing and flattened embedded properties do not; lazy properties only do
// when populate covers them.
func (r *Registry) ShouldHaveColumn(p *Property, populate []string) bool {
	if p.Formula || len(p.FieldNames) == 0 {
		return false
	}
	if p.Kind == KindEmbedded && !p.Object {
		return false
	}
	if p.Lazy && !Covers(populate, p.Name) {
		return false
	}
	return true
}

// Covers reports whether a populate spec covers a property name, either by
// naming it exactly or by requesting all fields.
func Covers(populate []string, name string) bool {
	for _, p := range populate {
		if p == name || p == Wildcard {
			return true
		}
	}
	return false
}
