// Package schema holds entity metadata describing how logical field names map
// onto physical MongoDB document fields.
package schema

// Kind classifies a property for query translation purposes.
type Kind int

const (
	// KindScalar is a plain value stored in a single physical field.
	KindScalar Kind = iota

	// KindEmbedded is a value described by another entity's metadata,
	// stored either as a nested object or flattened into the parent.
	KindEmbedded

	// KindReference is a link to another entity, stored as that entity's
	// primary key value.
	KindReference

	// KindArray is an array of primitive values in a single physical field.
	KindArray
)

// Property describes a single logical property of an entity.
type Property struct {
	// Name is the logical property name used in queries.
	Name string

	// FieldNames is the ordered list of physical field names backing this
	// property. Scalars and references have exactly one; an empty list means
	// the property has no physical backing (computed or virtual).
	FieldNames []string

	// Kind determines how the property participates in query translation.
	Kind Kind

	// Type is the lowercase type tag for scalar and reference properties.
	// The tag "objectid" marks values that must be converted to the native
	// MongoDB identifier type.
	Type string

	// Entity is the nested entity name for embedded and reference properties.
	Entity string

	// Array marks an embedded property holding a list of embedded values.
	Array bool

	// Object marks an embedded property stored as a nested object rather
	// than flattened into dotted paths on the parent document.
	Object bool

	// Lazy excludes the property from the default projection unless it is
	// explicitly populated.
	Lazy bool

	// Formula marks a computed property that is never fetched as a stored
	// column.
	Formula bool
}

// FieldName returns the primary physical field name, or "" when the property
// has no physical backing.
func (p *Property) FieldName() string {
	if len(p.FieldNames) == 0 {
		return ""
	}
	return p.FieldNames[0]
}

// Entity describes one entity: its collection, properties and key layout.
type Entity struct {
	// Name is the entity name used to look the metadata up.
	Name string

	// Collection is the MongoDB collection backing the entity. Empty for
	// embeddable and virtual entities.
	Collection string

	// Properties is the ordered list of property descriptors.
	Properties []Property

	// PrimaryKeys lists the logical names of the primary key properties.
	PrimaryKeys []string

	// SerializedPrimaryKey is the external string-shaped alias of the true
	// primary key (e.g. "id" aliasing "_id"). Empty when the entity has none.
	SerializedPrimaryKey string

	// Virtual marks an entity with no physical backing; queries against it
	// are routed to a caller-supplied resolver.
	Virtual bool

	// Embeddable marks metadata describing a value embedded inside a parent
	// document rather than a top-level collection.
	Embeddable bool

	byName map[string]*Property
}

// Property returns the descriptor for a logical property name, or nil when
// the entity has no such property.
func (e *Entity) Property(name string) *Property {
	if e.byName == nil {
		return nil
	}
	return e.byName[name]
}

// PrimaryKey returns the descriptor of the first primary key property, or nil
// when the entity declares none.
func (e *Entity) PrimaryKey() *Property {
	if len(e.PrimaryKeys) == 0 {
		return nil
	}
	return e.Property(e.PrimaryKeys[0])
}

// index builds the property lookup map. Called once on registration.
func (e *Entity) index() {
	e.byName = make(map[string]*Property, len(e.Properties))
	for i := range e.Properties {
		e.byName[e.Properties[i].Name] = &e.Properties[i]
	}
}
