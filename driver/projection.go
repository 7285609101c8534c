package driver

import (
	"strings"

	"github.com/jacentio/lattice/schema"
)

// buildProjection computes the physical field names a find call should fetch.
// A nil result means no restriction (the store's default projection).
//
// Explicit fields win: each string entry is resolved to its primary physical
// name, the wildcard expands to every store-eligible non-lazy property, and
// unknown names pass through verbatim so raw physical queries keep working.
// Primary keys are always fetched. Without explicit fields, the presence of
// non-formula lazy properties switches the projection to "everything except
// the lazy columns".
func buildProjection(registry *schema.Registry, meta *schema.Entity, populate []string, fields []any) []string {
	lazy := uncoveredLazy(meta, populate)

	if len(fields) > 0 {
		return explicitProjection(registry, meta, populate, fields, lazy)
	}

	hasLazyColumn := false
	for name := range lazy {
		if prop := meta.Property(name); prop != nil && !prop.Formula {
			hasLazyColumn = true
			break
		}
	}
	if !hasLazyColumn {
		return nil
	}

	var out []string
	for i := range meta.Properties {
		prop := &meta.Properties[i]
		if lazy[prop.Name] || !registry.ShouldHaveColumn(prop, populate) {
			continue
		}
		out = append(out, prop.FieldName())
	}
	return out
}

func explicitProjection(registry *schema.Registry, meta *schema.Entity, populate []string, fields []any, lazy map[string]bool) []string {
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	add := func(f string) {
		if f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}

	for _, raw := range fields {
		f, ok := raw.(string)
		if !ok {
			// Structured sub-selections are resolved by the populate
			// machinery, not the projection.
			continue
		}
		if i := strings.IndexByte(f, '.'); i >= 0 {
			f = f[:i]
		}
		if f == schema.Wildcard {
			for i := range meta.Properties {
				prop := &meta.Properties[i]
				if lazy[prop.Name] || !registry.ShouldHaveColumn(prop, populate) {
					continue
				}
				add(prop.FieldName())
			}
			continue
		}

		name := f
		if meta.SerializedPrimaryKey != "" && name == meta.SerializedPrimaryKey {
			if pk := meta.PrimaryKey(); pk != nil {
				name = pk.Name
			}
		}
		if prop := meta.Property(name); prop != nil {
			if len(prop.FieldNames) == 0 {
				continue // no physical backing
			}
			add(prop.FieldName())
			continue
		}
		add(f)
	}

	// Primary keys are always fetched.
	var pks []string
	for _, name := range meta.PrimaryKeys {
		pk := meta.Property(name)
		if pk == nil {
			continue
		}
		if fn := pk.FieldName(); fn != "" && !seen[fn] {
			seen[fn] = true
			pks = append(pks, fn)
		}
	}
	return append(pks, out...)
}

// uncoveredLazy returns the lazy properties not covered by the populate spec.
func uncoveredLazy(meta *schema.Entity, populate []string) map[string]bool {
	out := make(map[string]bool)
	for i := range meta.Properties {
		prop := &meta.Properties[i]
		if prop.Lazy && !schema.Covers(populate, prop.Name) {
			out[prop.Name] = true
		}
	}
	return out
}
