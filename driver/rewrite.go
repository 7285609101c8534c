package driver

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jacentio/lattice/internal/oid"
	"github.com/jacentio/lattice/schema"
)

// Reserved query keys. These are fixed points of the wire protocol and are
// never renamed or treated as entity properties.
const (
	opAnd = "$and"
	opOr  = "$or"
	opNor = "$nor"
	opNot = "$not"

	// fullTextKey is the logical fulltext search marker accepted in filters.
	fullTextKey = "$fulltext"

	// textKey and searchKey form MongoDB's native text search construct.
	textKey   = "$text"
	searchKey = "$search"

	// regexKey is the regex shorthand marker on value positions.
	regexKey = "$re"
)

// objectIDType is the property type tag that triggers identifier conversion.
const objectIDType = "objectid"

// groupOperators are the logical grouping operators the rewriter descends
// into without renaming the operator key itself.
var groupOperators = map[string]bool{
	opAnd: true,
	opOr:  true,
	opNor: true,
	opNot: true,
}

// Rewriter translates logical documents (filters, updates, projections) into
// their physical MongoDB equivalents, driven by live schema metadata. All
// methods are pure: the caller's document is never mutated.
type Rewriter struct {
	registry *schema.Registry
}

// NewRewriter creates a Rewriter over a schema registry.
func NewRewriter(registry *schema.Registry) *Rewriter {
	return &Rewriter{registry: registry}
}

// Rewrite translates a logical document for the named entity into its
// physical form: logical property names become physical field names, string
// identifiers become native ObjectIDs, embedded values are rewritten against
// their nested entity metadata and fulltext markers are hoisted into a single
// top-level $text construct.
func (r *Rewriter) Rewrite(entity string, doc bson.M) (bson.M, error) {
	meta := r.registry.Find(entity)
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return r.rewrite(meta, doc, false)
}

// rewrite is the recursive core. object reports whether the document being
// rewritten is itself stored as a nested object inside its parent.
func (r *Rewriter) rewrite(meta *schema.Entity, doc bson.M, object bool) (bson.M, error) {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}

	r.aliasSerializedPrimaryKey(meta, out)

	if err := r.inlineEmbedded(meta, out, object); err != nil {
		return nil, err
	}

	if err := hoistFullText(out); err != nil {
		return nil, err
	}
	if term, ok := out[fullTextKey]; ok {
		delete(out, fullTextKey)
		out[textKey] = bson.M{searchKey: term}
	}
	for _, v := range out {
		if containsFullText(v) {
			return nil, ErrTextQueryNotTopLevel
		}
	}

	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	for _, k := range keys {
		if groupOperators[k] {
			rewritten, err := r.rewriteGroup(meta, out[k], object)
			if err != nil {
				return nil, err
			}
			out[k] = rewritten
			continue
		}

		key := k
		val := out[k]
		if prop := meta.Property(k); prop != nil {
			if r.identifierShaped(prop) {
				val = oid.Normalize(val)
			}
			if fn := prop.FieldName(); fn != "" {
				key = fn
			}
		}
		if re, ok := regexShorthand(val); ok {
			val = re
		}
		if key != k {
			delete(out, k)
		}
		out[key] = val
	}

	return out, nil
}

// aliasSerializedPrimaryKey renames the external string-shaped primary key
// alias to the true primary key logical name. Embeddable values have no
// primary key of their own and are skipped.
func (r *Rewriter) aliasSerializedPrimaryKey(meta *schema.Entity, out bson.M) {
	alias := meta.SerializedPrimaryKey
	if alias == "" || meta.Embeddable {
		return
	}
	pk := meta.PrimaryKey()
	if pk == nil || pk.Name == alias {
		return
	}
	if v, ok := out[alias]; ok {
		out[pk.Name] = v
		delete(out, alias)
	}
}

// inlineEmbedded rewrites every embedded property value against its nested
// entity metadata. Object-mode values stay nested; flattened values are
// hoisted onto the current level as dotted physical paths.
func (r *Rewriter) inlineEmbedded(meta *schema.Entity, out bson.M, object bool) error {
	for i := range meta.Properties {
		prop := &meta.Properties[i]
		if prop.Kind != schema.KindEmbedded {
			continue
		}
		v, ok := out[prop.Name]
		if !ok || v == nil {
			continue
		}
		nested := r.registry.Find(prop.Entity)
		if nested == nil {
			continue
		}

		if prop.Array {
			if items := toSlice(v); items != nil {
				rewritten := make(bson.A, len(items))
				for j, item := range items {
					sub, ok := asDocument(item)
					if !ok {
						rewritten[j] = item
						continue
					}
					rw, err := r.rewrite(nested, sub, true)
					if err != nil {
						return err
					}
					rewritten[j] = rw
				}
				out[prop.Name] = rewritten
				continue
			}
		}

		sub, ok := asDocument(v)
		if !ok {
			continue
		}
		nestedObject := prop.Object || object
		rw, err := r.rewrite(nested, sub, nestedObject)
		if err != nil {
			return err
		}
		if nestedObject {
			out[prop.Name] = rw
			continue
		}
		delete(out, prop.Name)
		prefix := prop.FieldName()
		for ck, cv := range rw {
			out[prefix+"."+ck] = cv
		}
	}
	return nil
}

// rewriteGroup recurses into a group operator value: each element of an
// array, or the single nested document.
func (r *Rewriter) rewriteGroup(meta *schema.Entity, v any, object bool) (any, error) {
	if items := toSlice(v); items != nil {
		rewritten := make(bson.A, len(items))
		for i, item := range items {
			sub, ok := asDocument(item)
			if !ok {
				rewritten[i] = item
				continue
			}
			rw, err := r.rewrite(meta, sub, object)
			if err != nil {
				return nil, err
			}
			rewritten[i] = rw
		}
		return rewritten, nil
	}
	if sub, ok := asDocument(v); ok {
		return r.rewrite(meta, sub, object)
	}
	return v, nil
}

// hoistFullText moves a fulltext marker found directly inside a group
// operator branch up to the top level of out. Emptied branches are dropped.
// Deeper nesting is left in place for the depth guard to reject.
func hoistFullText(out bson.M) error {
	groups := make([]string, 0, 2)
	for k := range out {
		if groupOperators[k] {
			groups = append(groups, k)
		}
	}
	for _, k := range groups {
		items := toSlice(out[k])
		if items == nil {
			continue
		}
		kept := make(bson.A, 0, len(items))
		for _, item := range items {
			sub, ok := asDocument(item)
			if !ok {
				kept = append(kept, item)
				continue
			}
			term, found := sub[fullTextKey]
			if !found {
				kept = append(kept, item)
				continue
			}
			if _, dup := out[fullTextKey]; dup {
				return ErrTextQueryConflict
			}
			out[fullTextKey] = term
			rest := make(bson.M, len(sub)-1)
			for sk, sv := range sub {
				if sk != fullTextKey {
					rest[sk] = sv
				}
			}
			if len(rest) > 0 {
				kept = append(kept, rest)
			}
		}
		if len(kept) == 0 {
			delete(out, k)
		} else {
			out[k] = kept
		}
	}
	return nil
}

// containsFullText reports whether the fulltext marker occurs anywhere below
// the value v.
func containsFullText(v any) bool {
	if sub, ok := asDocument(v); ok {
		for k, sv := range sub {
			if k == fullTextKey || containsFullText(sv) {
				return true
			}
		}
		return false
	}
	if items := toSlice(v); items != nil {
		for _, item := range items {
			if containsFullText(item) {
				return true
			}
		}
	}
	return false
}

// identifierShaped reports whether values of this property must be converted
// to the native identifier type.
func (r *Rewriter) identifierShaped(p *schema.Property) bool {
	switch p.Kind {
	case schema.KindScalar:
		return strings.EqualFold(p.Type, objectIDType)
	case schema.KindReference:
		target := r.registry.Find(p.Entity)
		if target == nil {
			return false
		}
		pk := target.PrimaryKey()
		return pk != nil && strings.EqualFold(pk.Type, objectIDType)
	case schema.KindEmbedded, schema.KindArray:
		return false
	}
	return false
}

// RewriteOrderBy renames the field names of a sort definition through the
// same property mapping used for filters. Unknown keys pass through.
func (r *Rewriter) RewriteOrderBy(entity string, orderBy bson.D) (bson.D, error) {
	meta := r.registry.Find(entity)
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	out := make(bson.D, len(orderBy))
	for i, e := range orderBy {
		key := e.Key
		if alias := meta.SerializedPrimaryKey; alias != "" && key == alias && !meta.Embeddable {
			if pk := meta.PrimaryKey(); pk != nil {
				key = pk.Name
			}
		}
		if prop := meta.Property(key); prop != nil {
			if fn := prop.FieldName(); fn != "" {
				key = fn
			}
		}
		out[i] = bson.E{Key: key, Value: e.Value}
	}
	return out, nil
}

// regexShorthand detects a single-entry {$re: pattern} value and converts it
// to a native regular expression.
func regexShorthand(v any) (bson.Regex, bool) {
	sub, ok := asDocument(v)
	if !ok || len(sub) != 1 {
		return bson.Regex{}, false
	}
	raw, ok := sub[regexKey]
	if !ok {
		return bson.Regex{}, false
	}
	pattern, ok := raw.(string)
	if !ok {
		return bson.Regex{}, false
	}
	return bson.Regex{Pattern: pattern}, true
}

// asDocument exposes map-shaped values as bson.M without copying.
func asDocument(v any) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case map[string]any:
		return bson.M(d), true
	default:
		return nil, false
	}
}

// toSlice exposes sequence-shaped values as []any, or nil for non-sequences.
func toSlice(v any) []any {
	switch s := v.(type) {
	case bson.A:
		return []any(s)
	case []any:
		return s
	case []bson.M:
		out := make([]any, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out
	default:
		return nil
	}
}
