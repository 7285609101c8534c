package driver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jacentio/lattice/internal/oid"
	"github.com/jacentio/lattice/schema"
)

// matchStage is the aggregation stage whose payload is a filter document.
const matchStage = "$match"

// setOperator wraps plain update documents for dispatch.
const setOperator = "$set"

// VirtualResolver serves find-style calls for entities without physical
// backing.
type VirtualResolver func(ctx context.Context, where bson.M, opts *FindOptions) ([]bson.M, error)

// FindOptions configures Find, FindOne and Count calls.
type FindOptions struct {
	// OrderBy is the logical sort definition (field name to 1/-1).
	OrderBy bson.D

	// Limit caps the number of returned documents (0 = no cap).
	Limit int64

	// Offset skips that many documents.
	Offset int64

	// Fields is the explicit projection. Non-string entries are structured
	// sub-selections resolved elsewhere and are skipped here.
	Fields []any

	// Populate lists the lazily-loaded properties to fetch anyway. The
	// wildcard "*" covers all of them.
	Populate []string

	// Pagination enables cursor-based paging when any field is set.
	Pagination Pagination
}

// Driver orchestrates query translation around the store connection: filters,
// updates and sort definitions are rewritten to physical form, cursor
// pagination is assembled, and results pass back unchanged.
type Driver struct {
	conn      Connection
	registry  *schema.Registry
	rewriter  *Rewriter
	logger    *slog.Logger
	resolvers map[string]VirtualResolver
}

// New creates a new Driver over a store connection and a schema registry.
func New(conn Connection, registry *schema.Registry) *Driver {
	return &Driver{
		conn:      conn,
		registry:  registry,
		rewriter:  NewRewriter(registry),
		logger:    slog.Default(),
		resolvers: make(map[string]VirtualResolver),
	}
}

// SetLogger overrides the default logger.
func (d *Driver) SetLogger(logger *slog.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// Rewriter returns the field rewriter sharing this driver's registry.
func (d *Driver) Rewriter() *Rewriter {
	return d.rewriter
}

// RegisterResolver installs the resolver function for a virtual entity.
func (d *Driver) RegisterResolver(entity string, fn VirtualResolver) {
	d.resolvers[entity] = fn
}

// Find returns the documents matching filter. The filter may be a document,
// nil, or a bare identifier value selecting by primary key.
func (d *Driver) Find(ctx context.Context, entity string, filter any, opts *FindOptions) ([]bson.M, error) {
	meta := d.registry.Find(entity)
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	if opts == nil {
		opts = &FindOptions{}
	}

	where, err := whereFilter(meta, filter)
	if err != nil {
		return nil, err
	}

	if meta.Virtual {
		fn := d.resolvers[entity]
		if fn == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoResolver, entity)
		}
		return fn(ctx, where, opts)
	}

	orderBy := opts.OrderBy
	limit := opts.Limit
	reverse := false

	if p := opts.Pagination; p.active() {
		where, orderBy, reverse, err = applyPagination(where, orderBy, p)
		if err != nil {
			return nil, err
		}
		if l := p.limit(); l > 0 {
			limit = l
		}
	}

	physFilter, err := d.rewriter.rewrite(meta, where, false)
	if err != nil {
		return nil, err
	}
	physOrder, err := d.rewriter.RewriteOrderBy(entity, orderBy)
	if err != nil {
		return nil, err
	}
	projection := buildProjection(d.registry, meta, opts.Populate, opts.Fields)

	d.logger.Debug("dispatching find",
		"entity", entity,
		"collection", meta.Collection,
		"limit", limit,
		"reversed", reverse,
	)

	docs, err := d.conn.Find(ctx, meta.Collection, physFilter, physOrder, limit, opts.Offset, projection)
	if err != nil {
		return nil, err
	}
	if reverse {
		reverseDocs(docs)
	}
	return docs, nil
}

// FindOne returns the first matching document, or ErrNotFound.
func (d *Driver) FindOne(ctx context.Context, entity string, filter any, opts *FindOptions) (bson.M, error) {
	one := FindOptions{}
	if opts != nil {
		one = *opts
	}
	one.Limit = 1

	docs, err := d.Find(ctx, entity, filter, &one)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

// Count returns the number of matching documents.
func (d *Driver) Count(ctx context.Context, entity string, filter any) (int64, error) {
	meta := d.registry.Find(entity)
	if meta == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	where, err := whereFilter(meta, filter)
	if err != nil {
		return 0, err
	}

	if meta.Virtual {
		fn := d.resolvers[entity]
		if fn == nil {
			return 0, fmt.Errorf("%w: %s", ErrNoResolver, entity)
		}
		docs, err := fn(ctx, where, &FindOptions{})
		if err != nil {
			return 0, err
		}
		return int64(len(docs)), nil
	}

	physFilter, err := d.rewriter.rewrite(meta, where, false)
	if err != nil {
		return 0, err
	}
	return d.conn.CountDocuments(ctx, meta.Collection, physFilter)
}

// InsertOne inserts a document and returns its assigned identifier.
func (d *Driver) InsertOne(ctx context.Context, entity string, doc bson.M) (any, error) {
	meta := d.registry.Find(entity)
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	phys, err := d.rewriter.rewrite(meta, doc, false)
	if err != nil {
		return nil, err
	}
	return d.conn.InsertOne(ctx, meta.Collection, phys)
}

// InsertMany inserts documents and reports, per inserted row and in input
// order, the primary-key physical name mapped to its assigned identifier.
func (d *Driver) InsertMany(ctx context.Context, entity string, docs []bson.M) ([]bson.M, error) {
	meta := d.registry.Find(entity)
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	pk := meta.PrimaryKey()
	if pk == nil || pk.FieldName() == "" {
		return nil, fmt.Errorf("lattice: entity %s has no primary key", entity)
	}

	phys := make([]bson.M, len(docs))
	for i, doc := range docs {
		p, err := d.rewriter.rewrite(meta, doc, false)
		if err != nil {
			return nil, err
		}
		phys[i] = p
	}

	ids, err := d.conn.InsertMany(ctx, meta.Collection, phys)
	if err != nil {
		return nil, err
	}

	pkField := pk.FieldName()
	out := make([]bson.M, len(ids))
	for i, id := range ids {
		out[i] = bson.M{pkField: id}
	}
	return out, nil
}

// UpdateMany applies an update to all matching documents. Update documents
// without top-level operators are wrapped in $set after rewriting; operator
// payloads are rewritten individually.
func (d *Driver) UpdateMany(ctx context.Context, entity string, filter any, update bson.M, opts *UpdateOptions) (UpdateResult, error) {
	meta := d.registry.Find(entity)
	if meta == nil {
		return UpdateResult{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	where, err := whereFilter(meta, filter)
	if err != nil {
		return UpdateResult{}, err
	}
	physFilter, err := d.rewriter.rewrite(meta, where, false)
	if err != nil {
		return UpdateResult{}, err
	}
	physUpdate, err := d.rewriteUpdate(meta, update)
	if err != nil {
		return UpdateResult{}, err
	}

	o := UpdateOptions{}
	if opts != nil {
		o = *opts
	}
	o.OnConflictFields = renameFieldList(meta, o.OnConflictFields)
	o.OnConflictMergeFields = renameFieldList(meta, o.OnConflictMergeFields)
	o.OnConflictExcludeFields = renameFieldList(meta, o.OnConflictExcludeFields)

	return d.conn.UpdateMany(ctx, meta.Collection, physFilter, physUpdate, o)
}

// BulkUpdateMany applies paired filter/update documents in one batch.
func (d *Driver) BulkUpdateMany(ctx context.Context, entity string, filters []bson.M, updates []bson.M) (int64, error) {
	meta := d.registry.Find(entity)
	if meta == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	if len(filters) != len(updates) {
		return 0, fmt.Errorf("lattice: bulk update requires matching filter and update counts (%d != %d)", len(filters), len(updates))
	}

	physFilters := make([]bson.M, len(filters))
	physUpdates := make([]bson.M, len(updates))
	for i := range filters {
		f, err := d.rewriter.rewrite(meta, filters[i], false)
		if err != nil {
			return 0, err
		}
		u, err := d.rewriteUpdate(meta, updates[i])
		if err != nil {
			return 0, err
		}
		physFilters[i] = f
		physUpdates[i] = u
	}

	return d.conn.BulkUpdateMany(ctx, meta.Collection, physFilters, physUpdates)
}

// DeleteMany removes all matching documents.
func (d *Driver) DeleteMany(ctx context.Context, entity string, filter any) (int64, error) {
	meta := d.registry.Find(entity)
	if meta == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	where, err := whereFilter(meta, filter)
	if err != nil {
		return 0, err
	}
	physFilter, err := d.rewriter.rewrite(meta, where, false)
	if err != nil {
		return 0, err
	}
	return d.conn.DeleteMany(ctx, meta.Collection, physFilter)
}

// Aggregate runs a pipeline. $match stages are rewritten like filters; every
// other stage dispatches untouched (aggregation field references are already
// store-level).
func (d *Driver) Aggregate(ctx context.Context, entity string, pipeline []bson.M) ([]bson.M, error) {
	meta := d.registry.Find(entity)
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}

	out := make([]bson.M, len(pipeline))
	for i, stage := range pipeline {
		if match, ok := stage[matchStage]; ok && len(stage) == 1 {
			if sub, isDoc := asDocument(match); isDoc {
				phys, err := d.rewriter.rewrite(meta, sub, false)
				if err != nil {
					return nil, err
				}
				out[i] = bson.M{matchStage: phys}
				continue
			}
		}
		out[i] = stage
	}

	return d.conn.Aggregate(ctx, meta.Collection, out)
}

// rewriteUpdate translates an update document to physical form.
func (d *Driver) rewriteUpdate(meta *schema.Entity, update bson.M) (bson.M, error) {
	hasOperator := false
	for k := range update {
		if strings.HasPrefix(k, "$") {
			hasOperator = true
			break
		}
	}

	if !hasOperator {
		phys, err := d.rewriter.rewrite(meta, update, false)
		if err != nil {
			return nil, err
		}
		return bson.M{setOperator: phys}, nil
	}

	out := make(bson.M, len(update))
	for k, v := range update {
		sub, ok := asDocument(v)
		if !ok {
			out[k] = v
			continue
		}
		phys, err := d.rewriter.rewrite(meta, sub, false)
		if err != nil {
			return nil, err
		}
		out[k] = phys
	}
	return out, nil
}

// applyPagination conjoins the cursor seek condition with the caller's filter
// and derives the effective scan order.
func applyPagination(where bson.M, orderBy bson.D, p Pagination) (bson.M, bson.D, bool, error) {
	if p.After != "" {
		values, err := decodeCursor(p.After, orderBy)
		if err != nil {
			return nil, nil, false, err
		}
		cond, err := seekFilter(orderBy, values, false)
		if err != nil {
			return nil, nil, false, err
		}
		where = combineFilters(where, cond)
	}
	if p.Before != "" {
		values, err := decodeCursor(p.Before, orderBy)
		if err != nil {
			return nil, nil, false, err
		}
		cond, err := seekFilter(orderBy, values, true)
		if err != nil {
			return nil, nil, false, err
		}
		where = combineFilters(where, cond)
	}

	reverse := p.backward()
	if reverse {
		orderBy = reverseOrder(orderBy)
	}
	return where, orderBy, reverse, nil
}

// whereFilter resolves the bare-identifier shorthand: a non-document filter
// value selects by primary key.
func whereFilter(meta *schema.Entity, filter any) (bson.M, error) {
	switch f := filter.(type) {
	case nil:
		return bson.M{}, nil
	case bson.M:
		return f, nil
	case map[string]any:
		return bson.M(f), nil
	default:
		pk := meta.PrimaryKey()
		if pk == nil {
			return nil, fmt.Errorf("lattice: entity %s has no primary key", meta.Name)
		}
		return bson.M{pk.Name: oid.Normalize(f)}, nil
	}
}

// renameFieldList maps logical field names to physical ones, serialized
// primary key included. Unknown names pass through.
func renameFieldList(meta *schema.Entity, fields []string) []string {
	if len(fields) == 0 {
		return fields
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		name := f
		if meta.SerializedPrimaryKey != "" && name == meta.SerializedPrimaryKey {
			if pk := meta.PrimaryKey(); pk != nil {
				name = pk.Name
			}
		}
		if prop := meta.Property(name); prop != nil {
			if fn := prop.FieldName(); fn != "" {
				name = fn
			}
		}
		out[i] = name
	}
	return out
}

func reverseDocs(docs []bson.M) {
	for i, j := 0, len(docs)-1; i < j; i, j = i+1, j-1 {
		docs[i], docs[j] = docs[j], docs[i]
	}
}
