package driver

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UpdateOptions configures update dispatch.
type UpdateOptions struct {
	// Upsert inserts a new document when the filter matches nothing.
	Upsert bool

	// OnConflictFields names the fields forming the conflict target. The
	// facade renames these to physical field names before dispatch.
	OnConflictFields []string

	// OnConflictMergeFields names the fields to merge on conflict.
	OnConflictMergeFields []string

	// OnConflictExcludeFields names the fields to leave untouched on conflict.
	OnConflictExcludeFields []string
}

// UpdateResult reports the outcome of an update dispatch.
type UpdateResult struct {
	// MatchedCount is the number of documents the filter matched.
	MatchedCount int64

	// ModifiedCount is the number of documents actually changed.
	ModifiedCount int64

	// UpsertedCount is 1 when an upsert inserted a new document.
	UpsertedCount int64

	// UpsertedID is the identifier assigned by an upsert, or nil.
	UpsertedID any
}

// Connection is the store transport consumed by the Driver. Implementations
// receive already-physical documents and return raw results and errors
// unchanged; translation and error policy live above this interface.
type Connection interface {
	// Find returns matching documents in store order.
	Find(ctx context.Context, collection string, filter bson.M, orderBy bson.D, limit, offset int64, projection []string) ([]bson.M, error)

	// CountDocuments counts matching documents.
	CountDocuments(ctx context.Context, collection string, filter bson.M) (int64, error)

	// InsertOne inserts a document and returns its assigned identifier.
	InsertOne(ctx context.Context, collection string, doc bson.M) (any, error)

	// InsertMany inserts documents and returns their assigned identifiers in
	// input order.
	InsertMany(ctx context.Context, collection string, docs []bson.M) ([]any, error)

	// UpdateMany applies an update document to all matching documents.
	UpdateMany(ctx context.Context, collection string, filter, update bson.M, opts UpdateOptions) (UpdateResult, error)

	// BulkUpdateMany applies paired filter/update documents in one batch and
	// returns the number of modified documents.
	BulkUpdateMany(ctx context.Context, collection string, filters []bson.M, updates []bson.M) (int64, error)

	// DeleteMany removes all matching documents and returns the count.
	DeleteMany(ctx context.Context, collection string, filter bson.M) (int64, error)

	// Aggregate runs an aggregation pipeline.
	Aggregate(ctx context.Context, collection string, pipeline []bson.M) ([]bson.M, error)
}
