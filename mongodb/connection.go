// Package mongodb adapts a MongoDB database handle to the driver.Connection
// interface.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jacentio/lattice/driver"
)

// Connection dispatches already-physical documents against a *mongo.Database.
type Connection struct {
	db *mongo.Database
}

// New creates a Connection over an open database handle.
func New(db *mongo.Database) *Connection {
	return &Connection{db: db}
}

// Find returns matching documents in store order.
func (c *Connection) Find(ctx context.Context, collection string, filter bson.M, orderBy bson.D, limit, offset int64, projection []string) ([]bson.M, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if offset > 0 {
		opts.SetSkip(offset)
	}
	if len(orderBy) > 0 {
		opts.SetSort(orderBy)
	}
	if projection != nil {
		proj := make(bson.D, len(projection))
		for i, f := range projection {
			proj[i] = bson.E{Key: f, Value: 1}
		}
		opts.SetProjection(proj)
	}
	if filter == nil {
		filter = bson.M{}
	}

	cursor, err := c.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("find %s results: %w", collection, err)
	}
	return docs, nil
}

// CountDocuments counts matching documents.
func (c *Connection) CountDocuments(ctx context.Context, collection string, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	n, err := c.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// InsertOne inserts a document and returns its assigned identifier.
func (c *Connection) InsertOne(ctx context.Context, collection string, doc bson.M) (any, error) {
	res, err := c.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insertOne %s: %w", collection, err)
	}
	return res.InsertedID, nil
}

// InsertMany inserts documents and returns their assigned identifiers in
// input order.
func (c *Connection) InsertMany(ctx context.Context, collection string, docs []bson.M) ([]any, error) {
	items := make([]any, len(docs))
	for i, doc := range docs {
		items[i] = doc
	}
	res, err := c.db.Collection(collection).InsertMany(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("insertMany %s: %w", collection, err)
	}
	return res.InsertedIDs, nil
}

// UpdateMany applies an update document to all matching documents.
func (c *Connection) UpdateMany(ctx context.Context, collection string, filter, update bson.M, opts driver.UpdateOptions) (driver.UpdateResult, error) {
	o := options.UpdateMany()
	if opts.Upsert {
		o.SetUpsert(true)
	}
	res, err := c.db.Collection(collection).UpdateMany(ctx, filter, update, o)
	if err != nil {
		return driver.UpdateResult{}, fmt.Errorf("updateMany %s: %w", collection, err)
	}
	return driver.UpdateResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
		UpsertedID:    res.UpsertedID,
	}, nil
}

// BulkUpdateMany applies paired filter/update documents in one batch.
func (c *Connection) BulkUpdateMany(ctx context.Context, collection string, filters []bson.M, updates []bson.M) (int64, error) {
	models := make([]mongo.WriteModel, len(filters))
	for i := range filters {
		models[i] = mongo.NewUpdateManyModel().SetFilter(filters[i]).SetUpdate(updates[i])
	}
	res, err := c.db.Collection(collection).BulkWrite(ctx, models)
	if err != nil {
		return 0, fmt.Errorf("bulkUpdateMany %s: %w", collection, err)
	}
	return res.ModifiedCount, nil
}

// DeleteMany removes all matching documents and returns the count.
func (c *Connection) DeleteMany(ctx context.Context, collection string, filter bson.M) (int64, error) {
	res, err := c.db.Collection(collection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("deleteMany %s: %w", collection, err)
	}
	return res.DeletedCount, nil
}

// Aggregate runs an aggregation pipeline.
func (c *Connection) Aggregate(ctx context.Context, collection string, pipeline []bson.M) ([]bson.M, error) {
	stages := make(bson.A, len(pipeline))
	for i, stage := range pipeline {
		stages[i] = stage
	}
	cursor, err := c.db.Collection(collection).Aggregate(ctx, stages)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", collection, err)
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("aggregate %s results: %w", collection, err)
	}
	return docs, nil
}

// compile-time interface check
var _ driver.Connection = (*Connection)(nil)
