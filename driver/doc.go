// Package driver translates an ORM's logical query model into the physical
// MongoDB wire representation.
//
// Given entity metadata (see the schema package) and a logical filter, update
// or projection document, the package produces the document the store
// actually understands: logical property names become physical field names,
// string identifiers become native ObjectIDs, embedded values are rewritten
// against their nested entity metadata, and fulltext markers are hoisted into
// a single native $text construct.
//
// # Components
//
//   - [Rewriter] - the recursive field-rewriting engine
//   - [Pagination] / [EncodeCursor] - cursor-based seek pagination
//   - [Driver] - the facade orchestrating translation around a [Connection]
//
// # Reserved keys
//
// Group operators ($and, $or, $nor, $not), the fulltext marker ($fulltext),
// the regex shorthand ($re) and the wildcard field marker ("*") are fixed
// points of the protocol: the rewriter descends into group operators without
// renaming them, and never treats reserved keys as entity properties.
//
// # Errors
//
// The package defines domain-specific errors:
//
//   - [ErrUnknownEntity] - operation against an unregistered entity
//   - [ErrNotFound] - FindOne matched nothing
//   - [ErrNoResolver] - virtual entity without a resolver
//   - [ErrTextQueryConflict] - two fulltext conditions in one query
//   - [ErrTextQueryNotTopLevel] - fulltext marker below the top level
//   - [ErrCursorMismatch] - cursor does not fit the order definition
//
// Store and network failures are never swallowed: they propagate to the
// caller unchanged.
//
// All transformations are pure and stateless; the caller's documents are
// never mutated, so the package is safe for unlimited concurrent use over
// the immutable schema registry.
package driver
