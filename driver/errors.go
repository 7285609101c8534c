package driver

import "errors"

var (
	// ErrUnknownEntity is returned when an operation names an entity that is
	// not registered in the schema registry.
	ErrUnknownEntity = errors.New("lattice: unknown entity")

	// ErrNotFound is returned by FindOne when no document matches.
	ErrNotFound = errors.New("lattice: document not found")

	// ErrNoResolver is returned when a virtual entity has no registered
	// resolver function.
	ErrNoResolver = errors.New("lattice: no resolver registered for virtual entity")

	// ErrTextQueryConflict is returned when multiple fulltext search
	// conditions would collapse into the same top-level query.
	ErrTextQueryConflict = errors.New("lattice: multiple fulltext search conditions in one query")

	// ErrTextQueryNotTopLevel is returned when a fulltext search key remains
	// below the top level after hoisting.
	ErrTextQueryNotTopLevel = errors.New("lattice: fulltext search is only supported at the top level")

	// ErrCursorMismatch is returned when a pagination cursor does not line up
	// with the order definition it is applied to.
	ErrCursorMismatch = errors.New("lattice: cursor does not match the order definition")
)
