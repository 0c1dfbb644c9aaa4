// Package domain contains the interfaces, entities and error types shared by
// every godm adapter.
//
// The document store is consumed only through [Store], [Collection] and
// [RawCursor], so any database offering these operations can back the
// models.
package domain

import "context"

// Store gives access to named collections of a single database.
type Store interface {
	// Collection returns a handle to the named collection. Collections are
	// created lazily by the underlying database.
	Collection(name string) Collection
	// Ping checks that the database is reachable.
	Ping(ctx context.Context) error
	// Drop permanently removes every collection of the database.
	Drop(ctx context.Context) error
	// Close releases the connection to the database.
	Close(ctx context.Context) error
}

// Collection is the document store capability used by models. Every call
// blocks until the store answers, fails, or ctx is done.
type Collection interface {
	// Name returns the collection name.
	Name() string
	// InsertOne stores a new document and returns the identity assigned to
	// it. The given document is not modified.
	InsertOne(ctx context.Context, doc M) (any, error)
	// UpdateOne sets every field in fields on the document with the given
	// identity. Returns [ErrNotFound] if no document has that identity.
	UpdateOne(ctx context.Context, id any, fields M) error
	// DeleteOne removes the document with the given identity. Returns
	// [ErrNotFound] if no document has that identity.
	DeleteOne(ctx context.Context, id any) error
	// FindOne returns the document with the given identity, or
	// [ErrNotFound].
	FindOne(ctx context.Context, id any) (M, error)
	// Find returns a stream over every document matching filter. A nil
	// filter matches everything.
	Find(ctx context.Context, filter any) (RawCursor, error)
	// Aggregate runs an aggregation pipeline and returns its result
	// stream.
	Aggregate(ctx context.Context, pipeline any) (RawCursor, error)
	// CreateIndex ensures an index described by spec exists.
	CreateIndex(ctx context.Context, spec IndexSpec) error
}

// RawCursor is a forward-only stream of raw documents. *mongo.Cursor
// implements it.
type RawCursor interface {
	// Next advances the stream, returning false when it is exhausted or
	// failed.
	Next(ctx context.Context) bool
	// Decode decodes the current document into target.
	Decode(target any) error
	// Err returns the error that stopped the stream, if any.
	Err() error
	// Close releases the stream.
	Close(ctx context.Context) error
}

// Decoder converts raw values into user defined types.
type Decoder interface {
	// Decode decodes source into target, which must be a non-nil pointer.
	Decode(source any, target any) error
}

// Geocoder resolves free text addresses into points.
type Geocoder interface {
	// Geocode returns the point of the given address. Returns
	// [ErrNotFound] if the address cannot be resolved.
	Geocode(ctx context.Context, address string) (Point, error)
}

// IDGenerator creates identities for documents inserted without one.
type IDGenerator interface {
	// GenerateID returns a new unique identity.
	GenerateID() (any, error)
}

// Comparer provides ordering for raw document values.
type Comparer interface {
	// Compare returns -1, 0, or 1 based on the comparison of two values.
	Compare(any, any) (int, error)
}
