// Package godm provides a minimal object-document mapper for MongoDB-like
// stores.
//
// A schema declares, for each collection, the fields its documents must
// carry, the fields they may carry and the indexes backing it. [InitApp]
// connects to a store, registers one [Type] per collection and creates the
// indexes. Application code then builds [Model] values from a type, which
// validates every field against the schema before anything reaches the
// store.
//
// Every definition needs exactly one geospatial index. Its field is the
// location field of the type and can be filled from a postal address with
// [Model.Locate] when a [Geocoder] is configured.
package godm

import (
	"github.com/vinicius-lino-figueiredo/godm/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/godm/adapter/model"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

var (
	// ErrConstraintViolated is returned when a write is blocked by a
	// unique index.
	ErrConstraintViolated = domain.ErrConstraintViolated
	// ErrCursorClosed is returned when reading from a closed cursor.
	ErrCursorClosed = domain.ErrCursorClosed
	// ErrTargetNil is returned when decoding into a nil target.
	ErrTargetNil = domain.ErrTargetNil
	// ErrNonPointer is returned when decoding into a value that is not a
	// pointer.
	ErrNonPointer = domain.ErrNonPointer
	// ErrNoGeocoder is returned by [Model.Locate] when no [Geocoder] was
	// configured.
	ErrNoGeocoder = domain.ErrNoGeocoder
	// ErrUnsupportedStage is returned by the in-memory store for
	// aggregation stages it cannot run.
	ErrUnsupportedStage = domain.ErrUnsupportedStage
)

// ErrValidation is returned when a document has fields its type does not
// admit or lacks required ones.
type ErrValidation = domain.ErrValidation

// ErrConfig is returned when a definition cannot be registered.
type ErrConfig = domain.ErrConfig

// ErrStore wraps the failures of the document store.
type ErrStore = domain.ErrStore

// ErrNotFound is returned for missing documents, fields and addresses.
type ErrNotFound = domain.ErrNotFound

// ErrDecode wraps third party decoding errors.
type ErrDecode = domain.ErrDecode

// M is the raw representation of a document.
type M = domain.M

// ModelDefinition declares one collection.
type ModelDefinition = domain.ModelDefinition

// IndexSpec declares one index of a collection.
type IndexSpec = domain.IndexSpec

// IndexKind is the kind of an index.
type IndexKind = domain.IndexKind

// Index kinds.
const (
	IndexUnique     = domain.IndexUnique
	IndexRegular    = domain.IndexRegular
	IndexGeospatial = domain.IndexGeospatial
)

// IDField is the key holding the identity of a document.
const IDField = domain.IDField

// Point is a GeoJSON point, longitude first.
type Point = domain.Point

// NewPoint returns the GeoJSON point at the given position.
func NewPoint(longitude, latitude float64) Point {
	return domain.NewPoint(longitude, latitude)
}

// Store is a document database.
type Store = domain.Store

// Collection is one collection of a [Store].
type Collection = domain.Collection

// RawCursor is a stream of raw documents, as returned by aggregations.
type RawCursor = domain.RawCursor

// Geocoder resolves postal addresses.
type Geocoder = domain.Geocoder

// Type is a schema-validated document type bound to one collection.
type Type = model.Type

// Model is one document of a [Type].
type Model = model.Model

// Cursor lazily turns query results into models.
type Cursor = cursor.Cursor[*model.Model]
