package domain

import (
	"fmt"
	"strings"
)

// IDField is the key under which a document keeps its identity.
const IDField = "_id"

// TagName is the struct tag read when decoding documents into structs.
const TagName = "godm"

// M is the raw representation of a document.
type M map[string]any

// Clone returns a shallow copy of m. Nested documents are shared.
func (m M) Clone() M {
	if m == nil {
		return M{}
	}
	c := make(M, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// IndexKind is the kind of index created for a field.
type IndexKind string

const (
	// IndexUnique is an ascending index rejecting duplicate values.
	IndexUnique IndexKind = "unique"
	// IndexRegular is a plain ascending index.
	IndexRegular IndexKind = "regular"
	// IndexGeospatial is a spherical index over GeoJSON values. Exactly one
	// is required per model.
	IndexGeospatial IndexKind = "geospatial"
)

// ParseIndexKind reads the textual name of an index kind. The MongoDB name
// "2dsphere" is accepted as [IndexGeospatial].
func ParseIndexKind(s string) (IndexKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unique":
		return IndexUnique, nil
	case "regular":
		return IndexRegular, nil
	case "geospatial", "2dsphere":
		return IndexGeospatial, nil
	}
	return "", fmt.Errorf("unknown index kind %q", s)
}

// IndexSpec declares one index of a collection.
type IndexSpec struct {
	Field string
	Kind  IndexKind
}

// ModelDefinition declares one collection: which fields a document must
// carry, which it may carry, and which indexes back it. It is read once at
// startup and never modified afterwards.
type ModelDefinition struct {
	Collection string
	Required   []string
	Admissible []string
	Indexes    []IndexSpec
}

// LocationFields returns the fields of every geospatial index in the
// definition. A valid definition has exactly one.
func (d ModelDefinition) LocationFields() []string {
	var fields []string
	for _, idx := range d.Indexes {
		if idx.Kind == IndexGeospatial {
			fields = append(fields, idx.Field)
		}
	}
	return fields
}

// Point is a GeoJSON point. Coordinates are longitude first.
type Point struct {
	Type        string    `bson:"type" json:"type" godm:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates" godm:"coordinates"`
}

// NewPoint returns the GeoJSON point at the given position.
func NewPoint(longitude, latitude float64) Point {
	return Point{Type: "Point", Coordinates: []float64{longitude, latitude}}
}

// Longitude returns the first coordinate, or zero.
func (p Point) Longitude() float64 {
	if len(p.Coordinates) < 1 {
		return 0
	}
	return p.Coordinates[0]
}

// Latitude returns the second coordinate, or zero.
func (p Point) Latitude() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}
