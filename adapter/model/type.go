// Package model contains the collection-bound model types and the documents
// built from them.
//
// A [Type] is created once per collection from a [domain.ModelDefinition].
// It validates every [Model] created by application code against the
// required and admissible fields of the definition, and builds models from
// stored documents without validating them again.
package model

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/godm/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/godm/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Type is a schema-validated document type bound to one collection. It is
// immutable after creation and safe for concurrent use.
type Type struct {
	def        domain.ModelDefinition
	required   map[string]struct{}
	admissible map[string]struct{}
	location   string
	coll       domain.Collection
	decoder    domain.Decoder
	geocoder   domain.Geocoder
	logger     *zap.SugaredLogger
}

// NewType binds def to coll. The definition must declare exactly one
// geospatial index, whose field becomes the location field of the type.
// Index creation is not performed here.
func NewType(def domain.ModelDefinition, coll domain.Collection, options ...Option) (*Type, error) {
	locations := def.LocationFields()
	if len(locations) != 1 {
		return nil, domain.ErrConfig{
			Collection: def.Collection,
			Reason:     "exactly one geospatial index is required",
		}
	}

	t := &Type{
		def: domain.ModelDefinition{
			Collection: def.Collection,
			Required:   slices.Clone(def.Required),
			Admissible: slices.Clone(def.Admissible),
			Indexes:    slices.Clone(def.Indexes),
		},
		required:   toSet(def.Required),
		admissible: toSet(def.Admissible),
		location:   locations[0],
		coll:       coll,
		decoder:    decoder.NewDecoder(),
		logger:     zap.NewNop().Sugar(),
	}
	for _, option := range options {
		option(t)
	}
	return t, nil
}

func toSet(fields []string) map[string]struct{} {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Name returns the collection name.
func (t *Type) Name() string { return t.def.Collection }

// LocationField returns the field backed by the geospatial index.
func (t *Type) LocationField() string { return t.location }

// Collection returns the store collection the type is bound to.
func (t *Type) Collection() domain.Collection { return t.coll }

// Definition returns a copy of the definition the type was built from.
func (t *Type) Definition() domain.ModelDefinition {
	return domain.ModelDefinition{
		Collection: t.def.Collection,
		Required:   slices.Clone(t.def.Required),
		Admissible: slices.Clone(t.def.Admissible),
		Indexes:    slices.Clone(t.def.Indexes),
	}
}

// Admits reports whether name is a required or admissible field.
func (t *Type) Admits(name string) bool {
	if _, ok := t.required[name]; ok {
		return true
	}
	_, ok := t.admissible[name]
	return ok
}

// missing returns the sorted required fields absent from fields.
func (t *Type) missing(fields domain.M) []string {
	var missing []string
	for name := range t.required {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	return missing
}

// project keeps only the required and admissible fields.
func (t *Type) project(fields domain.M) domain.M {
	doc := make(domain.M, len(fields))
	for k, v := range fields {
		if t.Admits(k) {
			doc[k] = v
		}
	}
	return doc
}

// New validates fields and returns an unsaved model holding exactly them.
// An identity may be given under [domain.IDField]; the model then counts as
// already persisted. The returned [domain.ErrValidation] lists every field
// that is not admitted and every required field that is missing.
func (t *Type) New(fields domain.M) (*Model, error) {
	var unknown []string
	for k := range fields {
		if k != domain.IDField && !t.Admits(k) {
			unknown = append(unknown, k)
		}
	}
	missing := t.missing(fields)
	if len(unknown) > 0 || len(missing) > 0 {
		slices.Sort(unknown)
		return nil, domain.ErrValidation{
			Model:   t.Name(),
			Unknown: unknown,
			Missing: missing,
		}
	}
	return &Model{typ: t, fields: fields.Clone()}, nil
}

// FromDocument builds a model from a document read from the store. The
// document is trusted: required fields are not checked again and it is kept
// as is.
func (t *Type) FromDocument(doc domain.M) *Model {
	return &Model{typ: t, fields: doc.Clone()}
}

// FindByID looks the document with the given identity up. Every call reaches
// the store; the boolean is false when no document has that identity.
func (t *Type) FindByID(ctx context.Context, id any) (*Model, bool, error) {
	doc, err := t.coll.FindOne(ctx, id)
	if errors.Is(err, domain.ErrNotFound{}) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, t.wrap("find", err)
	}
	return t.FromDocument(doc), true, nil
}

// Find runs a read query and returns a lazy cursor of models.
func (t *Type) Find(ctx context.Context, filter any) (*cursor.Cursor[*Model], error) {
	raw, err := t.coll.Find(ctx, filter)
	if err != nil {
		return nil, t.wrap("find", err)
	}
	return cursor.New(raw, t.build), nil
}

// Aggregate runs an aggregation pipeline. Results are returned raw since
// pipelines may reshape documents beyond the model definition.
func (t *Type) Aggregate(ctx context.Context, pipeline any) (domain.RawCursor, error) {
	raw, err := t.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, t.wrap("aggregate", err)
	}
	return raw, nil
}

func (t *Type) build(doc domain.M) (*Model, error) {
	return t.FromDocument(doc), nil
}

// wrap leaves errors already classified by the store untouched.
func (t *Type) wrap(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound{}) || errors.Is(err, domain.ErrStore{}) {
		return err
	}
	return domain.ErrStore{Op: op, Collection: t.Name(), Err: err}
}
