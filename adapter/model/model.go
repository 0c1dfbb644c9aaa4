package model

import (
	"context"
	"maps"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Model is one document of a [Type]. It keeps its fields in a single map and
// validates every assignment against the type definition. A Model is meant
// to be used by one goroutine at a time; concurrent copies of the same
// document follow last-save-wins semantics.
type Model struct {
	typ    *Type
	fields domain.M
}

// Type returns the type the model belongs to.
func (m *Model) Type() *Type { return m.typ }

// ID returns the identity of the model and whether it has been persisted.
func (m *Model) ID() (any, bool) {
	id, ok := m.fields[domain.IDField]
	return id, ok && id != nil
}

// Get returns the value of a field. Returns [domain.ErrNotFound] if the field
// was never set.
func (m *Model) Get(name string) (any, error) {
	v, ok := m.fields[name]
	if !ok {
		return nil, domain.ErrNotFound{Collection: m.typ.Name(), Key: name}
	}
	return v, nil
}

// Set assigns a field. Returns [domain.ErrValidation] and leaves the model
// untouched if the field is neither required nor admissible.
func (m *Model) Set(name string, value any) error {
	if !m.typ.Admits(name) {
		return domain.ErrValidation{Model: m.typ.Name(), Unknown: []string{name}}
	}
	m.fields[name] = value
	return nil
}

// Fields returns a copy of the current fields, identity included.
func (m *Model) Fields() domain.M {
	return maps.Clone(m.fields)
}

// Decode decodes the fields of the model into target, which must be a
// pointer to a struct or map.
func (m *Model) Decode(target any) error {
	return m.typ.decoder.Decode(m.fields, target)
}

// Location returns the value of the location field as a point.
func (m *Model) Location() (domain.Point, error) {
	v, err := m.Get(m.typ.location)
	if err != nil {
		return domain.Point{}, err
	}
	switch p := v.(type) {
	case domain.Point:
		return p, nil
	case *domain.Point:
		return *p, nil
	}
	var p domain.Point
	if err := m.typ.decoder.Decode(v, &p); err != nil {
		return domain.Point{}, err
	}
	return p, nil
}

// Locate resolves address with the geocoder of the type and stores the
// resulting point in the location field. The location field must be
// required or admissible.
func (m *Model) Locate(ctx context.Context, address string) error {
	if m.typ.geocoder == nil {
		return domain.ErrNoGeocoder
	}
	if !m.typ.Admits(m.typ.location) {
		return domain.ErrValidation{Model: m.typ.Name(), Unknown: []string{m.typ.location}}
	}
	p, err := m.typ.geocoder.Geocode(ctx, address)
	if err != nil {
		return err
	}
	m.fields[m.typ.location] = p
	return nil
}

// Save persists the model. The first successful save inserts the document
// and records the identity returned by the store; later saves update the
// document with every required and admissible field currently set. Fields
// outside the definition are never written. On failure the model is left
// unchanged.
func (m *Model) Save(ctx context.Context) error {
	if missing := m.typ.missing(m.fields); len(missing) > 0 {
		return domain.ErrValidation{Model: m.typ.Name(), Missing: missing}
	}

	doc := m.typ.project(m.fields)
	id, persisted := m.ID()
	if !persisted {
		m.typ.logger.Debugw("inserting document", "collection", m.typ.Name(), "fields", len(doc))
		newID, err := m.typ.coll.InsertOne(ctx, doc)
		if err != nil {
			return m.typ.wrap("insert", err)
		}
		m.fields[domain.IDField] = newID
		return nil
	}

	m.typ.logger.Debugw("updating document", "collection", m.typ.Name(), "id", id, "fields", len(doc))
	if err := m.typ.coll.UpdateOne(ctx, id, doc); err != nil {
		return m.typ.wrap("update", err)
	}
	return nil
}

// Delete removes the stored document. Returns [domain.ErrNotFound] if the
// model was never persisted or the document no longer exists. After a
// successful delete the model has no identity and a new save inserts it
// again.
func (m *Model) Delete(ctx context.Context) error {
	id, persisted := m.ID()
	if !persisted {
		return domain.ErrNotFound{Collection: m.typ.Name(), Key: domain.IDField}
	}

	m.typ.logger.Debugw("deleting document", "collection", m.typ.Name(), "id", id)
	if err := m.typ.coll.DeleteOne(ctx, id); err != nil {
		return m.typ.wrap("delete", err)
	}
	delete(m.fields, domain.IDField)
	return nil
}
