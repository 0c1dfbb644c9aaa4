// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"fmt"

	"github.com/goccy/go-reflect"
	"github.com/mitchellh/mapstructure"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Decoder implements domain.Decoder.
type Decoder struct{}

// NewDecoder returns a new implementation of domain.Decoder.
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements domain.Decoder. Struct fields are matched by the "godm"
// tag, or by their case-insensitive name when untagged.
func (d *Decoder) Decode(source any, target any) error {
	if target == nil {
		return domain.ErrTargetNil
	}

	value := reflect.ValueNoEscapeOf(target)
	if value.Kind() != reflect.Ptr {
		return domain.ErrNonPointer
	}
	if value.IsNil() {
		return domain.ErrTargetNil
	}

	source = d.adjustDoc(source)

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: domain.TagName,
		Result:  target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(source); err != nil {
		errDec := domain.ErrDecode{Source: source, Target: target}
		return fmt.Errorf("%w: %w", errDec, err)
	}
	return nil
}

// adjustDoc turns the document flavours produced by the stores into plain
// maps and slices.
func (d *Decoder) adjustDoc(value any) any {
	switch t := value.(type) {
	case domain.M:
		return d.adjustMap(t)
	case primitive.M:
		return d.adjustMap(t)
	case map[string]any:
		return d.adjustMap(t)
	case primitive.D:
		doc := make(map[string]any, len(t))
		for _, e := range t {
			doc[e.Key] = d.adjustDoc(e.Value)
		}
		return doc
	case primitive.A:
		return d.adjustList(t)
	case []any:
		return d.adjustList(t)
	case primitive.ObjectID:
		return t.Hex()
	default:
		return value
	}
}

func (d *Decoder) adjustMap(m map[string]any) map[string]any {
	doc := make(map[string]any, len(m))
	for k, v := range m {
		doc[k] = d.adjustDoc(v)
	}
	return doc
}

func (d *Decoder) adjustList(l []any) []any {
	lst := make([]any, len(l))
	for n, v := range l {
		lst[n] = d.adjustDoc(v)
	}
	return lst
}
