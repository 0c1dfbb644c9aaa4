// Package comparer contains the default [domain.Comparer] implementation,
// ordering the values found in stored documents.
//
// Values of different kinds are ordered as nil, numbers, strings, object
// ids, booleans, dates, arrays and documents.
package comparer

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"math/big"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Comparer implements domain.Comparer.
type Comparer struct{}

// NewComparer returns a new implementation of domain.Comparer.
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Compare implements domain.Comparer.
func (c *Comparer) Compare(a any, b any) (int, error) {
	a, b = c.normalize(a), c.normalize(b)

	// [nil] (null)
	if c, ok := c.checkNil(a, b); ok {
		return c, nil
	}

	// Numbers
	if c, ok := c.checkNumbers(a, b); ok {
		return c, nil
	}

	// Strings
	if c, ok := checkType(a, b, cmp.Compare[string]); ok {
		return c, nil
	}

	// Object ids
	if c, ok := checkType(a, b, func(x, y primitive.ObjectID) int {
		return bytes.Compare(x[:], y[:])
	}); ok {
		return c, nil
	}

	// Booleans
	if c, ok := checkType(a, b, compareBool); ok {
		return c, nil
	}

	// Dates
	if c, ok := checkType(a, b, time.Time.Compare); ok {
		return c, nil
	}

	// Arrays
	if c, ok, err := c.checkArrays(a, b); err != nil || ok {
		return c, err
	}

	// Objects
	if c, ok, err := c.checkDocs(a, b); err != nil || ok {
		return c, err
	}

	return 0, fmt.Errorf("cannot compare unexpected types %T and %T", a, b)
}

// normalize folds the equivalent representations used by the bson package
// and by godm into a single one.
func (c *Comparer) normalize(v any) any {
	switch t := v.(type) {
	case primitive.M:
		return domain.M(t)
	case map[string]any:
		return domain.M(t)
	case primitive.D:
		doc := make(domain.M, len(t))
		for _, e := range t {
			doc[e.Key] = e.Value
		}
		return doc
	case primitive.A:
		return []any(t)
	case primitive.DateTime:
		return t.Time()
	case domain.Point:
		coords := make([]any, len(t.Coordinates))
		for n, f := range t.Coordinates {
			coords[n] = f
		}
		return domain.M{"type": t.Type, "coordinates": coords}
	case primitive.Null:
		return nil
	}
	return v
}

// checkType compares a and b with fn when both are T. When only one is T, it
// is smaller than anything of the kinds not checked yet.
func checkType[T any](a, b any, fn func(T, T) int) (int, bool) {
	if a, ok := a.(T); ok {
		if b, ok := b.(T); ok {
			return fn(a, b), true
		}
		return -1, true
	}
	if _, ok := b.(T); ok {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkNil(a, b any) (int, bool) {
	if a == nil {
		if b == nil {
			return 0, true
		}
		return -1, true
	}
	if b == nil {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkNumbers(a, b any) (int, bool) {
	if a, ok := c.asNumber(a); ok {
		if b, ok := c.asNumber(b); ok {
			return compareNumbers(a, b), true
		}
		return -1, true
	}
	if _, ok := c.asNumber(b); ok {
		return 1, true
	}
	return 0, false
}

// compareNumbers orders NaN, given as nil, below every other number.
func compareNumbers(a, b *big.Float) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	// big.Float compares float64 and int64 without precision loss
	return a.Cmp(b)
}

func (c *Comparer) checkArrays(a, b any) (int, bool, error) {
	if a, ok := a.([]any); ok {
		if b, ok := b.([]any); ok {
			comp, err := c.compareArray(a, b)
			return comp, true, err
		}
		return -1, true, nil
	}
	if _, ok := b.([]any); ok {
		return 1, true, nil
	}
	return 0, false, nil
}

func (c *Comparer) checkDocs(a, b any) (int, bool, error) {
	if a, ok := a.(domain.M); ok {
		if b, ok := b.(domain.M); ok {
			comp, err := c.compareDoc(a, b)
			return comp, true, err
		}
		return -1, true, nil
	}
	if _, ok := b.(domain.M); ok {
		return 1, true, nil
	}
	return 0, false, nil
}

func (c *Comparer) compareArray(a, b []any) (int, error) {
	for i := range min(len(a), len(b)) {
		comp, err := c.Compare(a[i], b[i])
		if err != nil {
			return 0, err
		}
		if comp != 0 {
			return comp, nil
		}
	}

	// Common section was identical, longest one wins
	return cmp.Compare(len(a), len(b)), nil
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if a {
		return 1
	}
	return -1
}

func (c *Comparer) compareDoc(a, b domain.M) (int, error) {
	aKeys := sortedKeys(a)
	bKeys := sortedKeys(b)

	for i := range min(len(aKeys), len(bKeys)) {
		if comp := cmp.Compare(aKeys[i], bKeys[i]); comp != 0 {
			return comp, nil
		}
		comp, err := c.Compare(a[aKeys[i]], b[bKeys[i]])
		if err != nil {
			return 0, err
		}
		if comp != 0 {
			return comp, nil
		}
	}

	return cmp.Compare(len(a), len(b)), nil
}

func sortedKeys(m domain.M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// asNumber reports whether v is a number. NaN is a number with a nil value.
func (c *Comparer) asNumber(v any) (*big.Float, bool) {
	r := big.NewFloat(0)
	switch n := v.(type) {
	case int:
		r.SetInt64(int64(n))
	case int8:
		r.SetInt64(int64(n))
	case int16:
		r.SetInt64(int64(n))
	case int32:
		r.SetInt64(int64(n))
	case int64:
		r.SetInt64(n)
	case uint:
		r.SetUint64(uint64(n))
	case uint8:
		r.SetUint64(uint64(n))
	case uint16:
		r.SetUint64(uint64(n))
	case uint32:
		r.SetUint64(uint64(n))
	case uint64:
		r.SetUint64(n)
	case float32:
		if math.IsNaN(float64(n)) {
			return nil, true
		}
		r.SetFloat64(float64(n))
	case float64:
		if math.IsNaN(n) {
			return nil, true
		}
		r.SetFloat64(n)
	default:
		return nil, false
	}
	return r, true
}
