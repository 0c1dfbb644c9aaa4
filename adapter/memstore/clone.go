package memstore

import (
	"strconv"
	"strings"

	"github.com/goccy/go-reflect"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// normalize returns a deep copy of v in which every document is a domain.M
// and every array is a []any, which is the only shape the store keeps.
// Points are stored as their GeoJSON document.
func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case domain.M:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case primitive.M:
		return normalizeMap(t)
	case primitive.D:
		doc := make(domain.M, len(t))
		for _, e := range t {
			doc[e.Key] = normalize(e.Value)
		}
		return doc
	case []any:
		return normalizeSlice(t)
	case primitive.A:
		return normalizeSlice(t)
	case domain.Point:
		return pointDoc(t)
	case *domain.Point:
		if t == nil {
			return nil
		}
		return pointDoc(*t)
	case primitive.DateTime:
		return t.Time()
	case primitive.Null:
		return nil
	case []byte:
		return append([]byte(nil), t...)
	}

	value := reflect.ValueNoEscapeOf(v)
	if value.Kind() == reflect.Slice || value.Kind() == reflect.Array {
		arr := make([]any, value.Len())
		for n := range arr {
			arr[n] = normalize(value.Index(n).Interface())
		}
		return arr
	}
	return v
}

func normalizeMap[T ~map[string]any](m T) domain.M {
	doc := make(domain.M, len(m))
	for k, v := range m {
		doc[k] = normalize(v)
	}
	return doc
}

func normalizeSlice[T ~[]any](s T) []any {
	arr := make([]any, len(s))
	for n, v := range s {
		arr[n] = normalize(v)
	}
	return arr
}

func pointDoc(p domain.Point) domain.M {
	coords := make([]any, len(p.Coordinates))
	for n, c := range p.Coordinates {
		coords[n] = c
	}
	return domain.M{"type": p.Type, "coordinates": coords}
}

// clone returns a deep copy of a stored document.
func clone(doc domain.M) domain.M {
	return normalizeMap(doc)
}

// lookup reads a dotted path. Numeric segments index into arrays.
func lookup(doc domain.M, path string) (any, bool) {
	var cur any = doc
	for part := range strings.SplitSeq(path, ".") {
		switch t := cur.(type) {
		case domain.M:
			v, ok := t[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			n, err := strconv.Atoi(part)
			if err != nil || n < 0 || n >= len(t) {
				return nil, false
			}
			cur = t[n]
		default:
			return nil, false
		}
	}
	return cur, true
}
