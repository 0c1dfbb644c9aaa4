package memstore

import (
	"fmt"
	"math"
	"slices"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type stage struct {
	name    string
	operand any
}

// sortKey is one field of a $sort stage. Order is 1 or -1.
type sortKey struct {
	field string
	order int
}

// parsePipeline reads the stages in order. Every stage must hold exactly one
// key.
func parsePipeline(pipeline any) ([]stage, error) {
	var raw []any
	switch t := pipeline.(type) {
	case nil:
		return nil, nil
	case mongo.Pipeline:
		for _, d := range t {
			raw = append(raw, d)
		}
	case []primitive.D:
		for _, d := range t {
			raw = append(raw, d)
		}
	case []domain.M:
		for _, d := range t {
			raw = append(raw, d)
		}
	case []primitive.M:
		for _, d := range t {
			raw = append(raw, d)
		}
	case []map[string]any:
		for _, d := range t {
			raw = append(raw, d)
		}
	case primitive.A:
		raw = t
	case []any:
		raw = t
	default:
		return nil, fmt.Errorf("unsupported pipeline type %T", pipeline)
	}

	stages := make([]stage, 0, len(raw))
	for _, r := range raw {
		s, err := parseStage(r)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, nil
}

func parseStage(raw any) (stage, error) {
	switch t := raw.(type) {
	case primitive.D:
		if len(t) == 1 {
			return stage{name: t[0].Key, operand: t[0].Value}, nil
		}
	case primitive.E:
		return stage{name: t.Key, operand: t.Value}, nil
	default:
		doc, ok := normalize(raw).(domain.M)
		if !ok {
			return stage{}, fmt.Errorf("pipeline stage must be a document, got %T", raw)
		}
		if len(doc) == 1 {
			for k := range doc {
				// keep the raw operand so $sort can read the key order
				return stage{name: k, operand: rawValue(raw, k)}, nil
			}
		}
	}
	return stage{}, fmt.Errorf("pipeline stage must hold exactly one key: %v", raw)
}

func rawValue(raw any, key string) any {
	switch t := raw.(type) {
	case domain.M:
		return t[key]
	case primitive.M:
		return t[key]
	case map[string]any:
		return t[key]
	}
	return normalize(raw).(domain.M)[key]
}

// parseSort reads the keys of a $sort stage. Ordered documents keep their
// order; keys of unordered maps are sorted by name.
func parseSort(operand any) ([]sortKey, error) {
	var keys []sortKey
	add := func(field string, v any) error {
		n, ok := toInt(v)
		if !ok || (n != 1 && n != -1) {
			return fmt.Errorf("$sort order of %q must be 1 or -1", field)
		}
		keys = append(keys, sortKey{field: field, order: int(n)})
		return nil
	}

	if d, ok := operand.(primitive.D); ok {
		for _, e := range d {
			if err := add(e.Key, e.Value); err != nil {
				return nil, err
			}
		}
	} else {
		doc, ok := normalize(operand).(domain.M)
		if !ok {
			return nil, fmt.Errorf("$sort needs a document, got %T", operand)
		}
		fields := make([]string, 0, len(doc))
		for k := range doc {
			fields = append(fields, k)
		}
		slices.Sort(fields)
		for _, f := range fields {
			if err := add(f, doc[f]); err != nil {
				return nil, err
			}
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("$sort needs at least one key")
	}
	return keys, nil
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

// run applies the stages to docs, which are owned by the caller.
func (c *Collection) run(docs []domain.M, stages []stage) ([]domain.M, error) {
	for _, s := range stages {
		var err error
		switch s.name {
		case "$match":
			docs, err = c.runMatch(docs, s.operand)
		case "$sort":
			docs, err = c.runSort(docs, s.operand)
		case "$skip":
			n, ok := toInt(s.operand)
			if !ok || n < 0 {
				return nil, fmt.Errorf("$skip needs a non-negative integer")
			}
			docs = docs[min(int(n), len(docs)):]
		case "$limit":
			n, ok := toInt(s.operand)
			if !ok || n <= 0 {
				return nil, fmt.Errorf("$limit needs a positive integer")
			}
			docs = docs[:min(int(n), len(docs))]
		default:
			return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedStage, s.name)
		}
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (c *Collection) runMatch(docs []domain.M, operand any) ([]domain.M, error) {
	filter, err := toFilter(operand)
	if err != nil {
		return nil, err
	}
	res := docs[:0]
	for _, d := range docs {
		ok, err := c.matcher.match(d, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			res = append(res, d)
		}
	}
	return res, nil
}

func (c *Collection) runSort(docs []domain.M, operand any) ([]domain.M, error) {
	keys, err := parseSort(operand)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(docs, func(a, b domain.M) int {
		for _, k := range keys {
			va, _ := lookup(a, k.field)
			vb, _ := lookup(b, k.field)
			comp, cErr := c.store.comparer.Compare(va, vb)
			if cErr != nil && err == nil {
				err = cErr
			}
			if comp != 0 {
				return comp * k.order
			}
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
