package memstore

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// matcher evaluates normalized filters against stored documents.
type matcher struct {
	comparer domain.Comparer
}

// match reports whether doc satisfies every condition of filter.
func (m *matcher) match(doc domain.M, filter domain.M) (bool, error) {
	for k, v := range filter {
		var ok bool
		var err error
		switch {
		case k == "$and":
			ok, err = m.logical(doc, v, true)
		case k == "$or":
			ok, err = m.logical(doc, v, false)
		case strings.HasPrefix(k, "$"):
			return false, fmt.Errorf("unknown top level operator %q", k)
		default:
			value, found := lookup(doc, k)
			ok, err = m.matchField(value, found, v)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (m *matcher) logical(doc domain.M, operand any, all bool) (bool, error) {
	clauses, ok := operand.([]any)
	if !ok || len(clauses) == 0 {
		return false, fmt.Errorf("$and/$or needs a non-empty array, got %T", operand)
	}
	for _, c := range clauses {
		sub, ok := c.(domain.M)
		if !ok {
			return false, fmt.Errorf("$and/$or clauses must be documents, got %T", c)
		}
		res, err := m.match(doc, sub)
		if err != nil {
			return false, err
		}
		if res != all {
			return res, nil
		}
	}
	return all, nil
}

func (m *matcher) matchField(value any, found bool, cond any) (bool, error) {
	ops, ok := operators(cond)
	if !ok {
		return m.equal(value, found, cond)
	}
	for op, operand := range ops {
		res, err := m.operator(op, value, found, operand)
		if err != nil || !res {
			return false, err
		}
	}
	return true, nil
}

// operators returns cond as an operator document, if every key of it is an
// operator.
func operators(cond any) (domain.M, bool) {
	doc, ok := cond.(domain.M)
	if !ok || len(doc) == 0 {
		return nil, false
	}
	for k := range doc {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return doc, true
}

func (m *matcher) operator(op string, value any, found bool, operand any) (bool, error) {
	switch op {
	case "$eq":
		return m.equal(value, found, operand)
	case "$ne":
		res, err := m.equal(value, found, operand)
		return !res, err
	case "$gt":
		return m.compare(value, found, operand, func(c int) bool { return c > 0 })
	case "$gte":
		return m.compare(value, found, operand, func(c int) bool { return c >= 0 })
	case "$lt":
		return m.compare(value, found, operand, func(c int) bool { return c < 0 })
	case "$lte":
		return m.compare(value, found, operand, func(c int) bool { return c <= 0 })
	case "$in":
		return m.in(value, found, operand)
	case "$nin":
		res, err := m.in(value, found, operand)
		return !res, err
	case "$exists":
		return truthy(operand) == found, nil
	}
	return false, fmt.Errorf("unknown operator %q", op)
}

// candidates returns value and, if it is an array, its elements, since a
// condition on an array field matches when any element matches.
func candidates(value any) []any {
	if arr, ok := value.([]any); ok {
		return append([]any{value}, arr...)
	}
	return []any{value}
}

// equal follows the MongoDB rule that a null operand also matches missing
// fields.
func (m *matcher) equal(value any, found bool, operand any) (bool, error) {
	if !found {
		return operand == nil, nil
	}
	for _, v := range candidates(value) {
		c, err := m.comparer.Compare(v, operand)
		if err != nil {
			return false, err
		}
		if c == 0 {
			return true, nil
		}
	}
	return false, nil
}

// compare only compares values of the same kind.
func (m *matcher) compare(value any, found bool, operand any, test func(int) bool) (bool, error) {
	if !found {
		return false, nil
	}
	for _, v := range candidates(value) {
		if bracket(v) != bracket(operand) {
			continue
		}
		c, err := m.comparer.Compare(v, operand)
		if err != nil {
			return false, err
		}
		if test(c) {
			return true, nil
		}
	}
	return false, nil
}

func (m *matcher) in(value any, found bool, operand any) (bool, error) {
	list, ok := operand.([]any)
	if !ok {
		return false, fmt.Errorf("$in/$nin needs an array, got %T", operand)
	}
	for _, item := range list {
		res, err := m.equal(value, found, item)
		if err != nil || res {
			return res, err
		}
	}
	return false, nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	}
	return true
}

// bracket groups values whose kinds can be ordered against each other.
func bracket(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return 1
	case string:
		return 2
	case primitive.ObjectID:
		return 3
	case bool:
		return 4
	case time.Time:
		return 5
	case []any:
		return 6
	case domain.M:
		return 7
	}
	return 8
}
