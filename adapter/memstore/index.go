package memstore

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/avl"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// record is one stored document. Records are never modified in place; an
// update replaces the record, so indexes can compare them by pointer.
type record struct {
	seq uint64
	doc domain.M
}

type bstComparer struct {
	comparer domain.Comparer
}

// CompareKeys implements bst.Comparer.
func (bc *bstComparer) CompareKeys(a any, b any) (int, error) {
	return bc.comparer.Compare(a, b)
}

// CompareValues implements bst.Comparer.
func (bc *bstComparer) CompareValues(a *record, b *record) (bool, error) {
	return a == b, nil
}

// index maps the values of one field to the records holding them. Array
// values are indexed once per distinct element and missing fields are
// indexed under nil.
type index struct {
	field    string
	unique   bool
	tree     bst.BST[any, *record]
	comparer domain.Comparer
}

func newIndex(field string, unique bool, comparer domain.Comparer) *index {
	return &index{
		field:    field,
		unique:   unique,
		tree:     avl.NewBST(unique, 8, bst.Comparer[any, *record](&bstComparer{comparer: comparer})),
		comparer: comparer,
	}
}

func (i *index) keys(doc domain.M) ([]any, error) {
	v, ok := lookup(doc, i.field)
	if !ok {
		return []any{nil}, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return []any{v}, nil
	}
	if len(arr) == 0 {
		return []any{nil}, nil
	}

	keys := slices.Clone(arr)
	var err error
	slices.SortFunc(keys, func(a, b any) int {
		c, cErr := i.comparer.Compare(a, b)
		if cErr != nil && err == nil {
			err = cErr
		}
		return c
	})
	if err != nil {
		return nil, err
	}
	return slices.CompactFunc(keys, func(a, b any) bool {
		c, _ := i.comparer.Compare(a, b)
		return c == 0
	}), nil
}

// insert indexes r under every key of its document. On failure the keys
// already inserted are removed again.
func (i *index) insert(r *record) error {
	keys, err := i.keys(r.doc)
	if err != nil {
		return err
	}
	for n, k := range keys {
		if err = i.tree.Insert(k, r); err != nil {
			if errors.As(err, new(bst.ErrUniqueViolated)) {
				err = fmt.Errorf("%w: %s: %w", domain.ErrConstraintViolated, i.field, err)
			}
			for _, done := range keys[:n] {
				_ = i.tree.Delete(done, &r)
			}
			return err
		}
	}
	return nil
}

func (i *index) remove(r *record) error {
	keys, err := i.keys(r.doc)
	if err != nil {
		return err
	}
	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		if err := i.tree.Delete(k, &r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// search returns the records whose field holds value.
func (i *index) search(value any) ([]*record, error) {
	node, err := i.tree.Search(value)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, nil
	}
	return slices.Clone(node.Values()), nil
}

// between returns the records whose keys fall in the given bounds. Records
// may appear more than once.
func (i *index) between(bounds domain.M) ([]*record, error) {
	var qry bst.Query[any]
	for k, v := range bounds {
		switch k {
		case "$gt":
			qry.GreaterThan = &bst.Bound[any]{Value: v, IncludeEqual: false}
		case "$gte":
			qry.GreaterThan = &bst.Bound[any]{Value: v, IncludeEqual: true}
		case "$lt":
			qry.LowerThan = &bst.Bound[any]{Value: v, IncludeEqual: false}
		case "$lte":
			qry.LowerThan = &bst.Bound[any]{Value: v, IncludeEqual: true}
		}
	}
	var res []*record
	for r, err := range i.tree.Query(qry) {
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, nil
}
