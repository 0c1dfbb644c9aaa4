package memstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Collection implements [domain.Collection]. Every operation holds the
// collection lock, so a collection is safe for concurrent use.
type Collection struct {
	name    string
	store   *Store
	lock    *lock
	matcher *matcher

	records []*record
	seq     uint64
	indexes map[string]*index
	order   []string
	geo     map[string]struct{}
}

func newCollection(name string, s *Store) *Collection {
	c := &Collection{
		name:    name,
		store:   s,
		lock:    newLock(),
		matcher: &matcher{comparer: s.comparer},
	}
	c.clear()
	return c
}

func (c *Collection) clear() {
	c.records = nil
	c.indexes = map[string]*index{
		domain.IDField: newIndex(domain.IDField, true, c.store.comparer),
	}
	c.order = []string{domain.IDField}
	c.geo = make(map[string]struct{})
}

func (c *Collection) reset(ctx context.Context) error {
	if err := c.enter(ctx); err != nil {
		return err
	}
	defer c.lock.release()
	c.clear()
	return nil
}

// enter takes the collection lock unless the store is closed.
func (c *Collection) enter(ctx context.Context) error {
	if c.store.closed.Load() {
		return ErrClosed
	}
	return c.lock.acquire(ctx)
}

// Name implements [domain.Collection].
func (c *Collection) Name() string { return c.name }

// Indexes returns the indexes of the collection in creation order, the
// identity index excluded.
func (c *Collection) Indexes(ctx context.Context) ([]domain.IndexSpec, error) {
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	defer c.lock.release()

	specs := make([]domain.IndexSpec, 0, len(c.order))
	for _, field := range c.order[1:] {
		if _, ok := c.geo[field]; ok {
			specs = append(specs, domain.IndexSpec{Field: field, Kind: domain.IndexGeospatial})
			continue
		}
		kind := domain.IndexRegular
		if c.indexes[field].unique {
			kind = domain.IndexUnique
		}
		specs = append(specs, domain.IndexSpec{Field: field, Kind: kind})
	}
	return specs, nil
}

func (c *Collection) fail(op string, err error) error {
	return domain.ErrStore{Op: op, Collection: c.name, Err: err}
}

func (c *Collection) notFound(id any) error {
	return domain.ErrNotFound{Collection: c.name, Key: fmt.Sprint(id)}
}

// InsertOne implements [domain.Collection]. A document without identity
// gets one from the id generator of the store.
func (c *Collection) InsertOne(ctx context.Context, doc domain.M) (any, error) {
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	defer c.lock.release()

	d := clone(doc)
	if id, ok := d[domain.IDField]; !ok || id == nil {
		newID, err := c.store.idGenerator.GenerateID()
		if err != nil {
			return nil, c.fail("insert", err)
		}
		d[domain.IDField] = newID
	}

	c.seq++
	r := &record{seq: c.seq, doc: d}
	if err := c.indexRecord(r); err != nil {
		return nil, c.fail("insert", err)
	}
	c.records = append(c.records, r)
	return d[domain.IDField], nil
}

// indexRecord inserts r in every index, or in none.
func (c *Collection) indexRecord(r *record) error {
	for n, field := range c.order {
		idx, ok := c.indexes[field]
		if !ok {
			continue
		}
		if err := idx.insert(r); err != nil {
			for _, done := range c.order[:n] {
				if idx, ok := c.indexes[done]; ok {
					_ = idx.remove(r)
				}
			}
			return err
		}
	}
	return nil
}

func (c *Collection) unindexRecord(r *record) {
	for _, idx := range c.indexes {
		_ = idx.remove(r)
	}
}

func (c *Collection) byID(id any) (*record, error) {
	found, err := c.indexes[domain.IDField].search(normalize(id))
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

// UpdateOne implements [domain.Collection]. The given fields are set on the
// stored document; the identity cannot be changed.
func (c *Collection) UpdateOne(ctx context.Context, id any, fields domain.M) error {
	if err := c.enter(ctx); err != nil {
		return err
	}
	defer c.lock.release()

	old, err := c.byID(id)
	if err != nil {
		return c.fail("update", err)
	}
	if old == nil {
		return c.notFound(id)
	}

	d := clone(old.doc)
	for k, v := range fields {
		if k != domain.IDField {
			d[k] = normalize(v)
		}
	}

	r := &record{seq: old.seq, doc: d}
	c.unindexRecord(old)
	if err := c.indexRecord(r); err != nil {
		_ = c.indexRecord(old)
		return c.fail("update", err)
	}
	c.records[slices.Index(c.records, old)] = r
	return nil
}

// DeleteOne implements [domain.Collection].
func (c *Collection) DeleteOne(ctx context.Context, id any) error {
	if err := c.enter(ctx); err != nil {
		return err
	}
	defer c.lock.release()

	r, err := c.byID(id)
	if err != nil {
		return c.fail("delete", err)
	}
	if r == nil {
		return c.notFound(id)
	}
	c.unindexRecord(r)
	c.records = slices.DeleteFunc(c.records, func(o *record) bool { return o == r })
	return nil
}

// FindOne implements [domain.Collection].
func (c *Collection) FindOne(ctx context.Context, id any) (domain.M, error) {
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	defer c.lock.release()

	r, err := c.byID(id)
	if err != nil {
		return nil, c.fail("find", err)
	}
	if r == nil {
		return nil, c.notFound(id)
	}
	return clone(r.doc), nil
}

func toFilter(filter any) (domain.M, error) {
	if filter == nil {
		return domain.M{}, nil
	}
	doc, ok := normalize(filter).(domain.M)
	if !ok {
		return nil, fmt.Errorf("unsupported filter type %T", filter)
	}
	return doc, nil
}

// Find implements [domain.Collection]. Documents are returned in insertion
// order.
func (c *Collection) Find(ctx context.Context, filter any) (domain.RawCursor, error) {
	f, err := toFilter(filter)
	if err != nil {
		return nil, c.fail("find", err)
	}

	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	defer c.lock.release()

	docs, err := c.query(f)
	if err != nil {
		return nil, c.fail("find", err)
	}
	return newRawCursor(docs, c.store.decoder), nil
}

// query returns copies of the matching documents. Must hold the lock.
func (c *Collection) query(filter domain.M) ([]domain.M, error) {
	recs, err := c.candidates(filter)
	if err != nil {
		return nil, err
	}
	var docs []domain.M
	for _, r := range recs {
		ok, err := c.matcher.match(r.doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, clone(r.doc))
		}
	}
	return docs, nil
}

// candidates narrows the records with the first indexed field the filter
// compares by equality or by range. The matcher still checks every
// candidate.
func (c *Collection) candidates(filter domain.M) ([]*record, error) {
	for _, field := range c.order {
		idx, ok := c.indexes[field]
		if !ok {
			continue
		}
		cond, ok := filter[field]
		if !ok {
			continue
		}

		var found []*record
		var err error
		if ops, isOps := operators(cond); isOps {
			switch {
			case len(ops) == 1 && ops["$eq"] != nil && isScalar(ops["$eq"]):
				found, err = idx.search(ops["$eq"])
			case isRange(ops):
				found, err = idx.between(oneBound(ops))
			default:
				continue
			}
		} else if isScalar(cond) {
			found, err = idx.search(cond)
		} else {
			continue
		}
		if err != nil {
			return nil, err
		}
		return ordered(found), nil
	}
	return c.records, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, []any, domain.M:
		return false
	}
	return true
}

func isRange(ops domain.M) bool {
	for k, v := range ops {
		switch k {
		case "$gt", "$gte", "$lt", "$lte":
			if !isScalar(v) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// oneBound keeps a single bound of a range. Array elements are indexed one
// by one and each bound may be met by a different element, so narrowing by
// both bounds at once could drop matching documents.
func oneBound(ops domain.M) domain.M {
	for _, k := range []string{"$gte", "$gt", "$lte", "$lt"} {
		if v, ok := ops[k]; ok {
			return domain.M{k: v}
		}
	}
	return ops
}

// ordered removes duplicates and restores insertion order.
func ordered(recs []*record) []*record {
	slices.SortFunc(recs, func(a, b *record) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return slices.Compact(recs)
}

// Aggregate implements [domain.Collection].
func (c *Collection) Aggregate(ctx context.Context, pipeline any) (domain.RawCursor, error) {
	stages, err := parsePipeline(pipeline)
	if err != nil {
		return nil, c.fail("aggregate", err)
	}

	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	defer c.lock.release()

	docs := make([]domain.M, len(c.records))
	for n, r := range c.records {
		docs[n] = clone(r.doc)
	}
	docs, err = c.run(docs, stages)
	if err != nil {
		return nil, c.fail("aggregate", err)
	}
	return newRawCursor(docs, c.store.decoder), nil
}

// CreateIndex implements [domain.Collection]. Geospatial indexes are only
// recorded. Creating an index that already exists with the same kind does
// nothing.
func (c *Collection) CreateIndex(ctx context.Context, spec domain.IndexSpec) error {
	if err := c.enter(ctx); err != nil {
		return err
	}
	defer c.lock.release()

	if spec.Field == domain.IDField {
		return nil
	}

	_, isGeo := c.geo[spec.Field]
	idx, isIdx := c.indexes[spec.Field]
	switch {
	case isGeo && spec.Kind == domain.IndexGeospatial,
		isIdx && idx.unique == (spec.Kind == domain.IndexUnique) && spec.Kind != domain.IndexGeospatial:
		return nil
	case isGeo || isIdx:
		return c.fail("create index", fmt.Errorf("index on %q already exists with different options", spec.Field))
	}

	switch spec.Kind {
	case domain.IndexGeospatial:
		c.geo[spec.Field] = struct{}{}
	case domain.IndexUnique, domain.IndexRegular:
		idx := newIndex(spec.Field, spec.Kind == domain.IndexUnique, c.store.comparer)
		for _, r := range c.records {
			if err := idx.insert(r); err != nil {
				return c.fail("create index", err)
			}
		}
		c.indexes[spec.Field] = idx
	default:
		return c.fail("create index", fmt.Errorf("unknown index kind %q", spec.Kind))
	}
	c.order = append(c.order, spec.Field)
	c.store.logger.Debugw("index created", "collection", c.name, "field", spec.Field, "kind", spec.Kind)
	return nil
}
