package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// driverCollection is the part of *mongo.Collection the store uses.
type driverCollection interface {
	Name() string
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
	Aggregate(ctx context.Context, pipeline any, opts ...*options.AggregateOptions) (*mongo.Cursor, error)
}

// indexCreator is the part of mongo.IndexView the store uses.
type indexCreator interface {
	CreateOne(ctx context.Context, model mongo.IndexModel, opts ...*options.CreateIndexesOptions) (string, error)
}

// Collection implements [domain.Collection].
type Collection struct {
	coll    driverCollection
	indexes indexCreator
}

func newCollection(coll driverCollection, indexes indexCreator) *Collection {
	return &Collection{coll: coll, indexes: indexes}
}

// Name implements [domain.Collection].
func (c *Collection) Name() string { return c.coll.Name() }

func (c *Collection) fail(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		err = fmt.Errorf("%w: %w", domain.ErrConstraintViolated, err)
	}
	return domain.ErrStore{Op: op, Collection: c.Name(), Err: err}
}

func (c *Collection) notFound(id any) error {
	if oid, ok := id.(primitive.ObjectID); ok {
		id = oid.Hex()
	}
	return domain.ErrNotFound{Collection: c.Name(), Key: fmt.Sprint(id)}
}

// idFilter selects a document by identity. Strings holding an object id in
// hex also match the object id itself.
func idFilter(id any) bson.D {
	if s, ok := id.(string); ok {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return bson.D{{Key: domain.IDField, Value: bson.D{{Key: "$in", Value: bson.A{s, oid}}}}}
		}
	}
	return bson.D{{Key: domain.IDField, Value: id}}
}

// normalizeFilter replaces a nil filter by the empty document, which the
// driver requires.
func normalizeFilter(filter any) any {
	switch f := filter.(type) {
	case nil:
		return bson.D{}
	case domain.M:
		if f == nil {
			return bson.D{}
		}
		return bson.M(f)
	}
	return filter
}

func normalizePipeline(pipeline any) any {
	switch p := pipeline.(type) {
	case nil:
		return mongo.Pipeline{}
	case []domain.M:
		stages := make(bson.A, len(p))
		for n, s := range p {
			stages[n] = bson.M(s)
		}
		return stages
	}
	return pipeline
}

// InsertOne implements [domain.Collection]. The identity is generated by the
// driver when doc has none.
func (c *Collection) InsertOne(ctx context.Context, doc domain.M) (any, error) {
	res, err := c.coll.InsertOne(ctx, bson.M(doc))
	if err != nil {
		return nil, c.fail("insert", err)
	}
	return res.InsertedID, nil
}

// UpdateOne implements [domain.Collection] with $set semantics.
func (c *Collection) UpdateOne(ctx context.Context, id any, fields domain.M) error {
	set := make(bson.M, len(fields))
	for k, v := range fields {
		if k != domain.IDField {
			set[k] = v
		}
	}
	if len(set) == 0 {
		// $set refuses empty documents; only check the document exists
		_, err := c.FindOne(ctx, id)
		return err
	}

	res, err := c.coll.UpdateOne(ctx, idFilter(id), bson.M{"$set": set})
	if err != nil {
		return c.fail("update", err)
	}
	if res.MatchedCount == 0 {
		return c.notFound(id)
	}
	return nil
}

// DeleteOne implements [domain.Collection].
func (c *Collection) DeleteOne(ctx context.Context, id any) error {
	res, err := c.coll.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return c.fail("delete", err)
	}
	if res.DeletedCount == 0 {
		return c.notFound(id)
	}
	return nil
}

// FindOne implements [domain.Collection].
func (c *Collection) FindOne(ctx context.Context, id any) (domain.M, error) {
	cur, err := c.coll.Find(ctx, idFilter(id), options.Find().SetLimit(1))
	if err != nil {
		return nil, c.fail("find", err)
	}
	defer cur.Close(context.WithoutCancel(ctx))

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return nil, c.fail("find", err)
		}
		return nil, c.notFound(id)
	}
	var doc domain.M
	if err := cur.Decode(&doc); err != nil {
		return nil, c.fail("find", err)
	}
	return doc, nil
}

// Find implements [domain.Collection]. The returned cursor is the driver
// cursor itself.
func (c *Collection) Find(ctx context.Context, filter any) (domain.RawCursor, error) {
	cur, err := c.coll.Find(ctx, normalizeFilter(filter))
	if err != nil {
		return nil, c.fail("find", err)
	}
	return cur, nil
}

// Aggregate implements [domain.Collection].
func (c *Collection) Aggregate(ctx context.Context, pipeline any) (domain.RawCursor, error) {
	cur, err := c.coll.Aggregate(ctx, normalizePipeline(pipeline))
	if err != nil {
		return nil, c.fail("aggregate", err)
	}
	return cur, nil
}

// indexModel translates spec into the driver index model: unique and
// regular indexes are ascending, geospatial ones are 2dsphere.
func indexModel(spec domain.IndexSpec) (mongo.IndexModel, error) {
	switch spec.Kind {
	case domain.IndexUnique:
		return mongo.IndexModel{
			Keys:    bson.D{{Key: spec.Field, Value: 1}},
			Options: options.Index().SetUnique(true),
		}, nil
	case domain.IndexRegular:
		return mongo.IndexModel{Keys: bson.D{{Key: spec.Field, Value: 1}}}, nil
	case domain.IndexGeospatial:
		return mongo.IndexModel{Keys: bson.D{{Key: spec.Field, Value: "2dsphere"}}}, nil
	}
	return mongo.IndexModel{}, fmt.Errorf("unknown index kind %q", spec.Kind)
}

// CreateIndex implements [domain.Collection].
func (c *Collection) CreateIndex(ctx context.Context, spec domain.IndexSpec) error {
	model, err := indexModel(spec)
	if err != nil {
		return c.fail("create index", err)
	}
	if _, err := c.indexes.CreateOne(ctx, model); err != nil {
		return c.fail("create index", err)
	}
	return nil
}
