package mongostore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type driverMock struct {
	mock.Mock
}

func (d *driverMock) Name() string { return "users" }

func (d *driverMock) InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	call := d.Called(ctx, document)
	res, _ := call.Get(0).(*mongo.InsertOneResult)
	return res, call.Error(1)
}

func (d *driverMock) UpdateOne(ctx context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	call := d.Called(ctx, filter, update)
	res, _ := call.Get(0).(*mongo.UpdateResult)
	return res, call.Error(1)
}

func (d *driverMock) DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	call := d.Called(ctx, filter)
	res, _ := call.Get(0).(*mongo.DeleteResult)
	return res, call.Error(1)
}

func (d *driverMock) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	call := d.Called(ctx, filter)
	res, _ := call.Get(0).(*mongo.Cursor)
	return res, call.Error(1)
}

func (d *driverMock) Aggregate(ctx context.Context, pipeline any, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	call := d.Called(ctx, pipeline)
	res, _ := call.Get(0).(*mongo.Cursor)
	return res, call.Error(1)
}

type indexMock struct {
	mock.Mock
}

func (i *indexMock) CreateOne(ctx context.Context, model mongo.IndexModel, opts ...*options.CreateIndexesOptions) (string, error) {
	call := i.Called(ctx, model)
	return call.String(0), call.Error(1)
}

type CollectionTestSuite struct {
	suite.Suite
	ctx     context.Context
	driver  *driverMock
	indexes *indexMock
	coll    *Collection
	oid     primitive.ObjectID
}

func (s *CollectionTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.driver = new(driverMock)
	s.indexes = new(indexMock)
	s.coll = newCollection(s.driver, s.indexes)
	s.oid = primitive.NewObjectID()
}

func (s *CollectionTestSuite) TearDownTest() {
	s.driver.AssertExpectations(s.T())
	s.indexes.AssertExpectations(s.T())
}

func (s *CollectionTestSuite) cursor(docs ...any) *mongo.Cursor {
	cur, err := mongo.NewCursorFromDocuments(docs, nil, nil)
	s.Require().NoError(err)
	return cur
}

func (s *CollectionTestSuite) TestInsertOne() {
	s.driver.On("InsertOne", s.ctx, bson.M{"name": "a"}).
		Return(&mongo.InsertOneResult{InsertedID: s.oid}, nil).Once()

	id, err := s.coll.InsertOne(s.ctx, domain.M{"name": "a"})
	s.NoError(err)
	s.Equal(s.oid, id)
}

func (s *CollectionTestSuite) TestInsertOneDuplicateKey() {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	s.driver.On("InsertOne", s.ctx, bson.M{"email": "a@x"}).Return(nil, dup).Once()

	_, err := s.coll.InsertOne(s.ctx, domain.M{"email": "a@x"})
	s.ErrorIs(err, domain.ErrConstraintViolated)
	s.ErrorIs(err, domain.ErrStore{})
	s.ErrorAs(err, new(mongo.WriteException))
}

func (s *CollectionTestSuite) TestInsertOneFailure() {
	fail := errors.New("connection reset")
	s.driver.On("InsertOne", s.ctx, bson.M{"name": "a"}).Return(nil, fail).Once()

	_, err := s.coll.InsertOne(s.ctx, domain.M{"name": "a"})
	s.ErrorIs(err, fail)
	s.NotErrorIs(err, domain.ErrConstraintViolated)
	var storeErr domain.ErrStore
	s.Require().ErrorAs(err, &storeErr)
	s.Equal("insert", storeErr.Op)
	s.Equal("users", storeErr.Collection)
}

func (s *CollectionTestSuite) TestUpdateOne() {
	s.driver.On("UpdateOne", s.ctx, bson.D{{Key: "_id", Value: s.oid}}, bson.M{"$set": bson.M{"age": 3, "name": "a"}}).
		Return(&mongo.UpdateResult{MatchedCount: 1}, nil).Once()

	s.NoError(s.coll.UpdateOne(s.ctx, s.oid, domain.M{"_id": s.oid, "age": 3, "name": "a"}))
}

func (s *CollectionTestSuite) TestUpdateOneNotMatched() {
	s.driver.On("UpdateOne", s.ctx, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{}, nil).Once()

	err := s.coll.UpdateOne(s.ctx, s.oid, domain.M{"age": 3})
	s.ErrorIs(err, domain.ErrNotFound{})
	s.ErrorContains(err, s.oid.Hex())
}

func (s *CollectionTestSuite) TestUpdateOneWithoutFields() {
	s.driver.On("Find", s.ctx, bson.D{{Key: "_id", Value: s.oid}}).
		Return(s.cursor(bson.M{"_id": s.oid}), nil).Once()
	s.NoError(s.coll.UpdateOne(s.ctx, s.oid, domain.M{}))

	s.driver.On("Find", s.ctx, bson.D{{Key: "_id", Value: s.oid}}).
		Return(s.cursor(), nil).Once()
	s.ErrorIs(s.coll.UpdateOne(s.ctx, s.oid, domain.M{"_id": s.oid}), domain.ErrNotFound{})
}

func (s *CollectionTestSuite) TestDeleteOne() {
	s.driver.On("DeleteOne", s.ctx, bson.D{{Key: "_id", Value: 7}}).
		Return(&mongo.DeleteResult{DeletedCount: 1}, nil).Once()
	s.NoError(s.coll.DeleteOne(s.ctx, 7))

	s.driver.On("DeleteOne", s.ctx, bson.D{{Key: "_id", Value: 7}}).
		Return(&mongo.DeleteResult{}, nil).Once()
	s.ErrorIs(s.coll.DeleteOne(s.ctx, 7), domain.ErrNotFound{})

	s.driver.On("DeleteOne", s.ctx, bson.D{{Key: "_id", Value: 8}}).
		Return(nil, errors.New("timeout")).Once()
	s.ErrorIs(s.coll.DeleteOne(s.ctx, 8), domain.ErrStore{})
}

func (s *CollectionTestSuite) TestFindOne() {
	s.driver.On("Find", s.ctx, bson.D{{Key: "_id", Value: s.oid}}).
		Return(s.cursor(bson.M{"_id": s.oid, "name": "a"}), nil).Once()

	doc, err := s.coll.FindOne(s.ctx, s.oid)
	s.NoError(err)
	s.Equal(s.oid, doc["_id"])
	s.Equal("a", doc["name"])
}

func (s *CollectionTestSuite) TestFindOneNotFound() {
	s.driver.On("Find", s.ctx, mock.Anything).Return(s.cursor(), nil).Once()

	_, err := s.coll.FindOne(s.ctx, s.oid)
	s.ErrorIs(err, domain.ErrNotFound{})
}

func (s *CollectionTestSuite) TestFindOneFailure() {
	s.driver.On("Find", s.ctx, mock.Anything).Return(nil, errors.New("boom")).Once()

	_, err := s.coll.FindOne(s.ctx, s.oid)
	s.ErrorIs(err, domain.ErrStore{})
}

func (s *CollectionTestSuite) TestFind() {
	s.driver.On("Find", s.ctx, bson.D{}).Return(s.cursor(bson.M{"name": "a"}, bson.M{"name": "b"}), nil).Once()
	s.driver.On("Find", s.ctx, bson.M{"age": 3}).Return(s.cursor(), nil).Once()
	s.driver.On("Find", s.ctx, bson.D{{Key: "age", Value: 3}}).Return(s.cursor(), nil).Once()

	raw, err := s.coll.Find(s.ctx, nil)
	s.NoError(err)
	var names []any
	for raw.Next(s.ctx) {
		var doc domain.M
		s.NoError(raw.Decode(&doc))
		names = append(names, doc["name"])
	}
	s.NoError(raw.Err())
	s.NoError(raw.Close(s.ctx))
	s.Equal([]any{"a", "b"}, names)

	_, err = s.coll.Find(s.ctx, domain.M{"age": 3})
	s.NoError(err)
	_, err = s.coll.Find(s.ctx, bson.D{{Key: "age", Value: 3}})
	s.NoError(err)
}

func (s *CollectionTestSuite) TestFindFailure() {
	s.driver.On("Find", s.ctx, bson.D{}).Return(nil, errors.New("boom")).Once()

	_, err := s.coll.Find(s.ctx, nil)
	s.ErrorIs(err, domain.ErrStore{})
}

func (s *CollectionTestSuite) TestAggregate() {
	s.driver.On("Aggregate", s.ctx, mongo.Pipeline{}).Return(s.cursor(), nil).Once()
	s.driver.On("Aggregate", s.ctx, bson.A{bson.M{"$limit": 1}}).Return(s.cursor(), nil).Once()
	s.driver.On("Aggregate", s.ctx, "bad").Return(nil, errors.New("bad pipeline")).Once()

	_, err := s.coll.Aggregate(s.ctx, nil)
	s.NoError(err)
	_, err = s.coll.Aggregate(s.ctx, []domain.M{{"$limit": 1}})
	s.NoError(err)
	_, err = s.coll.Aggregate(s.ctx, "bad")
	s.ErrorIs(err, domain.ErrStore{})
}

func (s *CollectionTestSuite) TestCreateIndex() {
	testCases := []struct {
		spec  domain.IndexSpec
		model mongo.IndexModel
	}{
		{
			spec:  domain.IndexSpec{Field: "email", Kind: domain.IndexUnique},
			model: mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		{
			spec:  domain.IndexSpec{Field: "age", Kind: domain.IndexRegular},
			model: mongo.IndexModel{Keys: bson.D{{Key: "age", Value: 1}}},
		},
		{
			spec:  domain.IndexSpec{Field: "loc", Kind: domain.IndexGeospatial},
			model: mongo.IndexModel{Keys: bson.D{{Key: "loc", Value: "2dsphere"}}},
		},
	}
	for _, tc := range testCases {
		s.indexes.On("CreateOne", s.ctx, tc.model).Return(tc.spec.Field+"_1", nil).Once()
		s.NoError(s.coll.CreateIndex(s.ctx, tc.spec))
	}
}

func (s *CollectionTestSuite) TestCreateIndexFailures() {
	err := s.coll.CreateIndex(s.ctx, domain.IndexSpec{Field: "a", Kind: "hashed"})
	s.ErrorIs(err, domain.ErrStore{})

	s.indexes.On("CreateOne", s.ctx, mock.Anything).Return("", errors.New("index conflict")).Once()
	err = s.coll.CreateIndex(s.ctx, domain.IndexSpec{Field: "a", Kind: domain.IndexRegular})
	s.ErrorIs(err, domain.ErrStore{})
}

func (s *CollectionTestSuite) TestIDFilter() {
	s.Equal(bson.D{{Key: "_id", Value: "abc"}}, idFilter("abc"))
	s.Equal(bson.D{{Key: "_id", Value: 3}}, idFilter(3))

	hex := s.oid.Hex()
	s.Equal(bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: bson.A{hex, s.oid}}}}}, idFilter(hex))
}

func (s *CollectionTestSuite) TestWithTLS() {
	uri, err := withTLS("mongodb://localhost:27017/?retryWrites=true", "/certs/x.pem")
	s.NoError(err)
	s.Equal("mongodb://localhost:27017/?retryWrites=true&tls=true&tlsCertificateKeyFile=%2Fcerts%2Fx.pem", uri)

	uri, err = withTLS("mongodb+srv://cluster.example.net", "cert.pem")
	s.NoError(err)
	s.Equal("mongodb+srv://cluster.example.net?tls=true&tlsCertificateKeyFile=cert.pem", uri)

	_, err = withTLS("mongodb://%zz", "cert.pem")
	s.Error(err)
}

func TestCollectionTestSuite(t *testing.T) {
	suite.Run(t, new(CollectionTestSuite))
}
