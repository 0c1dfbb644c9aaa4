// Package mongostore contains the MongoDB implementation of [domain.Store],
// built on the official driver.
package mongostore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Store implements [domain.Store] over one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.SugaredLogger
}

// Connect opens a client for uri, checks the deployment is reachable and
// selects the database dbName. The client always requests the stable API
// version 1.
func Connect(ctx context.Context, uri, dbName string, opts ...Option) (*Store, error) {
	cfg := config{
		logger:          zap.NewNop().Sugar(),
		selectTimeout:   30 * time.Second,
		applicationName: "godm",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.tlsCertKeyFile != "" {
		var err error
		if uri, err = withTLS(uri, cfg.tlsCertKeyFile); err != nil {
			return nil, err
		}
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetServerSelectionTimeout(cfg.selectTimeout).
		SetAppName(cfg.applicationName)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, domain.ErrStore{Op: "connect", Collection: dbName, Err: err}
	}

	s := &Store{client: client, db: client.Database(dbName), logger: cfg.logger}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	s.logger.Infow("connected to MongoDB", "database", dbName, "tls", cfg.tlsCertKeyFile != "")

	if cfg.drop {
		if err := s.Drop(ctx); err != nil {
			_ = client.Disconnect(context.WithoutCancel(ctx))
			return nil, err
		}
	}
	return s, nil
}

// withTLS adds the TLS options of the driver to the query of uri.
func withTLS(uri, certKeyFile string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	q := u.Query()
	q.Set("tls", "true")
	q.Set("tlsCertificateKeyFile", certKeyFile)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Collection implements [domain.Store].
func (s *Store) Collection(name string) domain.Collection {
	coll := s.db.Collection(name)
	return newCollection(coll, coll.Indexes())
}

// Ping implements [domain.Store].
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return domain.ErrStore{Op: "ping", Collection: s.db.Name(), Err: err}
	}
	return nil
}

// Drop implements [domain.Store].
func (s *Store) Drop(ctx context.Context) error {
	s.logger.Warnw("dropping database", "database", s.db.Name())
	if err := s.db.Drop(ctx); err != nil {
		return domain.ErrStore{Op: "drop", Collection: s.db.Name(), Err: err}
	}
	return nil
}

// Close implements [domain.Store].
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return domain.ErrStore{Op: "disconnect", Collection: s.db.Name(), Err: err}
	}
	return nil
}
