// Package memstore contains an in-memory [domain.Store]. It keeps every
// collection in process memory, enforces unique indexes with AVL trees and
// evaluates the subset of the MongoDB query language the rest of the module
// relies on.
//
// Filters accept equality on (dotted) fields and the operators $eq, $ne,
// $gt, $gte, $lt, $lte, $in, $nin, $exists, $and and $or. Pipelines accept
// the $match, $sort, $skip and $limit stages.
package memstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/godm/adapter/idgenerator"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// ErrClosed is returned by every operation on a closed store or on the
// collections obtained from it.
var ErrClosed = errors.New("memstore: store is closed")

// Store implements [domain.Store].
type Store struct {
	mu          sync.Mutex
	collections map[string]*Collection
	closed      atomic.Bool

	idGenerator domain.IDGenerator
	comparer    domain.Comparer
	decoder     domain.Decoder
	logger      *zap.SugaredLogger
}

// NewStore returns an empty store.
func NewStore(options ...Option) *Store {
	s := &Store{
		collections: make(map[string]*Collection),
		idGenerator: idgenerator.NewIDGenerator(),
		comparer:    comparer.NewComparer(),
		decoder:     decoder.NewDecoder(),
		logger:      zap.NewNop().Sugar(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Collection implements [domain.Store]. Collections are created on first
// use and the same handle is returned for the same name.
func (s *Store) Collection(name string) domain.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = newCollection(name, s)
		s.collections[name] = c
	}
	return c
}

// Ping implements [domain.Store].
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Drop implements [domain.Store]. Documents and indexes of every collection
// are removed; handles obtained earlier stay usable.
func (s *Store) Drop(ctx context.Context) error {
	s.mu.Lock()
	colls := make([]*Collection, 0, len(s.collections))
	for _, c := range s.collections {
		colls = append(colls, c)
	}
	s.mu.Unlock()

	for _, c := range colls {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}
	s.logger.Debugw("dropped in-memory database", "collections", len(colls))
	return nil
}

// Close implements [domain.Store]. Collection operations started afterwards
// fail with [ErrClosed].
func (s *Store) Close(context.Context) error {
	s.closed.Store(true)
	return nil
}
