package memstore

import (
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Option configures a [Store] through the functional options pattern.
type Option func(*Store)

// WithIDGenerator sets the generator used for documents inserted without an
// identity.
func WithIDGenerator(g domain.IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.idGenerator = g
		}
	}
}

// WithComparer sets the comparer ordering index keys and evaluating
// filters.
func WithComparer(c domain.Comparer) Option {
	return func(s *Store) {
		if c != nil {
			s.comparer = c
		}
	}
}

// WithDecoder sets the decoder used by the cursors of the store.
func WithDecoder(d domain.Decoder) Option {
	return func(s *Store) {
		if d != nil {
			s.decoder = d
		}
	}
}

// WithLogger sets the logger of the store.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
