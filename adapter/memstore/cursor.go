package memstore

import (
	"context"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// rawCursor implements [domain.RawCursor] over a snapshot of documents taken
// when the query ran.
type rawCursor struct {
	docs    []domain.M
	pos     int
	current domain.M
	err     error
	closed  bool
	decoder domain.Decoder
}

func newRawCursor(docs []domain.M, dec domain.Decoder) *rawCursor {
	return &rawCursor{docs: docs, decoder: dec}
}

// Next implements [domain.RawCursor].
func (c *rawCursor) Next(ctx context.Context) bool {
	if c.closed || c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.pos >= len(c.docs) {
		c.current = nil
		return false
	}
	c.current = c.docs[c.pos]
	c.pos++
	return true
}

// Decode implements [domain.RawCursor].
func (c *rawCursor) Decode(target any) error {
	if c.current == nil {
		return domain.ErrCursorClosed
	}
	switch t := target.(type) {
	case *domain.M:
		if t == nil {
			return domain.ErrTargetNil
		}
		*t = clone(c.current)
		return nil
	case *map[string]any:
		if t == nil {
			return domain.ErrTargetNil
		}
		*t = clone(c.current)
		return nil
	}
	return c.decoder.Decode(c.current, target)
}

// Err implements [domain.RawCursor].
func (c *rawCursor) Err() error {
	return c.err
}

// Close implements [domain.RawCursor].
func (c *rawCursor) Close(context.Context) error {
	c.closed = true
	c.docs, c.current = nil, nil
	return nil
}
