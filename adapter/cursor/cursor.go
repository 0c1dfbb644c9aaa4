// Package cursor turns raw document streams into lazy sequences of typed
// values.
package cursor

import (
	"context"
	"iter"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Builder creates an element from a raw document read from the store.
type Builder[T any] func(domain.M) (T, error)

// Cursor is a forward-only, non-restartable sequence of T built from a
// [domain.RawCursor]. Once the raw stream is exhausted the cursor is dead for
// good: further pulls return no element and never reach the store. A Cursor
// is meant to be advanced by one goroutine at a time.
type Cursor[T any] struct {
	raw   domain.RawCursor
	build Builder[T]
	alive bool
	err   error
}

// New returns a live cursor over raw.
func New[T any](raw domain.RawCursor, build Builder[T]) *Cursor[T] {
	return &Cursor[T]{
		raw:   raw,
		build: build,
		alive: true,
	}
}

// Alive reports whether more pulls may produce elements.
func (c *Cursor[T]) Alive() bool {
	return c.alive
}

// Err returns the error that ended the cursor, if any.
func (c *Cursor[T]) Err() error {
	return c.err
}

// Next pulls one element. The boolean is false once the stream is exhausted,
// in which case the error is nil unless the stream itself failed. An element
// that cannot be decoded or built is reported with its error and the cursor
// stays alive.
func (c *Cursor[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if !c.alive {
		return zero, false, nil
	}

	if !c.raw.Next(ctx) {
		err := c.raw.Err()
		c.finish(ctx, err)
		return zero, false, err
	}

	var doc domain.M
	if err := c.raw.Decode(&doc); err != nil {
		return zero, true, err
	}

	elem, err := c.build(doc)
	if err != nil {
		return zero, true, err
	}
	return elem, true, nil
}

// All returns a lazy sequence over the remaining elements. The sequence
// stops at the first error after yielding it.
func (c *Cursor[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			elem, ok, err := c.Next(ctx)
			if err != nil {
				yield(elem, err)
				return
			}
			if !ok {
				return
			}
			if !yield(elem, nil) {
				return
			}
		}
	}
}

// Collect drains the cursor into a slice.
func (c *Cursor[T]) Collect(ctx context.Context) ([]T, error) {
	var res []T
	for elem, err := range c.All(ctx) {
		if err != nil {
			return res, err
		}
		res = append(res, elem)
	}
	return res, nil
}

// Close kills the cursor and releases the raw stream. Closing a dead cursor
// is a no-op.
func (c *Cursor[T]) Close(ctx context.Context) error {
	if !c.alive {
		return nil
	}
	c.alive = false
	c.err = domain.ErrCursorClosed
	return c.raw.Close(ctx)
}

func (c *Cursor[T]) finish(ctx context.Context, err error) {
	c.alive = false
	c.err = err
	_ = c.raw.Close(context.WithoutCancel(ctx))
}
