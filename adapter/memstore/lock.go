package memstore

import "context"

// lock is a mutual exclusion lock whose acquisition can be abandoned through
// a context.
type lock struct {
	held chan struct{}
}

func newLock() *lock {
	return &lock{held: make(chan struct{}, 1)}
}

// acquire blocks until the lock is taken or ctx is done.
func (l *lock) acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.held <- struct{}{}:
		return nil
	}
}

func (l *lock) release() {
	select {
	case <-l.held:
	default:
		panic("memstore: release of unlocked collection")
	}
}
