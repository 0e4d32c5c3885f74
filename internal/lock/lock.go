// Package lock serializes orchestration runs, within one process or across
// processes sharing an etcd cluster.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLocked is returned when another orchestration holds the lock.
var ErrLocked = errors.New("orchestration already in progress")

// Locker hands out the orchestration lock. The returned release func must be
// called exactly once.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

type LocalLocker struct {
	mu sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

// Acquire never blocks: it fails with ErrLocked while the lock is held.
func (l *LocalLocker) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !l.mu.TryLock() {
		return nil, ErrLocked
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, nil
}
