package checkout

import (
	"context"
	"sync"
)

// keyedMutex serialises work per user. Entries are reference counted and
// removed once the last holder or waiter leaves.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*userLock)}
}

// Lock blocks until the lock for key is held or ctx is done. The returned
// function releases it.
func (k *keyedMutex) Lock(ctx context.Context, key int64) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &userLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			k.release(key, l)
		}, nil
	case <-ctx.Done():
		k.release(key, l)
		return nil, ctx.Err()
	}
}

func (k *keyedMutex) release(key int64, l *userLock) {
	k.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
