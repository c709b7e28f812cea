// Package lock serialises privileged operations per ledger account.
package lock

import (
	"context"
	"sync"

	interfaces "github.com/sheikh-saqib/escrow-ledger/internal/interfaces"
)

// Local keeps one single-slot semaphore per key inside this process. A slot lives
// only while someone holds or waits for its key.
type Local struct {
	mu    sync.Mutex       // protects slots and refs
	slots map[string]*slot // one slot per key in use
}

type slot struct {
	ch   chan struct{}
	refs int // holders plus waiters
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) acquire(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Lock blocks until key is free or ctx is done.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	s := l.acquire(key)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}, nil
}

var _ interfaces.Locker = (*Local)(nil)
