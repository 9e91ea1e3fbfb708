package ledger

import (
	"context"
	"sync"
	"time"
)

// DefaultLockTimeout bounds how long an operation waits for a pool lock.
const DefaultLockTimeout = 3 * time.Second

// Locker grants exclusive access to one pool key at a time.  Lock blocks
// for at most the implementation's timeout and then fails with
// ErrContention.  The returned unlock func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LocalLocker is an in-process Locker.  Each key gets a one-slot
// semaphore that is dropped once no goroutine holds or waits on it, so
// the map only grows with the number of pools in flight.
type LocalLocker struct {
	timeout time.Duration

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int // holder + waiters
}

// NewLocalLocker returns a LocalLocker.  A non-positive timeout falls back
// to DefaultLockTimeout.
func NewLocalLocker(timeout time.Duration) *LocalLocker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &LocalLocker{timeout: timeout, slots: make(map[string]*slot)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.release(key, s)
			})
		}, nil
	case <-timer.C:
		l.release(key, s)
		return nil, ErrContention
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}
}

func (l *LocalLocker) release(key string, s *slot) {
	l.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

// held reports the number of keys currently tracked.  Used by tests.
func (l *LocalLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
