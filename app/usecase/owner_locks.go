package usecase

import "sync"

// ownerLocks serializes login operations per owner. Attempts for distinct
// owners run independently; two operations for the same owner never
// interleave, which is what keeps simultaneous second-factor submissions
// from racing to persist conflicting credentials.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*ownerLock)}
}

// Lock acquires the lock for an owner and returns its unlock function.
func (l *ownerLocks) Lock(ownerID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[ownerID]
	if !ok {
		lock = &ownerLock{}
		l.locks[ownerID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, ownerID)
		}
		l.mu.Unlock()
	}
}
