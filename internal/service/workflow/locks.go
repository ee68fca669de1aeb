package workflow

import "sync"

// allocationLocks serializes budget mutations per allocation so two
// concurrent approvals can never double-spend the same balance.
type allocationLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAllocationLocks() *allocationLocks {
	return &allocationLocks{locks: map[string]*sync.Mutex{}}
}

// acquire locks the mutex for one allocation id, creating it on first use.
// The returned function releases the lock.
func (l *allocationLocks) acquire(allocationID string) func() {
	l.mu.Lock()
	m, ok := l.locks[allocationID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[allocationID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
