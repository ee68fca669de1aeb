package realignment

import "sync"

// lineItemLocks serializes transfer execution per source line item so two
// concurrent final approvals can never move the same balance twice.
type lineItemLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLineItemLocks() *lineItemLocks {
	return &lineItemLocks{locks: map[string]*sync.Mutex{}}
}

// acquire locks the mutex for one line item id, creating it on first use.
// The returned function releases the lock.
func (l *lineItemLocks) acquire(lineItemID string) func() {
	l.mu.Lock()
	m, ok := l.locks[lineItemID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[lineItemID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
