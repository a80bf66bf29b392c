package service

import "sync"

// unitLocks serialises ledger writes per unit inside this process. Entries
// are reference counted and removed when the last holder unlocks, so the
// map only holds units with in-flight writes.
type unitLocks struct {
	mu    sync.Mutex
	locks map[uint64]*unitLock
}

type unitLock struct {
	sync.Mutex
	refs int
}

func newUnitLocks() *unitLocks {
	return &unitLocks{locks: make(map[uint64]*unitLock)}
}

// lock blocks until the caller holds unitID and returns the release func.
func (l *unitLocks) lock(unitID uint64) (unlock func()) {
	l.mu.Lock()
	ul, ok := l.locks[unitID]
	if !ok {
		ul = &unitLock{}
		l.locks[unitID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, unitID)
		}
		l.mu.Unlock()
	}
}

func (l *unitLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
