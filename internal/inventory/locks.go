package inventory

import "sync"

// Locks hands out one mutex per key.  Entries are reference counted and
// dropped once nobody holds or waits on them, so the map only ever
// contains keys that are in use.
type Locks struct {
	mu      sync.Mutex
	entries map[uint64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLocks returns an empty lock table.
func NewLocks() *Locks {
	return &Locks{entries: make(map[uint64]*lockEntry)}
}

// Lock blocks until the lock for key is held and returns the function
// that releases it.
func (l *Locks) Lock(key uint64) (unlock func()) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(l.entries, key)
			}
			l.mu.Unlock()
		})
	}
}

