package cart

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process [Store]. Updates for one customer are serialized by a
// per-customer lock; different customers proceed in parallel.
type MemoryStore struct {
	ttl     time.Duration
	sliding bool
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]memoryEntry
	locks    map[string]*keyLock
}

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewMemoryStore creates a [MemoryStore]. A zero ttl keeps carts until deleted.
func NewMemoryStore(ttl time.Duration, sliding bool) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sliding:  sliding,
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
		locks:    make(map[string]*keyLock),
	}
}

// Resolve returns a copy of the stored session or a new empty one.
func (m *MemoryStore) Resolve(_ context.Context, customerID string) (*Session, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: empty customer id", ErrSessionCorrupt)
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.loadLocked(customerID, now)
	if !ok {
		return NewSession(customerID, now), nil
	}
	if m.sliding && m.ttl > 0 {
		entry.expiresAt = now.Add(m.ttl)
		m.sessions[customerID] = entry
	}
	return entry.session.Clone(), nil
}

// Persist stores a copy of s.
func (m *MemoryStore) Persist(_ context.Context, s *Session) error {
	if s == nil || s.CustomerID == "" {
		return fmt.Errorf("%w: empty customer id", ErrSessionCorrupt)
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeLocked(s, now)
	return nil
}

// Update runs fn on a private copy and commits it only when fn succeeds.
func (m *MemoryStore) Update(_ context.Context, customerID string, fn func(*Session) error) (*Session, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: empty customer id", ErrSessionCorrupt)
	}

	lock := m.acquire(customerID)
	defer m.release(customerID, lock)

	now := m.now()
	m.mu.Lock()
	entry, ok := m.loadLocked(customerID, now)
	m.mu.Unlock()

	var working *Session
	if ok {
		working = entry.session.Clone()
	} else {
		working = NewSession(customerID, now)
	}

	if err := fn(working); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.storeLocked(working, m.now())
	m.mu.Unlock()
	return working.Clone(), nil
}

// Delete drops the session for customerID. It waits for an in-flight Update of the
// same customer so that Update cannot write the cart back.
func (m *MemoryStore) Delete(_ context.Context, customerID string) error {
	lock := m.acquire(customerID)
	defer m.release(customerID, lock)

	m.mu.Lock()
	delete(m.sessions, customerID)
	m.mu.Unlock()
	return nil
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id := range m.sessions {
		if _, ok := m.loadLocked(id, now); ok {
			n++
		}
	}
	return n
}

func (m *MemoryStore) loadLocked(customerID string, now time.Time) (memoryEntry, bool) {
	entry, ok := m.sessions[customerID]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
		delete(m.sessions, customerID)
		return memoryEntry{}, false
	}
	return entry, true
}

func (m *MemoryStore) storeLocked(s *Session, now time.Time) {
	if s.CreatedAt == 0 {
		s.CreatedAt = now.Unix()
	}
	entry := memoryEntry{}
	if m.ttl > 0 {
		entry.expiresAt = now.Add(m.ttl)
		s.ExpiresAt = entry.expiresAt.Unix()
	} else {
		s.ExpiresAt = now.Unix()
	}
	entry.session = s.Clone()
	m.sessions[s.CustomerID] = entry
}

func (m *MemoryStore) acquire(customerID string) *keyLock {
	m.mu.Lock()
	l, ok := m.locks[customerID]
	if !ok {
		l = &keyLock{}
		m.locks[customerID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return l
}

func (m *MemoryStore) release(customerID string, l *keyLock) {
	l.mu.Unlock()

	m.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, customerID)
	}
	m.mu.Unlock()
}
