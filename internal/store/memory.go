package store

import (
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and no-persistence runs.
// State does not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	// Now is injectable for expiry tests
	Now func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero = no expiry
}

// NewMemory creates an empty in-memory store
func NewMemory() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		Now:     time.Now,
	}
}

// Get implements Store
func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(m.Now()) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Put implements Store
func (m *MemoryStore) Put(key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Delete implements Store
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}
