package storage

import "sync"

// Store is the key/value persistence boundary. Load returns ok=false when
// the key has never been written.
type Store interface {
	Save(key string, value []byte) error
	Load(key string) ([]byte, bool, error)
	Close() error
}

// MemoryStore implements Store with an in-memory map, suitable for tests and
// for running without a configured database file.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

// Save stores a copy of value under key.
func (s *MemoryStore) Save(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

// Load returns a copy of the stored value, or ok=false when absent.
func (s *MemoryStore) Load(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
