package keychain

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu          sync.RWMutex
	passphrases map[string]string
}

// NewMemoryStore creates a new in-memory passphrase store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{passphrases: make(map[string]string)}
}

func (s *MemoryStore) Set(storePath, passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passphrases[Key(storePath)] = passphrase
	return nil
}

func (s *MemoryStore) Get(storePath string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := Key(storePath)
	val, ok := s.passphrases[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return val, nil
}

func (s *MemoryStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.passphrases))
	for k := range s.passphrases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStore) Delete(storePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.passphrases, Key(storePath))
	return nil
}
