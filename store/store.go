// Package store persists the round registry and the event log. Both have an
// in-memory implementation for tests and a bbolt-backed one.
package store

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/bitfsorg/libsale-go/account"
)

// Entry is one registry record: a round created by the manager.
type Entry struct {
	Index     uint64
	Round     account.Address
	Kind      string
	Allocated *big.Int // sale tokens transferred at creation
	Finalized bool
	CreatedAt uint64
}

// Copy returns a deep copy of e.
func (e *Entry) Copy() *Entry {
	c := *e
	if e.Allocated != nil {
		c.Allocated = new(big.Int).Set(e.Allocated)
	}
	return &c
}

// RegistryStore persists registry entries keyed by index.
type RegistryStore interface {
	// PutEntry inserts or replaces the entry at e.Index.
	PutEntry(e *Entry) error

	// GetEntry retrieves the entry at index.
	GetEntry(index uint64) (*Entry, error)

	// DeleteEntry removes the entry at index.
	DeleteEntry(index uint64) error

	// ListEntries returns all entries ordered by index.
	ListEntries() ([]*Entry, error)

	// CountEntries returns the number of stored entries.
	CountEntries() (uint64, error)
}

// MemRegistryStore is an in-memory RegistryStore.
type MemRegistryStore struct {
	mu      sync.RWMutex
	entries map[uint64]*Entry
}

// Compile-time interface check.
var _ RegistryStore = (*MemRegistryStore)(nil)

// NewMemRegistryStore creates an empty in-memory registry store.
func NewMemRegistryStore() *MemRegistryStore {
	return &MemRegistryStore{entries: make(map[uint64]*Entry)}
}

// PutEntry inserts or replaces the entry at e.Index.
func (s *MemRegistryStore) PutEntry(e *Entry) error {
	if e == nil {
		return fmt.Errorf("%w: entry", ErrNilParam)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Index] = e.Copy()
	return nil
}

// GetEntry retrieves the entry at index.
func (s *MemRegistryStore) GetEntry(index uint64) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[index]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrEntryNotFound, index)
	}
	return e.Copy(), nil
}

// DeleteEntry removes the entry at index.
func (s *MemRegistryStore) DeleteEntry(index uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[index]; !ok {
		return fmt.Errorf("%w: %d", ErrEntryNotFound, index)
	}
	delete(s.entries, index)
	return nil
}

// ListEntries returns all entries ordered by index.
func (s *MemRegistryStore) ListEntries() ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Copy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// CountEntries returns the number of stored entries.
func (s *MemRegistryStore) CountEntries() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.entries)), nil
}
