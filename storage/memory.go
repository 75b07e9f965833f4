package storage

import (
	"context"
	"sync"

	"github.com/ruteri/holder-address-registry/interfaces"
)

// MemoryStore keeps registrations in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []interfaces.Registration
	index   map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

func (s *MemoryStore) Lookup(ctx context.Context, primaryAddress string) (interfaces.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[primaryAddress]
	if !ok {
		return interfaces.Registration{}, interfaces.ErrNotFound
	}
	return s.records[i], nil
}

func (s *MemoryStore) Append(ctx context.Context, reg interfaces.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[reg.PrimaryAddress]; ok {
		return &interfaces.ConflictError{PrimaryAddress: reg.PrimaryAddress, Existing: s.records[i].SecondaryAddress}
	}
	s.index[reg.PrimaryAddress] = len(s.records)
	s.records = append(s.records, reg)
	return nil
}

func (s *MemoryStore) All(ctx context.Context) ([]interfaces.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]interfaces.Registration, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemoryStore) Available(ctx context.Context) bool { return true }

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) LocationURI() string { return "memory://" }

func (s *MemoryStore) Close() error { return nil }
