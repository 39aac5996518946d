package core

import (
	"context"
	"strings"
	"sync"
)

// MemoryTokenStore is an in-process TokenStore for tests and single-node
// embedding. Records are keyed by (user, provider); Put overwrites.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	records map[string]StoredTokenSet
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{records: make(map[string]StoredTokenSet)}
}

func (s *MemoryTokenStore) Get(_ context.Context, userID, providerID string) (StoredTokenSet, bool, error) {
	if s == nil {
		return StoredTokenSet{}, false, nil
	}
	s.mu.RLock()
	record, ok := s.records[tokenStoreKey(userID, providerID)]
	s.mu.RUnlock()
	if !ok {
		return StoredTokenSet{}, false, nil
	}
	record.Scopes = append([]string(nil), record.Scopes...)
	return record, true, nil
}

func (s *MemoryTokenStore) Put(_ context.Context, userID, providerID string, record StoredTokenSet) error {
	if s == nil {
		return nil
	}
	record.Scopes = append([]string(nil), record.Scopes...)
	s.mu.Lock()
	s.records[tokenStoreKey(userID, providerID)] = record
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, userID, providerID string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	delete(s.records, tokenStoreKey(userID, providerID))
	s.mu.Unlock()
	return nil
}

func tokenStoreKey(userID, providerID string) string {
	return strings.TrimSpace(userID) + "\x00" + strings.TrimSpace(providerID)
}

var _ TokenStore = (*MemoryTokenStore)(nil)
