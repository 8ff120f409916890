// Package memory provides in-memory storage backends, used in tests and
// paper runs without external databases.
package memory

import (
	"context"
	"sync"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// TokenStore is an in-memory implementation of storage.TokenStore.
type TokenStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Candidate // keyed by mint
}

// NewTokenStore creates a new in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{
		data: make(map[string]*domain.Candidate),
	}
}

// Upsert inserts the candidate or refreshes its snapshot fields if the mint
// is already known. Discovery metadata is kept from the first row.
func (s *TokenStore) Upsert(_ context.Context, c *domain.Candidate) error {
	if c == nil || c.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidateCopy := *c
	if prev, exists := s.data[c.Mint]; exists {
		candidateCopy.DiscoveredVia = prev.DiscoveredVia
		candidateCopy.DiscoveredAt = prev.DiscoveredAt
	}
	s.data[c.Mint] = &candidateCopy
	return nil
}

// GetByMint retrieves a candidate by mint. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(_ context.Context, mint string) (*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[mint]
	if !exists {
		return nil, storage.ErrNotFound
	}

	candidateCopy := *c
	return &candidateCopy, nil
}

// Seen reports whether a mint has ever been evaluated.
func (s *TokenStore) Seen(_ context.Context, mint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[mint]
	return exists, nil
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)
