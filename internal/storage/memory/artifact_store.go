package memory

import (
	"context"
	"sync"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// ArtifactStore is an in-memory implementation of storage.ArtifactStore.
type ArtifactStore struct {
	mu       sync.RWMutex
	versions []*domain.ModelArtifact
}

// NewArtifactStore creates a new in-memory artifact store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{}
}

// Save appends a new artifact version.
func (s *ArtifactStore) Save(_ context.Context, a *domain.ModelArtifact) error {
	if a == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	artifactCopy := *a
	s.versions = append(s.versions, &artifactCopy)
	return nil
}

// Latest retrieves the most recently saved artifact.
func (s *ArtifactStore) Latest(_ context.Context) (*domain.ModelArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.versions) == 0 {
		return nil, storage.ErrNotFound
	}
	artifactCopy := *s.versions[len(s.versions)-1]
	return &artifactCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.ArtifactStore = (*ArtifactStore)(nil)
