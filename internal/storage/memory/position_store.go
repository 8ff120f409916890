package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*domain.Position
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		nextID: 1,
		data:   make(map[int64]*domain.Position),
	}
}

// Open persists a newly opened position and fills in its ID.
// Returns ErrDuplicateKey if an OPEN position for the mint already exists.
func (s *PositionStore) Open(_ context.Context, p *domain.Position) error {
	if p == nil || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.data {
		if existing.Mint == p.Mint && existing.Status == domain.PositionOpen {
			return storage.ErrDuplicateKey
		}
	}

	p.ID = s.nextID
	s.nextID++
	p.Status = domain.PositionOpen

	positionCopy := *p
	s.data[p.ID] = &positionCopy
	return nil
}

// UpdateHighWater raises the stored high-water price for an open position.
func (s *PositionStore) UpdateHighWater(_ context.Context, id int64, highWaterUSD float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[id]
	if !exists || p.Status != domain.PositionOpen {
		return storage.ErrNotFound
	}
	if highWaterUSD > p.HighWaterUSD {
		p.HighWaterUSD = highWaterUSD
	}
	return nil
}

// Close marks a position CLOSED with its exit reason and close price.
func (s *PositionStore) Close(_ context.Context, id int64, reason string, closePriceUSD float64, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[id]
	if !exists || p.Status != domain.PositionOpen {
		return storage.ErrNotFound
	}
	p.Status = domain.PositionClosed
	p.ExitReason = reason
	p.ClosePriceUSD = closePriceUSD
	p.ClosedAt = closedAt
	return nil
}

// SetOutcome records the labeler's verdict on a closed position.
func (s *PositionStore) SetOutcome(_ context.Context, id int64, outcome string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[id]
	if !exists || p.Status != domain.PositionClosed {
		return storage.ErrNotFound
	}
	p.Outcome = outcome
	return nil
}

// GetOpen retrieves all OPEN positions, oldest first.
func (s *PositionStore) GetOpen(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Status == domain.PositionOpen {
			positionCopy := *p
			result = append(result, &positionCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenedAt.Before(result[j].OpenedAt)
	})
	return result, nil
}

// GetOpenByMint retrieves the OPEN position for a mint.
func (s *PositionStore) GetOpenByMint(_ context.Context, mint string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.data {
		if p.Mint == mint && p.Status == domain.PositionOpen {
			positionCopy := *p
			return &positionCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetUnlabeledClosed retrieves CLOSED positions without an outcome that
// closed at or before cutoff, oldest first.
func (s *PositionStore) GetUnlabeledClosed(_ context.Context, cutoff time.Time) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Status == domain.PositionClosed && p.Outcome == "" && !p.ClosedAt.After(cutoff) {
			positionCopy := *p
			result = append(result, &positionCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ClosedAt.Before(result[j].ClosedAt)
	})
	return result, nil
}

// GetClosedSince retrieves positions closed in [since, now], oldest first.
func (s *PositionStore) GetClosedSince(_ context.Context, since time.Time) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Status == domain.PositionClosed && !p.ClosedAt.Before(since) {
			positionCopy := *p
			result = append(result, &positionCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ClosedAt.Before(result[j].ClosedAt)
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.PositionStore = (*PositionStore)(nil)
