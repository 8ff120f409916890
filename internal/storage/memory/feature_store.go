package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// FeatureStore is an in-memory implementation of storage.FeatureStore.
// Records and labels are append-only slices, joined by mint on read.
type FeatureStore struct {
	mu      sync.RWMutex
	records []*domain.FeatureRecord
	labels  []*domain.FeatureLabel
}

// NewFeatureStore creates a new in-memory feature store.
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{}
}

// InsertRecord appends one feature record.
func (s *FeatureStore) InsertRecord(_ context.Context, r *domain.FeatureRecord) error {
	if r == nil || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *r
	s.records = append(s.records, &recordCopy)
	return nil
}

// InsertLabel appends an outcome label for an earlier record.
func (s *FeatureStore) InsertLabel(_ context.Context, l *domain.FeatureLabel) error {
	if l == nil || l.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	labelCopy := *l
	s.labels = append(s.labels, &labelCopy)
	return nil
}

// GetLabeledSince retrieves gate-stage records recorded in [since, now]
// joined with their labels, ordered by RecordedAt ASC. Each record takes the
// earliest label at or after its own recording time, so a mint traded twice
// keeps a distinct label per trade.
func (s *FeatureStore) GetLabeledSince(_ context.Context, since time.Time) ([]*domain.LabeledFeature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LabeledFeature
	for _, r := range s.records {
		if r.Stage != domain.StageMLGate || r.RecordedAt.Before(since) {
			continue
		}
		var match *domain.FeatureLabel
		for _, l := range s.labels {
			if l.Mint != r.Mint || l.LabeledAt.Before(r.RecordedAt) {
				continue
			}
			if match == nil || l.LabeledAt.Before(match.LabeledAt) {
				match = l
			}
		}
		if match == nil {
			continue
		}
		result = append(result, &domain.LabeledFeature{
			Features:   r.Features,
			Label:      match.Label,
			RecordedAt: r.RecordedAt,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RecordedAt.Before(result[j].RecordedAt)
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.FeatureStore = (*FeatureStore)(nil)
