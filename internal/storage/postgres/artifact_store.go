package postgres

import (
	"context"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// ArtifactStore implements storage.ArtifactStore using PostgreSQL.
// Artifacts are versioned rows; weights travel as a float8 array in
// feature-schema order.
type ArtifactStore struct {
	pool *Pool
}

// NewArtifactStore creates a new ArtifactStore.
func NewArtifactStore(pool *Pool) *ArtifactStore {
	return &ArtifactStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ArtifactStore = (*ArtifactStore)(nil)

// Save appends a new artifact version.
func (s *ArtifactStore) Save(ctx context.Context, a *domain.ModelArtifact) error {
	if a == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO model_artifacts (weights, bias, threshold, metric, generated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, a.Weights[:], a.Bias, a.Threshold, a.Metric, a.GeneratedAt)
	if err != nil {
		return fmt.Errorf("save model artifact: %w", err)
	}
	return nil
}

// Latest retrieves the most recently saved artifact.
func (s *ArtifactStore) Latest(ctx context.Context) (*domain.ModelArtifact, error) {
	query := `
		SELECT weights, bias, threshold, metric, generated_at
		FROM model_artifacts
		ORDER BY id DESC
		LIMIT 1
	`

	var a domain.ModelArtifact
	var weights []float64
	err := s.pool.QueryRow(ctx, query).Scan(&weights, &a.Bias, &a.Threshold, &a.Metric, &a.GeneratedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("load latest artifact: %w", err)
	}
	if len(weights) != domain.FeatureDim {
		return nil, fmt.Errorf("artifact weights: %d values, want %d", len(weights), domain.FeatureDim)
	}
	copy(a.Weights[:], weights)
	return &a, nil
}
