package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// FeatureStore implements storage.FeatureStore using ClickHouse.
// feature_records and feature_labels are both monthly-partitioned MergeTree
// tables; labels arrive as separate rows and are joined at read time, since
// MergeTree rows are never updated in place.
type FeatureStore struct {
	conn *Conn
}

// NewFeatureStore creates a new FeatureStore.
func NewFeatureStore(conn *Conn) *FeatureStore {
	return &FeatureStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

// InsertRecord appends one feature record.
func (s *FeatureStore) InsertRecord(ctx context.Context, r *domain.FeatureRecord) error {
	if r == nil || r.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO feature_records (
			mint, recorded_at, stage, features, probability, threshold, decision
		)
	`
	batch, err := s.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	decision := uint8(0)
	if r.Decision {
		decision = 1
	}
	err = batch.Append(
		r.Mint, r.RecordedAt, string(r.Stage), r.Features[:],
		r.Probability, r.Threshold, decision,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// InsertLabel appends an outcome label for an earlier record.
func (s *FeatureStore) InsertLabel(ctx context.Context, l *domain.FeatureLabel) error {
	if l == nil || l.Mint == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO feature_labels (mint, labeled_at, pnl_pct, label)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	if err := batch.Append(l.Mint, l.LabeledAt, l.PnLPct, l.Label); err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetLabeledSince retrieves gate-stage records recorded in [since, now]
// joined with their labels, ordered by RecordedAt ASC. Each record takes the
// earliest label at or after its own recording time, so a mint traded twice
// keeps a distinct label per trade.
func (s *FeatureStore) GetLabeledSince(ctx context.Context, since time.Time) ([]*domain.LabeledFeature, error) {
	query := `
		SELECT r.features, argMin(l.label, l.labeled_at) AS label, r.recorded_at
		FROM feature_records AS r
		INNER JOIN feature_labels AS l ON l.mint = r.mint
		WHERE r.stage = 'ML_GATE' AND r.recorded_at >= ? AND l.labeled_at >= r.recorded_at
		GROUP BY r.mint, r.recorded_at, r.features
		ORDER BY r.recorded_at ASC
	`

	rows, err := s.conn.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query labeled features: %w", err)
	}
	defer rows.Close()

	var result []*domain.LabeledFeature
	for rows.Next() {
		var lf domain.LabeledFeature
		var features []float64

		if err := rows.Scan(&features, &lf.Label, &lf.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan labeled feature row: %w", err)
		}
		if len(features) != domain.FeatureDim {
			return nil, fmt.Errorf("feature row: %d values, want %d", len(features), domain.FeatureDim)
		}
		copy(lf.Features[:], features)
		result = append(result, &lf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labeled feature rows: %w", err)
	}
	return result, nil
}
