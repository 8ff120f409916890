package storage

import (
	"context"
	"time"

	"solana-sniper/internal/domain"
)

// TokenStore provides access to tokens storage. Rows are keyed by mint and
// record every candidate the pipeline evaluated, whatever the verdict.
type TokenStore interface {
	// Upsert inserts the candidate or refreshes its snapshot fields if the
	// mint is already known. Discovery metadata is kept from the first row.
	Upsert(ctx context.Context, c *domain.Candidate) error

	// GetByMint retrieves a candidate by mint. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Candidate, error)

	// Seen reports whether a mint has ever been evaluated.
	Seen(ctx context.Context, mint string) (bool, error)
}

// PositionStore provides access to positions storage.
type PositionStore interface {
	// Open persists a newly opened position and fills in its ID.
	// Returns ErrDuplicateKey if an OPEN position for the mint already exists.
	Open(ctx context.Context, p *domain.Position) error

	// UpdateHighWater raises the stored high-water price for an open position.
	UpdateHighWater(ctx context.Context, id int64, highWaterUSD float64) error

	// Close marks a position CLOSED with its exit reason and close price.
	// Returns ErrNotFound if the position does not exist or is already closed.
	Close(ctx context.Context, id int64, reason string, closePriceUSD float64, closedAt time.Time) error

	// SetOutcome records the labeler's verdict on a closed position.
	SetOutcome(ctx context.Context, id int64, outcome string, labeledAt time.Time) error

	// GetOpen retrieves all OPEN positions, oldest first.
	GetOpen(ctx context.Context) ([]*domain.Position, error)

	// GetOpenByMint retrieves the OPEN position for a mint.
	// Returns ErrNotFound if none exists.
	GetOpenByMint(ctx context.Context, mint string) (*domain.Position, error)

	// GetUnlabeledClosed retrieves CLOSED positions without an outcome that
	// closed at or before cutoff, oldest first.
	GetUnlabeledClosed(ctx context.Context, cutoff time.Time) ([]*domain.Position, error)

	// GetClosedSince retrieves positions closed in [since, now], oldest first.
	GetClosedSince(ctx context.Context, since time.Time) ([]*domain.Position, error)
}

// FeatureStore provides access to the append-only feature log and its
// asynchronously delivered labels.
type FeatureStore interface {
	// InsertRecord appends one feature record. Records are never updated.
	InsertRecord(ctx context.Context, r *domain.FeatureRecord) error

	// InsertLabel appends an outcome label for an earlier record.
	InsertLabel(ctx context.Context, l *domain.FeatureLabel) error

	// GetLabeledSince retrieves gate-stage records recorded in [since, now]
	// joined with their labels, ordered by RecordedAt ASC. Each record takes
	// the earliest label at or after its own recording time; records without
	// a qualifying label are excluded.
	GetLabeledSince(ctx context.Context, since time.Time) ([]*domain.LabeledFeature, error)
}

// ArtifactStore persists deployed model artifacts.
type ArtifactStore interface {
	// Save appends a new artifact version.
	Save(ctx context.Context, a *domain.ModelArtifact) error

	// Latest retrieves the most recently saved artifact.
	// Returns ErrNotFound when no artifact has ever been deployed.
	Latest(ctx context.Context) (*domain.ModelArtifact, error)
}
