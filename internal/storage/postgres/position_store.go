package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
// The one-OPEN-per-mint invariant is enforced by a partial unique index on
// (mint) WHERE status = 'OPEN', so it holds across restarts and replicas.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	id, mint, symbol, size_sol, entry_price_usd, entry_liquidity_usd, opened_at,
	high_water_usd, status, exit_reason, close_price_usd, closed_at, outcome
`

// Open persists a newly opened position and fills in its ID.
func (s *PositionStore) Open(ctx context.Context, p *domain.Position) error {
	if p == nil || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO positions (
			mint, symbol, size_sol, entry_price_usd, entry_liquidity_usd,
			opened_at, high_water_usd, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 'OPEN')
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		p.Mint, p.Symbol, p.SizeSOL, p.EntryPriceUSD, p.EntryLiquidityUSD,
		p.OpenedAt, p.HighWaterUSD,
	).Scan(&p.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("open position: %w", err)
	}
	p.Status = domain.PositionOpen
	return nil
}

// UpdateHighWater raises the stored high-water price for an open position.
// GREATEST keeps the update monotonic even under concurrent ticks.
func (s *PositionStore) UpdateHighWater(ctx context.Context, id int64, highWaterUSD float64) error {
	query := `
		UPDATE positions
		SET high_water_usd = GREATEST(high_water_usd, $2)
		WHERE id = $1 AND status = 'OPEN'
	`

	tag, err := s.pool.Exec(ctx, query, id, highWaterUSD)
	if err != nil {
		return fmt.Errorf("update high water: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close marks a position CLOSED with its exit reason and close price.
// The status guard makes a double close report ErrNotFound instead of
// overwriting the first exit.
func (s *PositionStore) Close(ctx context.Context, id int64, reason string, closePriceUSD float64, closedAt time.Time) error {
	query := `
		UPDATE positions
		SET status = 'CLOSED', exit_reason = $2, close_price_usd = $3, closed_at = $4
		WHERE id = $1 AND status = 'OPEN'
	`

	tag, err := s.pool.Exec(ctx, query, id, reason, closePriceUSD, closedAt)
	if err != nil {
		return fmt.Errorf("close position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetOutcome records the labeler's verdict on a closed position.
func (s *PositionStore) SetOutcome(ctx context.Context, id int64, outcome string, labeledAt time.Time) error {
	query := `
		UPDATE positions
		SET outcome = $2, labeled_at = $3
		WHERE id = $1 AND status = 'CLOSED'
	`

	tag, err := s.pool.Exec(ctx, query, id, outcome, labeledAt)
	if err != nil {
		return fmt.Errorf("set outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetOpen retrieves all OPEN positions, oldest first.
func (s *PositionStore) GetOpen(ctx context.Context) ([]*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE status = 'OPEN' ORDER BY opened_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get open positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetOpenByMint retrieves the OPEN position for a mint.
func (s *PositionStore) GetOpenByMint(ctx context.Context, mint string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE mint = $1 AND status = 'OPEN'`

	p, err := scanPosition(s.pool.QueryRow(ctx, query, mint))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get open position by mint: %w", err)
	}
	return p, nil
}

// GetUnlabeledClosed retrieves CLOSED positions without an outcome that
// closed at or before cutoff, oldest first.
func (s *PositionStore) GetUnlabeledClosed(ctx context.Context, cutoff time.Time) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = 'CLOSED' AND outcome IS NULL AND closed_at <= $1
		ORDER BY closed_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("get unlabeled closed positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetClosedSince retrieves positions closed in [since, now], oldest first.
func (s *PositionStore) GetClosedSince(ctx context.Context, since time.Time) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = 'CLOSED' AND closed_at >= $1
		ORDER BY closed_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("get closed positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// scanPosition scans a single row into a Position. Nullable columns
// (exit_reason, close_price_usd, closed_at, outcome) are NULL while open.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var status string
	var exitReason, outcome *string
	var closePrice *float64
	var closedAt *time.Time

	err := row.Scan(
		&p.ID, &p.Mint, &p.Symbol, &p.SizeSOL, &p.EntryPriceUSD, &p.EntryLiquidityUSD, &p.OpenedAt,
		&p.HighWaterUSD, &status, &exitReason, &closePrice, &closedAt, &outcome,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.PositionStatus(status)
	if exitReason != nil {
		p.ExitReason = *exitReason
	}
	if closePrice != nil {
		p.ClosePriceUSD = *closePrice
	}
	if closedAt != nil {
		p.ClosedAt = *closedAt
	}
	if outcome != nil {
		p.Outcome = *outcome
	}
	return &p, nil
}

// scanPositions scans multiple rows into a slice of Position.
func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}
	return positions, nil
}
