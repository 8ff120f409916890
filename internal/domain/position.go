package domain

import "time"

// PositionStatus is the persisted lifecycle state of a position.
// PENDING_ENTRY is transient and never persisted: a position row first
// exists once the buy has confirmed.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// ExitReason codes, recorded as the first satisfied exit predicate in the
// fixed priority order stop-loss, trailing-stop, take-profit, max-hold.
const (
	ExitReasonStopLoss     = "STOP_LOSS"
	ExitReasonTrailingStop = "TRAILING_STOP"
	ExitReasonTakeProfit   = "TAKE_PROFIT"
	ExitReasonMaxHold      = "MAX_HOLD"
	ExitReasonManual       = "MANUAL"
)

// Outcome labels applied by the labeler after the grace period.
const (
	OutcomeWin         = "win"
	OutcomeFail        = "fail"
	OutcomeFailTimeout = "fail_timeout"
)

// Position is an open or closed trade on one token.
// Invariant: at most one OPEN position per mint, enforced in-process by the
// position manager and across restarts by a partial unique index.
type Position struct {
	ID     int64
	Mint   string
	Symbol string

	// SizeSOL is the position size in SOL. Zero denotes paper mode.
	SizeSOL float64

	EntryPriceUSD     float64
	EntryLiquidityUSD float64
	OpenedAt          time.Time

	// HighWaterUSD is the best price seen while open, raised on every tick;
	// the trailing stop retraces from it, never from entry.
	HighWaterUSD float64

	Status        PositionStatus
	ExitReason    string // empty until closed
	ClosePriceUSD float64
	ClosedAt      time.Time

	// Outcome is the labeler's verdict (win / fail / fail_timeout), empty
	// until the grace period elapses.
	Outcome string
}

// PnLPct returns the percent gain/loss of price vs entry. Zero entry prices
// yield zero rather than a division blow-up.
func (p *Position) PnLPct(price float64) float64 {
	if p.EntryPriceUSD <= 0 {
		return 0
	}
	return (price - p.EntryPriceUSD) / p.EntryPriceUSD * 100
}

// IsOpen reports whether the position is still held.
func (p *Position) IsOpen() bool {
	return p.Status == PositionOpen
}
