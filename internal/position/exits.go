// Package position manages open positions: the tick loop, exit rules, and
// persistence around entries and exits.
package position

import (
	"time"

	"solana-sniper/internal/config"
	"solana-sniper/internal/domain"
)

// ExitRules evaluates the exit predicates for an open position. Pure and
// deterministic; the priority order is fixed so a price that satisfies
// several rules always closes with the same reason.
type ExitRules struct {
	takeProfitPct         float64
	stopLossPct           float64
	trailingPct           float64
	trailingActivationPct float64
	maxHolding            time.Duration
}

// NewExitRules builds the rule set from config.
func NewExitRules(cfg *config.Config) *ExitRules {
	return &ExitRules{
		takeProfitPct:         cfg.TakeProfitPct,
		stopLossPct:           cfg.StopLossPct,
		trailingPct:           cfg.TrailingPct,
		trailingActivationPct: cfg.TrailingActivationPct,
		maxHolding:            time.Duration(cfg.MaxHoldingHours) * time.Hour,
	}
}

// Evaluate returns the exit reason for the first satisfied predicate, or ""
// to hold. Priority: stop-loss, trailing stop, take-profit, max-hold.
// The caller must have already raised the high-water mark for this tick.
func (r *ExitRules) Evaluate(p *domain.Position, priceUSD float64, now time.Time) string {
	pnl := p.PnLPct(priceUSD)

	if pnl <= -r.stopLossPct {
		return domain.ExitReasonStopLoss
	}

	// The trailing stop arms only once the position has been meaningfully
	// in profit; before that the stop-loss alone guards the downside.
	armAt := p.EntryPriceUSD * (1 + r.trailingActivationPct/100)
	if p.HighWaterUSD >= armAt && p.HighWaterUSD > 0 {
		retrace := (p.HighWaterUSD - priceUSD) / p.HighWaterUSD * 100
		if retrace >= r.trailingPct {
			return domain.ExitReasonTrailingStop
		}
	}

	if pnl >= r.takeProfitPct {
		return domain.ExitReasonTakeProfit
	}

	if now.Sub(p.OpenedAt) >= r.maxHolding {
		return domain.ExitReasonMaxHold
	}

	return ""
}
