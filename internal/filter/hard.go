// Package filter implements the two pre-gate stages: cheap deterministic
// hard filters and the collaborator-backed soft score.
package filter

import (
	"time"

	"solana-sniper/internal/config"
	"solana-sniper/internal/domain"
)

// Reject reason codes, named after the first violated rule.
const (
	ReasonBannedCreator = "BANNED_CREATOR"
	ReasonTooOld        = "TOO_OLD"
	ReasonLowLiquidity  = "LOW_LIQUIDITY"
	ReasonVolumeRange   = "VOLUME_OUT_OF_RANGE"
	ReasonMarketCap     = "MARKET_CAP_OUT_OF_RANGE"
	ReasonFewHolders    = "TOO_FEW_HOLDERS"
	ReasonEarlySellOff  = "EARLY_SELL_OFF"
)

// Verdict is the outcome of the hard filter stage.
type Verdict struct {
	Pass   bool
	Reason string // first violated rule, empty on pass
}

// HardFilter applies the deterministic admission predicates in fixed order.
// Evaluation short-circuits; the verdict names the first violated rule.
type HardFilter struct {
	maxAge          time.Duration
	minHolders      int
	minLiquidityUSD float64
	minVolumeUSD    float64
	maxVolumeUSD    float64
	minMarketCapUSD float64
	maxMarketCapUSD float64
	banned          map[string]struct{}
}

// NewHardFilter builds a HardFilter from config thresholds.
func NewHardFilter(cfg *config.Config) *HardFilter {
	banned := make(map[string]struct{}, len(cfg.BannedCreators))
	for _, c := range cfg.BannedCreators {
		banned[c] = struct{}{}
	}
	return &HardFilter{
		maxAge:          time.Duration(cfg.MaxAgeDays * 24 * float64(time.Hour)),
		minHolders:      cfg.MinHolders,
		minLiquidityUSD: cfg.MinLiquidityUSD,
		minVolumeUSD:    cfg.MinVolumeUSD24h,
		maxVolumeUSD:    cfg.MaxVolumeUSD24h,
		minMarketCapUSD: cfg.MinMarketCapUSD,
		maxMarketCapUSD: cfg.MaxMarketCapUSD,
		banned:          banned,
	}
}

// Evaluate is pure: same candidate and clock, same verdict.
func (f *HardFilter) Evaluate(c *domain.Candidate, now time.Time) Verdict {
	if _, bad := f.banned[c.Creator]; bad {
		return Verdict{Reason: ReasonBannedCreator}
	}

	// A missing creation time cannot prove the pair is young enough.
	if c.CreatedAt.IsZero() || now.Sub(c.CreatedAt) > f.maxAge {
		return Verdict{Reason: ReasonTooOld}
	}

	if c.LiquidityUSD < f.minLiquidityUSD {
		return Verdict{Reason: ReasonLowLiquidity}
	}
	if c.Volume24hUSD < f.minVolumeUSD || c.Volume24hUSD > f.maxVolumeUSD {
		return Verdict{Reason: ReasonVolumeRange}
	}
	if c.MarketCapUSD < f.minMarketCapUSD || c.MarketCapUSD > f.maxMarketCapUSD {
		return Verdict{Reason: ReasonMarketCap}
	}

	// Holder counts lag the chain on brand-new pairs; recent swap activity
	// is accepted as proof of life instead.
	if c.Holders < f.minHolders && c.TxnsLast5m+c.SellsLast5m == 0 {
		return Verdict{Reason: ReasonFewHolders}
	}

	if earlySellOff(c, now) {
		return Verdict{Reason: ReasonEarlySellOff}
	}

	return Verdict{Pass: true}
}

// earlySellOff flags pairs under 600 seconds old where sells dominate recent
// activity while the price stays flat or falls: the dump pattern of a farmed
// launch.
func earlySellOff(c *domain.Candidate, now time.Time) bool {
	if c.AgeSeconds(now) >= 600 {
		return false
	}
	total := c.TxnsLast5m + c.SellsLast5m
	if total == 0 {
		return false
	}
	sellRatio := float64(c.SellsLast5m) / float64(total)
	return sellRatio > 0.7 && c.PricePct5m <= 0
}
