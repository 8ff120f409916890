package domain

import "time"

// Source identifies the discovery channel a candidate arrived through.
type Source string

const (
	SourcePumpFun     Source = "PUMPFUN"
	SourceDexScreener Source = "DEXSCREENER"
	SourceRevival     Source = "REVIVAL"
)

// Candidate is a token under evaluation. Keyed by canonical mint address;
// fields are filled in by the filter/score stages and never removed.
// Corresponds to the tokens table in PostgreSQL.
type Candidate struct {
	Mint          string // canonical base58 mint address, identity
	Symbol        string
	Name          string
	Creator       string // creator wallet, empty if unknown
	DiscoveredVia Source
	DiscoveredAt  time.Time
	CreatedAt     time.Time // pair creation time on-chain

	// Market snapshot at discovery/evaluation.
	LiquidityUSD float64
	Volume24hUSD float64
	MarketCapUSD float64
	Holders      int
	TxnsLast5m   int
	SellsLast5m  int

	// Momentum (percent, signed).
	PricePct1m  float64
	PricePct5m  float64
	VolumePct5m float64

	// Risk / heuristic signals, filled by the soft-score stage.
	RugScore          int  // 0..100
	ClusterBad        bool // suspicious dev wallet cluster
	MintAuthRenounced bool
	InsiderSignal     bool
	SocialOK          bool
	TwitterFollowers  int
	DiscordMembers    int
	Trend             int // -1 down, 0 flat, +1 up
	ScoreTotal        int // weighted soft score, set by SoftScorer

	// Incomplete marks candidates missing liquidity or volume data.
	Incomplete bool
}

// AgeMinutes returns the candidate age relative to now, derived from the
// on-chain pair creation time. Negative ages clamp to zero.
func (c *Candidate) AgeMinutes(now time.Time) float64 {
	if c.CreatedAt.IsZero() {
		return 0
	}
	age := now.Sub(c.CreatedAt).Minutes()
	if age < 0 {
		return 0
	}
	return age
}

// AgeSeconds returns candidate age in seconds, clamped to zero.
func (c *Candidate) AgeSeconds(now time.Time) float64 {
	return c.AgeMinutes(now) * 60
}
