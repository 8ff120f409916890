// Package discovery feeds raw token records from external feeds into the
// evaluation pipeline.
package discovery

import "context"

// RawTokenRecord is one discovery event as delivered by a feed, before
// sanitization. String fields arrive as-is; numeric fields may be zero when
// the feed omits them.
type RawTokenRecord struct {
	Mint    string `json:"mint"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Creator string `json:"creator"`
	Source  string `json:"source"`

	// CreatedAtMs is the on-chain pair creation time in epoch milliseconds,
	// 0 when the feed does not report it.
	CreatedAtMs int64 `json:"created_at_ms"`

	LiquidityUSD float64 `json:"liquidity_usd"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
	MarketCapUSD float64 `json:"market_cap_usd"`
	Holders      int     `json:"holders"`
	TxnsLast5m   int     `json:"txns_last_5m"`
	SellsLast5m  int     `json:"sells_last_5m"`
	PricePct1m   float64 `json:"price_pct_1m"`
	PricePct5m   float64 `json:"price_pct_5m"`
	VolumePct5m  float64 `json:"volume_pct_5m"`
}

// Source is a discovery feed. Records yields events until the source stops;
// Run blocks until ctx is done and closes the records channel on return.
type Source interface {
	Records() <-chan RawTokenRecord
	Run(ctx context.Context) error
}
