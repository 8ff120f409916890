// Package fetcher holds HTTP clients for the external market-data services.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/solana"
)

// ErrUnavailable marks a transient upstream failure, distinct from a valid
// zero answer.
var ErrUnavailable = errors.New("upstream unavailable")

// DexScreenerClient reads pair snapshots from the DexScreener public API.
// It serves both as the position manager's price source and as the soft
// score's social checker.
type DexScreenerClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewDexScreenerClient creates a client against baseURL
// (https://api.dexscreener.com in production).
func NewDexScreenerClient(baseURL string, log zerolog.Logger) *DexScreenerClient {
	return &DexScreenerClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("component", "dexscreener").Logger(),
	}
}

// PairSnapshot is the subset of a DexScreener pair the pipeline consumes.
type PairSnapshot struct {
	PriceUSD     float64
	LiquidityUSD float64
	Volume24hUSD float64
	MarketCapUSD float64
	PricePct5m   float64
	PairCreated  time.Time
	HasWebsite   bool
	HasTwitter   bool
	HasDiscord   bool
}

type dsResponse struct {
	Pairs []dsPair `json:"pairs"`
}

type dsPair struct {
	PriceUSD   string `json:"priceUsd"`
	QuoteToken struct {
		Address string `json:"address"`
	} `json:"quoteToken"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		M5 float64 `json:"m5"`
	} `json:"priceChange"`
	MarketCap     float64 `json:"marketCap"`
	PairCreatedAt int64   `json:"pairCreatedAt"`
	Info          struct {
		Websites []struct {
			URL string `json:"url"`
		} `json:"websites"`
		Socials []struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"socials"`
	} `json:"info"`
}

// Snapshot fetches the most liquid pair for a mint. A mint with no pairs
// returns ErrUnavailable: DexScreener lags new launches by a minute or two.
func (c *DexScreenerClient) Snapshot(ctx context.Context, mint string) (*PairSnapshot, error) {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: dexscreener status %d", ErrUnavailable, resp.StatusCode)
	}

	var body dsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if len(body.Pairs) == 0 {
		return nil, fmt.Errorf("%w: no pairs for %s", ErrUnavailable, mint)
	}

	// SOL-quoted pairs carry the organic launch volume; USD-stable quotes on
	// a fresh mint are usually arbitrage listings. Prefer the SOL pool when
	// one exists, most liquid within the preferred set.
	pairs := body.Pairs
	if sol := wsolQuoted(pairs); len(sol) > 0 {
		pairs = sol
	}
	best := pairs[0]
	for _, p := range pairs[1:] {
		if p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}

	price, _ := strconv.ParseFloat(best.PriceUSD, 64)
	snap := &PairSnapshot{
		PriceUSD:     price,
		LiquidityUSD: best.Liquidity.USD,
		Volume24hUSD: best.Volume.H24,
		MarketCapUSD: best.MarketCap,
		PricePct5m:   best.PriceChange.M5,
	}
	if best.PairCreatedAt > 0 {
		snap.PairCreated = time.UnixMilli(best.PairCreatedAt).UTC()
	}
	snap.HasWebsite = len(best.Info.Websites) > 0
	for _, s := range best.Info.Socials {
		switch s.Type {
		case "twitter":
			snap.HasTwitter = true
		case "discord":
			snap.HasDiscord = true
		}
	}
	return snap, nil
}

// Price implements the trader/position PriceSource.
func (c *DexScreenerClient) Price(ctx context.Context, mint string) (float64, error) {
	snap, err := c.Snapshot(ctx, mint)
	if err != nil {
		return 0, err
	}
	if snap.PriceUSD <= 0 {
		return 0, fmt.Errorf("%w: zero price for %s", ErrUnavailable, mint)
	}
	return snap.PriceUSD, nil
}

// Check implements the soft score's SocialChecker. DexScreener exposes link
// presence but not follower counts, so counts report zero.
func (c *DexScreenerClient) Check(ctx context.Context, mint string) (bool, int, int, error) {
	snap, err := c.Snapshot(ctx, mint)
	if err != nil {
		return false, 0, 0, err
	}
	ok := snap.HasWebsite || snap.HasTwitter || snap.HasDiscord
	return ok, 0, 0, nil
}

// trendFlatBandPct is the 5-minute price move below which momentum counts
// as flat.
const trendFlatBandPct = 2.0

// Trend implements the soft score's TrendSignaler from the pair's 5-minute
// price change.
func (c *DexScreenerClient) Trend(ctx context.Context, mint string) (int, error) {
	snap, err := c.Snapshot(ctx, mint)
	if err != nil {
		return 0, err
	}
	switch {
	case snap.PricePct5m >= trendFlatBandPct:
		return 1, nil
	case snap.PricePct5m <= -trendFlatBandPct:
		return -1, nil
	default:
		return 0, nil
	}
}

func wsolQuoted(pairs []dsPair) []dsPair {
	var out []dsPair
	for _, p := range pairs {
		if p.QuoteToken.Address == solana.WSOLMint {
			out = append(out, p)
		}
	}
	return out
}
