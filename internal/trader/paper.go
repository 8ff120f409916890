package trader

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// PaperTrader simulates fills at the quoted price without touching the
// chain. Used for dry runs and whenever the trade size is zero.
type PaperTrader struct {
	prices PriceSource
	log    zerolog.Logger
}

// NewPaperTrader creates a PaperTrader filling against the given quotes.
func NewPaperTrader(prices PriceSource, log zerolog.Logger) *PaperTrader {
	return &PaperTrader{
		prices: prices,
		log:    log.With().Str("component", "paper_trader").Logger(),
	}
}

// Compile-time interface check.
var _ Trader = (*PaperTrader)(nil)

// Buy simulates an entry at the current quote.
func (t *PaperTrader) Buy(ctx context.Context, mint string, sizeSOL float64) (*Fill, error) {
	price, err := t.quote(ctx, mint)
	if err != nil {
		return nil, err
	}
	t.log.Info().Str("mint", mint).Float64("price_usd", price).Float64("size_sol", sizeSOL).Msg("paper buy")
	return &Fill{Mint: mint, PriceUSD: price, SizeSOL: sizeSOL}, nil
}

// Sell simulates an exit at the current quote.
func (t *PaperTrader) Sell(ctx context.Context, mint string, sizeSOL float64) (*Fill, error) {
	price, err := t.quote(ctx, mint)
	if err != nil {
		return nil, err
	}
	t.log.Info().Str("mint", mint).Float64("price_usd", price).Float64("size_sol", sizeSOL).Msg("paper sell")
	return &Fill{Mint: mint, PriceUSD: price, SizeSOL: sizeSOL}, nil
}

func (t *PaperTrader) quote(ctx context.Context, mint string) (float64, error) {
	price, err := t.prices.Price(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("quote %s: %w", mint, err)
	}
	if price <= 0 {
		return 0, ErrNoQuote
	}
	return price, nil
}
