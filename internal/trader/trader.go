// Package trader executes entries and exits. Paper mode simulates fills at
// quoted prices; a live implementation would submit swaps instead.
package trader

import (
	"context"
	"errors"
)

// Fill is the result of an executed trade.
type Fill struct {
	Mint     string
	PriceUSD float64
	SizeSOL  float64
}

// ErrNoQuote is returned when no price is available to fill against.
var ErrNoQuote = errors.New("no price quote for mint")

// PriceSource quotes the current USD price for a mint.
type PriceSource interface {
	Price(ctx context.Context, mint string) (float64, error)
}

// Trader executes buys and sells. Implementations must be safe for
// concurrent use by the pipeline workers and the position manager.
type Trader interface {
	// Buy enters a position of sizeSOL and returns the fill.
	Buy(ctx context.Context, mint string, sizeSOL float64) (*Fill, error)

	// Sell exits the full position and returns the fill.
	Sell(ctx context.Context, mint string, sizeSOL float64) (*Fill, error)
}
