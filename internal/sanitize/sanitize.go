// Package sanitize turns raw discovery records into validated, deduplicated
// candidates.
package sanitize

import (
	"context"
	"errors"
	"sync"
	"time"

	"solana-sniper/internal/discovery"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/solana"
	"solana-sniper/internal/storage"
)

// Reject errors.
var (
	// ErrMalformed is returned for records that cannot become a candidate.
	ErrMalformed = errors.New("malformed record")

	// ErrDuplicate is returned when the mint is already queued or processed.
	ErrDuplicate = errors.New("duplicate mint")

	// ErrHeld is returned when an open position exists for the mint.
	ErrHeld = errors.New("position open for mint")
)

// QueueMembership reports whether a mint is already awaiting evaluation.
type QueueMembership interface {
	Contains(mint string) bool
}

// OpenChecker reports whether a mint currently has an open position.
type OpenChecker interface {
	GetOpenByMint(ctx context.Context, mint string) (*domain.Position, error)
}

// SeenChecker reports whether a mint was already evaluated, possibly in an
// earlier run. Backed by the tokens table.
type SeenChecker interface {
	Seen(ctx context.Context, mint string) (bool, error)
}

// Sanitizer validates, normalizes, and deduplicates raw records. The
// processed set makes re-delivery of the same discovery event idempotent
// within a run; the SeenChecker extends the dedupe across restarts. Release
// re-opens a mint after an aborted entry so a later re-discovery can be
// evaluated again, overriding both.
type Sanitizer struct {
	queue     QueueMembership
	positions OpenChecker
	tokens    SeenChecker
	now       func() time.Time

	mu        sync.Mutex
	processed map[string]struct{}
	released  map[string]struct{}
}

// New creates a Sanitizer.
func New(queue QueueMembership, positions OpenChecker, tokens SeenChecker) *Sanitizer {
	return &Sanitizer{
		queue:     queue,
		positions: positions,
		tokens:    tokens,
		now:       time.Now,
		processed: make(map[string]struct{}),
		released:  make(map[string]struct{}),
	}
}

// Sanitize converts a raw record into a Candidate or returns a typed reject
// error. On success the mint is marked processed.
func (s *Sanitizer) Sanitize(ctx context.Context, raw discovery.RawTokenRecord) (*domain.Candidate, error) {
	mint, err := solana.CanonicalAddress(raw.Mint)
	if err != nil {
		return nil, ErrMalformed
	}
	if raw.LiquidityUSD < 0 || raw.Volume24hUSD < 0 || raw.MarketCapUSD < 0 || raw.Holders < 0 {
		return nil, ErrMalformed
	}
	// A creator, when the feed reports one, must be an on-curve wallet.
	if raw.Creator != "" && !solana.ValidWallet(raw.Creator) {
		return nil, ErrMalformed
	}

	s.mu.Lock()
	_, processed := s.processed[mint]
	_, released := s.released[mint]
	s.mu.Unlock()
	if processed || s.queue.Contains(mint) {
		return nil, ErrDuplicate
	}

	// The tokens table extends the dedupe across restarts; an explicit
	// Release overrides it.
	if s.tokens != nil && !released {
		seen, err := s.tokens.Seen(ctx, mint)
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, ErrDuplicate
		}
	}

	if s.positions != nil {
		if _, err := s.positions.GetOpenByMint(ctx, mint); err == nil {
			return nil, ErrHeld
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
	}

	now := s.now()
	createdAt := time.Time{}
	if raw.CreatedAtMs > 0 {
		createdAt = time.UnixMilli(raw.CreatedAtMs).UTC()
	} else {
		// Feeds that push at mint time often omit the timestamp; assume
		// just-created rather than rejecting on age.
		createdAt = now.Add(-10 * time.Second)
	}

	c := &domain.Candidate{
		Mint:          mint,
		Symbol:        raw.Symbol,
		Name:          raw.Name,
		Creator:       raw.Creator,
		DiscoveredVia: sourceOf(raw.Source),
		DiscoveredAt:  now,
		CreatedAt:     createdAt,
		LiquidityUSD:  raw.LiquidityUSD,
		Volume24hUSD:  raw.Volume24hUSD,
		MarketCapUSD:  raw.MarketCapUSD,
		Holders:       raw.Holders,
		TxnsLast5m:    raw.TxnsLast5m,
		SellsLast5m:   raw.SellsLast5m,
		PricePct1m:    raw.PricePct1m,
		PricePct5m:    raw.PricePct5m,
		VolumePct5m:   raw.VolumePct5m,
		Incomplete:    raw.LiquidityUSD == 0 || raw.Volume24hUSD == 0,
	}

	s.mu.Lock()
	s.processed[mint] = struct{}{}
	delete(s.released, mint)
	s.mu.Unlock()

	return c, nil
}

// Release re-opens eligibility for a mint, typically after an aborted entry
// or a queue drop. The release also overrides the persisted-token dedupe, so
// a re-discovery is evaluated even though the mint already has a tokens row.
func (s *Sanitizer) Release(mint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.processed, mint)
	s.released[mint] = struct{}{}
}

func sourceOf(raw string) domain.Source {
	switch raw {
	case "pumpfun", "PUMPFUN":
		return domain.SourcePumpFun
	case "revival", "REVIVAL":
		return domain.SourceRevival
	default:
		return domain.SourceDexScreener
	}
}
