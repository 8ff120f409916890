package position

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/config"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/storage"
	"solana-sniper/internal/trader"
)

// Releaser re-opens a mint for future discovery, used when an entry aborts.
type Releaser interface {
	Release(mint string)
}

// Manager owns the position lifecycle. Entries move PENDING_ENTRY → OPEN
// (PENDING_ENTRY exists only in memory; the first persisted row is the OPEN
// one) and exits move OPEN → CLOSED through the exit rules.
type Manager struct {
	store    storage.PositionStore
	trader   trader.Trader
	prices   trader.PriceSource
	rules    *ExitRules
	releaser Releaser
	now      func() time.Time
	log      zerolog.Logger

	sizeSOL       float64
	fetchRetries  int
	fetchBackoff  time.Duration
	alertAfter    int
	tickInterval  time.Duration
	pendingWG     sync.WaitGroup
	failStreaksMu sync.Mutex
	failStreaks   map[int64]int
}

// NewManager creates a Manager.
func NewManager(cfg *config.Config, store storage.PositionStore, t trader.Trader, prices trader.PriceSource, releaser Releaser, log zerolog.Logger) *Manager {
	sizeSOL := cfg.TradeAmountSOL
	if cfg.Paper() {
		sizeSOL = 0
	}
	return &Manager{
		store:        store,
		trader:       t,
		prices:       prices,
		rules:        NewExitRules(cfg),
		releaser:     releaser,
		now:          time.Now,
		log:          log.With().Str("component", "positions").Logger(),
		sizeSOL:      sizeSOL,
		fetchRetries: cfg.PriceFetchRetries,
		fetchBackoff: cfg.PriceFetchBackoff,
		alertAfter:   cfg.PriceFailAlertThreshold,
		tickInterval: cfg.TickInterval,
		failStreaks:  make(map[int64]int),
	}
}

// OpenPosition executes the entry and persists the OPEN row. On buy failure
// the candidate's identity is released so a later re-discovery can retry; no
// row is written.
func (m *Manager) OpenPosition(ctx context.Context, c *domain.Candidate) (*domain.Position, error) {
	m.pendingWG.Add(1)
	defer m.pendingWG.Done()

	fill, err := m.trader.Buy(ctx, c.Mint, m.sizeSOL)
	if err != nil {
		if m.releaser != nil {
			m.releaser.Release(c.Mint)
		}
		return nil, fmt.Errorf("buy %s: %w", c.Mint, err)
	}

	p := &domain.Position{
		Mint:              c.Mint,
		Symbol:            c.Symbol,
		SizeSOL:           fill.SizeSOL,
		EntryPriceUSD:     fill.PriceUSD,
		EntryLiquidityUSD: c.LiquidityUSD,
		OpenedAt:          m.now(),
		HighWaterUSD:      fill.PriceUSD,
	}
	if err := m.store.Open(ctx, p); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Lost the race to another worker; treat as already held.
			m.log.Warn().Str("mint", c.Mint).Msg("position already open, entry discarded")
			return nil, err
		}
		return nil, fmt.Errorf("persist position: %w", err)
	}

	m.log.Info().
		Str("mint", c.Mint).
		Float64("entry_usd", p.EntryPriceUSD).
		Float64("size_sol", p.SizeSOL).
		Msg("position opened")
	return p, nil
}

// Run ticks all open positions until ctx is done, then waits for in-flight
// entries to resolve before returning.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.pendingWG.Wait()
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx, m.now())
		}
	}
}

// Tick evaluates every open position once. One position's failure never
// blocks the others.
func (m *Manager) Tick(ctx context.Context, now time.Time) {
	open, err := m.store.GetOpen(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("load open positions")
		return
	}
	observability.OpenPositions.Set(float64(len(open)))

	// Fan out so a stalled or retrying feed on one mint cannot delay the
	// exit checks of the others.
	var wg sync.WaitGroup
	for _, p := range open {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(p *domain.Position) {
			defer wg.Done()
			m.tickOne(ctx, p, now)
		}(p)
	}
	wg.Wait()
}

// tickOne fetches the price, raises the high-water mark, and applies the
// exit rules for a single position.
func (m *Manager) tickOne(ctx context.Context, p *domain.Position, now time.Time) {
	price, err := m.fetchPrice(ctx, p.Mint)
	if err != nil {
		m.recordFetchFailure(p, err)
		return
	}
	m.clearFetchFailures(p.ID)

	if price > p.HighWaterUSD {
		p.HighWaterUSD = price
		if err := m.store.UpdateHighWater(ctx, p.ID, price); err != nil {
			m.log.Error().Err(err).Str("mint", p.Mint).Msg("persist high water")
		}
	}

	reason := m.rules.Evaluate(p, price, now)
	if reason == "" {
		return
	}
	m.closePosition(ctx, p, reason)
}

// fetchPrice retries transient failures with backoff inside the tick.
func (m *Manager) fetchPrice(ctx context.Context, mint string) (float64, error) {
	var lastErr error
	for attempt := 0; attempt <= m.fetchRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(m.fetchBackoff * time.Duration(attempt)):
			}
		}
		price, err := m.prices.Price(ctx, mint)
		if err == nil && price > 0 {
			return price, nil
		}
		lastErr = err
	}
	return 0, lastErr
}

func (m *Manager) closePosition(ctx context.Context, p *domain.Position, reason string) {
	sell, err := m.trader.Sell(ctx, p.Mint, p.SizeSOL)
	if err != nil {
		// Keep holding; the next tick retries the exit.
		m.log.Error().Err(err).Str("mint", p.Mint).Str("reason", reason).Msg("sell failed, holding")
		return
	}

	closedAt := m.now()
	if err := m.store.Close(ctx, p.ID, reason, sell.PriceUSD, closedAt); err != nil {
		m.log.Error().Err(err).Str("mint", p.Mint).Msg("persist close")
		return
	}

	observability.PositionsClosed.WithLabelValues(reason).Inc()
	m.log.Info().
		Str("mint", p.Mint).
		Str("reason", reason).
		Float64("entry_usd", p.EntryPriceUSD).
		Float64("close_usd", sell.PriceUSD).
		Float64("pnl_pct", p.PnLPct(sell.PriceUSD)).
		Msg("position closed")
}

// recordFetchFailure counts consecutive failures per position and raises an
// alert condition past the threshold. The position is held, never
// force-closed on missing data.
func (m *Manager) recordFetchFailure(p *domain.Position, err error) {
	observability.PriceFetchFailures.Inc()
	m.failStreaksMu.Lock()
	m.failStreaks[p.ID]++
	streak := m.failStreaks[p.ID]
	m.failStreaksMu.Unlock()

	evt := m.log.Warn()
	if streak >= m.alertAfter {
		evt = m.log.Error().Bool("alert", true)
	}
	evt.Err(err).Str("mint", p.Mint).Int("consecutive_failures", streak).Msg("price fetch failed, holding position")
}

func (m *Manager) clearFetchFailures(id int64) {
	m.failStreaksMu.Lock()
	delete(m.failStreaks, id)
	m.failStreaksMu.Unlock()
}

// FailStreak reports the consecutive price-fetch failures for a position.
func (m *Manager) FailStreak(id int64) int {
	m.failStreaksMu.Lock()
	defer m.failStreaksMu.Unlock()
	return m.failStreaks[id]
}
