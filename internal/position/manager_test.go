package position

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/config"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage/memory"
	"solana-sniper/internal/trader"
)

// fakePrices serves per-mint prices and can be set to fail or respond
// slowly per mint. It records when each mint's price was first requested.
type fakePrices struct {
	mu       sync.Mutex
	prices   map[string]float64
	fails    map[string]bool
	delays   map[string]time.Duration
	firstReq map[string]time.Time
}

func newFakePrices() *fakePrices {
	return &fakePrices{
		prices:   map[string]float64{},
		fails:    map[string]bool{},
		delays:   map[string]time.Duration{},
		firstReq: map[string]time.Time{},
	}
}

func (f *fakePrices) set(mint string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[mint] = price
}

func (f *fakePrices) fail(mint string, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[mint] = failing
}

func (f *fakePrices) slow(mint string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[mint] = d
}

func (f *fakePrices) firstRequest(mint string) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.firstReq[mint]
}

func (f *fakePrices) resetRequests() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.firstReq = map[string]time.Time{}
}

func (f *fakePrices) Price(_ context.Context, mint string) (float64, error) {
	f.mu.Lock()
	if _, ok := f.firstReq[mint]; !ok {
		f.firstReq[mint] = time.Now()
	}
	delay := f.delays[mint]
	failing := f.fails[mint]
	price := f.prices[mint]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if failing {
		return 0, errors.New("feed down")
	}
	return price, nil
}

type releaseRecorder struct {
	mu       sync.Mutex
	released []string
}

func (r *releaseRecorder) Release(mint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, mint)
}

func managerConfig() *config.Config {
	return &config.Config{
		TradeAmountSOL:          0, // paper
		TakeProfitPct:           80,
		StopLossPct:             35,
		TrailingPct:             25,
		TrailingActivationPct:   10,
		MaxHoldingHours:         6,
		PriceFetchRetries:       0,
		PriceFetchBackoff:       time.Millisecond,
		PriceFailAlertThreshold: 3,
		TickInterval:            time.Second,
	}
}

func newTestManager(t *testing.T) (*Manager, *memory.PositionStore, *fakePrices, *releaseRecorder) {
	t.Helper()
	prices := newFakePrices()
	store := memory.NewPositionStore()
	rel := &releaseRecorder{}
	paper := trader.NewPaperTrader(prices, zerolog.Nop())
	m := NewManager(managerConfig(), store, paper, prices, rel, zerolog.Nop())
	return m, store, prices, rel
}

func TestManager_OpenPosition(t *testing.T) {
	m, store, prices, _ := newTestManager(t)
	ctx := context.Background()
	prices.set("MintA", 1.0)

	p, err := m.OpenPosition(ctx, &domain.Candidate{Mint: "MintA", Symbol: "TST", LiquidityUSD: 8000})
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}
	if p.EntryPriceUSD != 1.0 || p.HighWaterUSD != 1.0 {
		t.Errorf("position = %+v", p)
	}

	got, err := store.GetOpenByMint(ctx, "MintA")
	if err != nil {
		t.Fatalf("no persisted row: %v", err)
	}
	if got.EntryLiquidityUSD != 8000 {
		t.Errorf("EntryLiquidityUSD = %v", got.EntryLiquidityUSD)
	}
}

func TestManager_AbortedEntryReleasesIdentity(t *testing.T) {
	m, store, prices, rel := newTestManager(t)
	ctx := context.Background()
	prices.fail("MintA", true)

	if _, err := m.OpenPosition(ctx, &domain.Candidate{Mint: "MintA"}); err == nil {
		t.Fatal("expected buy failure")
	}

	// No row persisted, identity released.
	if _, err := store.GetOpenByMint(ctx, "MintA"); err == nil {
		t.Error("aborted entry left a persisted row")
	}
	if len(rel.released) != 1 || rel.released[0] != "MintA" {
		t.Errorf("released = %v, want [MintA]", rel.released)
	}
}

func TestManager_TickClosesOnStopLoss(t *testing.T) {
	m, store, prices, _ := newTestManager(t)
	ctx := context.Background()
	prices.set("MintA", 1.0)

	p, err := m.OpenPosition(ctx, &domain.Candidate{Mint: "MintA"})
	if err != nil {
		t.Fatal(err)
	}

	prices.set("MintA", 0.6)
	m.Tick(ctx, time.Now())

	closed, err := store.GetClosedSince(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(closed) != 1 || closed[0].ID != p.ID {
		t.Fatalf("closed = %v", closed)
	}
	if closed[0].ExitReason != domain.ExitReasonStopLoss {
		t.Errorf("ExitReason = %s", closed[0].ExitReason)
	}
	if closed[0].ClosePriceUSD != 0.6 {
		t.Errorf("ClosePriceUSD = %v", closed[0].ClosePriceUSD)
	}
}

func TestManager_TrailingStopScenario(t *testing.T) {
	// Entry 1.0; rises to 2.0 (high water follows); falls 25% from the
	// high while still above entry: trailing stop closes in profit.
	m, store, prices, _ := newTestManager(t)
	ctx := context.Background()
	now := time.Now()
	prices.set("MintA", 1.0)

	if _, err := m.OpenPosition(ctx, &domain.Candidate{Mint: "MintA"}); err != nil {
		t.Fatal(err)
	}

	prices.set("MintA", 2.0)
	m.Tick(ctx, now)
	open, _ := store.GetOpen(ctx)
	if len(open) != 1 || open[0].HighWaterUSD != 2.0 {
		t.Fatalf("high water not raised: %+v", open)
	}

	prices.set("MintA", 1.5)
	m.Tick(ctx, now)

	closed, _ := store.GetClosedSince(ctx, now.Add(-time.Minute))
	if len(closed) != 1 {
		t.Fatal("trailing stop did not close")
	}
	if closed[0].ExitReason != domain.ExitReasonTrailingStop {
		t.Errorf("ExitReason = %s", closed[0].ExitReason)
	}
	if pnl := closed[0].PnLPct(closed[0].ClosePriceUSD); pnl < 49 || pnl > 51 {
		t.Errorf("closed at pnl %.1f%%, want ~50%%", pnl)
	}
}

func TestManager_FetchFailureIsolation(t *testing.T) {
	// Two open positions; one mint's feed fails. The healthy one still
	// ticks and closes; the failing one is held and its streak counted.
	m, store, prices, _ := newTestManager(t)
	ctx := context.Background()
	prices.set("MintA", 1.0)
	prices.set("MintB", 1.0)

	pa, err := m.OpenPosition(ctx, &domain.Candidate{Mint: "MintA"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.OpenPosition(ctx, &domain.Candidate{Mint: "MintB"}); err != nil {
		t.Fatal(err)
	}

	prices.fail("MintA", true)
	prices.set("MintB", 2.0) // +100%, take profit

	for i := 0; i < 3; i++ {
		m.Tick(ctx, time.Now())
	}

	// MintB closed despite MintA failing.
	closed, _ := store.GetClosedSince(ctx, time.Now().Add(-time.Minute))
	if len(closed) != 1 || closed[0].Mint != "MintB" {
		t.Fatalf("closed = %v, want MintB only", closed)
	}

	// MintA held, streak at alert threshold.
	if _, err := store.GetOpenByMint(ctx, "MintA"); err != nil {
		t.Error("failing position must be held, not closed")
	}
	if streak := m.FailStreak(pa.ID); streak != 3 {
		t.Errorf("FailStreak = %d, want 3", streak)
	}

	// Recovery clears the streak.
	prices.fail("MintA", false)
	m.Tick(ctx, time.Now())
	if streak := m.FailStreak(pa.ID); streak != 0 {
		t.Errorf("FailStreak after recovery = %d, want 0", streak)
	}
}

func TestManager_SlowFeedDoesNotDelayOtherExits(t *testing.T) {
	// Two open positions; one mint's feed hangs and fails, forcing the full
	// retry ladder. The other mint's exit check must start immediately, not
	// after the slow mint's retries finish.
	prices := newFakePrices()
	store := memory.NewPositionStore()
	paper := trader.NewPaperTrader(prices, zerolog.Nop())
	cfg := managerConfig()
	cfg.PriceFetchRetries = 3
	cfg.PriceFetchBackoff = 10 * time.Millisecond
	m := NewManager(cfg, store, paper, prices, nil, zerolog.Nop())
	ctx := context.Background()

	prices.set("MintA", 1.0)
	prices.set("MintB", 1.0)
	if _, err := m.OpenPosition(ctx, &domain.Candidate{Mint: "MintA"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.OpenPosition(ctx, &domain.Candidate{Mint: "MintB"}); err != nil {
		t.Fatal(err)
	}

	prices.fail("MintA", true)
	prices.slow("MintA", 50*time.Millisecond) // 4 attempts, 200ms+ total
	prices.set("MintB", 0.5)                  // deep stop loss

	prices.resetRequests() // entries fetched prices too
	start := time.Now()
	m.Tick(ctx, time.Now())

	closed, err := store.GetClosedSince(ctx, start.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(closed) != 1 || closed[0].Mint != "MintB" {
		t.Fatalf("closed = %v, want MintB only", closed)
	}
	if closed[0].ExitReason != domain.ExitReasonStopLoss {
		t.Errorf("ExitReason = %s", closed[0].ExitReason)
	}

	// MintB's price request must not have queued behind MintA's retries.
	if d := prices.firstRequest("MintB").Sub(start); d > 40*time.Millisecond {
		t.Errorf("MintB price first requested %v after tick start", d)
	}
}

// brokenSellTrader buys normally but refuses every sell.
type brokenSellTrader struct {
	trader.Trader
}

func (b *brokenSellTrader) Sell(context.Context, string, float64) (*trader.Fill, error) {
	return nil, errors.New("router down")
}

func TestManager_SellFailureHolds(t *testing.T) {
	prices := newFakePrices()
	store := memory.NewPositionStore()
	paper := trader.NewPaperTrader(prices, zerolog.Nop())
	m := NewManager(managerConfig(), store, &brokenSellTrader{Trader: paper}, prices, nil, zerolog.Nop())
	ctx := context.Background()
	prices.set("MintA", 1.0)

	if _, err := m.OpenPosition(ctx, &domain.Candidate{Mint: "MintA"}); err != nil {
		t.Fatal(err)
	}

	// Stop-loss qualifies but the sell fails: hold, retry next tick.
	prices.set("MintA", 0.5)
	m.Tick(ctx, time.Now())

	if _, err := store.GetOpenByMint(ctx, "MintA"); err != nil {
		t.Error("position must stay open when the sell fails")
	}
}
