package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

func openTestPosition(t *testing.T, store *PositionStore, mint string, openedAt time.Time) *domain.Position {
	t.Helper()
	p := &domain.Position{
		Mint:          mint,
		Symbol:        "TEST",
		SizeSOL:       0.1,
		EntryPriceUSD: 1.0,
		HighWaterUSD:  1.0,
		OpenedAt:      openedAt,
	}
	if err := store.Open(context.Background(), p); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return p
}

func TestPositionStore_OpenAssignsID(t *testing.T) {
	store := NewPositionStore()
	now := time.Now()

	p1 := openTestPosition(t, store, "mint1", now)
	p2 := openTestPosition(t, store, "mint2", now)

	if p1.ID == 0 || p2.ID == 0 {
		t.Fatalf("expected nonzero IDs, got %d and %d", p1.ID, p2.ID)
	}
	if p1.ID == p2.ID {
		t.Errorf("IDs not unique: %d", p1.ID)
	}
	if p1.Status != domain.PositionOpen {
		t.Errorf("Status = %s, want OPEN", p1.Status)
	}
}

func TestPositionStore_OneOpenPerMint(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()
	now := time.Now()

	p := openTestPosition(t, store, "mint1", now)

	// Second open for the same mint should fail.
	err := store.Open(ctx, &domain.Position{Mint: "mint1", EntryPriceUSD: 2.0, OpenedAt: now})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	// After closing, the mint can be re-opened.
	if err := store.Close(ctx, p.ID, domain.ExitReasonTakeProfit, 1.8, now); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Open(ctx, &domain.Position{Mint: "mint1", EntryPriceUSD: 2.0, OpenedAt: now}); err != nil {
		t.Errorf("reopen after close failed: %v", err)
	}
}

func TestPositionStore_CloseLifecycle(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()
	now := time.Now()

	p := openTestPosition(t, store, "mint1", now)

	if err := store.UpdateHighWater(ctx, p.ID, 1.5); err != nil {
		t.Fatalf("UpdateHighWater failed: %v", err)
	}
	// Lower watermark must not regress the stored one.
	if err := store.UpdateHighWater(ctx, p.ID, 1.2); err != nil {
		t.Fatalf("UpdateHighWater failed: %v", err)
	}
	got, err := store.GetOpenByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetOpenByMint failed: %v", err)
	}
	if got.HighWaterUSD != 1.5 {
		t.Errorf("HighWaterUSD = %v, want 1.5", got.HighWaterUSD)
	}

	closedAt := now.Add(time.Hour)
	if err := store.Close(ctx, p.ID, domain.ExitReasonStopLoss, 0.6, closedAt); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Double close should fail.
	if err := store.Close(ctx, p.ID, domain.ExitReasonStopLoss, 0.6, closedAt); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double close, got %v", err)
	}

	if _, err := store.GetOpenByMint(ctx, "mint1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after close, got %v", err)
	}
}

func TestPositionStore_GetUnlabeledClosed(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()
	now := time.Now()

	p1 := openTestPosition(t, store, "mint1", now.Add(-4*time.Hour))
	p2 := openTestPosition(t, store, "mint2", now.Add(-3*time.Hour))
	p3 := openTestPosition(t, store, "mint3", now.Add(-2*time.Hour))

	// p1 closed long ago, p2 closed recently, p3 still open.
	if err := store.Close(ctx, p1.ID, domain.ExitReasonTakeProfit, 2.0, now.Add(-3*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(ctx, p2.ID, domain.ExitReasonStopLoss, 0.5, now.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	_ = p3

	cutoff := now.Add(-2 * time.Hour)
	got, err := store.GetUnlabeledClosed(ctx, cutoff)
	if err != nil {
		t.Fatalf("GetUnlabeledClosed failed: %v", err)
	}
	if len(got) != 1 || got[0].Mint != "mint1" {
		t.Fatalf("expected only mint1, got %d rows", len(got))
	}

	// Once labeled, the row drops out.
	if err := store.SetOutcome(ctx, p1.ID, domain.OutcomeWin, now); err != nil {
		t.Fatalf("SetOutcome failed: %v", err)
	}
	got, err = store.GetUnlabeledClosed(ctx, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no rows after labeling, got %d", len(got))
	}
}

func TestPositionStore_GetOpenOrdering(t *testing.T) {
	store := NewPositionStore()
	ctx := context.Background()
	now := time.Now()

	openTestPosition(t, store, "mint2", now)
	openTestPosition(t, store, "mint1", now.Add(-time.Hour))

	got, err := store.GetOpen(ctx)
	if err != nil {
		t.Fatalf("GetOpen failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 open positions, got %d", len(got))
	}
	if got[0].Mint != "mint1" {
		t.Errorf("expected oldest first, got %s", got[0].Mint)
	}
}
