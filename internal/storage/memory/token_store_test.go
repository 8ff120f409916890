package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

func TestTokenStore_UpsertKeepsDiscovery(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()
	first := time.Now().Add(-time.Hour)

	c := &domain.Candidate{
		Mint:          "mint1",
		Symbol:        "TST",
		DiscoveredVia: domain.SourcePumpFun,
		DiscoveredAt:  first,
		LiquidityUSD:  1000,
	}
	if err := store.Upsert(ctx, c); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Re-discovery via another source refreshes the snapshot but keeps the
	// original discovery metadata.
	c2 := &domain.Candidate{
		Mint:          "mint1",
		Symbol:        "TST",
		DiscoveredVia: domain.SourceDexScreener,
		DiscoveredAt:  time.Now(),
		LiquidityUSD:  9000,
	}
	if err := store.Upsert(ctx, c2); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.GetByMint(ctx, "mint1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if got.DiscoveredVia != domain.SourcePumpFun {
		t.Errorf("DiscoveredVia = %s, want PUMPFUN", got.DiscoveredVia)
	}
	if got.LiquidityUSD != 9000 {
		t.Errorf("LiquidityUSD = %v, want 9000", got.LiquidityUSD)
	}
}

func TestTokenStore_Seen(t *testing.T) {
	store := NewTokenStore()
	ctx := context.Background()

	seen, err := store.Seen(ctx, "mint1")
	if err != nil || seen {
		t.Fatalf("Seen = %v, %v; want false, nil", seen, err)
	}

	if err := store.Upsert(ctx, &domain.Candidate{Mint: "mint1"}); err != nil {
		t.Fatal(err)
	}
	seen, err = store.Seen(ctx, "mint1")
	if err != nil || !seen {
		t.Errorf("Seen = %v, %v; want true, nil", seen, err)
	}
}

func TestTokenStore_NotFound(t *testing.T) {
	store := NewTokenStore()

	if _, err := store.GetByMint(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
