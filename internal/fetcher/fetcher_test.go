package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestDexScreener_SnapshotPicksMostLiquidPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[
			{"priceUsd":"0.5","liquidity":{"usd":1000},"volume":{"h24":5000}},
			{"priceUsd":"1.25","liquidity":{"usd":90000},"volume":{"h24":40000},
			 "marketCap":200000,"pairCreatedAt":1700000000000,
			 "info":{"websites":[{"url":"https://x.test"}],"socials":[{"type":"twitter","url":"t"}]}}
		]}`))
	}))
	defer server.Close()

	c := NewDexScreenerClient(server.URL, zerolog.Nop())
	snap, err := c.Snapshot(context.Background(), "MintA")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.PriceUSD != 1.25 {
		t.Errorf("PriceUSD = %v, want most liquid pair's 1.25", snap.PriceUSD)
	}
	if snap.Volume24hUSD != 40000 || snap.MarketCapUSD != 200000 {
		t.Errorf("snapshot = %+v", snap)
	}
	if !snap.HasWebsite || !snap.HasTwitter || snap.HasDiscord {
		t.Errorf("socials = %+v", snap)
	}
	if snap.PairCreated.IsZero() {
		t.Error("PairCreated not set")
	}
}

func TestDexScreener_PrefersSOLQuotedPair(t *testing.T) {
	// A deeper USDC arbitrage pool must not shadow the SOL launch pool.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[
			{"priceUsd":"1.30","liquidity":{"usd":250000},
			 "quoteToken":{"address":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"}},
			{"priceUsd":"1.25","liquidity":{"usd":90000},"priceChange":{"m5":4.2},
			 "quoteToken":{"address":"So11111111111111111111111111111111111111112"}}
		]}`))
	}))
	defer server.Close()

	c := NewDexScreenerClient(server.URL, zerolog.Nop())
	snap, err := c.Snapshot(context.Background(), "MintA")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.PriceUSD != 1.25 {
		t.Errorf("PriceUSD = %v, want SOL pair's 1.25", snap.PriceUSD)
	}
	if snap.PricePct5m != 4.2 {
		t.Errorf("PricePct5m = %v, want 4.2", snap.PricePct5m)
	}
}

func TestDexScreener_Trend(t *testing.T) {
	cases := []struct {
		change float64
		want   int
	}{
		{5.0, 1},
		{-3.5, -1},
		{0.8, 0},
	}
	for _, tt := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"pairs":[{"priceUsd":"1.0","liquidity":{"usd":1000},"priceChange":{"m5":%g}}]}`, tt.change)
		}))

		c := NewDexScreenerClient(server.URL, zerolog.Nop())
		got, err := c.Trend(context.Background(), "MintA")
		server.Close()
		if err != nil {
			t.Fatalf("Trend(%v): %v", tt.change, err)
		}
		if got != tt.want {
			t.Errorf("Trend with m5=%v = %d, want %d", tt.change, got, tt.want)
		}
	}
}

func TestDexScreener_NoPairsIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[]}`))
	}))
	defer server.Close()

	c := NewDexScreenerClient(server.URL, zerolog.Nop())
	if _, err := c.Price(context.Background(), "MintA"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestDexScreener_ServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewDexScreenerClient(server.URL, zerolog.Nop())
	if _, err := c.Snapshot(context.Background(), "MintA"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestRugCheck_Score(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"score_normalised":85}`))
	}))
	defer server.Close()

	c := NewRugCheckClient(server.URL, "key123", zerolog.Nop())
	score, err := c.Score(context.Background(), "MintA")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score != 85 {
		t.Errorf("score = %d, want 85", score)
	}
}

func TestRugCheck_UnknownMintScoresZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewRugCheckClient(server.URL, "", zerolog.Nop())
	score, err := c.Score(context.Background(), "MintA")
	if err != nil {
		t.Fatalf("404 must not be an error, got %v", err)
	}
	if score != 0 {
		t.Errorf("score = %d, want 0", score)
	}
}

func TestRugCheck_ServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewRugCheckClient(server.URL, "", zerolog.Nop())
	if _, err := c.Score(context.Background(), "MintA"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestRugCheck_MintRenounced(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch r.URL.Path {
		case "/tokens/MintA/report":
			w.Write([]byte(`{"score_normalised":85,"mintAuthority":null}`))
		case "/tokens/MintB/report":
			w.Write([]byte(`{"score_normalised":40,"mintAuthority":"9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := NewRugCheckClient(server.URL, "", zerolog.Nop())
	ctx := context.Background()

	renounced, err := c.MintRenounced(ctx, "MintA")
	if err != nil {
		t.Fatalf("MintRenounced: %v", err)
	}
	if !renounced {
		t.Error("null mint authority must report renounced")
	}

	// The same evaluation's Score call reuses the fetched report.
	if score, err := c.Score(ctx, "MintA"); err != nil || score != 85 {
		t.Fatalf("Score = %d, %v", score, err)
	}
	if calls != 1 {
		t.Errorf("report fetched %d times for one mint, want 1", calls)
	}

	if renounced, err = c.MintRenounced(ctx, "MintB"); err != nil || renounced {
		t.Errorf("live mint authority: renounced = %v, err = %v", renounced, err)
	}
	if renounced, err = c.MintRenounced(ctx, "MintC"); err != nil || renounced {
		t.Errorf("unknown mint: renounced = %v, err = %v", renounced, err)
	}
}

// heliusStub answers getTokenLargestAccounts and getTokenSupply with fixed
// amounts.
func heliusStub(t *testing.T, topAmounts []string, supply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api-key") != "key123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch req.Method {
		case "getTokenLargestAccounts":
			fmt.Fprint(w, `{"result":{"value":[`)
			for i, a := range topAmounts {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"amount":%q}`, a)
			}
			fmt.Fprint(w, `]}}`)
		case "getTokenSupply":
			fmt.Fprintf(w, `{"result":{"value":{"amount":%q}}}`, supply)
		default:
			fmt.Fprint(w, `{"error":{"message":"unknown method"}}`)
		}
	}))
}

func TestHelius_SuspiciousOnConcentratedSupply(t *testing.T) {
	// Top holders own 30% of a 1M supply, over the 20% bound.
	server := heliusStub(t, []string{"200000", "100000"}, "1000000")
	defer server.Close()

	c := NewHeliusClient(server.URL, "key123", zerolog.Nop())
	bad, err := c.Suspicious(context.Background(), "MintA", "CreatorWallet")
	if err != nil {
		t.Fatalf("Suspicious: %v", err)
	}
	if !bad {
		t.Error("30% in top holders must flag as a cluster")
	}
}

func TestHelius_HealthyDistributionIsClean(t *testing.T) {
	server := heliusStub(t, []string{"50000", "30000"}, "1000000")
	defer server.Close()

	c := NewHeliusClient(server.URL, "key123", zerolog.Nop())
	bad, err := c.Suspicious(context.Background(), "MintA", "CreatorWallet")
	if err != nil {
		t.Fatalf("Suspicious: %v", err)
	}
	if bad {
		t.Error("8% in top holders must not flag")
	}
}

func TestHelius_ZeroSupplyIsClean(t *testing.T) {
	server := heliusStub(t, []string{"100"}, "0")
	defer server.Close()

	c := NewHeliusClient(server.URL, "key123", zerolog.Nop())
	if bad, err := c.Suspicious(context.Background(), "MintA", ""); err != nil || bad {
		t.Errorf("zero supply: bad = %v, err = %v", bad, err)
	}
}

func TestHelius_ServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewHeliusClient(server.URL, "key123", zerolog.Nop())
	if _, err := c.Suspicious(context.Background(), "MintA", "CreatorWallet"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}
