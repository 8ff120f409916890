// Package config loads service configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every recognized option. Defaults are tuned for mainnet
// memecoin pairs and can all be overridden via environment variables.
type Config struct {
	// Mode
	DryRun         bool
	TradeAmountSOL float64 // 0 forces paper mode
	LogLevel       string

	// Pipeline
	QueueCapacity   int
	EvalWorkers     int
	DiscoveryWSURL  string
	TickInterval    time.Duration
	WalletPublicKey string

	// Hard filters
	MaxAgeDays      float64
	MinHolders      int
	MinLiquidityUSD float64
	MinVolumeUSD24h float64
	MaxVolumeUSD24h float64
	MinMarketCapUSD float64
	MaxMarketCapUSD float64
	BannedCreators  []string

	// Soft score
	MinScoreTotal int

	// ML gate / retraining
	AIThreshold        float64 // initial threshold until an artifact loads
	MinThresholdChange float64 // hysteresis band for threshold swaps
	MinAUCDelta        float64 // required improvement to deploy a new model
	RetrainDay         time.Weekday
	RetrainHour        int
	RetrainWindowDays  int

	// Exits
	TakeProfitPct         float64
	StopLossPct           float64
	TrailingPct           float64
	TrailingActivationPct float64
	MaxHoldingHours       int

	// Labeling
	WinPct      float64 // PnL% counted as a win
	LabelGraceH int

	// Position polling
	PriceFetchRetries       int
	PriceFetchBackoff       time.Duration
	PriceFailAlertThreshold int

	// External services
	DexScreenerAPI string
	RugCheckAPI    string
	RugCheckKey    string
	HeliusAPI      string
	HeliusKey      string // empty disables the creator-cluster signal

	// Storage
	PostgresDSN   string
	ClickHouseDSN string

	// Observability
	MetricsAddr string
}

// Load reads .env (if present) and the environment. Missing keys fall back
// to defaults; malformed numeric values are an error rather than a silent
// default, so a typo in production config fails fast.
func Load() (*Config, error) {
	_ = godotenv.Load() // absence of .env is fine

	cfg := &Config{
		DryRun:          envBool("DRY_RUN", false),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		DiscoveryWSURL:  envStr("DISCOVERY_WS_URL", ""),
		WalletPublicKey: envStr("SOL_PUBLIC_KEY", ""),
		DexScreenerAPI:  envStr("DEXSCREENER_API", "https://api.dexscreener.com"),
		RugCheckAPI:     envStr("RUGCHECK_API_BASE", "https://api.rugcheck.xyz/v1"),
		RugCheckKey:     envStr("RUGCHECK_API_KEY", ""),
		HeliusAPI:       envStr("HELIUS_RPC_URL", "https://mainnet.helius-rpc.com"),
		HeliusKey:       envStr("HELIUS_API_KEY", ""),
		PostgresDSN:     envStr("POSTGRES_DSN", ""),
		ClickHouseDSN:   envStr("CLICKHOUSE_DSN", ""),
		MetricsAddr:     envStr("METRICS_ADDR", ":9090"),
	}

	var err error
	load := func(dst *float64, key string, def float64) {
		if err == nil {
			*dst, err = envFloat(key, def)
		}
	}
	loadInt := func(dst *int, key string, def int) {
		if err == nil {
			*dst, err = envInt(key, def)
		}
	}

	load(&cfg.TradeAmountSOL, "TRADE_AMOUNT_SOL", 0.1)
	loadInt(&cfg.QueueCapacity, "QUEUE_CAPACITY", 256)
	loadInt(&cfg.EvalWorkers, "EVAL_WORKERS", 4)

	load(&cfg.MaxAgeDays, "MAX_AGE_DAYS", 2)
	loadInt(&cfg.MinHolders, "MIN_HOLDERS", 10)
	load(&cfg.MinLiquidityUSD, "MIN_LIQUIDITY_USD", 5000)
	load(&cfg.MinVolumeUSD24h, "MIN_VOL_USD_24H", 10000)
	load(&cfg.MaxVolumeUSD24h, "MAX_24H_VOLUME", 1500000)
	load(&cfg.MinMarketCapUSD, "MIN_MARKET_CAP_USD", 10000)
	load(&cfg.MaxMarketCapUSD, "MAX_MARKET_CAP_USD", 5000000)
	loadInt(&cfg.MinScoreTotal, "MIN_SCORE_TOTAL", 50)

	load(&cfg.AIThreshold, "AI_THRESHOLD", 0.1)
	load(&cfg.MinThresholdChange, "MIN_THRESHOLD_CHANGE", 0.01)
	load(&cfg.MinAUCDelta, "MIN_AUC_DELTA", 0.005)
	var retrainDay int
	loadInt(&retrainDay, "RETRAIN_DAY", int(time.Sunday))
	loadInt(&cfg.RetrainHour, "RETRAIN_HOUR", 4)
	loadInt(&cfg.RetrainWindowDays, "RETRAIN_WINDOW_DAYS", 30)

	load(&cfg.TakeProfitPct, "TAKE_PROFIT_PCT", 80)
	load(&cfg.StopLossPct, "STOP_LOSS_PCT", 35)
	load(&cfg.TrailingPct, "TRAILING_PCT", 25)
	load(&cfg.TrailingActivationPct, "TRAILING_ACTIVATION_PCT", 10)
	loadInt(&cfg.MaxHoldingHours, "MAX_HOLDING_H", 6)

	load(&cfg.WinPct, "WIN_PCT", 30)
	loadInt(&cfg.LabelGraceH, "LABEL_GRACE_H", 2)

	loadInt(&cfg.PriceFetchRetries, "PRICE_FETCH_RETRIES", 3)
	loadInt(&cfg.PriceFailAlertThreshold, "PRICE_FAIL_ALERT_THRESHOLD", 5)

	if err != nil {
		return nil, err
	}

	if retrainDay < 0 || retrainDay > 6 {
		return nil, fmt.Errorf("RETRAIN_DAY out of range: %d", retrainDay)
	}
	cfg.RetrainDay = time.Weekday(retrainDay)

	tickSec, err := envInt("TICK_INTERVAL_SECONDS", 3)
	if err != nil {
		return nil, err
	}
	cfg.TickInterval = time.Duration(tickSec) * time.Second

	backoffMs, err := envInt("PRICE_FETCH_BACKOFF_MS", 500)
	if err != nil {
		return nil, err
	}
	cfg.PriceFetchBackoff = time.Duration(backoffMs) * time.Millisecond

	cfg.BannedCreators = splitCSV(os.Getenv("BANNED_CREATORS"))

	// A zero trade size always means paper trading, matching --dry-run.
	if cfg.TradeAmountSOL <= 0 {
		cfg.DryRun = true
	}
	return cfg, nil
}

// Paper reports whether the trader should simulate fills.
func (c *Config) Paper() bool {
	return c.DryRun || c.TradeAmountSOL <= 0
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE":
		return true
	case "0", "false", "FALSE":
		return false
	}
	return def
}

func envFloat(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, raw, err)
	}
	return v, nil
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, raw, err)
	}
	return v, nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			if part := raw[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
