// Package main runs the full sniper: discovery, evaluation pipeline, position
// management, labeling, and weekly retraining in one process.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"solana-sniper/internal/config"
	"solana-sniper/internal/discovery"
	"solana-sniper/internal/fetcher"
	"solana-sniper/internal/filter"
	"solana-sniper/internal/gate"
	"solana-sniper/internal/labeler"
	"solana-sniper/internal/pipeline"
	"solana-sniper/internal/position"
	"solana-sniper/internal/queue"
	"solana-sniper/internal/retrain"
	"solana-sniper/internal/sanitize"
	"solana-sniper/internal/storage"
	"solana-sniper/internal/storage/clickhouse"
	"solana-sniper/internal/storage/memory"
	"solana-sniper/internal/storage/migrations"
	"solana-sniper/internal/storage/postgres"
	"solana-sniper/internal/trader"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Force paper trading regardless of TRADE_AMOUNT_SOL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		errLog := zerolog.New(os.Stderr)
		errLog.Fatal().Err(err).Msg("load config")
	}
	if *dryRun {
		cfg.DryRun = true
	}

	log := newLogger(cfg.LogLevel)
	log.Info().Bool("paper", cfg.Paper()).Str("metrics", cfg.MetricsAddr).Msg("starting sniper")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("storage init")
	}
	defer cleanup()

	q := queue.New(cfg.QueueCapacity)
	sanitizer := sanitize.New(q, stores.positions, stores.tokens)

	dex := fetcher.NewDexScreenerClient(cfg.DexScreenerAPI, log)
	rug := fetcher.NewRugCheckClient(cfg.RugCheckAPI, cfg.RugCheckKey, log)
	var cluster filter.ClusterInspector
	if cfg.HeliusKey != "" {
		cluster = fetcher.NewHeliusClient(cfg.HeliusAPI, cfg.HeliusKey, log)
	} else {
		log.Warn().Msg("HELIUS_API_KEY not set, cluster signal disabled")
	}

	g := gate.New(stores.features, log)
	hard := filter.NewHardFilter(cfg)
	soft := filter.NewSoftScorer(cfg, rug, rug, cluster, dex, dex, nil, log)

	paper := trader.NewPaperTrader(dex, log)
	manager := position.NewManager(cfg, stores.positions, paper, dex, sanitizer, log)

	worker := pipeline.NewWorker(stores.tokens, stores.features, hard, soft, g, manager, log)

	source := discovery.NewWSSource(cfg.DiscoveryWSURL, nil, log)
	engine := pipeline.NewEngine(source, sanitizer, q, worker, cfg.EvalWorkers, log)

	scheduler := retrain.NewScheduler(cfg, stores.features, stores.artifacts, g, log)
	if err := scheduler.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("model bootstrap")
	}

	lab := labeler.New(cfg, stores.positions, stores.features, log)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux()}

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("task", name).Msg("task stopped")
			}
		}()
	}

	run("engine", engine.Run)
	run("positions", manager.Run)
	run("retrain", scheduler.Run)
	run("labeler", lab.Run)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics shutdown")
	}

	wg.Wait()
	log.Info().Msg("stopped")
}

// stores groups the storage interfaces the process runs on.
type stores struct {
	tokens    storage.TokenStore
	positions storage.PositionStore
	features  storage.FeatureStore
	artifacts storage.ArtifactStore
}

// buildStores selects backends by DSN presence: Postgres for transactional
// state, ClickHouse for the feature log, in-memory mirrors when a DSN is
// absent (paper / local runs).
func buildStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, func(), error) {
	s := &stores{
		tokens:    memory.NewTokenStore(),
		positions: memory.NewPositionStore(),
		features:  memory.NewFeatureStore(),
		artifacts: memory.NewArtifactStore(),
	}
	cleanup := func() {}

	if cfg.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		s.tokens = postgres.NewTokenStore(pool)
		s.positions = postgres.NewPositionStore(pool)
		s.artifacts = postgres.NewArtifactStore(pool)
		prev := cleanup
		cleanup = func() { pool.Close(); prev() }
		log.Info().Msg("postgres storage ready")
	} else {
		log.Warn().Msg("POSTGRES_DSN not set, transactional state is in-memory")
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		s.features = clickhouse.NewFeatureStore(conn)
		prev := cleanup
		cleanup = func() { conn.Close(); prev() }
		log.Info().Msg("clickhouse storage ready")
	} else {
		log.Warn().Msg("CLICKHOUSE_DSN not set, feature log is in-memory")
	}

	return s, cleanup, nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
