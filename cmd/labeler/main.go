// Package main runs the outcome labeler on its own, for deployments that
// label from a separate process or a cron slot.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/config"
	"solana-sniper/internal/labeler"
	"solana-sniper/internal/storage"
	"solana-sniper/internal/storage/clickhouse"
	"solana-sniper/internal/storage/memory"
	"solana-sniper/internal/storage/migrations"
	"solana-sniper/internal/storage/postgres"
)

func main() {
	once := flag.Bool("once", false, "Run a single labeling pass and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		errLog := zerolog.New(os.Stderr)
		errLog.Fatal().Err(err).Msg("load config")
	}

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	positions, features, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("storage init")
	}
	defer cleanup()

	lab := labeler.New(cfg, positions, features, log)

	if *once {
		if err := lab.RunOnce(ctx, time.Now()); err != nil {
			log.Fatal().Err(err).Msg("labeling pass failed")
		}
		lab.Summarize(ctx, time.Now())
		return
	}

	if err := lab.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("labeler stopped")
	}
}

// buildStores connects the two backends the labeler needs. Both DSNs are
// required for a standalone run; in-memory stores would label nothing.
func buildStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.PositionStore, storage.FeatureStore, func(), error) {
	if cfg.PostgresDSN == "" || cfg.ClickHouseDSN == "" {
		log.Warn().Msg("missing DSNs, using in-memory stores (labels will not persist)")
		return memory.NewPositionStore(), memory.NewFeatureStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return postgres.NewPositionStore(pool), clickhouse.NewFeatureStore(conn), cleanup, nil
}
