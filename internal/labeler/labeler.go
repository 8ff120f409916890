// Package labeler resolves position outcomes into training labels once the
// grace period has elapsed.
package labeler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/config"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/storage"
)

const (
	labelInterval   = 10 * time.Minute
	summaryInterval = 7 * 24 * time.Hour
)

// Labeler turns resolved positions into feature labels. Closed positions past
// the grace period are labeled win or fail on realized PnL; open positions
// stuck past the holding limit are force-resolved as fail_timeout.
type Labeler struct {
	positions storage.PositionStore
	features  storage.FeatureStore
	now       func() time.Time
	log       zerolog.Logger

	winPct  float64
	grace   time.Duration
	maxHold time.Duration

	lastSummary time.Time
}

// New creates a Labeler.
func New(cfg *config.Config, positions storage.PositionStore, features storage.FeatureStore, log zerolog.Logger) *Labeler {
	return &Labeler{
		positions: positions,
		features:  features,
		now:       time.Now,
		log:       log.With().Str("component", "labeler").Logger(),
		winPct:    cfg.WinPct,
		grace:     time.Duration(cfg.LabelGraceH) * time.Hour,
		maxHold:   time.Duration(cfg.MaxHoldingHours) * time.Hour,
	}
}

// Run labels on a fixed interval until ctx is done.
func (l *Labeler) Run(ctx context.Context) error {
	ticker := time.NewTicker(labelInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := l.now()
			if err := l.RunOnce(ctx, now); err != nil {
				l.log.Error().Err(err).Msg("labeling pass failed")
			}
			if now.Sub(l.lastSummary) >= summaryInterval {
				l.lastSummary = now
				l.Summarize(ctx, now)
			}
		}
	}
}

// RunOnce performs one labeling pass over closed and stale positions.
func (l *Labeler) RunOnce(ctx context.Context, now time.Time) error {
	if err := l.labelClosed(ctx, now); err != nil {
		return err
	}
	return l.resolveStale(ctx, now)
}

// labelClosed assigns win/fail to closed positions whose grace period has
// elapsed.
func (l *Labeler) labelClosed(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-l.grace)
	closed, err := l.positions.GetUnlabeledClosed(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("load unlabeled positions: %w", err)
	}

	for _, p := range closed {
		pnl := p.PnLPct(p.ClosePriceUSD)
		outcome := domain.OutcomeFail
		var label int8
		if pnl >= l.winPct {
			outcome = domain.OutcomeWin
			label = 1
		}
		if err := l.apply(ctx, p, outcome, pnl, label, now); err != nil {
			l.log.Error().Err(err).Str("mint", p.Mint).Msg("label failed")
		}
	}
	return nil
}

// resolveStale force-resolves open positions held past the limit, which only
// happens when the manager could not exit (crash, dead feed). The close price
// is unknown and recorded as zero.
func (l *Labeler) resolveStale(ctx context.Context, now time.Time) error {
	open, err := l.positions.GetOpen(ctx)
	if err != nil {
		return fmt.Errorf("load open positions: %w", err)
	}

	for _, p := range open {
		if now.Sub(p.OpenedAt) < l.maxHold+l.grace {
			continue
		}
		if err := l.positions.Close(ctx, p.ID, domain.ExitReasonMaxHold, 0, now); err != nil {
			l.log.Error().Err(err).Str("mint", p.Mint).Msg("force close failed")
			continue
		}
		if err := l.apply(ctx, p, domain.OutcomeFailTimeout, 0, 0, now); err != nil {
			l.log.Error().Err(err).Str("mint", p.Mint).Msg("timeout label failed")
		}
	}
	return nil
}

// apply writes the outcome to the position row and appends the feature label.
func (l *Labeler) apply(ctx context.Context, p *domain.Position, outcome string, pnl float64, label int8, now time.Time) error {
	if err := l.positions.SetOutcome(ctx, p.ID, outcome, now); err != nil {
		return fmt.Errorf("set outcome: %w", err)
	}
	if err := l.features.InsertLabel(ctx, &domain.FeatureLabel{
		Mint:      p.Mint,
		LabeledAt: now,
		PnLPct:    pnl,
		Label:     label,
	}); err != nil {
		return fmt.Errorf("insert label: %w", err)
	}

	observability.LabelsAssigned.WithLabelValues(outcome).Inc()
	l.log.Info().
		Str("mint", p.Mint).
		Str("outcome", outcome).
		Float64("pnl_pct", pnl).
		Msg("position labeled")
	return nil
}

// Summarize logs win/fail/timeout shares over the trailing week.
func (l *Labeler) Summarize(ctx context.Context, now time.Time) {
	closed, err := l.positions.GetClosedSince(ctx, now.Add(-summaryInterval))
	if err != nil {
		l.log.Error().Err(err).Msg("summary load failed")
		return
	}

	var wins, fails, timeouts int
	for _, p := range closed {
		switch p.Outcome {
		case domain.OutcomeWin:
			wins++
		case domain.OutcomeFail:
			fails++
		case domain.OutcomeFailTimeout:
			timeouts++
		}
	}
	total := wins + fails + timeouts
	if total == 0 {
		l.log.Info().Msg("no labeled positions in the trailing week")
		return
	}

	l.log.Info().
		Int("labeled", total).
		Float64("win_pct", pct(wins, total)).
		Float64("fail_pct", pct(fails, total)).
		Float64("timeout_pct", pct(timeouts, total)).
		Msg("weekly label summary")
}

func pct(n, total int) float64 {
	return float64(n) / float64(total) * 100
}
