// Package pipeline runs candidates through the evaluation stages and wires
// discovery, sanitization, and the queue into a running engine.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/filter"
	"solana-sniper/internal/gate"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/storage"
)

// Opener executes the entry for an admitted candidate.
type Opener interface {
	OpenPosition(ctx context.Context, c *domain.Candidate) (*domain.Position, error)
}

// Worker evaluates one candidate at a time: hard filter, soft score, ML gate,
// entry. Every evaluated candidate lands in the token store; pre-gate rejects
// leave a feature record so the reject distribution stays analyzable.
type Worker struct {
	tokens   storage.TokenStore
	features storage.FeatureStore
	hard     *filter.HardFilter
	soft     *filter.SoftScorer
	gate     *gate.Gate
	opener   Opener
	now      func() time.Time
	log      zerolog.Logger
}

// NewWorker creates a Worker.
func NewWorker(tokens storage.TokenStore, features storage.FeatureStore, hard *filter.HardFilter, soft *filter.SoftScorer, g *gate.Gate, opener Opener, log zerolog.Logger) *Worker {
	return &Worker{
		tokens:   tokens,
		features: features,
		hard:     hard,
		soft:     soft,
		gate:     g,
		opener:   opener,
		now:      time.Now,
		log:      log.With().Str("component", "pipeline").Logger(),
	}
}

// Evaluate runs the full stage sequence for one candidate. Errors are logged
// and absorbed; a bad candidate never takes the pipeline down.
func (w *Worker) Evaluate(ctx context.Context, c *domain.Candidate) {
	now := w.now()
	defer w.persistToken(ctx, c)

	if v := w.hard.Evaluate(c, now); !v.Pass {
		w.reject(ctx, c, now, "hard_filter", v.Reason)
		return
	}

	if v := w.soft.Evaluate(ctx, c); !v.Pass {
		w.reject(ctx, c, now, "soft_score", v.Reason)
		return
	}

	decision, err := w.gate.Evaluate(ctx, c)
	if err != nil {
		w.log.Error().Err(err).Str("mint", c.Mint).Msg("gate evaluation failed")
		return
	}
	observability.GateProbability.Observe(decision.Probability)
	if !decision.Admit {
		observability.GateDecisions.WithLabelValues("discard").Inc()
		w.log.Debug().
			Str("mint", c.Mint).
			Float64("probability", decision.Probability).
			Float64("threshold", decision.Threshold).
			Msg("gate discarded candidate")
		return
	}
	observability.GateDecisions.WithLabelValues("admit").Inc()

	if _, err := w.opener.OpenPosition(ctx, c); err != nil {
		w.log.Warn().Err(err).Str("mint", c.Mint).Msg("entry failed")
		return
	}
	observability.PositionsOpened.Inc()
}

// reject persists the feature vector of a pre-gate reject and counts it.
func (w *Worker) reject(ctx context.Context, c *domain.Candidate, now time.Time, stage, reason string) {
	observability.StageRejects.WithLabelValues(stage, reason).Inc()
	w.log.Debug().Str("mint", c.Mint).Str("stage", stage).Str("reason", reason).Msg("candidate rejected")

	record := &domain.FeatureRecord{
		Mint:       c.Mint,
		RecordedAt: now,
		Stage:      domain.StageHardFilter,
		Features:   domain.BuildFeatureVector(c, now),
	}
	if err := w.features.InsertRecord(ctx, record); err != nil {
		w.log.Error().Err(err).Str("mint", c.Mint).Msg("persist reject record")
	}
}

// persistToken upserts the candidate snapshot after evaluation so the row
// carries the signal fields the stages filled in.
func (w *Worker) persistToken(ctx context.Context, c *domain.Candidate) {
	if err := w.tokens.Upsert(ctx, c); err != nil {
		w.log.Error().Err(err).Str("mint", c.Mint).Msg("persist token")
	}
}
