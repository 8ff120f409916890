package gate

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// Decision is the gate's verdict on one candidate.
type Decision struct {
	Admit       bool
	Probability float64
	Threshold   float64
}

// Gate scores candidates against the deployed ModelState. The state is held
// behind an atomic pointer: every evaluation loads exactly one snapshot, so
// the probability and the threshold it is compared against always come from
// the same deployment.
type Gate struct {
	state    atomic.Pointer[domain.ModelState]
	features storage.FeatureStore
	now      func() time.Time
	log      zerolog.Logger
}

// New creates a Gate with no model deployed. Until Swap installs one, the
// gate fails closed.
func New(features storage.FeatureStore, log zerolog.Logger) *Gate {
	return &Gate{
		features: features,
		now:      time.Now,
		log:      log.With().Str("component", "ml_gate").Logger(),
	}
}

// Swap atomically replaces the deployed state. A nil state is ignored.
func (g *Gate) Swap(state *domain.ModelState) {
	if state == nil {
		return
	}
	g.state.Store(state)
	g.log.Info().
		Float64("threshold", state.Threshold).
		Float64("metric", state.Metric).
		Time("trained_at", state.TrainedAt).
		Msg("model state deployed")
}

// State returns the current deployed snapshot, nil before first deploy.
func (g *Gate) State() *domain.ModelState {
	return g.state.Load()
}

// Evaluate scores the candidate and appends exactly one gate-stage feature
// record, admitted or not. With no model deployed the gate fails closed:
// probability 0, discard, record still written.
func (g *Gate) Evaluate(ctx context.Context, c *domain.Candidate) (Decision, error) {
	now := g.now()
	vector := domain.BuildFeatureVector(c, now)

	var d Decision
	if state := g.state.Load(); state != nil {
		d.Probability = state.Model.Predict(vector)
		d.Threshold = state.Threshold
		d.Admit = d.Probability >= state.Threshold
	} else {
		g.log.Warn().Str("mint", c.Mint).Msg("no model deployed, failing closed")
	}

	record := &domain.FeatureRecord{
		Mint:        c.Mint,
		RecordedAt:  now,
		Stage:       domain.StageMLGate,
		Features:    vector,
		Probability: d.Probability,
		Threshold:   d.Threshold,
		Decision:    d.Admit,
	}
	if err := g.features.InsertRecord(ctx, record); err != nil {
		return d, fmt.Errorf("persist gate record: %w", err)
	}

	return d, nil
}
