package retrain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"solana-sniper/internal/config"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/gate"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/storage"
)

// Scheduler retrains weekly and swaps the gate's model state when the new
// model clears the deploy rules. All failures leave the active state alone.
type Scheduler struct {
	features  storage.FeatureStore
	artifacts storage.ArtifactStore
	gate      *gate.Gate
	now       func() time.Time
	log       zerolog.Logger

	day         time.Weekday
	hour        int
	windowDays  int
	minAUCDelta float64
	minThrDelta float64
	initialThr  float64

	lastRun time.Time
}

// NewScheduler creates a Scheduler.
func NewScheduler(cfg *config.Config, features storage.FeatureStore, artifacts storage.ArtifactStore, g *gate.Gate, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		features:    features,
		artifacts:   artifacts,
		gate:        g,
		now:         time.Now,
		log:         log.With().Str("component", "retrain").Logger(),
		day:         cfg.RetrainDay,
		hour:        cfg.RetrainHour,
		windowDays:  cfg.RetrainWindowDays,
		minAUCDelta: cfg.MinAUCDelta,
		minThrDelta: cfg.MinThresholdChange,
		initialThr:  cfg.AIThreshold,
	}
}

// Bootstrap loads the latest persisted artifact into the gate, so a restart
// resumes with the last deployed model and threshold.
func (s *Scheduler) Bootstrap(ctx context.Context) error {
	artifact, err := s.artifacts.Latest(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Msg("no persisted model, gate starts closed")
			return nil
		}
		return fmt.Errorf("load artifact: %w", err)
	}

	threshold := artifact.Threshold
	if threshold <= 0 {
		// Artifacts from before threshold tuning carry no threshold.
		threshold = s.initialThr
	}

	s.gate.Swap(&domain.ModelState{
		Model:     gate.FromArtifact(artifact),
		Threshold: threshold,
		Metric:    artifact.Metric,
		TrainedAt: artifact.GeneratedAt,
	})
	return nil
}

// Run checks the schedule on a coarse ticker until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := s.now().UTC()
			if !s.due(now) {
				continue
			}
			s.lastRun = now
			if err := s.RunOnce(ctx, now); err != nil {
				observability.RetrainRuns.WithLabelValues("failed").Inc()
				s.log.Warn().Err(err).Msg("retrain skipped")
			}
		}
	}
}

// due reports whether the weekly slot has arrived and was not yet served.
func (s *Scheduler) due(now time.Time) bool {
	if now.Weekday() != s.day || now.Hour() != s.hour {
		return false
	}
	return now.Sub(s.lastRun) > 2*time.Hour
}

// RunOnce performs one full retrain cycle: load, split, fit, evaluate,
// decide, deploy, persist.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) error {
	since := now.AddDate(0, 0, -s.windowDays)
	corpus, err := s.features.GetLabeledSince(ctx, since)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	trainSet, holdout := SplitChronological(corpus)
	if len(holdout) == 0 {
		return ErrInsufficientData
	}

	model, err := Train(trainSet)
	if err != nil {
		return err
	}

	probs := make([]float64, len(holdout))
	labels := make([]int8, len(holdout))
	for i, row := range holdout {
		probs[i] = model.Predict(row.Features)
		labels[i] = row.Label
	}
	newAUC := AUC(probs, labels)
	newThreshold := BestF1Threshold(probs, labels)

	active := s.gate.State()
	decision := s.decide(active, newAUC, newThreshold)

	s.log.Info().
		Int("corpus", len(corpus)).
		Float64("auc", newAUC).
		Float64("threshold", newThreshold).
		Bool("deploy_model", decision.deployModel).
		Bool("apply_threshold", decision.applyThreshold).
		Msg("retrain evaluated")

	if !decision.deployModel {
		observability.RetrainRuns.WithLabelValues("skipped").Inc()
		return nil
	}
	observability.RetrainRuns.WithLabelValues("deployed").Inc()

	threshold := newThreshold
	if !decision.applyThreshold && active != nil {
		threshold = active.Threshold
	}

	state := &domain.ModelState{
		Model:     model,
		Threshold: threshold,
		Metric:    newAUC,
		TrainedAt: now,
	}
	s.gate.Swap(state)

	artifact := &domain.ModelArtifact{
		Weights:     model.Weights(),
		Bias:        model.Bias(),
		Threshold:   threshold,
		Metric:      newAUC,
		GeneratedAt: now,
	}
	if err := s.artifacts.Save(ctx, artifact); err != nil {
		return fmt.Errorf("persist artifact: %w", err)
	}
	return nil
}

type deployDecision struct {
	deployModel    bool
	applyThreshold bool
}

// decide applies the deploy rules: a model must beat the active AUC by
// MinAUCDelta, and a threshold change below MinThresholdChange keeps the
// active threshold (hysteresis against drift).
func (s *Scheduler) decide(active *domain.ModelState, newAUC, newThreshold float64) deployDecision {
	if active == nil {
		return deployDecision{deployModel: true, applyThreshold: true}
	}
	if newAUC < active.Metric+s.minAUCDelta {
		return deployDecision{}
	}
	return deployDecision{
		deployModel:    true,
		applyThreshold: math.Abs(newThreshold-active.Threshold) >= s.minThrDelta,
	}
}
