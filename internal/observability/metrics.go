// Package observability holds the Prometheus collectors shared across the
// pipeline. All collectors are registered on the default registry; cmd/sniper
// exposes them on /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CandidatesDiscovered counts raw records received per discovery source.
	CandidatesDiscovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_candidates_discovered_total",
		Help: "Raw token records received from discovery sources.",
	}, []string{"source"})

	// SanitizeRejects counts records dropped before the queue.
	SanitizeRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_sanitize_rejects_total",
		Help: "Discovery records rejected by the sanitizer.",
	}, []string{"reason"})

	// QueueDepth tracks candidates currently awaiting evaluation.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sniper_queue_depth",
		Help: "Candidates currently in the evaluation queue.",
	})

	// QueueDropped counts candidates dropped by the full queue.
	QueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sniper_queue_dropped_total",
		Help: "Candidates dropped because the evaluation queue was full.",
	})

	// StageRejects counts evaluation rejects per stage and reason.
	StageRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_stage_rejects_total",
		Help: "Candidates rejected per evaluation stage and reason.",
	}, []string{"stage", "reason"})

	// GateDecisions counts gate verdicts.
	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_gate_decisions_total",
		Help: "ML gate verdicts.",
	}, []string{"decision"})

	// GateProbability observes the gate score distribution.
	GateProbability = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sniper_gate_probability",
		Help:    "Probability assigned by the ML gate.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	// PositionsOpened counts successful entries.
	PositionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sniper_positions_opened_total",
		Help: "Positions opened.",
	})

	// PositionsClosed counts exits per reason.
	PositionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_positions_closed_total",
		Help: "Positions closed per exit reason.",
	}, []string{"reason"})

	// OpenPositions tracks currently held positions.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sniper_open_positions",
		Help: "Positions currently open.",
	})

	// PriceFetchFailures counts failed price lookups during ticks.
	PriceFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sniper_price_fetch_failures_total",
		Help: "Price lookups that failed during position ticks.",
	})

	// RetrainRuns counts retrain cycles per result.
	RetrainRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_retrain_runs_total",
		Help: "Retrain cycles per result.",
	}, []string{"result"})

	// LabelsAssigned counts labeler verdicts per outcome.
	LabelsAssigned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_labels_assigned_total",
		Help: "Outcome labels assigned per verdict.",
	}, []string{"outcome"})
)
