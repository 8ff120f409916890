package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"solana-sniper/internal/discovery"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/queue"
	"solana-sniper/internal/sanitize"
)

// Engine connects a discovery source to the evaluation workers: raw records
// are sanitized, enqueued, and drained by a fixed worker pool.
type Engine struct {
	source    discovery.Source
	sanitizer *sanitize.Sanitizer
	queue     *queue.Queue
	worker    *Worker
	workers   int
	log       zerolog.Logger
}

// NewEngine creates an Engine with the given worker count.
func NewEngine(source discovery.Source, sanitizer *sanitize.Sanitizer, q *queue.Queue, worker *Worker, workers int, log zerolog.Logger) *Engine {
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		source:    source,
		sanitizer: sanitizer,
		queue:     q,
		worker:    worker,
		workers:   workers,
		log:       log.With().Str("component", "engine").Logger(),
	}
}

// Run pumps the source until ctx is done, then closes the queue and waits for
// the workers to drain it.
func (e *Engine) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := e.source.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			e.log.Error().Err(err).Msg("discovery source stopped")
		}
	}()

	var workerWG sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			for {
				c, ok := e.queue.Dequeue(ctx)
				if !ok {
					return
				}
				observability.QueueDepth.Set(float64(e.queue.Len()))
				e.worker.Evaluate(ctx, c)
			}
		}()
	}

	// The source closes its record channel when Run returns, so this loop
	// ends on cancellation without a second select.
	for raw := range e.source.Records() {
		e.ingest(ctx, raw)
	}

	e.queue.Close()
	workerWG.Wait()
	wg.Wait()
	return ctx.Err()
}

// ingest sanitizes and enqueues one raw record.
func (e *Engine) ingest(ctx context.Context, raw discovery.RawTokenRecord) {
	observability.CandidatesDiscovered.WithLabelValues(raw.Source).Inc()

	c, err := e.sanitizer.Sanitize(ctx, raw)
	if err != nil {
		observability.SanitizeRejects.WithLabelValues(rejectReason(err)).Inc()
		e.log.Debug().Err(err).Str("mint", raw.Mint).Msg("record dropped")
		return
	}

	if err := e.queue.Enqueue(c); err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			observability.QueueDropped.Inc()
			// Allow a later re-discovery to try again.
			e.sanitizer.Release(c.Mint)
		}
		e.log.Warn().Err(err).Str("mint", c.Mint).Msg("enqueue failed")
		return
	}
	observability.QueueDepth.Set(float64(e.queue.Len()))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, sanitize.ErrMalformed):
		return "malformed"
	case errors.Is(err, sanitize.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, sanitize.ErrHeld):
		return "held"
	default:
		return "error"
	}
}
