// Package queue provides the bounded evaluation queue between discovery and
// the pipeline workers.
package queue

import (
	"context"
	"errors"
	"sync"

	"solana-sniper/internal/domain"
)

// Enqueue errors.
var (
	// ErrQueueFull is returned when the queue is at capacity. The newest
	// candidate is the one dropped: older candidates are closer to their
	// evaluation deadline and keep priority.
	ErrQueueFull = errors.New("queue full")

	// ErrDuplicateMint is returned when the mint is already enqueued.
	ErrDuplicateMint = errors.New("mint already enqueued")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("queue closed")
)

// Queue is a bounded FIFO of candidates with mint-level dedup.
type Queue struct {
	mu sync.Mutex

	items    chan *domain.Candidate
	members  map[string]struct{}
	capacity int
	closed   bool

	dropped uint64
}

// New creates a queue holding at most capacity candidates.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		items:    make(chan *domain.Candidate, capacity),
		members:  make(map[string]struct{}, capacity),
		capacity: capacity,
	}
}

// Enqueue adds a candidate without blocking. Returns ErrQueueFull,
// ErrDuplicateMint, or ErrClosed when the candidate is not accepted.
func (q *Queue) Enqueue(c *domain.Candidate) error {
	if c == nil || c.Mint == "" {
		return ErrDuplicateMint
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if _, dup := q.members[c.Mint]; dup {
		return ErrDuplicateMint
	}
	if len(q.items) >= q.capacity {
		q.dropped++
		return ErrQueueFull
	}

	q.members[c.Mint] = struct{}{}
	q.items <- c
	return nil
}

// Dequeue blocks until a candidate is available, ctx is done, or the queue
// is closed and drained. The second return is false only on shutdown or
// cancellation.
func (q *Queue) Dequeue(ctx context.Context) (*domain.Candidate, bool) {
	select {
	case c, ok := <-q.items:
		if !ok {
			return nil, false
		}
		q.release(c.Mint)
		return c, true
	case <-ctx.Done():
		return nil, false
	}
}

// Contains reports whether a mint is currently enqueued.
func (q *Queue) Contains(mint string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.members[mint]
	return ok
}

// Len returns the number of queued candidates.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the number of candidates rejected due to a full queue.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close stops accepting new candidates. Queued candidates remain available
// to Dequeue until drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.items)
}

func (q *Queue) release(mint string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.members, mint)
}
