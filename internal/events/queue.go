package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"asset-rental-backend/internal/logger"
)

var ErrQueueFull = errors.New("event queue is full")

// Queue delivers events to the handler from a pool of worker goroutines.
// Handler failures are retried with quadratic backoff, then logged and dropped.
// Follow-up events are processed by the same worker, each with its own retries.
type Queue struct {
	handler    Handler
	jobs       chan Event
	workers    int
	maxRetries int
	retryDelay time.Duration
	wg         sync.WaitGroup
}

func NewQueue(h Handler, workers, bufferSize, maxRetries int, retryDelay time.Duration) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		handler:    h,
		jobs:       make(chan Event, bufferSize),
		workers:    workers,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Start launches the workers. They stop when ctx is cancelled or Close drains
// the queue.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	logger.Debug("Event worker started", "worker", id)

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Event worker stopping", "worker", id)
			return
		case e, ok := <-q.jobs:
			if !ok {
				return
			}
			q.process(ctx, e)
		}
	}
}

func (q *Queue) process(ctx context.Context, e Event) {
	pending := []Event{e}
	for len(pending) > 0 && ctx.Err() == nil {
		next := pending[0]
		pending = pending[1:]
		followUps, ok := q.deliver(ctx, next)
		if ok {
			pending = append(pending, followUps...)
		}
	}
}

// deliver runs the handler for one event until it succeeds or the retries
// are spent.
func (q *Queue) deliver(ctx context.Context, e Event) ([]Event, bool) {
	for attempt := 0; ; attempt++ {
		followUps, err := q.handler.Handle(ctx, e)
		if err == nil {
			return followUps, true
		}
		if attempt >= q.maxRetries {
			logger.Error("Event handling failed, giving up", "kind", e.Kind(), "attempts", attempt+1, "error", err)
			return nil, false
		}
		backoff := time.Duration((attempt+1)*(attempt+1)) * q.retryDelay
		logger.Warn("Event handling failed, retrying", "kind", e.Kind(), "attempt", attempt+1, "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(backoff):
		}
	}
}

// Publish enqueues without blocking.
func (q *Queue) Publish(_ context.Context, e Event) error {
	select {
	case q.jobs <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for queued ones to finish.
func (q *Queue) Close() {
	close(q.jobs)
	q.wg.Wait()
}
