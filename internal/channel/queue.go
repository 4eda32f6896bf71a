package channel

import (
	"context"
	"errors"
	"sync"

	"cdcflow/apierr"
	"cdcflow/logger"
)

// ErrClosed is returned by Push after Close, and by Pop once a closed queue
// has been drained.
var ErrClosed = errors.New("queue closed")

type QueueStats struct {
	Pushed   int64
	Popped   int64
	Rejected int64
}

// Queue is an unbounded FIFO with a single logical consumer. Push never
// blocks; Pop blocks until an item arrives, the queue is closed and drained,
// or ctx is done.
type Queue[T any] struct {
	name   string
	mu     sync.Mutex
	items  []T
	closed bool
	notify chan struct{}
	done   chan struct{}
	stats  QueueStats
	log    *logger.Log
}

func NewQueue[T any](name string) *Queue[T] {
	return &Queue[T]{
		name:   name,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		log:    logger.GetLogger(),
	}
}

// Push appends v. It fails with a SendFailure wrapping ErrClosed once the
// queue is closed.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	if q.closed {
		q.stats.Rejected++
		q.mu.Unlock()
		return apierr.Send(ErrClosed)
	}
	q.items = append(q.items, v)
	q.stats.Pushed++
	q.mu.Unlock()
	logger.RecordChannelMessage(q.name, 0)

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			q.stats.Popped++
			q.mu.Unlock()
			return v, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return zero, ErrClosed
		}

		select {
		case <-q.notify:
		case <-q.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Close stops accepting items. Items already queued remain poppable.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	stats := q.stats
	pending := len(q.items)
	q.mu.Unlock()
	close(q.done)

	q.log.WithComponent("queue").WithFields(logger.Fields{
		"queue":    q.name,
		"pushed":   stats.Pushed,
		"popped":   stats.Popped,
		"rejected": stats.Rejected,
		"pending":  pending,
	}).Debug("queue closed")
}

func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

func (q *Queue[T]) Name() string { return q.name }
