package queue

/*------------------------------------------------------------------
 *
 * Purpose:   	Unbounded FIFO between goroutines.
 *
 * Description: Audio callbacks must never block, so the producer side
 *		only appends under a mutex and pokes a wake-up channel.
 *		The consumer sleeps on that channel when the queue is empty.
 *
 *		Capture to control carries chunks of received audio,
 *		control to playback carries complete transmissions.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("queue closed")

type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool

	wake   chan struct{} // Notify a waiting consumer when queue not empty.
	closeC chan struct{}
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		wake:   make(chan struct{}, 1),
		closeC: make(chan struct{}),
	}
}

// Put appends v.  It never blocks.  After Close it fails with ErrClosed.
func (q *Queue[T]) Put(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.poke()
	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:        Get
 *
 * Purpose:     Take the oldest item, waiting for one if necessary.
 *
 * Returns:	The item, or ctx.Err() if the context ends first, or
 *		ErrClosed once the queue is closed and drained.
 *
 *--------------------------------------------------------------------*/

func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	for {
		if v, ok, err := q.take(); ok || err != nil {
			return v, err
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.wake:
		case <-q.closeC:
		}
	}
}

// TryGet takes the oldest item without waiting.
func (q *Queue[T]) TryGet() (T, bool) {
	var v, ok, _ = q.take()
	return v, ok
}

func (q *Queue[T]) take() (T, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		if q.closed {
			return zero, false, ErrClosed
		}
		return zero, false, nil
	}

	var v = q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.poke()
	}
	return v, true, nil
}

func (q *Queue[T]) poke() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Len is the number of items waiting.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops further Puts.  Items already queued can still be taken.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.closeC)
}
