// Package queue buffers deferred project index work between the goroutine
// that discovers files and the worker that extracts their symbols.
package queue

import (
	"context"
	"io"
	"sync"
	"time"

	"scopeindex/internal/core/ports"
)

var _ ports.IndexQueuePort = (*MemoryQueue)(nil)

type jobKey struct {
	kind ports.IndexJobKind
	path string
}

// MemoryQueue is a bounded channel-backed IndexQueuePort. A job whose kind
// and path are already waiting is coalesced into the pending one. Jobs
// enqueued after Close are dropped; DequeueBatch reports io.EOF once the
// queue is closed and drained.
type MemoryQueue struct {
	ch chan ports.IndexJob

	mu      sync.Mutex
	closed  bool
	pending map[jobKey]struct{}
	stats   Stats
}

// Stats counts enqueue outcomes since the queue was created.
type Stats struct {
	Accepted  uint64
	Coalesced uint64
	Dropped   uint64
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryQueue{
		ch:      make(chan ports.IndexJob, capacity),
		pending: make(map[jobKey]struct{}, capacity),
	}
}

func (q *MemoryQueue) Enqueue(job ports.IndexJob) ports.EnqueueResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.stats.Dropped++
		return ports.EnqueueDropped
	}

	key := jobKey{kind: job.Kind, path: job.Path}
	if _, ok := q.pending[key]; ok {
		q.stats.Coalesced++
		return ports.EnqueueAccepted
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now()
	}
	select {
	case q.ch <- job:
		q.pending[key] = struct{}{}
		q.stats.Accepted++
		return ports.EnqueueAccepted
	default:
		q.stats.Dropped++
		return ports.EnqueueDropped
	}
}

// DequeueBatch waits up to wait for a first job, then takes whatever else is
// immediately available up to maxItems. A non-positive wait never blocks. An
// expired wait returns an empty batch and no error.
func (q *MemoryQueue) DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]ports.IndexJob, error) {
	if maxItems <= 0 {
		maxItems = 1
	}

	first, err := q.first(ctx, wait)
	if err != nil || first == nil {
		return nil, err
	}
	batch := make([]ports.IndexJob, 0, maxItems)
	batch = append(batch, *first)

	for len(batch) < maxItems {
		select {
		case job, ok := <-q.ch:
			if !ok {
				q.release(batch)
				return batch, io.EOF
			}
			batch = append(batch, job)
		default:
			q.release(batch)
			return batch, nil
		}
	}
	q.release(batch)
	return batch, nil
}

func (q *MemoryQueue) first(ctx context.Context, wait time.Duration) (*ports.IndexJob, error) {
	if wait <= 0 {
		select {
		case job, ok := <-q.ch:
			if !ok {
				return nil, io.EOF
			}
			return &job, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			return nil, nil
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case job, ok := <-q.ch:
		if !ok {
			return nil, io.EOF
		}
		return &job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	}
}

func (q *MemoryQueue) release(batch []ports.IndexJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, job := range batch {
		delete(q.pending, jobKey{kind: job.Kind, path: job.Path})
	}
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ch)
	return nil
}

func (q *MemoryQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.ch)
}

func (q *MemoryQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}
