package ingestion

import (
	"context"
	"sync"
	"time"

	"github.com/stashd/stash/core"
)

const (
	// DefaultMaxAttempts is how many times a job is tried before it is
	// given up on and its bookmark marked failed.
	DefaultMaxAttempts = 3

	// defaultBackoffBase is the first retry delay; each further retry
	// doubles it.
	defaultBackoffBase = 2 * time.Second

	defaultQueueCapacity = 256
)

// Job identifies one bookmark waiting to be processed.
type Job struct {
	BookmarkID core.ID `json:"bookmark_id"`
	URL        string  `json:"url"`

	// HasPreExtractedContent is set when the bookmark was saved with
	// content captured client-side (e.g. by a browser extension), letting
	// the pipeline skip the network fetch.
	HasPreExtractedContent bool `json:"has_pre_extracted_content"`

	// Attempts counts how many times this job has been handed to a worker.
	Attempts int `json:"attempts"`
}

// Queue hands bookmark jobs to pipeline workers with at-least-once
// delivery. Implementations must be safe for concurrent use.
type Queue interface {
	// Enqueue adds a job for processing.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue blocks until a job is available, the context is canceled, or
	// the queue is closed. The returned job's Attempts is already
	// incremented for this delivery.
	Dequeue(ctx context.Context) (Job, error)

	// Ack marks a delivered job as done.
	Ack(ctx context.Context, job Job) error

	// Nack reports a failed delivery. The job is requeued with exponential
	// backoff unless its attempts are exhausted; the return value says
	// whether it was requeued.
	Nack(ctx context.Context, job Job) (bool, error)

	// Close shuts the queue down. Blocked Dequeue calls return
	// ErrQueueClosed.
	Close() error
}

// MemoryQueue is an in-process Queue backed by a buffered channel.
// Suitable for single-binary deployments and tests; jobs do not survive a
// restart.
type MemoryQueue struct {
	jobs        chan Job
	done        chan struct{}
	maxAttempts int
	backoffBase time.Duration

	mu     sync.Mutex
	timers []*time.Timer
	closed bool
}

var _ Queue = (*MemoryQueue)(nil)

// MemoryQueueOption configures a MemoryQueue.
type MemoryQueueOption func(*MemoryQueue)

// WithMaxAttempts sets how many deliveries a job gets before Nack drops it.
func WithMaxAttempts(n int) MemoryQueueOption {
	return func(q *MemoryQueue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

// WithBackoffBase sets the first retry delay.
func WithBackoffBase(d time.Duration) MemoryQueueOption {
	return func(q *MemoryQueue) {
		if d > 0 {
			q.backoffBase = d
		}
	}
}

// NewMemoryQueue creates an in-process job queue.
func NewMemoryQueue(opts ...MemoryQueueOption) *MemoryQueue {
	q := &MemoryQueue{
		jobs:        make(chan Job, defaultQueueCapacity),
		done:        make(chan struct{}),
		maxAttempts: DefaultMaxAttempts,
		backoffBase: defaultBackoffBase,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds a job for processing.
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a job is available.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job := <-q.jobs:
		job.Attempts++
		return job, nil
	case <-q.done:
		return Job{}, ErrQueueClosed
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Ack is a no-op: an in-process job is gone once delivered.
func (q *MemoryQueue) Ack(ctx context.Context, job Job) error {
	return nil
}

// Nack requeues a failed job after a backoff delay, or drops it once its
// attempts are exhausted.
func (q *MemoryQueue) Nack(ctx context.Context, job Job) (bool, error) {
	if job.Attempts >= q.maxAttempts {
		return false, nil
	}

	delay := q.backoffBase << (job.Attempts - 1)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false, ErrQueueClosed
	}
	timer := time.AfterFunc(delay, func() {
		select {
		case q.jobs <- job:
		case <-q.done:
		}
	})
	q.timers = append(q.timers, timer)
	return true, nil
}

// Close shuts the queue down, dropping any jobs still waiting on backoff.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	for _, timer := range q.timers {
		timer.Stop()
	}
	close(q.done)
	return nil
}
