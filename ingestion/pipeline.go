package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/stashd/stash/ai"
	"github.com/stashd/stash/core"
	"github.com/stashd/stash/fetch"
	"github.com/stashd/stash/storage"
)

// DefaultWorkerCount is how many bookmarks are processed in parallel.
// Fetching and AI calls are I/O-bound, so a small fixed pool keeps load on
// the page being fetched and the AI backend predictable.
const DefaultWorkerCount = 3

// Pipeline orchestrates asynchronous bookmark processing. Saving a bookmark
// enqueues a job; pool workers drain the queue and run each bookmark
// through acquisition, analysis, embedding, and indexing.
type Pipeline struct {
	bookmarks   storage.BookmarkRepository
	collections storage.CollectionRepository
	provider    ai.AIProvider
	fetcher     fetch.Fetcher
	queue       Queue
	pool        *ants.Pool
	workers     int
	logger      *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithWorkerCount sets the number of concurrent workers.
// Default is DefaultWorkerCount.
func WithWorkerCount(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			n = 1
		}
		p.workers = n
		return nil
	}
}

// WithQueue sets the job queue. Default is an in-process MemoryQueue; use
// a RedisQueue when workers run in a separate process.
func WithQueue(queue Queue) Option {
	return func(p *Pipeline) error {
		if queue == nil {
			return errors.New("queue cannot be nil")
		}
		p.queue = queue
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	bookmarks storage.BookmarkRepository,
	collections storage.CollectionRepository,
	provider ai.AIProvider,
	fetcher fetch.Fetcher,
	opts ...Option,
) (*Pipeline, error) {
	if bookmarks == nil {
		return nil, ErrBookmarkRepositoryRequired
	}
	if collections == nil {
		return nil, ErrCollectionRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}

	p := &Pipeline{
		bookmarks:   bookmarks,
		collections: collections,
		provider:    provider,
		fetcher:     fetcher,
		workers:     DefaultWorkerCount,
		logger:      slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if p.queue == nil {
		p.queue = NewMemoryQueue()
	}

	pool, err := ants.NewPool(p.workers)
	if err != nil {
		return nil, err
	}
	p.pool = pool

	return p, nil
}

// Start launches the worker loops. Workers run until Release is called or
// the context is canceled.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		if err := p.pool.Submit(func() {
			defer p.wg.Done()
			p.workerLoop(ctx)
		}); err != nil {
			p.wg.Done()
			cancel()
			return err
		}
	}

	p.logger.Info("pipeline started", "workers", p.workers)
	return nil
}

// Enqueue submits a saved bookmark for asynchronous processing.
func (p *Pipeline) Enqueue(ctx context.Context, bookmark *core.Bookmark) error {
	return p.queue.Enqueue(ctx, Job{
		BookmarkID:             bookmark.Id,
		URL:                    bookmark.URL,
		HasPreExtractedContent: bookmark.HasContent(),
	})
}

// workerLoop drains the queue until the context is canceled or the queue
// closes.
func (p *Pipeline) workerLoop(ctx context.Context) {
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, ErrQueueClosed) {
				p.logger.Error("dequeue failed, worker exiting", "err", err)
			}
			return
		}
		p.handleJob(ctx, job)
	}
}

// handleJob runs one job and settles it with the queue. A processing error
// requeues the job with backoff; once its attempts are exhausted the
// bookmark is marked failed.
func (p *Pipeline) handleJob(ctx context.Context, job Job) {
	err := p.processJob(ctx, job)
	if err == nil {
		if ackErr := p.queue.Ack(ctx, job); ackErr != nil {
			p.logger.Error("failed to ack job", "bookmark", job.BookmarkID, "err", ackErr)
		}
		return
	}

	if errors.Is(err, storage.ErrNotFound) {
		// Bookmark was deleted while queued; nothing to retry
		p.logger.Debug("dropping job for deleted bookmark", "bookmark", job.BookmarkID)
		p.queue.Ack(ctx, job)
		return
	}

	p.logger.Warn("bookmark processing failed",
		"bookmark", job.BookmarkID,
		"url", job.URL,
		"attempt", job.Attempts,
		"err", err)

	// The bookmark shows as failed between redeliveries; a redelivered
	// job moves it back to processing.
	p.markFailed(ctx, job.BookmarkID)

	requeued, nackErr := p.queue.Nack(ctx, job)
	if nackErr != nil {
		p.logger.Error("failed to nack job", "bookmark", job.BookmarkID, "err", nackErr)
	}
	if requeued {
		p.logger.Debug("job requeued for retry", "bookmark", job.BookmarkID, "attempt", job.Attempts)
	}
}

// markFailed transitions a bookmark to the failed state.
func (p *Pipeline) markFailed(ctx context.Context, id core.ID) {
	_, err := p.bookmarks.PatchBookmark(ctx, id, func(b *core.Bookmark) error {
		if !core.CanTransition(b.Status, core.StatusFailed) {
			return core.ErrInvalidTransition
		}
		b.Status = core.StatusFailed
		return nil
	})
	if err != nil {
		p.logger.Error("failed to mark bookmark failed", "bookmark", id, "err", err)
		return
	}
	p.logger.Info("bookmark marked failed", "bookmark", id)
}

// Release stops the workers and closes the queue. The pipeline should not
// be used after calling Release.
func (p *Pipeline) Release() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	p.queue.Close()
	p.wg.Wait()
	p.pool.Release()
}
