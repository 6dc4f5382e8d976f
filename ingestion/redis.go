package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisQueueName = "stash:jobs"

	// How long one BRPOP blocks before the loop re-checks the context and
	// promotes due delayed jobs.
	redisPollInterval = 1 * time.Second

	// How many delayed jobs to promote per pass.
	promoteBatchSize = 16
)

// RedisQueue is a Queue backed by Redis, for deployments where the API
// server and the workers are separate processes. Ready jobs live in a list;
// jobs waiting out a retry backoff live in a sorted set scored by the time
// they become due.
//
// Delivery is at-least-once: a worker crash between Dequeue and Ack loses
// the in-flight job's delivery but a duplicate enqueue is harmless, since
// processing is idempotent per bookmark.
type RedisQueue struct {
	client      *redis.Client
	readyKey    string
	delayedKey  string
	maxAttempts int
	backoffBase time.Duration
	logger      *slog.Logger
}

var _ Queue = (*RedisQueue)(nil)

// RedisQueueOption configures a RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithRedisMaxAttempts sets how many deliveries a job gets before Nack
// drops it.
func WithRedisMaxAttempts(n int) RedisQueueOption {
	return func(q *RedisQueue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

// WithRedisBackoffBase sets the first retry delay.
func WithRedisBackoffBase(d time.Duration) RedisQueueOption {
	return func(q *RedisQueue) {
		if d > 0 {
			q.backoffBase = d
		}
	}
}

// NewRedisQueue creates a Redis-backed job queue under the given name. The
// queue takes ownership of the client and closes it with Close.
func NewRedisQueue(client *redis.Client, name string, opts ...RedisQueueOption) *RedisQueue {
	if name == "" {
		name = defaultRedisQueueName
	}
	q := &RedisQueue{
		client:      client,
		readyKey:    name + ":ready",
		delayedKey:  name + ":delayed",
		maxAttempts: DefaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		logger:      slog.Default().With("component", "redis-queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds a job for processing.
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}
	if err := q.client.LPush(ctx, q.readyKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueuing job: %w", err)
	}
	return nil
}

// Dequeue blocks until a job is available or the context is canceled.
func (q *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}

		q.promoteDue(ctx)

		result, err := q.client.BRPop(ctx, redisPollInterval, q.readyKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // timed out, poll again
			}
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			return Job{}, fmt.Errorf("dequeuing job: %w", err)
		}

		// BRPop returns [key, value]
		var job Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			q.logger.Error("dropping undecodable job", "err", err)
			continue
		}
		job.Attempts++
		return job, nil
	}
}

// promoteDue moves delayed jobs whose backoff has elapsed onto the ready
// list.
func (q *RedisQueue) promoteDue(ctx context.Context) {
	now := float64(time.Now().UnixMilli())
	payloads, err := q.client.ZRangeByScore(ctx, q.delayedKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", now),
		Count: promoteBatchSize,
	}).Result()
	if err != nil || len(payloads) == 0 {
		return
	}

	for _, payload := range payloads {
		// ZRem first so two workers can't both promote the same job
		removed, err := q.client.ZRem(ctx, q.delayedKey, payload).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.readyKey, payload).Err(); err != nil {
			q.logger.Error("failed to promote delayed job", "err", err)
		}
	}
}

// Ack marks a delivered job as done.
func (q *RedisQueue) Ack(ctx context.Context, job Job) error {
	return nil
}

// Nack schedules a failed job for retry with exponential backoff, or drops
// it once its attempts are exhausted.
func (q *RedisQueue) Nack(ctx context.Context, job Job) (bool, error) {
	if job.Attempts >= q.maxAttempts {
		return false, nil
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("marshaling job: %w", err)
	}

	delay := q.backoffBase << (job.Attempts - 1)
	due := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.ZAdd(ctx, q.delayedKey, redis.Z{Score: due, Member: payload}).Err(); err != nil {
		return false, fmt.Errorf("scheduling retry: %w", err)
	}
	return true, nil
}

// Close closes the underlying Redis client.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
