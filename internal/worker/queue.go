package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize       = 50
	BatchTimeout    = 2 * time.Second
	PollTimeout     = 1 * time.Second // Must be >= 1s to satisfy Redis
	ShutdownTimeout = 5 * time.Second
	requeueBackoff  = 2 * time.Second
	redisBackoff    = 3 * time.Second
)

// batchQueue drains a Redis list in batches. bulk persists a whole batch;
// when it fails every item is retried through single, and the items that
// still fail are pushed back onto the queue.
type batchQueue[T any] struct {
	rdb    *redis.Client
	queue  string
	bulk   func(ctx context.Context, batch []T) error
	single func(ctx context.Context, item T) error
	log    zerolog.Logger

	batchSize    int
	batchTimeout time.Duration
	pollTimeout  time.Duration
	backoff      func(time.Duration)
}

func newBatchQueue[T any](rdb *redis.Client, queue string, log zerolog.Logger,
	bulk func(context.Context, []T) error, single func(context.Context, T) error) *batchQueue[T] {
	return &batchQueue[T]{
		rdb:          rdb,
		queue:        queue,
		bulk:         bulk,
		single:       single,
		log:          log,
		batchSize:    BatchSize,
		batchTimeout: BatchTimeout,
		pollTimeout:  PollTimeout,
		backoff:      time.Sleep,
	}
}

// run consumes the queue until ctx is cancelled, then flushes what it holds.
func (q *batchQueue[T]) run(ctx context.Context) {
	q.log.Info().Str("queue", q.queue).Msg("Worker started")

	buffer := make([]T, 0, q.batchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= q.batchSize || time.Since(lastFlush) >= q.batchTimeout) {
			q.flush(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			q.shutdown(buffer)
			return
		default:
		}

		result, err := q.rdb.BLPop(ctx, q.pollTimeout, q.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			q.log.Error().Err(err).Msg("Redis connection error, backing off")
			q.backoff(redisBackoff)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var item T
		if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
			q.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed payload")
			continue
		}
		buffer = append(buffer, item)
	}
}

func (q *batchQueue[T]) flush(ctx context.Context, batch []T) {
	if len(batch) == 0 {
		return
	}
	err := q.bulk(ctx, batch)
	if err == nil {
		q.log.Debug().Int("count", len(batch)).Msg("Batch persisted")
		return
	}
	q.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk persist failed, retrying row by row")

	var failed []T
	for _, item := range batch {
		if err := q.single(ctx, item); err != nil {
			q.log.Error().Err(err).Msg("Persist failed, requeueing")
			failed = append(failed, item)
		}
	}
	if len(failed) > 0 {
		q.requeue(ctx, failed)
	}
}

func (q *batchQueue[T]) requeue(ctx context.Context, items []T) {
	pipe := q.rdb.Pipeline()
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, q.queue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		q.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: failed to requeue items, data lost")
		return
	}
	q.log.Info().Int("count", len(items)).Msg("Requeued failed items")
	// Avoid thrashing while the database is down.
	q.backoff(requeueBackoff)
}

func (q *batchQueue[T]) shutdown(buffer []T) {
	q.log.Info().Int("buffered", len(buffer)).Msg("Worker stopping, flushing buffer")
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	q.flush(ctx, buffer)
	q.log.Info().Msg("Worker stopped")
}
