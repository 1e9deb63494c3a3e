package worker

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/model"
)

// StartTimeWorker records when students started the quiz. The first
// recorded start of a user is never overwritten.
type StartTimeWorker struct {
	pool  *pgxpool.Pool
	queue *batchQueue[model.StartEvent]
}

func NewStartTimeWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *StartTimeWorker {
	w := &StartTimeWorker{pool: pool}
	w.queue = newBatchQueue(rdb, config.WorkerKey.PersistStartQueue,
		log.With().Str("component", "start_time_worker").Logger(),
		w.bulkInsert, w.insert)
	return w
}

func (w *StartTimeWorker) Start(ctx context.Context) {
	w.queue.run(ctx)
}

func (w *StartTimeWorker) bulkInsert(ctx context.Context, batch []model.StartEvent) error {
	batch = earliestStarts(batch)

	users := make([]int32, 0, len(batch))
	startedAt := make([]time.Time, 0, len(batch))
	for _, e := range batch {
		users = append(users, int32(e.UserID))
		startedAt = append(startedAt, e.StartedAt)
	}

	_, err := w.pool.Exec(ctx,
		`INSERT INTO quiz_starts (user_id, started_at)
		 SELECT * FROM UNNEST($1::int[], $2::timestamptz[])
		 ON CONFLICT (user_id) DO NOTHING`,
		users, startedAt,
	)
	return err
}

func (w *StartTimeWorker) insert(ctx context.Context, e model.StartEvent) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO quiz_starts (user_id, started_at) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		e.UserID, e.StartedAt,
	)
	return err
}

// earliestStarts keeps one event per user, the earliest.
func earliestStarts(batch []model.StartEvent) []model.StartEvent {
	index := make(map[int]int, len(batch))
	out := make([]model.StartEvent, 0, len(batch))
	for _, e := range batch {
		if i, ok := index[e.UserID]; ok {
			if e.StartedAt.Before(out[i].StartedAt) {
				out[i] = e
			}
			continue
		}
		index[e.UserID] = len(out)
		out = append(out, e)
	}
	return out
}
