package worker

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizroom-backend/internal/config"
	"github.com/stemsi/quizroom-backend/internal/model"
)

// ViolationWorker copies anti-cheat violations into quiz_violations.
type ViolationWorker struct {
	pool  *pgxpool.Pool
	queue *batchQueue[model.Violation]
}

func NewViolationWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	w := &ViolationWorker{pool: pool}
	w.queue = newBatchQueue(rdb, config.WorkerKey.PersistViolationQueue,
		log.With().Str("component", "violation_worker").Logger(),
		w.copyBatch, w.insert)
	return w
}

func (w *ViolationWorker) Start(ctx context.Context) {
	w.queue.run(ctx)
}

func (w *ViolationWorker) copyBatch(ctx context.Context, batch []model.Violation) error {
	rows := make([][]any, 0, len(batch))
	for _, v := range batch {
		rows = append(rows, []any{v.UserID, v.Kind, v.Detail, v.RecordedAt})
	}

	_, err := w.pool.CopyFrom(ctx,
		pgx.Identifier{"quiz_violations"},
		[]string{"user_id", "kind", "detail", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *ViolationWorker) insert(ctx context.Context, v model.Violation) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO quiz_violations (user_id, kind, detail, recorded_at)
		 VALUES ($1, $2, $3, $4)`,
		v.UserID, v.Kind, v.Detail, v.RecordedAt,
	)
	return err
}
