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

// AutosaveWorker consumes the autosave queue and UPSERTs the answers into
// autosaved_answers. Within a batch the latest save of a question wins.
type AutosaveWorker struct {
	pool  *pgxpool.Pool
	queue *batchQueue[model.AutosaveEvent]
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	w := &AutosaveWorker{pool: pool}
	w.queue = newBatchQueue(rdb, config.WorkerKey.PersistAutosaveQueue,
		log.With().Str("component", "autosave_worker").Logger(),
		w.bulkUpsert, w.upsert)
	return w
}

// Start runs until ctx is cancelled. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.queue.run(ctx)
}

func (w *AutosaveWorker) bulkUpsert(ctx context.Context, batch []model.AutosaveEvent) error {
	batch = latestAutosaves(batch)

	users := make([]int32, 0, len(batch))
	questions := make([]int64, 0, len(batch))
	options := make([]string, 0, len(batch))
	savedAt := make([]time.Time, 0, len(batch))
	for _, e := range batch {
		users = append(users, int32(e.UserID))
		questions = append(questions, e.QuestionID)
		options = append(options, e.OptionID)
		savedAt = append(savedAt, e.SavedAt)
	}

	_, err := w.pool.Exec(ctx,
		`INSERT INTO autosaved_answers (user_id, question_id, option_id, saved_at)
		 SELECT * FROM UNNEST($1::int[], $2::bigint[], $3::varchar[], $4::timestamptz[])
		 ON CONFLICT (user_id, question_id) DO UPDATE
		 SET option_id = EXCLUDED.option_id, saved_at = EXCLUDED.saved_at
		 WHERE autosaved_answers.saved_at <= EXCLUDED.saved_at`,
		users, questions, options, savedAt,
	)
	return err
}

func (w *AutosaveWorker) upsert(ctx context.Context, e model.AutosaveEvent) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO autosaved_answers (user_id, question_id, option_id, saved_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, question_id) DO UPDATE
		 SET option_id = EXCLUDED.option_id, saved_at = EXCLUDED.saved_at
		 WHERE autosaved_answers.saved_at <= EXCLUDED.saved_at`,
		e.UserID, e.QuestionID, e.OptionID, e.SavedAt,
	)
	return err
}

// latestAutosaves keeps the most recent event per user and question.
// A single INSERT ... ON CONFLICT cannot touch the same row twice.
func latestAutosaves(batch []model.AutosaveEvent) []model.AutosaveEvent {
	type key struct {
		user     int
		question int64
	}
	index := make(map[key]int, len(batch))
	out := make([]model.AutosaveEvent, 0, len(batch))
	for _, e := range batch {
		k := key{e.UserID, e.QuestionID}
		if i, ok := index[k]; ok {
			if !e.SavedAt.Before(out[i].SavedAt) {
				out[i] = e
			}
			continue
		}
		index[k] = len(out)
		out = append(out, e)
	}
	return out
}
