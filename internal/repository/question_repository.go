package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizroom-backend/internal/model"
)

const questionColumns = `id, question_text, subject, options, correct_option_id, created_at, updated_at`

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func scanQuestion(row pgx.CollectableRow) (model.QuestionRecord, error) {
	var q model.QuestionRecord
	err := row.Scan(&q.ID, &q.Text, &q.Subject, &q.Options, &q.CorrectOptionID, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

// ListAll retrieves the whole bank ordered by ID.
func (r *QuestionRepository) ListAll(ctx context.Context) ([]model.QuestionRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanQuestion)
}

// ListBySubject retrieves one subject's questions, or all when subject is empty.
func (r *QuestionRepository) ListBySubject(ctx context.Context, subject string, limit, offset int) ([]model.QuestionRecord, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE $1 = '' OR subject = $1`, subject,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE $1 = '' OR subject = $1
		 ORDER BY id LIMIT $2 OFFSET $3`,
		subject, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	questions, err := pgx.CollectRows(rows, scanQuestion)
	return questions, total, err
}

// GetByID retrieves a question by ID.
func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*model.QuestionRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	q, err := pgx.CollectExactlyOneRow(rows, scanQuestion)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.QuestionRecord) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (question_text, subject, options, correct_option_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		q.Text, q.Subject, q.Options, q.CorrectOptionID,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// Update replaces a question. It returns pgx.ErrNoRows when the ID is unknown.
func (r *QuestionRepository) Update(ctx context.Context, q *model.QuestionRecord) error {
	return r.pool.QueryRow(ctx,
		`UPDATE questions
		 SET question_text = $1, subject = $2, options = $3, correct_option_id = $4, updated_at = NOW()
		 WHERE id = $5
		 RETURNING created_at, updated_at`,
		q.Text, q.Subject, q.Options, q.CorrectOptionID, q.ID,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
}

// Delete removes a question. It reports whether a row was deleted.
func (r *QuestionRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// BulkCreate loads many questions at once with COPY.
func (r *QuestionRepository) BulkCreate(ctx context.Context, questions []model.QuestionRecord) (int64, error) {
	return r.pool.CopyFrom(ctx,
		pgx.Identifier{"questions"},
		[]string{"question_text", "subject", "options", "correct_option_id"},
		pgx.CopyFromSlice(len(questions), func(i int) ([]any, error) {
			q := questions[i]
			return []any{q.Text, q.Subject, q.Options, q.CorrectOptionID}, nil
		}),
	)
}
