package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizroom-backend/internal/model"
)

// ErrAttemptExists is returned when a user submits a second time.
var ErrAttemptExists = errors.New("quiz already submitted")

const attemptColumns = `a.id, a.user_id, u.name, a.subjects, a.started_at, a.submitted_at, a.total_questions, a.answered, a.correct`

// AttemptRepository handles submitted attempts and their answers.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.CollectableRow) (model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := row.Scan(&a.ID, &a.UserID, &a.UserName, &a.Subjects, &a.StartedAt, &a.SubmittedAt, &a.TotalQuestions, &a.Answered, &a.Correct)
	return a, err
}

// Create stores an attempt and its graded answers in one transaction and
// drops the user's auto-saved answers. A user can only ever have one attempt;
// a second call returns ErrAttemptExists. When startedAt is nil the start
// time recorded in quiz_starts is used.
func (r *AttemptRepository) Create(ctx context.Context, a *model.QuizAttempt, answers []model.AttemptAnswer) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO quiz_attempts (user_id, subjects, started_at, total_questions, answered, correct)
			 VALUES ($1, $2, COALESCE($3::timestamptz, (SELECT started_at FROM quiz_starts WHERE user_id = $1)), $4, $5, $6)
			 ON CONFLICT (user_id) DO NOTHING
			 RETURNING id, started_at, submitted_at`,
			a.UserID, a.Subjects, a.StartedAt, a.TotalQuestions, a.Answered, a.Correct,
		).Scan(&a.ID, &a.StartedAt, &a.SubmittedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAttemptExists
		}
		if err != nil {
			return err
		}

		if len(answers) > 0 {
			_, err = tx.CopyFrom(ctx,
				pgx.Identifier{"attempt_answers"},
				[]string{"attempt_id", "question_id", "selected_option_id", "is_correct"},
				pgx.CopyFromSlice(len(answers), func(i int) ([]any, error) {
					ans := answers[i]
					return []any{a.ID, ans.QuestionID, ans.SelectedOptionID, ans.IsCorrect}, nil
				}),
			)
			if err != nil {
				return err
			}
		}

		_, err = tx.Exec(ctx, `DELETE FROM autosaved_answers WHERE user_id = $1`, a.UserID)
		return err
	})
}

// Prior reports whether the user has submitted.
func (r *AttemptRepository) Prior(ctx context.Context, userID int) (model.PriorAttempt, error) {
	var submittedAt time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT submitted_at FROM quiz_attempts WHERE user_id = $1`, userID,
	).Scan(&submittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PriorAttempt{}, nil
	}
	if err != nil {
		return model.PriorAttempt{}, err
	}
	return model.PriorAttempt{HasAttempted: true, SubmittedAt: &submittedAt}, nil
}

// GetByUser returns the user's attempt or pgx.ErrNoRows.
func (r *AttemptRepository) GetByUser(ctx context.Context, userID int) (*model.QuizAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM quiz_attempts a JOIN users u ON u.id = a.user_id
		 WHERE a.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAttempt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAnswers returns the graded answers of an attempt.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID int64) ([]model.AttemptAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, selected_option_id, is_correct
		 FROM attempt_answers WHERE attempt_id = $1
		 ORDER BY question_id`, attemptID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[model.AttemptAnswer])
}

// ListPaginated lists attempts, most recent first.
func (r *AttemptRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.QuizAttempt, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quiz_attempts`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM quiz_attempts a JOIN users u ON u.id = a.user_id
		 ORDER BY a.submitted_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	attempts, err := pgx.CollectRows(rows, scanAttempt)
	return attempts, total, err
}

// DeleteByUser removes the user's attempt together with their recorded
// start time and auto-saved answers, allowing a retake. It reports whether
// an attempt existed.
func (r *AttemptRepository) DeleteByUser(ctx context.Context, userID int) (bool, error) {
	var deleted bool
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM quiz_attempts WHERE user_id = $1`, userID)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0

		if _, err := tx.Exec(ctx, `DELETE FROM quiz_starts WHERE user_id = $1`, userID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM autosaved_answers WHERE user_id = $1`, userID)
		return err
	})
	return deleted, err
}
