package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizroom-backend/internal/model"
)

// ViolationRepository reads anti-cheat violations. Writes go through the
// violation worker.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// ListByUser returns a user's violations, oldest first.
func (r *ViolationRepository) ListByUser(ctx context.Context, userID, limit int) ([]model.Violation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, kind, detail, recorded_at
		 FROM quiz_violations WHERE user_id = $1
		 ORDER BY recorded_at LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[model.Violation])
}

// CountByKind summarises a user's violations per kind.
func (r *ViolationRepository) CountByKind(ctx context.Context, userID int) (map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT kind, COUNT(*) FROM quiz_violations WHERE user_id = $1 GROUP BY kind`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
