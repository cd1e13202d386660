package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/peakform/coachdesk-api/internal/models"
)

// LessonRepository persists scheduled lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

const lessonColumns = `id, starts_at, status, client_id, coach_id, org_id, confirmed_at`

// GetByID fetches a lesson by identifier.
func (r *LessonRepository) GetByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE id = $1`, lessonColumns)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListStartingBetween returns non-cancelled lessons starting inside
// [from, to). An optional clientID narrows the result to a single client.
func (r *LessonRepository) ListStartingBetween(ctx context.Context, from, to time.Time, clientID string) ([]models.Lesson, error) {
	query := fmt.Sprintf(`SELECT %s FROM lessons
	WHERE starts_at >= $1 AND starts_at < $2 AND status <> $3`, lessonColumns)
	args := []interface{}{from, to, models.LessonStatusCancelled}
	if clientID != "" {
		query += ` AND client_id = $4`
		args = append(args, clientID)
	}
	query += ` ORDER BY starts_at ASC`

	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list lessons in window: %w", err)
	}
	return lessons, nil
}

// ReassignOwner moves a lesson to a new owning client. Runs against the
// provided executor so swap approval can keep it inside one transaction.
func (r *LessonRepository) ReassignOwner(ctx context.Context, exec sqlx.ExtContext, lessonID, clientID string) error {
	if exec == nil {
		exec = r.db
	}
	result, err := exec.ExecContext(ctx, `UPDATE lessons SET client_id = $1 WHERE id = $2`, clientID, lessonID)
	if err != nil {
		return fmt.Errorf("reassign lesson %s: %w", lessonID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check lesson reassignment rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetConfirmed stamps the lesson confirmation time and flips its status.
func (r *LessonRepository) SetConfirmed(ctx context.Context, lessonID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE lessons SET status = $1, confirmed_at = $2 WHERE id = $3 AND confirmed_at IS NULL`,
		models.LessonStatusConfirmed, at, lessonID,
	)
	if err != nil {
		return fmt.Errorf("confirm lesson %s: %w", lessonID, err)
	}
	return nil
}
