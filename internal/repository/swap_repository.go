package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/peakform/coachdesk-api/internal/models"
)

// SwapRepository persists time-swap requests.
type SwapRepository struct {
	db *sqlx.DB
}

// NewSwapRepository constructs the repository.
func NewSwapRepository(db *sqlx.DB) *SwapRepository {
	return &SwapRepository{db: db}
}

// GetByID fetches a swap request by identifier.
func (r *SwapRepository) GetByID(ctx context.Context, id string) (*models.SwapRequest, error) {
	const query = `SELECT id, requester_id, target_id, requester_lesson_id, target_lesson_id,
       status, message, created_at, approved_at
	FROM swap_requests WHERE id = $1`
	var request models.SwapRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// MarkDecided flips a PENDING request to its final status. The status guard
// lives inside the same statement, so of two concurrent callers exactly one
// sees a row updated; the loser gets sql.ErrNoRows.
func (r *SwapRepository) MarkDecided(ctx context.Context, exec sqlx.ExtContext, id string, status models.SwapStatus, decidedAt time.Time) error {
	if exec == nil {
		exec = r.db
	}
	var approvedAt *time.Time
	if status == models.SwapStatusApproved {
		approvedAt = &decidedAt
	}
	result, err := exec.ExecContext(ctx,
		fmt.Sprintf(`UPDATE swap_requests SET status = $1, approved_at = $2
		WHERE id = $3 AND status = '%s'`, models.SwapStatusPending),
		status, approvedAt, id,
	)
	if err != nil {
		return fmt.Errorf("decide swap request %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check swap decision rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
