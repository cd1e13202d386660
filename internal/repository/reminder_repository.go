package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/peakform/coachdesk-api/internal/models"
)

// ErrReminderExists is returned when the (lesson, day) unique constraint
// rejects a duplicate reminder record. Callers treat it as "already sent",
// never as a failure.
var ErrReminderExists = errors.New("reminder already recorded for this lesson and day")

const pqUniqueViolation = "23505"

// ReminderRepository persists reminder dispatch markers.
type ReminderRepository struct {
	db *sqlx.DB
}

// NewReminderRepository constructs the repository.
func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Create inserts a SENT marker. The unique index on (lesson_id, sent_on) is
// the durable dedup authority; a violation maps to ErrReminderExists.
func (r *ReminderRepository) Create(ctx context.Context, record *models.ReminderRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = models.ReminderStatusSent
	}
	if record.SentAt.IsZero() {
		record.SentAt = time.Now().UTC()
	}
	const query = `INSERT INTO reminder_records (id, lesson_id, sent_on, status, sent_at, confirmed_at)
	VALUES (:id, :lesson_id, :sent_on, :status, :sent_at, :confirmed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrReminderExists
		}
		return fmt.Errorf("create reminder record: %w", err)
	}
	return nil
}

// ExistsForDay reports whether any marker exists for the lesson on the given
// calendar day. Used by calendar-tomorrow dedup.
func (r *ReminderRepository) ExistsForDay(ctx context.Context, lessonID, sentOn string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(1) FROM reminder_records WHERE lesson_id = $1 AND sent_on = $2`,
		lessonID, sentOn,
	)
	if err != nil {
		return false, fmt.Errorf("check reminder for day: %w", err)
	}
	return count > 0, nil
}

// ExistsSince reports whether any marker for the lesson was sent at or after
// the cutoff. Used by rolling-24h dedup.
func (r *ReminderRepository) ExistsSince(ctx context.Context, lessonID string, cutoff time.Time) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(1) FROM reminder_records WHERE lesson_id = $1 AND sent_at >= $2`,
		lessonID, cutoff,
	)
	if err != nil {
		return false, fmt.Errorf("check reminder since cutoff: %w", err)
	}
	return count > 0, nil
}

// MarkConfirmed flips the most recent SENT marker for a lesson to CONFIRMED.
func (r *ReminderRepository) MarkConfirmed(ctx context.Context, lessonID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reminder_records SET status = $1, confirmed_at = $2
		WHERE id = (SELECT id FROM reminder_records
			WHERE lesson_id = $3 AND status = $4
			ORDER BY sent_at DESC LIMIT 1)`,
		models.ReminderStatusConfirmed, at, lessonID, models.ReminderStatusSent,
	)
	if err != nil {
		return fmt.Errorf("confirm reminder for lesson %s: %w", lessonID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reminder confirmation rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
