package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/peakform/coachdesk-api/internal/models"
)

// NotificationRepository persists audit notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification. Runs against the provided executor so swap
// approval can include the audit entry in its transaction.
func (r *NotificationRepository) Create(ctx context.Context, exec sqlx.ExtContext, notification *models.Notification) error {
	if exec == nil {
		exec = r.db
	}
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	_, err := exec.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, kind, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		notification.ID, notification.UserID, notification.Kind, notification.Payload, notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}
