package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// NotificationKind enumerates audit/push notification categories.
type NotificationKind string

const (
	NotificationSwapApproved NotificationKind = "SWAP_APPROVED"
	NotificationSwapDeclined NotificationKind = "SWAP_DECLINED"
)

// Notification is a durable audit entry addressed to a user. Swap approval
// writes one inside the same transaction as the lesson reassignments.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"userId"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Payload   types.JSONText   `db:"payload" json:"payload,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}
