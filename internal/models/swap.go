package models

import "time"

// SwapStatus captures workflow states for time-swap requests.
type SwapStatus string

const (
	SwapStatusPending  SwapStatus = "PENDING"
	SwapStatusApproved SwapStatus = "APPROVED"
	SwapStatusDeclined SwapStatus = "DECLINED"
)

// SwapRequest is a pending proposal to exchange two lessons between two
// clients. Status moves PENDING to APPROVED or DECLINED exactly once; a
// non-PENDING request is immutable.
type SwapRequest struct {
	ID                string     `db:"id" json:"id"`
	RequesterID       string     `db:"requester_id" json:"requesterId"`
	TargetID          string     `db:"target_id" json:"targetId"`
	RequesterLessonID string     `db:"requester_lesson_id" json:"requesterLessonId"`
	TargetLessonID    string     `db:"target_lesson_id" json:"targetLessonId"`
	Status            SwapStatus `db:"status" json:"status"`
	Message           *string    `db:"message" json:"message,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	ApprovedAt        *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
}
