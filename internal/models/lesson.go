package models

import "time"

// LessonStatus captures the lifecycle of a scheduled lesson.
type LessonStatus string

const (
	LessonStatusPending   LessonStatus = "PENDING"
	LessonStatusConfirmed LessonStatus = "CONFIRMED"
	LessonStatusCancelled LessonStatus = "CANCELLED"
)

// Lesson is a scheduled coaching session. ClientID is the owning
// participant; swap approval reassigns it. Lessons are never deleted by the
// reminder subsystem.
type Lesson struct {
	ID          string       `db:"id" json:"id"`
	StartsAt    time.Time    `db:"starts_at" json:"startsAt"`
	Status      LessonStatus `db:"status" json:"status"`
	ClientID    string       `db:"client_id" json:"clientId"`
	CoachID     string       `db:"coach_id" json:"coachId"`
	OrgID       string       `db:"org_id" json:"orgId"`
	ConfirmedAt *time.Time   `db:"confirmed_at" json:"confirmedAt,omitempty"`
}
