package models

import "time"

// ReminderStatus tracks the lifecycle of a sent reminder.
type ReminderStatus string

const (
	ReminderStatusSent      ReminderStatus = "SENT"
	ReminderStatusConfirmed ReminderStatus = "CONFIRMED"
)

// ReminderRecord is the durable marker proving a reminder went out for a
// lesson on a given day. A unique index on (lesson_id, sent_on) is the final
// dedup authority; the in-process sent-marker cache is only an optimization.
type ReminderRecord struct {
	ID          string         `db:"id" json:"id"`
	LessonID    string         `db:"lesson_id" json:"lessonId"`
	SentOn      string         `db:"sent_on" json:"sentOn"`
	Status      ReminderStatus `db:"status" json:"status"`
	SentAt      time.Time      `db:"sent_at" json:"sentAt"`
	ConfirmedAt *time.Time     `db:"confirmed_at" json:"confirmedAt,omitempty"`
}
