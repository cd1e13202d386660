package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Conversation links two participants (coach and client for reminders,
// client and client for swap notices). At most one conversation exists per
// unordered pair; the repository normalizes participant order on creation.
type Conversation struct {
	ID             string    `db:"id" json:"id"`
	ParticipantAID string    `db:"participant_a_id" json:"participantAId"`
	ParticipantBID string    `db:"participant_b_id" json:"participantBId"`
	LastActivityAt time.Time `db:"last_activity_at" json:"lastActivityAt"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// HasParticipant reports whether the user belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantAID == userID || c.ParticipantBID == userID
}

// ChatMessage is a delivered in-app message. Reminder and swap-request
// messages carry RequiresAck and a structured payload; acknowledgment is
// monotonic, an acknowledged message never reverts.
type ChatMessage struct {
	ID             string         `db:"id" json:"id"`
	ConversationID string         `db:"conversation_id" json:"conversationId"`
	SenderID       string         `db:"sender_id" json:"senderId"`
	Body           string         `db:"body" json:"body"`
	Payload        types.JSONText `db:"payload" json:"payload,omitempty"`
	RequiresAck    bool           `db:"requires_ack" json:"requiresAck"`
	IsAcknowledged bool           `db:"is_acknowledged" json:"isAcknowledged"`
	AcknowledgedBy *string        `db:"acknowledged_by" json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time     `db:"acknowledged_at" json:"acknowledgedAt,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}

// MessagePayloadKind discriminates structured message payloads.
type MessagePayloadKind string

const (
	PayloadPlain          MessagePayloadKind = "PLAIN"
	PayloadLessonReminder MessagePayloadKind = "LESSON_REMINDER"
	PayloadSwapRequest    MessagePayloadKind = "SWAP_REQUEST"
)

// MessagePayload is the decoded form of ChatMessage.Payload. Kind is always
// set; LessonID accompanies PayloadLessonReminder and SwapRequestID
// accompanies PayloadSwapRequest.
type MessagePayload struct {
	Kind          MessagePayloadKind `json:"type"`
	LessonID      string             `json:"lessonId,omitempty"`
	SwapRequestID string             `json:"swapRequestId,omitempty"`
}

// ReminderPayload builds the wire payload for a lesson-reminder message.
func ReminderPayload(lessonID string) types.JSONText {
	raw, _ := json.Marshal(MessagePayload{Kind: PayloadLessonReminder, LessonID: lessonID})
	return types.JSONText(raw)
}

// SwapPayload builds the wire payload for a swap-request message.
func SwapPayload(swapRequestID string) types.JSONText {
	raw, _ := json.Marshal(MessagePayload{Kind: PayloadSwapRequest, SwapRequestID: swapRequestID})
	return types.JSONText(raw)
}

// DecodePayload parses a raw message payload. Empty, null, or unrecognized
// payloads decode as PayloadPlain so callers can switch exhaustively.
func DecodePayload(raw types.JSONText) MessagePayload {
	if len(raw) == 0 || string(raw) == "null" {
		return MessagePayload{Kind: PayloadPlain}
	}
	var payload MessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return MessagePayload{Kind: PayloadPlain}
	}
	switch payload.Kind {
	case PayloadLessonReminder:
		if payload.LessonID != "" {
			return payload
		}
	case PayloadSwapRequest:
		if payload.SwapRequestID != "" {
			return payload
		}
	}
	return MessagePayload{Kind: PayloadPlain}
}
