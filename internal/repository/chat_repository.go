package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/peakform/coachdesk-api/internal/models"
)

// ChatRepository persists conversations and in-app messages.
type ChatRepository struct {
	db *sqlx.DB
}

// NewChatRepository constructs the repository.
func NewChatRepository(db *sqlx.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

const messageColumns = `id, conversation_id, sender_id, body, payload, requires_ack,
       is_acknowledged, acknowledged_by, acknowledged_at, created_at`

// GetOrCreateConversation returns the single conversation for an unordered
// participant pair, creating it when missing. Participants are normalized so
// the unique index on (participant_a_id, participant_b_id) keeps concurrent
// callers from creating a second conversation for the same pair.
func (r *ChatRepository) GetOrCreateConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	if userB < userA {
		userA, userB = userB, userA
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO conversations (id, participant_a_id, participant_b_id, last_activity_at, created_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (participant_a_id, participant_b_id) DO NOTHING`,
		uuid.NewString(), userA, userB, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	var conversation models.Conversation
	err = r.db.GetContext(ctx, &conversation,
		`SELECT id, participant_a_id, participant_b_id, last_activity_at, created_at
		FROM conversations WHERE participant_a_id = $1 AND participant_b_id = $2`,
		userA, userB,
	)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return &conversation, nil
}

// GetConversationByID fetches a conversation.
func (r *ChatRepository) GetConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.GetContext(ctx, &conversation,
		`SELECT id, participant_a_id, participant_b_id, last_activity_at, created_at
		FROM conversations WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// CreateMessage inserts an in-app message.
func (r *ChatRepository) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO chat_messages
	(id, conversation_id, sender_id, body, payload, requires_ack, is_acknowledged, acknowledged_by, acknowledged_at, created_at)
	VALUES (:id, :conversation_id, :sender_id, :body, :payload, :requires_ack, :is_acknowledged, :acknowledged_by, :acknowledged_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create chat message: %w", err)
	}
	return nil
}

// GetMessageByID fetches a message by identifier.
func (r *ChatRepository) GetMessageByID(ctx context.Context, id string) (*models.ChatMessage, error) {
	query := fmt.Sprintf(`SELECT %s FROM chat_messages WHERE id = $1`, messageColumns)
	var message models.ChatMessage
	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		return nil, err
	}
	return &message, nil
}

// MarkAcknowledged flips a message to acknowledged. The conditional WHERE
// makes acknowledgment one-shot; a raced or repeated call reports
// sql.ErrNoRows so the service can surface "already handled".
func (r *ChatRepository) MarkAcknowledged(ctx context.Context, messageID, userID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE chat_messages SET is_acknowledged = TRUE, acknowledged_by = $1, acknowledged_at = $2
		WHERE id = $3 AND is_acknowledged = FALSE`,
		userID, at, messageID,
	)
	if err != nil {
		return fmt.Errorf("acknowledge message %s: %w", messageID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check acknowledge rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TouchConversation bumps the conversation's last activity timestamp.
func (r *ChatRepository) TouchConversation(ctx context.Context, conversationID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET last_activity_at = $1 WHERE id = $2`, at, conversationID)
	if err != nil {
		return fmt.Errorf("touch conversation %s: %w", conversationID, err)
	}
	return nil
}
