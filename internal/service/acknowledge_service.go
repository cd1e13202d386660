package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peakform/coachdesk-api/internal/dto"
	"github.com/peakform/coachdesk-api/internal/models"
	appErrors "github.com/peakform/coachdesk-api/pkg/errors"
)

type ackChatStore interface {
	GetMessageByID(ctx context.Context, id string) (*models.ChatMessage, error)
	GetConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	MarkAcknowledged(ctx context.Context, messageID, userID string, at time.Time) error
	CreateMessage(ctx context.Context, message *models.ChatMessage) error
}

type ackReminderStore interface {
	MarkConfirmed(ctx context.Context, lessonID string, at time.Time) error
}

type ackLessonStore interface {
	SetConfirmed(ctx context.Context, lessonID string, at time.Time) error
}

type swapDecider interface {
	ApplyDecision(ctx context.Context, swapRequestID string, req *dto.SwapDecisionRequest) (*dto.SwapDecisionResult, error)
}

type ackObserver interface {
	ObserveAcknowledgment(payloadKind string)
}

// AcknowledgeService handles recipient acknowledgments of in-app messages.
// The acknowledgment itself is the primary outcome; payload-specific
// follow-ups (lesson confirmation, swap decisions) run after it and report
// their own success or failure without ever reverting the acknowledgment.
type AcknowledgeService struct {
	chats     ackChatStore
	reminders ackReminderStore
	lessons   ackLessonStore
	swaps     swapDecider
	metrics   ackObserver
	logger    *zap.Logger
}

// NewAcknowledgeService wires the acknowledgment flow.
func NewAcknowledgeService(
	chats ackChatStore,
	reminders ackReminderStore,
	lessons ackLessonStore,
	swaps swapDecider,
	metrics ackObserver,
	logger *zap.Logger,
) *AcknowledgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcknowledgeService{
		chats:     chats,
		reminders: reminders,
		lessons:   lessons,
		swaps:     swaps,
		metrics:   metrics,
		logger:    logger,
	}
}

// Acknowledge marks a message acknowledged by actorID. Preconditions are
// checked existence first, then membership, then payload validity, then
// acknowledgment state, so a caller always learns the most fundamental
// problem. Acknowledgment is monotonic: once marked, repeat calls conflict.
func (s *AcknowledgeService) Acknowledge(ctx context.Context, messageID, actorID string, req *dto.AcknowledgeRequest) (*dto.AcknowledgeResult, error) {
	message, err := s.chats.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load message")
	}

	conversation, err := s.chats.GetConversationByID(ctx, message.ConversationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load conversation")
	}
	if !conversation.HasParticipant(actorID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this conversation")
	}

	payload := models.DecodePayload(message.Payload)
	if payload.Kind == models.PayloadSwapRequest {
		if req == nil || req.Decision == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a swap-request message requires a decision")
		}
		if req.Decision != string(models.SwapStatusApproved) && req.Decision != string(models.SwapStatusDeclined) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or DECLINED")
		}
	}

	if message.IsAcknowledged {
		return nil, appErrors.Clone(appErrors.ErrAlreadyAcknowledged, "")
	}

	now := time.Now().UTC()
	if err := s.chats.MarkAcknowledged(ctx, messageID, actorID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Another acknowledger won between our read and the update.
			return nil, appErrors.Clone(appErrors.ErrAlreadyAcknowledged, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to acknowledge message")
	}

	result := &dto.AcknowledgeResult{
		MessageID:      messageID,
		AcknowledgedBy: actorID,
		AcknowledgedAt: now,
	}

	switch payload.Kind {
	case models.PayloadLessonReminder:
		s.confirmLesson(ctx, payload.LessonID, now, result)
		s.sendConfirmationNotice(ctx, message, actorID, result)
	case models.PayloadSwapRequest:
		s.applySwapDecision(ctx, payload.SwapRequestID, req.Decision, result)
	case models.PayloadPlain:
		// Plain ack-required messages have no follow-ups.
	}

	if s.metrics != nil {
		s.metrics.ObserveAcknowledgment(string(payload.Kind))
	}
	return result, nil
}

// confirmLesson flips the reminder record and the lesson to confirmed.
// Either update failing leaves the acknowledgment standing and is reported
// as a failed side effect.
func (s *AcknowledgeService) confirmLesson(ctx context.Context, lessonID string, now time.Time, result *dto.AcknowledgeResult) {
	record := func(name string, err error) {
		effect := dto.SideEffectOutcome{Name: name, OK: err == nil}
		if err != nil {
			effect.Error = err.Error()
			s.logger.Sugar().Warnw("lesson confirmation side effect failed",
				"lesson_id", lessonID, "effect", name, "error", err)
		}
		result.SideEffects = append(result.SideEffects, effect)
	}

	err := s.reminders.MarkConfirmed(ctx, lessonID, now)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("no sent reminder record for lesson %s", lessonID)
	}
	record("reminder-confirmed", err)

	record("lesson-confirmed", s.lessons.SetConfirmed(ctx, lessonID, now))
}

// sendConfirmationNotice posts a confirmation into the same conversation so
// the coach sees the client responded. Best effort.
func (s *AcknowledgeService) sendConfirmationNotice(ctx context.Context, original *models.ChatMessage, actorID string, result *dto.AcknowledgeResult) {
	notice := &models.ChatMessage{
		ConversationID: original.ConversationID,
		SenderID:       actorID,
		Body:           "Confirmed, see you there!",
	}
	effect := dto.SideEffectOutcome{Name: "confirmation-notice", OK: true}
	if err := s.chats.CreateMessage(ctx, notice); err != nil {
		effect.OK = false
		effect.Error = err.Error()
		s.logger.Sugar().Warnw("confirmation notice failed",
			"conversation_id", original.ConversationID, "error", err)
	}
	result.SideEffects = append(result.SideEffects, effect)
}

// applySwapDecision forwards the decision to the swap coordinator. A
// conflict there (someone else decided first) is reported in the side
// effects; the acknowledgment itself never rolls back.
func (s *AcknowledgeService) applySwapDecision(ctx context.Context, swapRequestID, decision string, result *dto.AcknowledgeResult) {
	outcome, err := s.swaps.ApplyDecision(ctx, swapRequestID, &dto.SwapDecisionRequest{Decision: decision})
	effect := dto.SideEffectOutcome{Name: "swap-decision", OK: err == nil}
	if err != nil {
		effect.Error = err.Error()
		s.logger.Sugar().Warnw("swap decision via acknowledgment failed",
			"swap_request_id", swapRequestID, "error", err)
	} else {
		result.SwapDecision = outcome
	}
	result.SideEffects = append(result.SideEffects, effect)
}
