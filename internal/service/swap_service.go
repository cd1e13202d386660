package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/peakform/coachdesk-api/internal/dto"
	"github.com/peakform/coachdesk-api/internal/models"
	appErrors "github.com/peakform/coachdesk-api/pkg/errors"
)

type swapRequestStore interface {
	GetByID(ctx context.Context, id string) (*models.SwapRequest, error)
	MarkDecided(ctx context.Context, exec sqlx.ExtContext, id string, status models.SwapStatus, decidedAt time.Time) error
}

type swapLessonStore interface {
	GetByID(ctx context.Context, id string) (*models.Lesson, error)
	ReassignOwner(ctx context.Context, exec sqlx.ExtContext, lessonID, clientID string) error
}

type swapNotificationStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, notification *models.Notification) error
}

type swapChatStore interface {
	GetOrCreateConversation(ctx context.Context, userA, userB string) (*models.Conversation, error)
	CreateMessage(ctx context.Context, message *models.ChatMessage) error
	TouchConversation(ctx context.Context, conversationID string, at time.Time) error
}

type pushDispatcher interface {
	EnqueuePush(userID, kind string, payload map[string]string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type swapObserver interface {
	ObserveSwapDecision(status string)
}

// SwapService applies approve/decline decisions to time-swap requests.
// Approval swaps the two lessons' owners and records the coach audit entry
// in one transaction; the participant-facing notices ride outside it.
type SwapService struct {
	swaps         swapRequestStore
	lessons       swapLessonStore
	notifications swapNotificationStore
	chats         swapChatStore
	push          pushDispatcher
	tx            txProvider
	metrics       swapObserver
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewSwapService wires the swap decision coordinator.
func NewSwapService(
	swaps swapRequestStore,
	lessons swapLessonStore,
	notifications swapNotificationStore,
	chats swapChatStore,
	push pushDispatcher,
	tx txProvider,
	metrics swapObserver,
	validate *validator.Validate,
	logger *zap.Logger,
) *SwapService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwapService{
		swaps:         swaps,
		lessons:       lessons,
		notifications: notifications,
		chats:         chats,
		push:          push,
		tx:            tx,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
}

// ApplyDecision finalizes a pending swap request. Of two concurrent calls on
// the same request exactly one succeeds; the other gets a conflict.
func (s *SwapService) ApplyDecision(ctx context.Context, swapRequestID string, req *dto.SwapDecisionRequest) (*dto.SwapDecisionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "decision must be APPROVED or DECLINED")
	}

	request, err := s.swaps.GetByID(ctx, swapRequestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "swap request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load swap request")
	}
	if request.Status != models.SwapStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "swap request already processed")
	}

	now := time.Now().UTC()
	result := &dto.SwapDecisionResult{SwapRequestID: request.ID, DecidedAt: now}

	switch models.SwapStatus(req.Decision) {
	case models.SwapStatusDeclined:
		if err := s.decline(ctx, request, now, result); err != nil {
			return nil, err
		}
	case models.SwapStatusApproved:
		if err := s.approve(ctx, request, now, result); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVED or DECLINED")
	}

	if s.metrics != nil {
		s.metrics.ObserveSwapDecision(result.Status)
	}
	return result, nil
}

func (s *SwapService) decline(ctx context.Context, request *models.SwapRequest, now time.Time, result *dto.SwapDecisionResult) error {
	if err := s.swaps.MarkDecided(ctx, nil, request.ID, models.SwapStatusDeclined, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "swap request already processed")
		}
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to decline swap request")
	}
	result.Status = string(models.SwapStatusDeclined)

	body := "Your time-swap request was declined."
	result.SideEffects = append(result.SideEffects,
		s.notifyParticipants(ctx, request, now, body, string(models.NotificationSwapDeclined))...)
	return nil
}

func (s *SwapService) approve(ctx context.Context, request *models.SwapRequest, now time.Time, result *dto.SwapDecisionResult) error {
	requesterLesson, err := s.lessons.GetByID(ctx, request.RequesterLessonID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to load requester lesson")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Sugar().Errorw("swap approval rollback failed", "swap_request_id", request.ID, "error", rbErr)
			}
		}
	}()

	if err := s.swaps.MarkDecided(ctx, tx, request.ID, models.SwapStatusApproved, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "swap request already processed")
		}
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to approve swap request")
	}
	if err := s.lessons.ReassignOwner(ctx, tx, request.RequesterLessonID, request.TargetID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to reassign requester lesson")
	}
	if err := s.lessons.ReassignOwner(ctx, tx, request.TargetLessonID, request.RequesterID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to reassign target lesson")
	}

	audit := &models.Notification{
		UserID:  requesterLesson.CoachID,
		Kind:    models.NotificationSwapApproved,
		Payload: swapAuditPayload(request),
	}
	if err := s.notifications.Create(ctx, tx, audit); err != nil {
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to record swap audit entry")
	}

	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to commit swap approval")
	}
	committed = true
	result.Status = string(models.SwapStatusApproved)

	body := "Your time-swap request was approved. The two sessions have switched owners."
	result.SideEffects = append(result.SideEffects,
		s.notifyParticipants(ctx, request, now, body, string(models.NotificationSwapApproved))...)
	return nil
}

// notifyParticipants posts the decision notice into the requester/target
// conversation and pushes to the requester. All of it is best effort.
func (s *SwapService) notifyParticipants(ctx context.Context, request *models.SwapRequest, now time.Time, body, kind string) []dto.SideEffectOutcome {
	var effects []dto.SideEffectOutcome
	record := func(name string, err error) {
		effect := dto.SideEffectOutcome{Name: name, OK: err == nil}
		if err != nil {
			effect.Error = err.Error()
			s.logger.Sugar().Warnw("swap notice side effect failed",
				"swap_request_id", request.ID, "effect", name, "error", err)
		}
		effects = append(effects, effect)
	}

	conversation, err := s.chats.GetOrCreateConversation(ctx, request.RequesterID, request.TargetID)
	if err != nil {
		record("decision-message", fmt.Errorf("resolve conversation: %w", err))
	} else {
		message := &models.ChatMessage{
			ConversationID: conversation.ID,
			SenderID:       request.TargetID,
			Body:           body,
		}
		if err := s.chats.CreateMessage(ctx, message); err != nil {
			record("decision-message", err)
		} else {
			record("decision-message", nil)
			if err := s.chats.TouchConversation(ctx, conversation.ID, now); err != nil {
				s.logger.Sugar().Warnw("conversation touch failed", "conversation_id", conversation.ID, "error", err)
			}
		}
	}

	if s.push != nil {
		record("decision-push", s.push.EnqueuePush(request.RequesterID, kind, map[string]string{
			"swapRequestId": request.ID,
		}))
	}
	return effects
}

func swapAuditPayload(request *models.SwapRequest) types.JSONText {
	raw, _ := json.Marshal(map[string]string{
		"swapRequestId":     request.ID,
		"requesterId":       request.RequesterID,
		"targetId":          request.TargetID,
		"requesterLessonId": request.RequesterLessonID,
		"targetLessonId":    request.TargetLessonID,
	})
	return types.JSONText(raw)
}
