package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakform/coachdesk-api/internal/dto"
	"github.com/peakform/coachdesk-api/internal/models"
	appErrors "github.com/peakform/coachdesk-api/pkg/errors"
)

type mockAckChatStore struct {
	messages      map[string]*models.ChatMessage
	conversations map[string]*models.Conversation
	acknowledged  []string
	notices       []models.ChatMessage
	ackErr        error
	noticeErr     error
}

func (m *mockAckChatStore) GetMessageByID(ctx context.Context, id string) (*models.ChatMessage, error) {
	if message, ok := m.messages[id]; ok {
		return message, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAckChatStore) GetConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	if conversation, ok := m.conversations[id]; ok {
		return conversation, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAckChatStore) MarkAcknowledged(ctx context.Context, messageID, userID string, at time.Time) error {
	if m.ackErr != nil {
		return m.ackErr
	}
	message, ok := m.messages[messageID]
	if !ok || message.IsAcknowledged {
		return sql.ErrNoRows
	}
	message.IsAcknowledged = true
	message.AcknowledgedBy = &userID
	message.AcknowledgedAt = &at
	m.acknowledged = append(m.acknowledged, messageID)
	return nil
}

func (m *mockAckChatStore) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	if m.noticeErr != nil {
		return m.noticeErr
	}
	m.notices = append(m.notices, *message)
	return nil
}

type mockAckReminderStore struct {
	confirmed []string
	err       error
}

func (m *mockAckReminderStore) MarkConfirmed(ctx context.Context, lessonID string, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.confirmed = append(m.confirmed, lessonID)
	return nil
}

type mockAckLessonStore struct {
	confirmed []string
	err       error
}

func (m *mockAckLessonStore) SetConfirmed(ctx context.Context, lessonID string, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.confirmed = append(m.confirmed, lessonID)
	return nil
}

type mockSwapDecider struct {
	applied []string
	result  *dto.SwapDecisionResult
	err     error
}

func (m *mockSwapDecider) ApplyDecision(ctx context.Context, swapRequestID string, req *dto.SwapDecisionRequest) (*dto.SwapDecisionResult, error) {
	m.applied = append(m.applied, swapRequestID+":"+req.Decision)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &dto.SwapDecisionResult{SwapRequestID: swapRequestID, Status: req.Decision, DecidedAt: time.Now()}, nil
}

func ackFixture() (*mockAckChatStore, *mockAckReminderStore, *mockAckLessonStore, *mockSwapDecider) {
	chats := &mockAckChatStore{
		messages: map[string]*models.ChatMessage{
			"m1": {ID: "m1", ConversationID: "conv-1", SenderID: "coach-1", RequiresAck: true, Payload: models.ReminderPayload("l1")},
			"m2": {ID: "m2", ConversationID: "conv-2", SenderID: "client-2", RequiresAck: true, Payload: models.SwapPayload("swap-1")},
			"m3": {ID: "m3", ConversationID: "conv-1", SenderID: "coach-1", RequiresAck: true},
		},
		conversations: map[string]*models.Conversation{
			"conv-1": {ID: "conv-1", ParticipantAID: "client-1", ParticipantBID: "coach-1"},
			"conv-2": {ID: "conv-2", ParticipantAID: "client-1", ParticipantBID: "client-2"},
		},
	}
	return chats, &mockAckReminderStore{}, &mockAckLessonStore{}, &mockSwapDecider{}
}

func newTestAcknowledgeService(chats *mockAckChatStore, reminders *mockAckReminderStore, lessons *mockAckLessonStore, swaps *mockSwapDecider) *AcknowledgeService {
	return NewAcknowledgeService(chats, reminders, lessons, swaps, nil, nil)
}

func TestAcknowledgeReminderMessage(t *testing.T) {
	chats, reminders, lessons, swaps := ackFixture()
	svc := newTestAcknowledgeService(chats, reminders, lessons, swaps)

	result, err := svc.Acknowledge(context.Background(), "m1", "client-1", &dto.AcknowledgeRequest{})
	require.NoError(t, err)

	assert.Equal(t, "m1", result.MessageID)
	assert.Equal(t, "client-1", result.AcknowledgedBy)
	assert.Equal(t, []string{"l1"}, reminders.confirmed)
	assert.Equal(t, []string{"l1"}, lessons.confirmed)

	require.Len(t, chats.notices, 1)
	assert.Equal(t, "conv-1", chats.notices[0].ConversationID)
	assert.Equal(t, "client-1", chats.notices[0].SenderID)
	assert.False(t, chats.notices[0].RequiresAck)

	for _, effect := range result.SideEffects {
		assert.True(t, effect.OK, effect.Name)
	}
}

func TestAcknowledgeMessageNotFound(t *testing.T) {
	chats, reminders, lessons, swaps := ackFixture()
	svc := newTestAcknowledgeService(chats, reminders, lessons, swaps)

	_, err := svc.Acknowledge(context.Background(), "missing", "client-1", &dto.AcknowledgeRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAcknowledgeRejectsNonParticipant(t *testing.T) {
	chats, reminders, lessons, swaps := ackFixture()
	svc := newTestAcknowledgeService(chats, reminders, lessons, swaps)

	_, err := svc.Acknowledge(context.Background(), "m1", "intruder", &dto.AcknowledgeRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, chats.acknowledged)
}

func TestAcknowledgeMembershipCheckedBeforeAckState(t *testing.T) {
	chats, reminders, lessons, swaps := ackFixture()
	chats.messages["m1"].IsAcknowledged = true
	svc := newTestAcknowledgeService(chats, reminders, lessons, swaps)

	// A non-participant hears forbidden, never the acknowledgment state.
	_, err := svc.Acknowledge(context.Background(), "m1", "intruder", &dto.AcknowledgeRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAcknowledgeSwapRequiresDecision(t *testing.T) {
	chats, reminders, lessons, swaps := ackFixture()
	svc := newTestAcknowledgeService(chats, reminders, lessons, swaps)

	_, err := svc.Acknowledge(context.Background(), "m2", "client-1", &dto.AcknowledgeRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Acknowledge(context.Background(), "m2", "client-1", &dto.AcknowledgeRequest{Decision: "MAYBE"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	assert.Empty(t, chats.acknowledged)
	assert.Empty(t, swaps.applied)
}

func TestAcknowledgeIsMonotonic(t *testing.T) {
	chats, reminders, lessons, swaps := ackFixture()
	svc := newTestAcknowledgeService(chats, reminders, lessons, swaps)

	_, err := svc.Acknowledge(context.Background(), "m1", "client-1", &dto.AcknowledgeRequest{})
	require.NoError(t, err)

	_, err = svc.Acknowledge(context.Background(), "m1", "client-1", &dto.AcknowledgeRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyAcknowledged))

	// Follow-ups ran exactly once.
	assert.Equal(t, []string{"l1"}, reminders.confirmed)
	assert.Equal(t, []string{"l1"}, lessons.confirmed)
}

func TestAcknowledgeRaceLoserGetsConflict(t *testing.T) {
	chats, reminders, lessons, swaps := ackFixture()
	// The read sees an unacknowledged message but the conditional update
	// affects no rows, another acknowledger won in between.
	chats.ackErr = sql.ErrNoRows
	svc := newTestAcknowledgeService(chats, reminders, lessons, swaps)

	_, err := svc.Acknowledge(context.Background(), "m1", "client-1", &dto.AcknowledgeRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyAcknowledged))
	assert.Empty(t, reminders.confirmed)
}

func TestAcknowledgeLessonConfirmFailureKeepsAck(t *testing.T) {
	chats, reminders, lessons, swaps := ackFixture()
	lessons.err = errors.New("lessons store down")
	svc := newTestAcknowledgeService(chats, reminders, lessons, swaps)

	result, err := svc.Acknowledge(context.Background(), "m1", "client-1", &dto.AcknowledgeRequest{})
	require.NoError(t, err)

	assert.True(t, chats.messages["m1"].IsAcknowledged)
	var failed bool
	for _, effect := range result.SideEffects {
		if effect.Name == "lesson-confirmed" {
			failed = !effect.OK
		}
	}
	assert.True(t, failed)
}

func TestAcknowledgeSwapForwardsDecision(t *testing.T) {
	chats, reminders, lessons, swaps := ackFixture()
	svc := newTestAcknowledgeService(chats, reminders, lessons, swaps)

	result, err := svc.Acknowledge(context.Background(), "m2", "client-1", &dto.AcknowledgeRequest{Decision: "APPROVED"})
	require.NoError(t, err)

	assert.Equal(t, []string{"swap-1:APPROVED"}, swaps.applied)
	require.NotNil(t, result.SwapDecision)
	assert.Equal(t, "APPROVED", result.SwapDecision.Status)
}

func TestAcknowledgeSwapConflictDoesNotUnacknowledge(t *testing.T) {
	chats, reminders, lessons, swaps := ackFixture()
	swaps.err = appErrors.Clone(appErrors.ErrConflict, "swap request already processed")
	svc := newTestAcknowledgeService(chats, reminders, lessons, swaps)

	result, err := svc.Acknowledge(context.Background(), "m2", "client-1", &dto.AcknowledgeRequest{Decision: "DECLINED"})
	require.NoError(t, err)

	assert.True(t, chats.messages["m2"].IsAcknowledged)
	assert.Nil(t, result.SwapDecision)
	require.Len(t, result.SideEffects, 1)
	assert.Equal(t, "swap-decision", result.SideEffects[0].Name)
	assert.False(t, result.SideEffects[0].OK)
}

func TestAcknowledgePlainMessageHasNoFollowUps(t *testing.T) {
	chats, reminders, lessons, swaps := ackFixture()
	svc := newTestAcknowledgeService(chats, reminders, lessons, swaps)

	result, err := svc.Acknowledge(context.Background(), "m3", "client-1", &dto.AcknowledgeRequest{})
	require.NoError(t, err)

	assert.Empty(t, result.SideEffects)
	assert.Empty(t, reminders.confirmed)
	assert.Empty(t, swaps.applied)
	assert.Empty(t, chats.notices)
}
