package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakform/coachdesk-api/internal/dto"
	"github.com/peakform/coachdesk-api/internal/models"
	appErrors "github.com/peakform/coachdesk-api/pkg/errors"
)

type mockSwapStore struct {
	requests  map[string]*models.SwapRequest
	decided   []string
	decideErr error
}

func (m *mockSwapStore) GetByID(ctx context.Context, id string) (*models.SwapRequest, error) {
	if request, ok := m.requests[id]; ok {
		return request, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSwapStore) MarkDecided(ctx context.Context, exec sqlx.ExtContext, id string, status models.SwapStatus, decidedAt time.Time) error {
	if m.decideErr != nil {
		return m.decideErr
	}
	m.decided = append(m.decided, id+":"+string(status))
	return nil
}

type mockSwapLessonStore struct {
	lessons    map[string]*models.Lesson
	reassigned []string
	failOn     string
}

func (m *mockSwapLessonStore) GetByID(ctx context.Context, id string) (*models.Lesson, error) {
	if lesson, ok := m.lessons[id]; ok {
		return lesson, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSwapLessonStore) ReassignOwner(ctx context.Context, exec sqlx.ExtContext, lessonID, clientID string) error {
	if m.failOn == lessonID {
		return errors.New("reassign failed")
	}
	m.reassigned = append(m.reassigned, lessonID+"->"+clientID)
	return nil
}

type mockNotificationStore struct {
	created []models.Notification
	err     error
}

func (m *mockNotificationStore) Create(ctx context.Context, exec sqlx.ExtContext, notification *models.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, *notification)
	return nil
}

type mockPushDispatcher struct {
	pushed []string
}

func (m *mockPushDispatcher) EnqueuePush(userID, kind string, payload map[string]string) error {
	m.pushed = append(m.pushed, userID+":"+kind)
	return nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func swapFixture() (*mockSwapStore, *mockSwapLessonStore, *mockNotificationStore, *mockChatStore, *mockPushDispatcher) {
	swaps := &mockSwapStore{requests: map[string]*models.SwapRequest{
		"swap-1": {
			ID:                "swap-1",
			RequesterID:       "client-1",
			TargetID:          "client-2",
			RequesterLessonID: "l1",
			TargetLessonID:    "l2",
			Status:            models.SwapStatusPending,
		},
	}}
	lessons := &mockSwapLessonStore{lessons: map[string]*models.Lesson{
		"l1": {ID: "l1", ClientID: "client-1", CoachID: "coach-1"},
		"l2": {ID: "l2", ClientID: "client-2", CoachID: "coach-1"},
	}}
	return swaps, lessons, &mockNotificationStore{}, &mockChatStore{}, &mockPushDispatcher{}
}

func newTestSwapService(t *testing.T, swaps *mockSwapStore, lessons *mockSwapLessonStore, notifications *mockNotificationStore, chats *mockChatStore, push *mockPushDispatcher) (*SwapService, sqlmock.Sqlmock) {
	tx, mock := newTxProviderMock(t)
	svc := NewSwapService(swaps, lessons, notifications, chats, push, tx, nil, nil, nil)
	return svc, mock
}

func TestSwapDecline(t *testing.T) {
	swaps, lessons, notifications, chats, push := swapFixture()
	svc, _ := newTestSwapService(t, swaps, lessons, notifications, chats, push)

	result, err := svc.ApplyDecision(context.Background(), "swap-1", &dto.SwapDecisionRequest{Decision: "DECLINED"})
	require.NoError(t, err)

	assert.Equal(t, string(models.SwapStatusDeclined), result.Status)
	assert.Equal(t, []string{"swap-1:DECLINED"}, swaps.decided)
	assert.Empty(t, lessons.reassigned)
	assert.Empty(t, notifications.created)

	require.Len(t, chats.messages, 1)
	assert.Contains(t, chats.messages[0].Body, "declined")
	assert.Equal(t, []string{"client-1:SWAP_DECLINED"}, push.pushed)
}

func TestSwapApprove(t *testing.T) {
	swaps, lessons, notifications, chats, push := swapFixture()
	svc, mock := newTestSwapService(t, swaps, lessons, notifications, chats, push)

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.ApplyDecision(context.Background(), "swap-1", &dto.SwapDecisionRequest{Decision: "APPROVED"})
	require.NoError(t, err)

	assert.Equal(t, string(models.SwapStatusApproved), result.Status)
	assert.Equal(t, []string{"swap-1:APPROVED"}, swaps.decided)
	assert.Equal(t, []string{"l1->client-2", "l2->client-1"}, lessons.reassigned)

	require.Len(t, notifications.created, 1)
	assert.Equal(t, "coach-1", notifications.created[0].UserID)
	assert.Equal(t, models.NotificationSwapApproved, notifications.created[0].Kind)

	require.Len(t, chats.messages, 1)
	assert.Contains(t, chats.messages[0].Body, "approved")
	assert.Equal(t, []string{"client-1:SWAP_APPROVED"}, push.pushed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapApproveRollsBackOnReassignFailure(t *testing.T) {
	swaps, lessons, notifications, chats, push := swapFixture()
	lessons.failOn = "l2"
	svc, mock := newTestSwapService(t, swaps, lessons, notifications, chats, push)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.ApplyDecision(context.Background(), "swap-1", &dto.SwapDecisionRequest{Decision: "APPROVED"})
	require.Error(t, err)

	assert.Empty(t, notifications.created)
	assert.Empty(t, chats.messages)
	assert.Empty(t, push.pushed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapDecisionNotFound(t *testing.T) {
	swaps, lessons, notifications, chats, push := swapFixture()
	svc, _ := newTestSwapService(t, swaps, lessons, notifications, chats, push)

	_, err := svc.ApplyDecision(context.Background(), "missing", &dto.SwapDecisionRequest{Decision: "APPROVED"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestSwapDecisionAlreadyProcessed(t *testing.T) {
	swaps, lessons, notifications, chats, push := swapFixture()
	swaps.requests["swap-1"].Status = models.SwapStatusApproved
	svc, _ := newTestSwapService(t, swaps, lessons, notifications, chats, push)

	_, err := svc.ApplyDecision(context.Background(), "swap-1", &dto.SwapDecisionRequest{Decision: "DECLINED"})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, swaps.decided)
}

func TestSwapDecisionRaceLoserGetsConflict(t *testing.T) {
	swaps, lessons, notifications, chats, push := swapFixture()
	// The read sees PENDING but the guarded update loses to a concurrent
	// decision and affects no rows.
	swaps.decideErr = sql.ErrNoRows
	svc, mock := newTestSwapService(t, swaps, lessons, notifications, chats, push)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.ApplyDecision(context.Background(), "swap-1", &dto.SwapDecisionRequest{Decision: "APPROVED"})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, lessons.reassigned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapDecisionValidation(t *testing.T) {
	swaps, lessons, notifications, chats, push := swapFixture()
	svc, _ := newTestSwapService(t, swaps, lessons, notifications, chats, push)

	_, err := svc.ApplyDecision(context.Background(), "swap-1", &dto.SwapDecisionRequest{Decision: "MAYBE"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.ApplyDecision(context.Background(), "swap-1", &dto.SwapDecisionRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSwapDeclineNoticeFailureKeepsDecision(t *testing.T) {
	swaps, lessons, notifications, chats, push := swapFixture()
	chats.messageErr = errors.New("chat store down")
	svc, _ := newTestSwapService(t, swaps, lessons, notifications, chats, push)

	result, err := svc.ApplyDecision(context.Background(), "swap-1", &dto.SwapDecisionRequest{Decision: "DECLINED"})
	require.NoError(t, err)

	assert.Equal(t, string(models.SwapStatusDeclined), result.Status)
	var noticeFailed bool
	for _, effect := range result.SideEffects {
		if effect.Name == "decision-message" && !effect.OK {
			noticeFailed = true
		}
	}
	assert.True(t, noticeFailed)
}
