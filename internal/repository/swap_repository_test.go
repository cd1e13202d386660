package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakform/coachdesk-api/internal/models"
)

func TestSwapRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "requester_id", "target_id", "requester_lesson_id", "target_lesson_id", "status", "message", "created_at", "approved_at"}).
		AddRow("swap-1", "client-1", "client-2", "l1", "l2", models.SwapStatusPending, nil, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, requester_id, target_id, requester_lesson_id, target_lesson_id")).
		WithArgs("swap-1").
		WillReturnRows(rows)

	request, err := repo.GetByID(context.Background(), "swap-1")
	require.NoError(t, err)
	assert.Equal(t, models.SwapStatusPending, request.Status)
	assert.Equal(t, "l1", request.RequesterLessonID)
}

func TestSwapRepositoryMarkDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE swap_requests SET status = $1, approved_at = $2")).
		WithArgs(models.SwapStatusApproved, &at, "swap-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkDecided(context.Background(), nil, "swap-1", models.SwapStatusApproved, at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapRepositoryMarkDecidedDeclineClearsApprovedAt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	at := time.Now()
	var nilTime *time.Time
	mock.ExpectExec(regexp.QuoteMeta("UPDATE swap_requests SET status = $1, approved_at = $2")).
		WithArgs(models.SwapStatusDeclined, nilTime, "swap-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkDecided(context.Background(), nil, "swap-1", models.SwapStatusDeclined, at))
}

func TestSwapRepositoryMarkDecidedAlreadyProcessed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	// The guarded update matches no rows once the status left PENDING.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE swap_requests SET status = $1, approved_at = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkDecided(context.Background(), nil, "swap-1", models.SwapStatusApproved, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSwapRepositoryMarkDecidedInsideTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSwapRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE swap_requests SET status = $1, approved_at = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.MarkDecided(context.Background(), tx, "swap-1", models.SwapStatusApproved, time.Now()))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}
