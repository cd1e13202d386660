package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peakform/coachdesk-api/internal/dto"
	"github.com/peakform/coachdesk-api/internal/middleware"
	"github.com/peakform/coachdesk-api/internal/models"
	appErrors "github.com/peakform/coachdesk-api/pkg/errors"
)

type acknowledgerMock struct {
	messageID string
	actorID   string
	decision  string
	err       error
}

func (m *acknowledgerMock) Acknowledge(ctx context.Context, messageID, actorID string, req *dto.AcknowledgeRequest) (*dto.AcknowledgeResult, error) {
	m.messageID = messageID
	m.actorID = actorID
	if req != nil {
		m.decision = req.Decision
	}
	if m.err != nil {
		return nil, m.err
	}
	return &dto.AcknowledgeResult{MessageID: messageID, AcknowledgedBy: actorID, AcknowledgedAt: time.Now()}, nil
}

func ackTestContext(t *testing.T, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/messages/m1/acknowledge", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "m1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestMessageHandlerAcknowledge(t *testing.T) {
	mock := &acknowledgerMock{}
	handler := NewMessageHandler(mock)

	body, _ := json.Marshal(dto.AcknowledgeRequest{Decision: "APPROVED"})
	c, w := ackTestContext(t, body, &models.JWTClaims{UserID: "client-1", Role: models.RoleClient})

	handler.Acknowledge(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "m1", mock.messageID)
	assert.Equal(t, "client-1", mock.actorID)
	assert.Equal(t, "APPROVED", mock.decision)
}

func TestMessageHandlerAcknowledgeEmptyBody(t *testing.T) {
	mock := &acknowledgerMock{}
	handler := NewMessageHandler(mock)

	c, w := ackTestContext(t, nil, &models.JWTClaims{UserID: "client-1", Role: models.RoleClient})

	handler.Acknowledge(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mock.decision)
}

func TestMessageHandlerAcknowledgeRequiresClaims(t *testing.T) {
	handler := NewMessageHandler(&acknowledgerMock{})

	c, w := ackTestContext(t, nil, nil)

	handler.Acknowledge(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMessageHandlerAcknowledgeConflictPassthrough(t *testing.T) {
	mock := &acknowledgerMock{err: appErrors.ErrAlreadyAcknowledged}
	handler := NewMessageHandler(mock)

	c, w := ackTestContext(t, nil, &models.JWTClaims{UserID: "client-1", Role: models.RoleClient})

	handler.Acknowledge(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}
