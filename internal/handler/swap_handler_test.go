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
	appErrors "github.com/peakform/coachdesk-api/pkg/errors"
)

type swapApplierMock struct {
	id       string
	decision string
	err      error
}

func (m *swapApplierMock) ApplyDecision(ctx context.Context, swapRequestID string, req *dto.SwapDecisionRequest) (*dto.SwapDecisionResult, error) {
	m.id = swapRequestID
	m.decision = req.Decision
	if m.err != nil {
		return nil, m.err
	}
	return &dto.SwapDecisionResult{SwapRequestID: swapRequestID, Status: req.Decision, DecidedAt: time.Now()}, nil
}

func swapTestContext(t *testing.T, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/swap-requests/swap-1/decision", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "swap-1"}}
	return c, w
}

func TestSwapHandlerDecide(t *testing.T) {
	mock := &swapApplierMock{}
	handler := NewSwapHandler(mock)

	body, _ := json.Marshal(dto.SwapDecisionRequest{Decision: "DECLINED"})
	c, w := swapTestContext(t, body)

	handler.Decide(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "swap-1", mock.id)
	assert.Equal(t, "DECLINED", mock.decision)
}

func TestSwapHandlerDecideInvalidBody(t *testing.T) {
	handler := NewSwapHandler(&swapApplierMock{})

	c, w := swapTestContext(t, []byte(`not json`))

	handler.Decide(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSwapHandlerDecideConflict(t *testing.T) {
	mock := &swapApplierMock{err: appErrors.Clone(appErrors.ErrConflict, "swap request already processed")}
	handler := NewSwapHandler(mock)

	body, _ := json.Marshal(dto.SwapDecisionRequest{Decision: "APPROVED"})
	c, w := swapTestContext(t, body)

	handler.Decide(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}
