package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/peakform/coachdesk-api/internal/dto"
	appErrors "github.com/peakform/coachdesk-api/pkg/errors"
	"github.com/peakform/coachdesk-api/pkg/response"
)

type swapDecisionApplier interface {
	ApplyDecision(ctx context.Context, swapRequestID string, req *dto.SwapDecisionRequest) (*dto.SwapDecisionResult, error)
}

// SwapHandler exposes time-swap decision endpoints.
type SwapHandler struct {
	service swapDecisionApplier
}

// NewSwapHandler builds a new handler.
func NewSwapHandler(service swapDecisionApplier) *SwapHandler {
	return &SwapHandler{service: service}
}

// Decide godoc
// @Summary Apply a swap request decision
// @Tags Swaps
// @Accept json
// @Produce json
// @Param id path string true "Swap request ID"
// @Param payload body dto.SwapDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /swap-requests/{id}/decision [post]
func (h *SwapHandler) Decide(c *gin.Context) {
	var req dto.SwapDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	result, err := h.service.ApplyDecision(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
