package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/peakform/coachdesk-api/internal/dto"
	appErrors "github.com/peakform/coachdesk-api/pkg/errors"
	"github.com/peakform/coachdesk-api/pkg/response"
)

type messageAcknowledger interface {
	Acknowledge(ctx context.Context, messageID, actorID string, req *dto.AcknowledgeRequest) (*dto.AcknowledgeResult, error)
}

// MessageHandler exposes in-app message endpoints.
type MessageHandler struct {
	service messageAcknowledger
}

// NewMessageHandler builds a new handler.
func NewMessageHandler(service messageAcknowledger) *MessageHandler {
	return &MessageHandler{service: service}
}

// Acknowledge godoc
// @Summary Acknowledge a message
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "Message ID"
// @Param payload body dto.AcknowledgeRequest false "Acknowledgment options"
// @Success 200 {object} response.Envelope
// @Router /messages/{id}/acknowledge [post]
func (h *MessageHandler) Acknowledge(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AcknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid acknowledge payload"))
		return
	}

	result, err := h.service.Acknowledge(c.Request.Context(), c.Param("id"), claims.UserID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
