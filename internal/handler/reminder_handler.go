package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/peakform/coachdesk-api/internal/dto"
	appErrors "github.com/peakform/coachdesk-api/pkg/errors"
	"github.com/peakform/coachdesk-api/pkg/response"
)

type reminderSweeper interface {
	Sweep(ctx context.Context, now time.Time, mode string, targetClientID string) (*dto.DispatchReport, error)
}

// ReminderHandler exposes the on-demand reminder sweep.
type ReminderHandler struct {
	service     reminderSweeper
	defaultMode string
	deadline    time.Duration
}

// NewReminderHandler builds a new handler.
func NewReminderHandler(service reminderSweeper, defaultMode string, deadline time.Duration) *ReminderHandler {
	return &ReminderHandler{service: service, defaultMode: defaultMode, deadline: deadline}
}

// Sweep godoc
// @Summary Run a reminder sweep now
// @Tags Reminders
// @Accept json
// @Produce json
// @Param payload body dto.SweepRequest false "Sweep options"
// @Success 200 {object} response.Envelope
// @Router /reminders/sweep [post]
func (h *ReminderHandler) Sweep(c *gin.Context) {
	var req dto.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sweep payload"))
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = h.defaultMode
	}

	ctx := c.Request.Context()
	if h.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.deadline)
		defer cancel()
	}

	report, err := h.service.Sweep(ctx, time.Now().UTC(), mode, req.TargetClientID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
