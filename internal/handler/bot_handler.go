package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classtalk-api/internal/dto"
	appErrors "github.com/noah-isme/classtalk-api/pkg/errors"
)

type notifyService interface {
	NotifyOverdue(ctx context.Context, req dto.NotifyRequest) (*dto.NotifyResponse, error)
}

// BotHandler exposes the bot notify endpoint. Unlike the rest of the API it
// does not use the common response envelope: callers contractually read
// dmRoomId from the top level on success and the top-level error string on
// failure.
type BotHandler struct {
	service notifyService
}

// NewBotHandler creates a new handler.
func NewBotHandler(svc notifyService) *BotHandler {
	return &BotHandler{service: svc}
}

// Notify godoc
// @Summary Send an overdue reminder to a student
// @Description Delivers a private deadline reminder through the bot, provisioning the bot identity and direct room on first use
// @Tags Bot
// @Accept json
// @Produce json
// @Param payload body dto.NotifyRequest true "Notification payload"
// @Success 200 {object} dto.NotifyResponse
// @Failure 400 {object} dto.NotifyError
// @Failure 500 {object} dto.NotifyError
// @Router /bot/notify [post]
func (h *BotHandler) Notify(c *gin.Context) {
	var req dto.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NotifyError{Error: "studentId and assignmentTitle are required"})
		return
	}

	res, err := h.service.NotifyOverdue(c.Request.Context(), req)
	if err != nil {
		appErr := appErrors.FromError(err)
		c.JSON(appErr.Status, dto.NotifyError{Error: appErr.Error()})
		return
	}

	c.JSON(http.StatusOK, res)
}
