package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classtalk-api/internal/dto"
	"github.com/noah-isme/classtalk-api/internal/models"
	appErrors "github.com/noah-isme/classtalk-api/pkg/errors"
	"github.com/noah-isme/classtalk-api/pkg/response"
)

type deadlineRunner interface {
	RunDeadlineCheck(ctx context.Context, roomID, roomName string) (*dto.DeadlineCheckResult, error)
}

type membershipChecker interface {
	RequireMembership(ctx context.Context, roomID, userID string) (*models.Room, error)
}

// DeadlineHandler triggers on-demand deadline scans. There is no scheduler;
// a teacher in the room decides when to run it.
type DeadlineHandler struct {
	deadlines deadlineRunner
	rooms     membershipChecker
}

// NewDeadlineHandler creates a new handler.
func NewDeadlineHandler(deadlines deadlineRunner, rooms membershipChecker) *DeadlineHandler {
	return &DeadlineHandler{deadlines: deadlines, rooms: rooms}
}

// Run godoc
// @Summary Run a deadline scan for a room
// @Description Notifies every enrolled student who missed an overdue assignment's deadline
// @Tags Deadlines
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /rooms/{id}/deadline-check [post]
func (h *DeadlineHandler) Run(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	roomID := c.Param("id")
	room, err := h.rooms.RequireMembership(c.Request.Context(), roomID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.deadlines.RunDeadlineCheck(c.Request.Context(), room.ID, room.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}
