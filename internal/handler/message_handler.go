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

type messageService interface {
	ListByRoom(ctx context.Context, roomID string) ([]dto.MessageItem, error)
	Send(ctx context.Context, roomID, senderID string, req dto.SendMessageRequest) (*models.Message, error)
}

// MessageHandler wires HTTP endpoints to the message service. Both routes
// require room membership.
type MessageHandler struct {
	messages messageService
	rooms    membershipChecker
}

// NewMessageHandler creates a new handler.
func NewMessageHandler(messages messageService, rooms membershipChecker) *MessageHandler {
	return &MessageHandler{messages: messages, rooms: rooms}
}

// List godoc
// @Summary List room messages
// @Description Full message history of the room in insertion order
// @Tags Messages
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rooms/{id}/messages [get]
func (h *MessageHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	room, err := h.rooms.RequireMembership(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items, err := h.messages.ListByRoom(c.Request.Context(), room.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Send godoc
// @Summary Send a message
// @Description Post a text, assignment, or submission message into the room
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param payload body dto.SendMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /rooms/{id}/messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	room, err := h.rooms.RequireMembership(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), room.ID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, msg)
}
