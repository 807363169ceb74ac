package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classtalk-api/internal/dto"
	appErrors "github.com/noah-isme/classtalk-api/pkg/errors"
	"github.com/noah-isme/classtalk-api/pkg/response"
)

type classworkService interface {
	Summary(ctx context.Context, roomID string) ([]dto.ClassworkItem, error)
	ExportCSV(ctx context.Context, roomID string) ([]byte, error)
	ExportPDF(ctx context.Context, roomID, roomName string) ([]byte, error)
}

// ClassworkHandler serves the room's classwork summary and its exports.
type ClassworkHandler struct {
	classwork     classworkService
	rooms         membershipChecker
	exportEnabled bool
}

// NewClassworkHandler creates a new handler.
func NewClassworkHandler(classwork classworkService, rooms membershipChecker, exportEnabled bool) *ClassworkHandler {
	return &ClassworkHandler{classwork: classwork, rooms: rooms, exportEnabled: exportEnabled}
}

// Summary godoc
// @Summary Classwork summary
// @Description Assignments in the room with due state and submission counts
// @Tags Classwork
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /rooms/{id}/classwork [get]
func (h *ClassworkHandler) Summary(c *gin.Context) {
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

	items, err := h.classwork.Summary(c.Request.Context(), room.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}

// Export godoc
// @Summary Export classwork summary
// @Description Download the classwork summary as CSV or PDF
// @Tags Classwork
// @Produce octet-stream
// @Param id path string true "Room ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /rooms/{id}/classwork/export [get]
func (h *ClassworkHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if !h.exportEnabled {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "classwork export is disabled"))
		return
	}

	room, err := h.rooms.RequireMembership(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	format := c.DefaultQuery("format", "csv")
	switch format {
	case "csv":
		raw, err := h.classwork.ExportCSV(c.Request.Context(), room.ID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=classwork-%s.csv", room.ID))
		c.Data(http.StatusOK, "text/csv", raw)
	case "pdf":
		raw, err := h.classwork.ExportPDF(c.Request.Context(), room.ID, room.Name)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=classwork-%s.pdf", room.ID))
		c.Data(http.StatusOK, "application/pdf", raw)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}
