package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classtalk-api/internal/dto"
	"github.com/noah-isme/classtalk-api/internal/middleware"
	"github.com/noah-isme/classtalk-api/internal/models"
	appErrors "github.com/noah-isme/classtalk-api/pkg/errors"
)

type fakeDeadlineSrv struct {
	result   *dto.DeadlineCheckResult
	err      error
	lastRoom string
	lastName string
}

func (f *fakeDeadlineSrv) RunDeadlineCheck(_ context.Context, roomID, roomName string) (*dto.DeadlineCheckResult, error) {
	f.lastRoom = roomID
	f.lastName = roomName
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeMembership struct {
	room *models.Room
	err  error
}

func (f *fakeMembership) RequireMembership(context.Context, string, string) (*models.Room, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.room, nil
}

func runDeadline(t *testing.T, handler *DeadlineHandler, claims *models.JWTClaims) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/rooms/room-1/deadline-check", nil)
	c.Params = gin.Params{{Key: "id", Value: "room-1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	handler.Run(c)
	return rec
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}
}

func TestDeadlineHandlerRunSuccess(t *testing.T) {
	srv := &fakeDeadlineSrv{result: &dto.DeadlineCheckResult{
		Outcome: dto.DeadlineOutcomeCompleted, Summary: "Notifications sent to 2 students.", Notified: 2,
	}}
	handler := NewDeadlineHandler(srv, &fakeMembership{room: &models.Room{ID: "room-1", Name: "History 101"}})

	rec := runDeadline(t, handler, teacherClaims())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "room-1", srv.lastRoom)
	assert.Equal(t, "History 101", srv.lastName)

	var envelope struct {
		Data dto.DeadlineCheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Notifications sent to 2 students.", envelope.Data.Summary)
}

func TestDeadlineHandlerRunUnauthenticated(t *testing.T) {
	handler := NewDeadlineHandler(&fakeDeadlineSrv{}, &fakeMembership{})

	rec := runDeadline(t, handler, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeadlineHandlerRunNotAMember(t *testing.T) {
	handler := NewDeadlineHandler(&fakeDeadlineSrv{}, &fakeMembership{err: appErrors.ErrForbidden})

	rec := runDeadline(t, handler, teacherClaims())

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeadlineHandlerRunScanFailure(t *testing.T) {
	srv := &fakeDeadlineSrv{err: appErrors.Wrap(assert.AnError, appErrors.ErrDelivery.Code, appErrors.ErrDelivery.Status, "Message send failed")}
	handler := NewDeadlineHandler(srv, &fakeMembership{room: &models.Room{ID: "room-1", Name: "History"}})

	rec := runDeadline(t, handler, teacherClaims())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
