package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classtalk-api/internal/dto"
	"github.com/noah-isme/classtalk-api/internal/models"
	appErrors "github.com/noah-isme/classtalk-api/pkg/errors"
)

type stubRoomRepo struct {
	rooms       map[string]*models.Room
	memberships map[string]map[string]bool // roomID -> userID set
	listItems   []dto.RoomItem
	listCalls   int
}

func newStubRoomRepo() *stubRoomRepo {
	return &stubRoomRepo{
		rooms:       make(map[string]*models.Room),
		memberships: make(map[string]map[string]bool),
	}
}

func (s *stubRoomRepo) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = "room-1"
	}
	s.rooms[room.ID] = room
	return nil
}

func (s *stubRoomRepo) FindByID(ctx context.Context, id string) (*models.Room, error) {
	room, ok := s.rooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return room, nil
}

func (s *stubRoomRepo) AddMember(ctx context.Context, roomID, userID string) error {
	if s.memberships[roomID] == nil {
		s.memberships[roomID] = make(map[string]bool)
	}
	s.memberships[roomID][userID] = true
	return nil
}

func (s *stubRoomRepo) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	return s.memberships[roomID][userID], nil
}

func (s *stubRoomRepo) ListByMember(ctx context.Context, userID string) ([]dto.RoomItem, error) {
	s.listCalls++
	return s.listItems, nil
}

type stubRoomCache struct {
	enabled bool
	store   map[string][]dto.RoomItem
}

func (s *stubRoomCache) Enabled() bool { return s.enabled }

func (s *stubRoomCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	items, ok := s.store[key]
	if !ok {
		return false, nil
	}
	*dest.(*[]dto.RoomItem) = items
	return true, nil
}

func (s *stubRoomCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]dto.RoomItem)
	}
	s.store[key] = value.([]dto.RoomItem)
	return nil
}

func (s *stubRoomCache) Invalidate(ctx context.Context, pattern string) error {
	delete(s.store, pattern)
	return nil
}

func newTestRoomService(rooms *stubRoomRepo, profiles *stubBotProfiles, cache *stubRoomCache) *RoomService {
	return NewRoomService(rooms, profiles, cache, validator.New(), zap.NewNop(), time.Minute)
}

func TestRoomServiceCreateEnrollsCreator(t *testing.T) {
	rooms := newStubRoomRepo()
	svc := newTestRoomService(rooms, &stubBotProfiles{}, &stubRoomCache{})

	room, err := svc.Create(context.Background(), "t1", dto.CreateRoomRequest{Name: "History 101", Type: "group"})
	require.NoError(t, err)
	assert.Equal(t, models.RoomGroup, room.Type)
	assert.True(t, rooms.memberships[room.ID]["t1"])
}

func TestRoomServiceCreateRejectsDirectType(t *testing.T) {
	svc := newTestRoomService(newStubRoomRepo(), &stubBotProfiles{}, &stubRoomCache{})

	_, err := svc.Create(context.Background(), "t1", dto.CreateRoomRequest{Name: "DM", Type: "direct"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRoomServiceListUsesCache(t *testing.T) {
	rooms := newStubRoomRepo()
	rooms.listItems = []dto.RoomItem{{ID: "room-1", Name: "History"}}
	cache := &stubRoomCache{enabled: true}
	svc := newTestRoomService(rooms, &stubBotProfiles{}, cache)

	first, firstHit, err := svc.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	second, secondHit, err := svc.ListForUser(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.False(t, firstHit)
	assert.True(t, secondHit)
	assert.Equal(t, 1, rooms.listCalls)
}

func TestRoomServiceAddMemberByEmail(t *testing.T) {
	rooms := newStubRoomRepo()
	rooms.rooms["room-1"] = &models.Room{ID: "room-1", Type: models.RoomGroup}
	rooms.memberships["room-1"] = map[string]bool{"t1": true}
	profiles := &stubBotProfiles{byEmail: map[string]*models.Profile{
		"alice@example.com": {ID: "s1", Email: "alice@example.com", Role: models.RoleStudent},
	}}
	svc := newTestRoomService(rooms, profiles, &stubRoomCache{})

	require.NoError(t, svc.AddMember(context.Background(), "room-1", "t1", dto.AddMemberRequest{Email: "alice@example.com"}))
	assert.True(t, rooms.memberships["room-1"]["s1"])
}

func TestRoomServiceAddMemberRequiresMembership(t *testing.T) {
	rooms := newStubRoomRepo()
	rooms.rooms["room-1"] = &models.Room{ID: "room-1", Type: models.RoomGroup}
	profiles := &stubBotProfiles{byEmail: map[string]*models.Profile{
		"alice@example.com": {ID: "s1"},
	}}
	svc := newTestRoomService(rooms, profiles, &stubRoomCache{})

	err := svc.AddMember(context.Background(), "room-1", "outsider", dto.AddMemberRequest{Email: "alice@example.com"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestRoomServiceAddMemberDuplicate(t *testing.T) {
	rooms := newStubRoomRepo()
	rooms.rooms["room-1"] = &models.Room{ID: "room-1", Type: models.RoomGroup}
	rooms.memberships["room-1"] = map[string]bool{"t1": true, "s1": true}
	profiles := &stubBotProfiles{byEmail: map[string]*models.Profile{
		"alice@example.com": {ID: "s1"},
	}}
	svc := newTestRoomService(rooms, profiles, &stubRoomCache{})

	err := svc.AddMember(context.Background(), "room-1", "t1", dto.AddMemberRequest{Email: "alice@example.com"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestRoomServiceRequireMembership(t *testing.T) {
	rooms := newStubRoomRepo()
	rooms.rooms["room-1"] = &models.Room{ID: "room-1", Name: "History", Type: models.RoomGroup}
	rooms.memberships["room-1"] = map[string]bool{"u1": true}
	svc := newTestRoomService(rooms, &stubBotProfiles{}, &stubRoomCache{})

	room, err := svc.RequireMembership(context.Background(), "room-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "History", room.Name)

	_, err = svc.RequireMembership(context.Background(), "room-1", "outsider")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	_, err = svc.RequireMembership(context.Background(), "missing", "u1")
	require.Error(t, err)
	appErr = appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
