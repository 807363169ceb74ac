package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classtalk-api/internal/dto"
	"github.com/noah-isme/classtalk-api/internal/models"
	appErrors "github.com/noah-isme/classtalk-api/pkg/errors"
)

type roomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id string) (*models.Room, error)
	AddMember(ctx context.Context, roomID, userID string) error
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	ListByMember(ctx context.Context, userID string) ([]dto.RoomItem, error)
}

type roomProfileRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
}

type roomCache interface {
	Enabled() bool
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// RoomService manages group and announcement rooms. Direct rooms are created
// exclusively by the notification workflow and never through this service.
type RoomService struct {
	rooms     roomRepository
	profiles  roomProfileRepository
	cache     roomCache
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewRoomService constructs a RoomService instance.
func NewRoomService(rooms roomRepository, profiles roomProfileRepository, cache roomCache, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *RoomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RoomService{
		rooms:     rooms,
		profiles:  profiles,
		cache:     cache,
		validator: validate,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// Create makes a new room and enrolls the creator as its first member.
func (s *RoomService) Create(ctx context.Context, creatorID string, req dto.CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room := &models.Room{
		Name:      req.Name,
		Type:      models.RoomType(req.Type),
		CreatedBy: creatorID,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	if err := s.rooms.AddMember(ctx, room.ID, creatorID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll creator")
	}

	s.invalidateRoomList(ctx, creatorID)

	return room, nil
}

// ListForUser returns the rooms the user belongs to, newest membership
// first, served from cache when warm. The second return value reports
// whether the cache served the request.
func (s *RoomService) ListForUser(ctx context.Context, userID string) ([]dto.RoomItem, bool, error) {
	cacheKey := roomListCacheKey(userID)

	if s.cache != nil && s.cache.Enabled() {
		var cached []dto.RoomItem
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	items, err := s.rooms.ListByMember(ctx, userID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	if items == nil {
		items = []dto.RoomItem{}
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, items, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache room list", zap.Error(err))
		}
	}

	return items, false, nil
}

// AddMember enrolls a profile, looked up by email, into the room. Only
// existing members may add others.
func (s *RoomService) AddMember(ctx context.Context, roomID, actorID string, req dto.AddMemberRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid member payload")
	}

	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	actorIsMember, err := s.rooms.IsMember(ctx, roomID, actorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !actorIsMember {
		return appErrors.Clone(appErrors.ErrForbidden, "only room members can add members")
	}

	profile, err := s.profiles.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no profile with that email")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up profile")
	}

	alreadyMember, err := s.rooms.IsMember(ctx, roomID, profile.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if alreadyMember {
		return appErrors.Clone(appErrors.ErrConflict, "profile is already a member")
	}

	if err := s.rooms.AddMember(ctx, roomID, profile.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add member")
	}

	s.invalidateRoomList(ctx, profile.ID)

	return nil
}

// RequireMembership loads the room and verifies the user belongs to it.
func (s *RoomService) RequireMembership(ctx context.Context, roomID, userID string) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	isMember, err := s.rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !isMember {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a member of this room")
	}

	return room, nil
}

func (s *RoomService) invalidateRoomList(ctx context.Context, userID string) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, roomListCacheKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate room list cache", zap.Error(err))
	}
}

func roomListCacheKey(userID string) string {
	return fmt.Sprintf("rooms:list:%s", userID)
}
