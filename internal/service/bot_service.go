package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classtalk-api/internal/dto"
	"github.com/noah-isme/classtalk-api/internal/models"
	appErrors "github.com/noah-isme/classtalk-api/pkg/errors"
	"github.com/noah-isme/classtalk-api/pkg/gotrue"
)

type botProfileRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
}

type botRoomRepository interface {
	FindDirectRoomWith(ctx context.Context, firstUserID, secondUserID string) (string, error)
	Create(ctx context.Context, room *models.Room) error
	AddMember(ctx context.Context, roomID, userID string) error
}

type botMessageRepository interface {
	Insert(ctx context.Context, message *models.Message) error
}

type identityProvisioner interface {
	CreateUser(ctx context.Context, params gotrue.CreateUserParams) (*gotrue.AdminUser, error)
}

type notificationMetrics interface {
	RecordNotification(status string)
}

// BotServiceConfig carries the bot identity and the elevated credential
// required for provisioning it.
type BotServiceConfig struct {
	BotEmail       string
	BotName        string
	ServiceRoleKey string
}

// BotService delivers private deadline reminders on behalf of a shared bot
// identity. It lazily provisions the bot account and the bot-to-student
// direct room, so the first call for a given student does the scaffolding
// and every later call reuses it.
type BotService struct {
	profiles    botProfileRepository
	rooms       botRoomRepository
	messages    botMessageRepository
	provisioner identityProvisioner
	metrics     notificationMetrics
	logger      *zap.Logger
	config      BotServiceConfig
}

// NewBotService constructs a BotService instance.
func NewBotService(
	profiles botProfileRepository,
	rooms botRoomRepository,
	messages botMessageRepository,
	provisioner identityProvisioner,
	metrics notificationMetrics,
	logger *zap.Logger,
	config BotServiceConfig,
) *BotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BotService{
		profiles:    profiles,
		rooms:       rooms,
		messages:    messages,
		provisioner: provisioner,
		metrics:     metrics,
		logger:      logger,
		config:      config,
	}
}

// NotifyOverdue guarantees a reminder reaches the named student privately,
// creating the bot identity and the direct room if they do not exist yet.
// Every call appends a new reminder message; de-duplication is the caller's
// concern.
func (s *BotService) NotifyOverdue(ctx context.Context, req dto.NotifyRequest) (*dto.NotifyResponse, error) {
	// The elevated credential gates the whole operation, not just the
	// provisioning branch: without it the service must not touch the store.
	if s.config.ServiceRoleKey == "" {
		s.recordNotification("failed")
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "SUPABASE_SERVICE_ROLE_KEY is not configured")
	}

	if req.StudentID == "" || req.AssignmentTitle == "" {
		s.recordNotification("rejected")
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId and assignmentTitle are required")
	}

	botUserID, err := s.resolveBotIdentity(ctx)
	if err != nil {
		s.recordNotification("failed")
		return nil, err
	}

	dmRoomID, err := s.resolveDirectRoom(ctx, botUserID, req.StudentID)
	if err != nil {
		s.recordNotification("failed")
		return nil, err
	}

	studentName := req.StudentName
	if studentName == "" {
		studentName = "there"
	}
	roomName := req.RoomName
	if roomName == "" {
		roomName = "your class"
	}
	content := fmt.Sprintf(
		`Hi %s, you missed the deadline for "%s" in %s. Please submit your work as soon as possible.`,
		studentName, req.AssignmentTitle, roomName,
	)

	message := &models.Message{
		RoomID:   dmRoomID,
		SenderID: botUserID,
		Content:  content,
		Type:     models.MessageText,
	}
	if err := s.messages.Insert(ctx, message); err != nil {
		s.recordNotification("failed")
		return nil, appErrors.Wrap(err, appErrors.ErrDelivery.Code, appErrors.ErrDelivery.Status, "Message send failed")
	}

	s.logger.Info("reminder delivered",
		zap.String("student_id", req.StudentID),
		zap.String("dm_room_id", dmRoomID),
	)
	s.recordNotification("sent")

	return &dto.NotifyResponse{Success: true, DMRoomID: dmRoomID}, nil
}

// resolveBotIdentity returns the bot's user id, provisioning the identity on
// first use. The provisioned account is pre-verified with a random credential
// that is never used interactively; the store's trigger on new auth users
// materializes the matching profile row.
func (s *BotService) resolveBotIdentity(ctx context.Context) (string, error) {
	profile, err := s.profiles.FindByEmail(ctx, s.config.BotEmail)
	if err == nil {
		return profile.ID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", appErrors.Wrap(err, appErrors.ErrProvisioning.Code, appErrors.ErrProvisioning.Status, "Bot user lookup failed")
	}

	created, err := s.provisioner.CreateUser(ctx, gotrue.CreateUserParams{
		Email:        s.config.BotEmail,
		Password:     uuid.NewString(),
		EmailConfirm: true,
		UserMetadata: map[string]interface{}{
			"full_name": s.config.BotName,
			"role":      string(models.RoleTeacher),
		},
	})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrProvisioning.Code, appErrors.ErrProvisioning.Status, "Bot user creation failed")
	}

	s.logger.Info("bot identity provisioned", zap.String("bot_user_id", created.ID))
	return created.ID, nil
}

// resolveDirectRoom returns an existing bot/student direct room or creates
// one with both memberships. Two racing first calls for the same student can
// each create a room; the schema's uniqueness constraint is the backstop.
func (s *BotService) resolveDirectRoom(ctx context.Context, botUserID, studentID string) (string, error) {
	roomID, err := s.rooms.FindDirectRoomWith(ctx, botUserID, studentID)
	if err == nil {
		return roomID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", appErrors.Wrap(err, appErrors.ErrChannel.Code, appErrors.ErrChannel.Status, "Room lookup failed")
	}

	room := &models.Room{
		Name:      s.config.BotName,
		Type:      models.RoomDirect,
		CreatedBy: botUserID,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrChannel.Code, appErrors.ErrChannel.Status, "Room creation failed")
	}

	for _, userID := range []string{botUserID, studentID} {
		if err := s.rooms.AddMember(ctx, room.ID, userID); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrChannel.Code, appErrors.ErrChannel.Status, "Room membership creation failed")
		}
	}

	s.logger.Info("direct room created",
		zap.String("room_id", room.ID),
		zap.String("student_id", studentID),
	)
	return room.ID, nil
}

func (s *BotService) recordNotification(status string) {
	if s.metrics != nil {
		s.metrics.RecordNotification(status)
	}
}
