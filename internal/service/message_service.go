package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classtalk-api/internal/dto"
	"github.com/noah-isme/classtalk-api/internal/models"
	appErrors "github.com/noah-isme/classtalk-api/pkg/errors"
)

type messageRepository interface {
	ListByRoom(ctx context.Context, roomID string) ([]models.Message, error)
	Insert(ctx context.Context, message *models.Message) error
}

type attachmentSigner interface {
	Sign(messageID, objectPath string) (string, time.Time, error)
}

// MessageService reads and appends room messages. Metadata is validated once
// at the send boundary against the declared message type so readers never
// re-check field shapes.
type MessageService struct {
	messages  messageRepository
	signer    attachmentSigner
	cache     roomCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMessageService constructs a MessageService instance.
func NewMessageService(messages messageRepository, signer attachmentSigner, cache roomCache, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MessageService{
		messages:  messages,
		signer:    signer,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// ListByRoom returns the room's full history in insertion order with signed
// attachment URLs where the metadata references a stored file.
func (s *MessageService) ListByRoom(ctx context.Context, roomID string) ([]dto.MessageItem, error) {
	messages, err := s.messages.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}

	items := make([]dto.MessageItem, 0, len(messages))
	for _, msg := range messages {
		item := dto.MessageItem{
			ID:         msg.ID,
			RoomID:     msg.RoomID,
			SenderID:   msg.SenderID,
			SenderName: msg.SenderName,
			Content:    msg.Content,
			Type:       string(msg.Type),
			Metadata:   msg.Metadata,
			CreatedAt:  msg.CreatedAt,
		}
		if s.signer != nil {
			if fileURL := messageFileURL(&msg); fileURL != "" {
				if token, _, err := s.signer.Sign(msg.ID, fileURL); err == nil {
					item.AttachmentURL = token
				} else {
					s.logger.Warn("failed to sign attachment url", zap.String("message_id", msg.ID), zap.Error(err))
				}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// Send validates and appends a message authored by senderID.
func (s *MessageService) Send(ctx context.Context, roomID, senderID string, req dto.SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}

	msgType := models.MessageType(req.Type)
	metadata, err := validateMetadata(msgType, req.Metadata)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  req.Content,
		Type:     msgType,
		Metadata: metadata,
	}
	if err := s.messages.Insert(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert message")
	}

	// Only assignment and submission messages change the classwork summary.
	if msgType != models.MessageText && s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, classworkCacheKey(roomID)); err != nil {
			s.logger.Warn("failed to invalidate classwork cache", zap.Error(err))
		}
	}

	message.DecodeMetadata()
	return message, nil
}

// validateMetadata checks the metadata bag against the declared type.
// Submissions must reference an assignment; assignments may carry a due
// date, which is allowed to be absent or unparsable (such assignments are
// simply never overdue).
func validateMetadata(msgType models.MessageType, metadata map[string]interface{}) (json.RawMessage, error) {
	switch msgType {
	case models.MessageSubmission:
		ref, _ := metadata["ref_assignment_id"].(string)
		if ref == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "submission metadata requires ref_assignment_id")
		}
	case models.MessageAssignment:
		if title, ok := metadata["title"]; ok {
			if _, isString := title.(string); !isString {
				return nil, appErrors.Clone(appErrors.ErrValidation, "assignment title must be a string")
			}
		}
	}

	if len(metadata) == 0 {
		return json.RawMessage(`{}`), nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid metadata")
	}
	return raw, nil
}

func messageFileURL(msg *models.Message) string {
	switch {
	case msg.Assignment != nil:
		return msg.Assignment.FileURL
	case msg.Submission != nil:
		return msg.Submission.FileURL
	}
	return ""
}
