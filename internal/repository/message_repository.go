package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classtalk-api/internal/models"
)

// MessageRepository provides database access for the append-only message
// log. Messages are never updated or deleted.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new instance of MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// ListByRoom returns the room's full message history in insertion order
// with the sender's display name joined in. Metadata variants are decoded
// before the rows are returned.
func (r *MessageRepository) ListByRoom(ctx context.Context, roomID string) ([]models.Message, error) {
	const query = `
SELECT m.id, m.room_id, m.sender_id, COALESCE(p.full_name, '') AS sender_name,
	m.content, m.message_type, m.metadata, m.created_at
FROM messages m
LEFT JOIN profiles p ON p.id = m.sender_id
WHERE m.room_id = $1
ORDER BY m.created_at ASC, m.id ASC`
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, roomID); err != nil {
		return nil, fmt.Errorf("list messages by room: %w", err)
	}
	for i := range messages {
		messages[i].DecodeMetadata()
	}
	return messages, nil
}

// Insert appends a message row. The metadata bag defaults to an empty
// object so the column never stores NULL.
func (r *MessageRepository) Insert(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if len(message.Metadata) == 0 {
		message.Metadata = json.RawMessage(`{}`)
	}
	message.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO messages (id, room_id, sender_id, content, message_type, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		message.ID, message.RoomID, message.SenderID, message.Content,
		message.Type, []byte(message.Metadata), message.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}
