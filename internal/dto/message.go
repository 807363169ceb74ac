package dto

import (
	"encoding/json"
	"time"
)

// SendMessageRequest posts a message into a room. Metadata is validated
// once here against the declared type before the row is inserted.
type SendMessageRequest struct {
	Content  string                 `json:"content" validate:"required"`
	Type     string                 `json:"message_type" validate:"required,oneof=text assignment submission"`
	Metadata map[string]interface{} `json:"metadata"`
}

// MessageItem is the message list projection. AttachmentURL carries a
// signed download token when the metadata references a stored file.
type MessageItem struct {
	ID            string          `json:"id"`
	RoomID        string          `json:"room_id"`
	SenderID      string          `json:"sender_id"`
	SenderName    string          `json:"sender_name"`
	Content       string          `json:"content"`
	Type          string          `json:"message_type"`
	Metadata      json.RawMessage `json:"metadata"`
	AttachmentURL string          `json:"attachment_url,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
