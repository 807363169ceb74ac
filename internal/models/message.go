package models

import (
	"encoding/json"
	"time"
)

// MessageType tags the payload variant carried in a message's metadata.
type MessageType string

const (
	MessageText       MessageType = "text"
	MessageAssignment MessageType = "assignment"
	MessageSubmission MessageType = "submission"
)

// Message represents an append-only chat message. Metadata is stored as a
// JSONB bag; DecodeMetadata materializes the typed variant matching Type so
// downstream code never re-checks field presence.
type Message struct {
	ID         string          `db:"id" json:"id"`
	RoomID     string          `db:"room_id" json:"room_id"`
	SenderID   string          `db:"sender_id" json:"sender_id"`
	SenderName string          `db:"sender_name" json:"sender_name"`
	Content    string          `db:"content" json:"content"`
	Type       MessageType     `db:"message_type" json:"message_type"`
	Metadata   json.RawMessage `db:"metadata" json:"metadata"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`

	Assignment *AssignmentMeta `db:"-" json:"-"`
	Submission *SubmissionMeta `db:"-" json:"-"`
}

// AssignmentMeta is the metadata variant for assignment messages. DueDate
// keeps the raw wire value; DueAt holds the parsed timestamp or nil when
// the raw value is absent or unparsable.
type AssignmentMeta struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	MaxScore    *float64 `json:"max_score,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
	FileURL     string   `json:"file_url,omitempty"`

	DueAt *time.Time `json:"-"`
}

// SubmissionMeta is the metadata variant for submission messages.
type SubmissionMeta struct {
	RefAssignmentID string `json:"ref_assignment_id"`
	Link            string `json:"link,omitempty"`
	Comment         string `json:"comment,omitempty"`
	FileURL         string `json:"file_url,omitempty"`
}

// DecodeMetadata populates the typed variant for the message's type. Junk
// metadata never fails the decode outright; an assignment with a malformed
// bag simply ends up with zero-valued fields and a nil DueAt, which the
// deadline scan treats as never overdue.
func (m *Message) DecodeMetadata() {
	switch m.Type {
	case MessageAssignment:
		meta := &AssignmentMeta{}
		if len(m.Metadata) > 0 {
			_ = json.Unmarshal(m.Metadata, meta)
		}
		meta.DueAt = parseDueDate(meta.DueDate)
		m.Assignment = meta
	case MessageSubmission:
		meta := &SubmissionMeta{}
		if len(m.Metadata) > 0 {
			_ = json.Unmarshal(m.Metadata, meta)
		}
		m.Submission = meta
	}
}

// IsOverdue reports whether the assignment's due timestamp is strictly in
// the past relative to now. Messages without a parsable due date are never
// overdue.
func (m *Message) IsOverdue(now time.Time) bool {
	if m.Type != MessageAssignment || m.Assignment == nil || m.Assignment.DueAt == nil {
		return false
	}
	return m.Assignment.DueAt.Before(now)
}

func parseDueDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	// Date-only values are treated as midnight UTC on that day.
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return &ts
	}
	return nil
}
