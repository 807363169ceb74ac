package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classtalk-api/internal/models"
)

func TestMessageListByRoomDecodesMetadata(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "room_id", "sender_id", "sender_name", "content", "message_type", "metadata", "created_at"}).
		AddRow("m1", "room-1", "t1", "Teacher", "Homework 1", "assignment", []byte(`{"title":"Homework 1","due_date":"2020-01-01T00:00:00Z"}`), now).
		AddRow("m2", "room-1", "s1", "Ana", "my submission", "submission", []byte(`{"ref_assignment_id":"m1","link":"https://example.com"}`), now)
	mock.ExpectQuery("SELECT m.id, m.room_id, m.sender_id").
		WithArgs("room-1").
		WillReturnRows(rows)

	messages, err := repo.ListByRoom(context.Background(), "room-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)

	require.NotNil(t, messages[0].Assignment)
	assert.Equal(t, "Homework 1", messages[0].Assignment.Title)
	require.NotNil(t, messages[0].Assignment.DueAt)
	assert.True(t, messages[0].IsOverdue(time.Now()))

	require.NotNil(t, messages[1].Submission)
	assert.Equal(t, "m1", messages[1].Submission.RefAssignmentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageInsertDefaultsMetadata(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMessageRepository(db)

	mock.ExpectExec("INSERT INTO messages").WillReturnResult(sqlmock.NewResult(1, 1))

	message := &models.Message{
		RoomID:   "room-1",
		SenderID: "bot-1",
		Content:  "reminder",
		Type:     models.MessageText,
	}
	err := repo.Insert(context.Background(), message)
	require.NoError(t, err)
	assert.NotEmpty(t, message.ID)
	assert.Equal(t, json.RawMessage(`{}`), message.Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}
