package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classtalk-api/internal/dto"
	"github.com/noah-isme/classtalk-api/internal/models"
)

type stubDeadlineMessages struct {
	messages []models.Message
	err      error
	calls    int
}

func (s *stubDeadlineMessages) ListByRoom(ctx context.Context, roomID string) ([]models.Message, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.messages, nil
}

type stubDeadlineRooms struct {
	students []models.RoomStudent
	err      error
	calls    int
}

func (s *stubDeadlineRooms) ListStudents(ctx context.Context, roomID string) ([]models.RoomStudent, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.students, nil
}

type stubNotifier struct {
	calls   []dto.NotifyRequest
	failAt  int // 1-based call index to fail on; 0 means never fail
	failErr error
}

func (s *stubNotifier) NotifyOverdue(ctx context.Context, req dto.NotifyRequest) (*dto.NotifyResponse, error) {
	s.calls = append(s.calls, req)
	if s.failAt > 0 && len(s.calls) == s.failAt {
		if s.failErr == nil {
			s.failErr = errors.New("notify failed: upstream 500")
		}
		return nil, s.failErr
	}
	return &dto.NotifyResponse{Success: true, DMRoomID: "dm-" + req.StudentID}, nil
}

func assignmentMessage(id, title, dueDate string) models.Message {
	meta := map[string]interface{}{}
	if title != "" {
		meta["title"] = title
	}
	if dueDate != "" {
		meta["due_date"] = dueDate
	}
	raw, _ := json.Marshal(meta)
	msg := models.Message{ID: id, Type: models.MessageAssignment, Metadata: raw}
	msg.DecodeMetadata()
	return msg
}

func submissionMessage(id, senderID, refAssignmentID string) models.Message {
	raw, _ := json.Marshal(map[string]interface{}{"ref_assignment_id": refAssignmentID})
	msg := models.Message{ID: id, SenderID: senderID, Type: models.MessageSubmission, Metadata: raw}
	msg.DecodeMetadata()
	return msg
}

func newTestDeadlineService(messages *stubDeadlineMessages, rooms *stubDeadlineRooms, notifier *stubNotifier) *DeadlineService {
	svc := NewDeadlineService(messages, rooms, notifier, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestDeadlineCheckNoOverdue(t *testing.T) {
	messages := &stubDeadlineMessages{messages: []models.Message{
		assignmentMessage("a1", "Future Essay", "2030-01-01T00:00:00Z"),
		assignmentMessage("a2", "No Due Date", ""),
		assignmentMessage("a3", "Junk Due Date", "not-a-date"),
		{ID: "t1", Type: models.MessageText, Content: "hello"},
	}}
	rooms := &stubDeadlineRooms{students: []models.RoomStudent{{UserID: "s1"}}}
	notifier := &stubNotifier{}
	svc := newTestDeadlineService(messages, rooms, notifier)

	res, err := svc.RunDeadlineCheck(context.Background(), "room-1", "History")
	require.NoError(t, err)
	assert.Equal(t, dto.DeadlineOutcomeNoOverdue, res.Outcome)
	assert.Equal(t, "No overdue assignments found.", res.Summary)
	// Short-circuits before any membership read or notification call.
	assert.Zero(t, rooms.calls)
	assert.Empty(t, notifier.calls)
}

func TestDeadlineCheckNoStudents(t *testing.T) {
	messages := &stubDeadlineMessages{messages: []models.Message{
		assignmentMessage("a1", "Essay", "2020-01-01T00:00:00Z"),
	}}
	rooms := &stubDeadlineRooms{}
	notifier := &stubNotifier{}
	svc := newTestDeadlineService(messages, rooms, notifier)

	res, err := svc.RunDeadlineCheck(context.Background(), "room-1", "History")
	require.NoError(t, err)
	assert.Equal(t, dto.DeadlineOutcomeNoStudents, res.Outcome)
	assert.Equal(t, "No students in this room.", res.Summary)
	assert.Empty(t, notifier.calls)
}

func TestDeadlineCheckSingleDelinquentStudent(t *testing.T) {
	messages := &stubDeadlineMessages{messages: []models.Message{
		assignmentMessage("a1", "Essay", "2020-01-01T00:00:00Z"),
	}}
	rooms := &stubDeadlineRooms{students: []models.RoomStudent{{UserID: "s1", FullName: "Alice"}}}
	notifier := &stubNotifier{}
	svc := newTestDeadlineService(messages, rooms, notifier)

	res, err := svc.RunDeadlineCheck(context.Background(), "room-1", "History")
	require.NoError(t, err)
	assert.Equal(t, dto.DeadlineOutcomeCompleted, res.Outcome)
	assert.Equal(t, "Notifications sent to 1 student.", res.Summary)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "s1", notifier.calls[0].StudentID)
	assert.Equal(t, "Alice", notifier.calls[0].StudentName)
	assert.Equal(t, "Essay", notifier.calls[0].AssignmentTitle)
	assert.Equal(t, "History", notifier.calls[0].RoomName)
}

func TestDeadlineCheckDateOnlyDueDateIsOverdue(t *testing.T) {
	messages := &stubDeadlineMessages{messages: []models.Message{
		assignmentMessage("a1", "Essay", "2020-01-01"),
	}}
	rooms := &stubDeadlineRooms{students: []models.RoomStudent{{UserID: "s1", FullName: "Alice"}}}
	notifier := &stubNotifier{}
	svc := newTestDeadlineService(messages, rooms, notifier)

	res, err := svc.RunDeadlineCheck(context.Background(), "room-1", "History")
	require.NoError(t, err)
	assert.Equal(t, dto.DeadlineOutcomeCompleted, res.Outcome)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "Essay", notifier.calls[0].AssignmentTitle)
}

func TestDeadlineCheckSubmittersAreSkipped(t *testing.T) {
	messages := &stubDeadlineMessages{messages: []models.Message{
		assignmentMessage("a1", "Essay", "2020-01-01T00:00:00Z"),
		submissionMessage("m1", "s1", "a1"),
		submissionMessage("m2", "s1", "a1"), // resubmission changes nothing
	}}
	rooms := &stubDeadlineRooms{students: []models.RoomStudent{
		{UserID: "s1", FullName: "Alice"},
		{UserID: "s2", FullName: "Bob"},
	}}
	notifier := &stubNotifier{}
	svc := newTestDeadlineService(messages, rooms, notifier)

	res, err := svc.RunDeadlineCheck(context.Background(), "room-1", "History")
	require.NoError(t, err)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "s2", notifier.calls[0].StudentID)
	assert.Equal(t, "Notifications sent to 1 student.", res.Summary)
}

func TestDeadlineCheckAllSubmitted(t *testing.T) {
	messages := &stubDeadlineMessages{messages: []models.Message{
		assignmentMessage("a1", "Essay", "2020-01-01T00:00:00Z"),
		submissionMessage("m1", "s1", "a1"),
		submissionMessage("m2", "s2", "a1"),
	}}
	rooms := &stubDeadlineRooms{students: []models.RoomStudent{{UserID: "s1"}, {UserID: "s2"}}}
	notifier := &stubNotifier{}
	svc := newTestDeadlineService(messages, rooms, notifier)

	res, err := svc.RunDeadlineCheck(context.Background(), "room-1", "History")
	require.NoError(t, err)
	assert.Equal(t, "All students have submitted on time!", res.Summary)
	assert.Empty(t, notifier.calls)
}

func TestDeadlineCheckFanOutOrderIsDeterministic(t *testing.T) {
	messages := &stubDeadlineMessages{messages: []models.Message{
		assignmentMessage("a1", "First", "2020-01-01T00:00:00Z"),
		assignmentMessage("a2", "Second", "2021-01-01T00:00:00Z"),
	}}
	rooms := &stubDeadlineRooms{students: []models.RoomStudent{
		{UserID: "s1", FullName: "Alice"},
		{UserID: "s2", FullName: "Bob"},
		{UserID: "s3", FullName: "Cara"},
	}}
	notifier := &stubNotifier{}
	svc := newTestDeadlineService(messages, rooms, notifier)

	res, err := svc.RunDeadlineCheck(context.Background(), "room-1", "History")
	require.NoError(t, err)
	assert.Equal(t, "Notifications sent to 6 students.", res.Summary)
	assert.Equal(t, 6, res.Notified)

	// Assignment order then student order, reproducible across runs.
	var got []string
	for _, call := range notifier.calls {
		got = append(got, fmt.Sprintf("%s/%s", call.AssignmentTitle, call.StudentID))
	}
	assert.Equal(t, []string{
		"First/s1", "First/s2", "First/s3",
		"Second/s1", "Second/s2", "Second/s3",
	}, got)
}

func TestDeadlineCheckAbortsOnFirstFailure(t *testing.T) {
	messages := &stubDeadlineMessages{messages: []models.Message{
		assignmentMessage("a1", "Essay", "2020-01-01T00:00:00Z"),
	}}
	rooms := &stubDeadlineRooms{students: []models.RoomStudent{
		{UserID: "s1"}, {UserID: "s2"}, {UserID: "s3"},
	}}
	notifier := &stubNotifier{failAt: 2}
	svc := newTestDeadlineService(messages, rooms, notifier)

	_, err := svc.RunDeadlineCheck(context.Background(), "room-1", "History")
	require.Error(t, err)
	// No calls attempted after the failure point.
	assert.Len(t, notifier.calls, 2)
}

func TestDeadlineCheckUntitledAssignmentFallback(t *testing.T) {
	messages := &stubDeadlineMessages{messages: []models.Message{
		assignmentMessage("a1", "", "2020-01-01T00:00:00Z"),
	}}
	rooms := &stubDeadlineRooms{students: []models.RoomStudent{{UserID: "s1"}}}
	notifier := &stubNotifier{}
	svc := newTestDeadlineService(messages, rooms, notifier)

	_, err := svc.RunDeadlineCheck(context.Background(), "room-1", "History")
	require.NoError(t, err)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "Untitled Assignment", notifier.calls[0].AssignmentTitle)
}

func TestDeadlineCheckSubmissionForOtherAssignmentDoesNotExempt(t *testing.T) {
	messages := &stubDeadlineMessages{messages: []models.Message{
		assignmentMessage("a1", "Essay", "2020-01-01T00:00:00Z"),
		submissionMessage("m1", "s1", "a2"),
	}}
	rooms := &stubDeadlineRooms{students: []models.RoomStudent{{UserID: "s1"}}}
	notifier := &stubNotifier{}
	svc := newTestDeadlineService(messages, rooms, notifier)

	_, err := svc.RunDeadlineCheck(context.Background(), "room-1", "History")
	require.NoError(t, err)
	assert.Len(t, notifier.calls, 1)
}

func TestDeadlineCheckRerunRepeatsNotifications(t *testing.T) {
	messages := &stubDeadlineMessages{messages: []models.Message{
		assignmentMessage("a1", "Essay", "2020-01-01T00:00:00Z"),
	}}
	rooms := &stubDeadlineRooms{students: []models.RoomStudent{{UserID: "s1"}}}
	notifier := &stubNotifier{}
	svc := newTestDeadlineService(messages, rooms, notifier)

	_, err := svc.RunDeadlineCheck(context.Background(), "room-1", "History")
	require.NoError(t, err)
	_, err = svc.RunDeadlineCheck(context.Background(), "room-1", "History")
	require.NoError(t, err)
	assert.Len(t, notifier.calls, 2)
}
