package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classtalk-api/internal/dto"
	"github.com/noah-isme/classtalk-api/internal/models"
	appErrors "github.com/noah-isme/classtalk-api/pkg/errors"
)

type deadlineMessageRepository interface {
	ListByRoom(ctx context.Context, roomID string) ([]models.Message, error)
}

type deadlineRoomRepository interface {
	ListStudents(ctx context.Context, roomID string) ([]models.RoomStudent, error)
}

// overdueNotifier is the call boundary between the scan and the notification
// service. BotService satisfies it in process; NotifyClient satisfies it over
// HTTP.
type overdueNotifier interface {
	NotifyOverdue(ctx context.Context, req dto.NotifyRequest) (*dto.NotifyResponse, error)
}

type deadlineMetrics interface {
	RecordDeadlineScan(outcome string)
}

// DeadlineService decides which (assignment, student) pairs are delinquent
// right now and drives exactly one notification call per pair. Calls run
// strictly sequentially and the first failure aborts the scan; a re-run
// redoes every qualifying notification including any already sent.
type DeadlineService struct {
	messages deadlineMessageRepository
	rooms    deadlineRoomRepository
	notifier overdueNotifier
	metrics  deadlineMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewDeadlineService constructs a DeadlineService instance.
func NewDeadlineService(
	messages deadlineMessageRepository,
	rooms deadlineRoomRepository,
	notifier overdueNotifier,
	metrics deadlineMetrics,
	logger *zap.Logger,
) *DeadlineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineService{
		messages: messages,
		rooms:    rooms,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// RunDeadlineCheck scans the room's message history for overdue assignments
// and notifies every enrolled student who has not submitted against them.
func (s *DeadlineService) RunDeadlineCheck(ctx context.Context, roomID, roomName string) (*dto.DeadlineCheckResult, error) {
	history, err := s.messages.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room messages")
	}
	return s.runScan(ctx, history, roomID, roomName)
}

func (s *DeadlineService) runScan(ctx context.Context, history []models.Message, roomID, roomName string) (*dto.DeadlineCheckResult, error) {
	var assignments, submissions []models.Message
	for _, msg := range history {
		switch msg.Type {
		case models.MessageAssignment:
			assignments = append(assignments, msg)
		case models.MessageSubmission:
			submissions = append(submissions, msg)
		}
	}

	now := s.now()
	var overdue []models.Message
	for _, assignment := range assignments {
		if assignment.IsOverdue(now) {
			overdue = append(overdue, assignment)
		}
	}

	if len(overdue) == 0 {
		s.recordScan(dto.DeadlineOutcomeNoOverdue)
		return &dto.DeadlineCheckResult{
			Outcome: dto.DeadlineOutcomeNoOverdue,
			Summary: "No overdue assignments found.",
		}, nil
	}

	students, err := s.rooms.ListStudents(ctx, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room students")
	}
	if len(students) == 0 {
		s.recordScan(dto.DeadlineOutcomeNoStudents)
		return &dto.DeadlineCheckResult{
			Outcome: dto.DeadlineOutcomeNoStudents,
			Summary: "No students in this room.",
			Overdue: len(overdue),
		}, nil
	}

	// Any submission ever posted against an assignment exempts its sender,
	// regardless of recency or content.
	submitters := make(map[string]map[string]bool)
	for _, submission := range submissions {
		if submission.Submission == nil || submission.Submission.RefAssignmentID == "" {
			continue
		}
		refID := submission.Submission.RefAssignmentID
		if submitters[refID] == nil {
			submitters[refID] = make(map[string]bool)
		}
		submitters[refID][submission.SenderID] = true
	}

	notified := 0
	for _, assignment := range overdue {
		title := "Untitled Assignment"
		if assignment.Assignment != nil && assignment.Assignment.Title != "" {
			title = assignment.Assignment.Title
		}
		submitted := submitters[assignment.ID]

		for _, student := range students {
			if submitted[student.UserID] {
				continue
			}

			resp, err := s.notifier.NotifyOverdue(ctx, dto.NotifyRequest{
				StudentID:       student.UserID,
				StudentName:     student.FullName,
				AssignmentTitle: title,
				RoomName:        roomName,
			})
			if err != nil {
				s.logger.Warn("deadline scan aborted on failed notification",
					zap.String("room_id", roomID),
					zap.String("assignment_id", assignment.ID),
					zap.String("student_id", student.UserID),
					zap.Int("notified_before_failure", notified),
					zap.Error(err),
				)
				s.recordScan("failed")
				return nil, err
			}

			s.logger.Debug("reminder sent",
				zap.String("assignment_id", assignment.ID),
				zap.String("student_id", student.UserID),
				zap.String("dm_room_id", resp.DMRoomID),
			)
			notified++
		}
	}

	summary := "All students have submitted on time!"
	if notified > 0 {
		plural := "s"
		if notified == 1 {
			plural = ""
		}
		summary = fmt.Sprintf("Notifications sent to %d student%s.", notified, plural)
	}

	s.recordScan(dto.DeadlineOutcomeCompleted)
	return &dto.DeadlineCheckResult{
		Outcome:  dto.DeadlineOutcomeCompleted,
		Summary:  summary,
		Overdue:  len(overdue),
		Students: len(students),
		Notified: notified,
	}, nil
}

func (s *DeadlineService) recordScan(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordDeadlineScan(outcome)
	}
}
