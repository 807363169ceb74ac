package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classtalk-api/internal/dto"
	"github.com/noah-isme/classtalk-api/internal/models"
	appErrors "github.com/noah-isme/classtalk-api/pkg/errors"
	"github.com/noah-isme/classtalk-api/pkg/export"
)

// ClassworkService summarizes a room's assignments and renders the summary
// as CSV or PDF. The summary and the deadline scan read the same message
// history, so the overdue flag here always agrees with what a scan would
// act on.
type ClassworkService struct {
	messages messageRepository
	cache    roomCache
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
	cacheTTL time.Duration
	now      func() time.Time
}

// NewClassworkService constructs a ClassworkService instance.
func NewClassworkService(messages messageRepository, cache roomCache, csv *export.CSVExporter, pdf *export.PDFExporter, logger *zap.Logger, cacheTTL time.Duration) *ClassworkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassworkService{
		messages: messages,
		cache:    cache,
		csv:      csv,
		pdf:      pdf,
		logger:   logger,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Summary returns one item per assignment message with its due state and
// how many distinct students have submitted against it. The computed
// summary is cached; sending an assignment or submission into the room
// invalidates it.
func (s *ClassworkService) Summary(ctx context.Context, roomID string) ([]dto.ClassworkItem, error) {
	cacheKey := classworkCacheKey(roomID)
	if s.cache != nil && s.cache.Enabled() {
		var cached []dto.ClassworkItem
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	history, err := s.messages.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room messages")
	}

	submitters := make(map[string]map[string]bool)
	for _, msg := range history {
		if msg.Type != models.MessageSubmission || msg.Submission == nil || msg.Submission.RefAssignmentID == "" {
			continue
		}
		refID := msg.Submission.RefAssignmentID
		if submitters[refID] == nil {
			submitters[refID] = make(map[string]bool)
		}
		submitters[refID][msg.SenderID] = true
	}

	now := s.now()
	items := make([]dto.ClassworkItem, 0)
	for _, msg := range history {
		if msg.Type != models.MessageAssignment || msg.Assignment == nil {
			continue
		}
		title := msg.Assignment.Title
		if title == "" {
			title = "Untitled Assignment"
		}
		items = append(items, dto.ClassworkItem{
			AssignmentID:    msg.ID,
			Title:           title,
			Description:     msg.Assignment.Description,
			MaxScore:        msg.Assignment.MaxScore,
			DueDate:         msg.Assignment.DueDate,
			Overdue:         msg.IsOverdue(now),
			SubmissionCount: len(submitters[msg.ID]),
			PostedBy:        msg.SenderName,
			AttachmentURL:   msg.Assignment.FileURL,
		})
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, items, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache classwork summary", zap.Error(err))
		}
	}

	return items, nil
}

// ExportCSV renders the classwork summary as CSV bytes.
func (s *ClassworkService) ExportCSV(ctx context.Context, roomID string) ([]byte, error) {
	dataset, err := s.dataset(ctx, roomID)
	if err != nil {
		return nil, err
	}
	raw, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return raw, nil
}

// ExportPDF renders the classwork summary as PDF bytes.
func (s *ClassworkService) ExportPDF(ctx context.Context, roomID, roomName string) ([]byte, error) {
	dataset, err := s.dataset(ctx, roomID)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Classwork Summary: %s", roomName)
	raw, err := s.pdf.Render(*dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return raw, nil
}

func (s *ClassworkService) dataset(ctx context.Context, roomID string) (*export.Dataset, error) {
	items, err := s.Summary(ctx, roomID)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		maxScore := ""
		if item.MaxScore != nil {
			maxScore = strconv.FormatFloat(*item.MaxScore, 'f', -1, 64)
		}
		rows = append(rows, map[string]string{
			"Assignment":  item.Title,
			"Due Date":    item.DueDate,
			"Overdue":     strconv.FormatBool(item.Overdue),
			"Max Score":   maxScore,
			"Submissions": strconv.Itoa(item.SubmissionCount),
			"Posted By":   item.PostedBy,
		})
	}

	return &export.Dataset{
		Headers: []string{"Assignment", "Due Date", "Overdue", "Max Score", "Submissions", "Posted By"},
		Rows:    rows,
	}, nil
}

func classworkCacheKey(roomID string) string {
	return fmt.Sprintf("classwork:summary:%s", roomID)
}
