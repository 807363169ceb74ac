package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classtalk-api/internal/dto"
	"github.com/noah-isme/classtalk-api/internal/models"
	"github.com/noah-isme/classtalk-api/pkg/export"
)

func newTestClassworkService(repo *stubMessageRepo) *ClassworkService {
	svc := NewClassworkService(repo, nil, export.NewCSVExporter(), export.NewPDFExporter(), zap.NewNop(), time.Minute)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestClassworkSummary(t *testing.T) {
	repo := &stubMessageRepo{messages: []models.Message{
		assignmentMessage("a1", "Essay", "2020-01-01T00:00:00Z"),
		assignmentMessage("a2", "Future", "2030-01-01T00:00:00Z"),
		submissionMessage("m1", "s1", "a1"),
		submissionMessage("m2", "s2", "a1"),
		submissionMessage("m3", "s1", "a1"), // resubmission, still one student
		{ID: "t1", Type: models.MessageText, Content: "hello"},
	}}
	svc := newTestClassworkService(repo)

	items, err := svc.Summary(context.Background(), "room-1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "a1", items[0].AssignmentID)
	assert.True(t, items[0].Overdue)
	assert.Equal(t, 2, items[0].SubmissionCount)

	assert.Equal(t, "a2", items[1].AssignmentID)
	assert.False(t, items[1].Overdue)
	assert.Zero(t, items[1].SubmissionCount)
}

func TestClassworkSummaryUntitledFallback(t *testing.T) {
	repo := &stubMessageRepo{messages: []models.Message{
		assignmentMessage("a1", "", "2020-01-01T00:00:00Z"),
	}}
	svc := newTestClassworkService(repo)

	items, err := svc.Summary(context.Background(), "room-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Untitled Assignment", items[0].Title)
}

func TestClassworkExportCSV(t *testing.T) {
	repo := &stubMessageRepo{messages: []models.Message{
		assignmentMessage("a1", "Essay", "2020-01-01T00:00:00Z"),
		submissionMessage("m1", "s1", "a1"),
	}}
	svc := newTestClassworkService(repo)

	raw, err := svc.ExportCSV(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Assignment,Due Date,Overdue,Max Score,Submissions,Posted By")
	assert.Contains(t, string(raw), "Essay")
	assert.Contains(t, string(raw), "true")
}

func TestClassworkExportPDF(t *testing.T) {
	repo := &stubMessageRepo{messages: []models.Message{
		assignmentMessage("a1", "Essay", "2020-01-01T00:00:00Z"),
	}}
	svc := newTestClassworkService(repo)

	raw, err := svc.ExportPDF(context.Background(), "room-1", "History 101")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}

type stubClassworkCache struct {
	store       map[string][]dto.ClassworkItem
	invalidated []string
}

func (s *stubClassworkCache) Enabled() bool { return true }

func (s *stubClassworkCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	items, ok := s.store[key]
	if !ok {
		return false, nil
	}
	*dest.(*[]dto.ClassworkItem) = items
	return true, nil
}

func (s *stubClassworkCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]dto.ClassworkItem)
	}
	s.store[key] = value.([]dto.ClassworkItem)
	return nil
}

func (s *stubClassworkCache) Invalidate(ctx context.Context, pattern string) error {
	s.invalidated = append(s.invalidated, pattern)
	delete(s.store, pattern)
	return nil
}

func TestClassworkSummaryCached(t *testing.T) {
	repo := &stubMessageRepo{messages: []models.Message{
		assignmentMessage("a1", "Essay", "2020-01-01T00:00:00Z"),
	}}
	cache := &stubClassworkCache{}
	svc := NewClassworkService(repo, cache, export.NewCSVExporter(), export.NewPDFExporter(), zap.NewNop(), time.Minute)

	first, err := svc.Summary(context.Background(), "room-1")
	require.NoError(t, err)
	second, err := svc.Summary(context.Background(), "room-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listCalls)
}

func TestMessageSendInvalidatesClassworkCache(t *testing.T) {
	repo := &stubMessageRepo{}
	cache := &stubClassworkCache{store: map[string][]dto.ClassworkItem{
		classworkCacheKey("room-1"): {{AssignmentID: "a1"}},
	}}
	svc := NewMessageService(repo, &stubSigner{}, cache, validator.New(), zap.NewNop())

	_, err := svc.Send(context.Background(), "room-1", "t1", dto.SendMessageRequest{
		Content: "new assignment", Type: "assignment",
		Metadata: map[string]interface{}{"title": "Essay"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{classworkCacheKey("room-1")}, cache.invalidated)

	_, err = svc.Send(context.Background(), "room-1", "t1", dto.SendMessageRequest{Content: "hi", Type: "text"})
	require.NoError(t, err)
	// Text messages do not touch the summary, so no further invalidation.
	assert.Len(t, cache.invalidated, 1)
}
