package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/zolffix/internal/model"
	"github.com/zolffix/internal/storage"
)

// ErrJournalInvalidInput 在内容为空或心情未知时返回
var ErrJournalInvalidInput = errors.New("invalid journal input")

var (
	journalMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	journalSanitizer = bluemonday.UGCPolicy()
)

// JournalService 管理心情日记，条目创建后只能删除
type JournalService struct {
	entries *collection[model.JournalEntry]
	clock   Clock
}

// JournalInput 新建日记的输入
type JournalInput struct {
	Content string `json:"content" validate:"required,max=10000"`
	Mood    string `json:"mood" validate:"required,mood"`
}

// JournalView 是返回给客户端的日记，附带渲染后的 HTML
type JournalView struct {
	model.JournalEntry
	ContentHTML string `json:"contentHtml"`
}

func NewJournalService(watchCtx context.Context, store storage.Store, clock Clock) *JournalService {
	if clock == nil {
		clock = time.Now
	}
	return &JournalService{
		entries: newCollection[model.JournalEntry](watchCtx, store, storage.CollectionJournal, nil),
		clock:   clock,
	}
}

// Add 新建一条日记，新条目排在最前
func (s *JournalService) Add(ctx context.Context, userID string, input JournalInput) (JournalView, error) {
	input.Content = strings.TrimSpace(input.Content)
	input.Mood = strings.TrimSpace(input.Mood)
	if err := validateInput(ErrJournalInvalidInput, input); err != nil {
		return JournalView{}, err
	}

	mood, _ := model.LookupMood(input.Mood)
	entry := model.JournalEntry{
		ID:      uuid.NewString(),
		Content: input.Content,
		Mood:    mood,
		Date:    s.clock().UTC(),
	}

	if _, err := s.entries.update(ctx, userID, func(entries []model.JournalEntry) ([]model.JournalEntry, error) {
		return append([]model.JournalEntry{entry}, entries...), nil
	}); err != nil {
		return JournalView{}, fmt.Errorf("add journal entry: %w", err)
	}
	return renderJournal(entry), nil
}

// List 返回日记，最新的在前
func (s *JournalService) List(ctx context.Context, userID string) ([]JournalView, error) {
	entries, err := s.entries.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(entries, func(a, b model.JournalEntry) int {
		return b.Date.Compare(a.Date)
	})

	views := make([]JournalView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, renderJournal(entry))
	}
	return views, nil
}

// Count 返回日记条数
func (s *JournalService) Count(ctx context.Context, userID string) (int, error) {
	entries, err := s.entries.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Delete 删除日记，不存在时直接返回
func (s *JournalService) Delete(ctx context.Context, userID, entryID string) error {
	_, err := s.entries.update(ctx, userID, func(entries []model.JournalEntry) ([]model.JournalEntry, error) {
		idx := indexOf(entries, func(e model.JournalEntry) string { return e.ID }, entryID)
		if idx < 0 {
			return nil, errSkipWrite
		}
		return slices.Delete(entries, idx, idx+1), nil
	})
	if err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	return nil
}

func renderJournal(entry model.JournalEntry) JournalView {
	var buf bytes.Buffer
	if err := journalMarkdown.Convert([]byte(entry.Content), &buf); err != nil {
		return JournalView{JournalEntry: entry, ContentHTML: journalSanitizer.Sanitize(entry.Content)}
	}
	return JournalView{JournalEntry: entry, ContentHTML: string(journalSanitizer.SanitizeBytes(buf.Bytes()))}
}
