package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zolffix/internal/storage/memory"
)

func TestJournalServiceAddListDelete(t *testing.T) {
	ctx := context.Background()
	now := testNow
	clock := func() time.Time { return now }
	svc := NewJournalService(ctx, memory.NewStore(), clock)

	first, err := svc.Add(ctx, "u1", JournalInput{Content: "Slept **well**", Mood: "calm"})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if first.Mood.Name != "Calm" || first.Mood.Emoji != "😌" {
		t.Fatalf("unexpected mood %+v", first.Mood)
	}
	if !strings.Contains(first.ContentHTML, "<strong>well</strong>") {
		t.Fatalf("expected markdown rendering, got %q", first.ContentHTML)
	}

	now = now.Add(time.Hour)
	second, _ := svc.Add(ctx, "u1", JournalInput{Content: "Busy day", Mood: "Anxious"})

	entries, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", entries)
	}

	if err := svc.Delete(ctx, "u1", first.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := svc.Delete(ctx, "u1", first.ID); err != nil {
		t.Fatalf("repeated Delete returned error: %v", err)
	}
	if count, _ := svc.Count(ctx, "u1"); count != 1 {
		t.Fatalf("expected 1 entry left, got %d", count)
	}
}

func TestJournalServiceValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewJournalService(ctx, memory.NewStore(), nil)

	if _, err := svc.Add(ctx, "u1", JournalInput{Content: "  ", Mood: "Happy"}); !errors.Is(err, ErrJournalInvalidInput) {
		t.Fatalf("expected ErrJournalInvalidInput for empty content, got %v", err)
	}
	if _, err := svc.Add(ctx, "u1", JournalInput{Content: "hi", Mood: "Bored"}); !errors.Is(err, ErrJournalInvalidInput) {
		t.Fatalf("expected ErrJournalInvalidInput for unknown mood, got %v", err)
	}
}

func TestJournalSanitizesHTML(t *testing.T) {
	ctx := context.Background()
	svc := NewJournalService(ctx, memory.NewStore(), nil)

	view, err := svc.Add(ctx, "u1", JournalInput{Content: "hello <script>alert(1)</script>", Mood: "Sad"})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if strings.Contains(view.ContentHTML, "<script>") {
		t.Fatalf("expected script to be stripped, got %q", view.ContentHTML)
	}
	if view.Content != "hello <script>alert(1)</script>" {
		t.Fatalf("raw content must be kept verbatim, got %q", view.Content)
	}
}
