package service

import (
	"context"
	"errors"
	"testing"

	"github.com/zolffix/internal/model"
	"github.com/zolffix/internal/storage/memory"
)

type stubQuoteSource struct {
	quotes     []model.Quote
	err        error
	categories []string
}

func (s *stubQuoteSource) RequestQuotes(_ context.Context, category string, count int) ([]model.Quote, error) {
	s.categories = append(s.categories, category)
	if s.err != nil {
		return nil, s.err
	}
	return s.quotes, nil
}

func TestFallbackQuotesDeterministic(t *testing.T) {
	first := FallbackQuotes("Healing", 3)
	second := FallbackQuotes("Healing", 3)
	if len(first) != 3 {
		t.Fatalf("expected 3 quotes, got %d", len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("fallback ids must be stable, got %s and %s", first[i].ID, second[i].ID)
		}
	}
	if first[0].ID == first[1].ID {
		t.Fatal("fallback ids must differ per index")
	}
	if other := FallbackQuotes("Love", 1); other[0].ID == first[0].ID {
		t.Fatal("fallback ids must differ per category")
	}
}

func TestQuoteServiceFeedFallsBack(t *testing.T) {
	ctx := context.Background()
	source := &stubQuoteSource{err: errors.New("network down")}
	svc := NewQuoteService(ctx, memory.NewStore(), source, nil)

	items, err := svc.Feed(ctx, "u1", "motivation", 2)
	if err != nil {
		t.Fatalf("Feed returned error: %v", err)
	}
	if len(items) != 2 || !items[0].Fallback {
		t.Fatalf("expected two fallback quotes, got %+v", items)
	}
	if items[0].Category != "Motivation" || source.categories[0] != "Motivation" {
		t.Fatalf("expected canonical category, got %q / %v", items[0].Category, source.categories)
	}

	source.err = nil
	source.quotes = nil
	items, _ = svc.Feed(ctx, "u1", "Life", 1)
	if len(items) != 1 || !items[0].Fallback {
		t.Fatalf("expected fallback on empty result, got %+v", items)
	}
}

func TestQuoteServiceFeedUsesFavorites(t *testing.T) {
	ctx := context.Background()
	source := &stubQuoteSource{quotes: []model.Quote{{ID: "q1", Text: "x", Category: "Growth"}}}
	favorites := func(context.Context, string) []string { return []string{"growth", "unknown"} }
	svc := NewQuoteService(ctx, memory.NewStore(), source, favorites)
	svc.pick = func(int) int { return 0 }

	items, err := svc.Feed(ctx, "u1", "", 0)
	if err != nil {
		t.Fatalf("Feed returned error: %v", err)
	}
	if source.categories[0] != "Growth" {
		t.Fatalf("expected favorite category, got %v", source.categories)
	}
	if len(items) != 1 || items[0].Fallback {
		t.Fatalf("expected source quotes, got %+v", items)
	}

	if _, err := svc.Feed(ctx, "u1", "Nonsense", 1); !errors.Is(err, ErrQuoteInvalidInput) {
		t.Fatalf("expected ErrQuoteInvalidInput for unknown category, got %v", err)
	}
}

func TestQuoteServiceToggleMembership(t *testing.T) {
	ctx := context.Background()
	quote := model.Quote{ID: "q1", Text: "Keep going", Author: QuoteAuthor, Category: "Life"}
	source := &stubQuoteSource{quotes: []model.Quote{quote}}
	svc := NewQuoteService(ctx, memory.NewStore(), source, nil)

	saved, err := svc.ToggleSaved(ctx, "u1", quote)
	if err != nil || !saved {
		t.Fatalf("expected quote to be saved, got %v err=%v", saved, err)
	}
	liked, err := svc.ToggleLiked(ctx, "u1", quote)
	if err != nil || !liked {
		t.Fatalf("expected quote to be liked, got %v err=%v", liked, err)
	}

	items, _ := svc.Feed(ctx, "u1", "Life", 1)
	if !items[0].Saved || !items[0].Liked {
		t.Fatalf("expected feed to reflect membership, got %+v", items[0])
	}

	saved, _ = svc.ToggleSaved(ctx, "u1", quote)
	if saved {
		t.Fatal("expected second toggle to unsave")
	}
	savedQuotes, _ := svc.Saved(ctx, "u1")
	likedQuotes, _ := svc.Liked(ctx, "u1")
	if len(savedQuotes) != 0 || len(likedQuotes) != 1 {
		t.Fatalf("saved and liked are independent, got saved=%d liked=%d", len(savedQuotes), len(likedQuotes))
	}

	if _, err := svc.ToggleSaved(ctx, "u1", model.Quote{ID: "q2"}); !errors.Is(err, ErrQuoteInvalidInput) {
		t.Fatalf("expected ErrQuoteInvalidInput, got %v", err)
	}
}
