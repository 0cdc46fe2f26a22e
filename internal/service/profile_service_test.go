package service

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"

	"github.com/zolffix/internal/model"
	"github.com/zolffix/internal/storage"
	"github.com/zolffix/internal/storage/memory"
	"github.com/zolffix/internal/streak"
)

func setupApp(t *testing.T) (*App, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	app := NewApp(AppOptions{
		Store:     store,
		Clock:     fixedClock(testNow),
		JWTSecret: "test-secret",
	})
	t.Cleanup(func() { app.Close() })
	return app, store
}

func TestProfileDefaultsAfterSignup(t *testing.T) {
	app, _ := setupApp(t)
	ctx := context.Background()

	account, err := app.Accounts.Signup(ctx, SignupInput{Name: "Ava Stone", Email: "ava@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	profile, err := app.Profiles.Get(ctx, account.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if profile.Name != "Ava Stone" || profile.Language != "en" || profile.OnboardingComplete {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if len(profile.FavoriteCategories) != 3 || profile.FavoriteCategories[0] != model.QuoteCategories[0] {
		t.Fatalf("unexpected default categories %v", profile.FavoriteCategories)
	}
}

func TestProfileUpdateSettings(t *testing.T) {
	app, _ := setupApp(t)
	ctx := context.Background()

	lang := "Tamil"
	profile, err := app.Profiles.UpdateSettings(ctx, "u1", SettingsInput{Language: &lang, FavoriteCategories: []string{"love", "Love", "growth"}})
	if err != nil {
		t.Fatalf("UpdateSettings returned error: %v", err)
	}
	if profile.Language != "ta" {
		t.Fatalf("expected normalized language, got %q", profile.Language)
	}
	if len(profile.FavoriteCategories) != 2 || profile.FavoriteCategories[0] != "Love" {
		t.Fatalf("unexpected categories %v", profile.FavoriteCategories)
	}

	bad := "fr"
	if _, err := app.Profiles.UpdateSettings(ctx, "u1", SettingsInput{Language: &bad}); !errors.Is(err, ErrProfileInvalidInput) {
		t.Fatalf("expected ErrProfileInvalidInput for unsupported language, got %v", err)
	}
	if _, err := app.Profiles.UpdateSettings(ctx, "u1", SettingsInput{FavoriteCategories: []string{"Cooking"}}); !errors.Is(err, ErrProfileInvalidInput) {
		t.Fatalf("expected ErrProfileInvalidInput for unknown category, got %v", err)
	}
}

func TestProfileOnboardingAndStats(t *testing.T) {
	app, _ := setupApp(t)
	ctx := context.Background()
	today := streak.DayOf(testNow)

	profile, habits, err := app.Profiles.CompleteOnboarding(ctx, "u1", OnboardingInput{
		Categories: []string{"Healing"},
		Habits:     []HabitInput{{Name: "Read"}, {Name: "Walk"}},
	})
	if err != nil {
		t.Fatalf("CompleteOnboarding returned error: %v", err)
	}
	if !profile.OnboardingComplete || profile.FavoriteCategories[0] != "Healing" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if len(habits) != 2 {
		t.Fatalf("expected 2 initial habits, got %d", len(habits))
	}

	read := habits[0]
	read.CompletedDates = streak.NewDaySet(today.AddDays(-10), today.AddDays(-9), today.AddDays(-8), today.AddDays(-7), today.AddDays(-1))
	if _, err := app.Habits.Update(ctx, "u1", read); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if _, err := app.Habits.ToggleCompletion(ctx, "u1", read.ID, today); err != nil {
		t.Fatalf("ToggleCompletion returned error: %v", err)
	}
	_, _ = app.Journal.Add(ctx, "u1", JournalInput{Content: "ok", Mood: "Happy"})
	_, _ = app.Quotes.ToggleLiked(ctx, "u1", model.Quote{ID: "q1", Text: "x"})

	stats, err := app.Profiles.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	want := ProfileStats{
		HabitCount:      2,
		CompletedToday:  1,
		LongestStreak:   2,
		BestStreakEver:  4,
		TotalCompletion: 6,
		JournalCount:    1,
		SavedCount:      0,
		LikedCount:      1,
	}
	if stats != want {
		t.Fatalf("unexpected stats %+v, want %+v", stats, want)
	}
}

func TestProfileOnboardingReplacesHabits(t *testing.T) {
	app, _ := setupApp(t)
	ctx := context.Background()

	_, _ = app.Habits.Create(ctx, "u1", HabitInput{Name: "Existing"})
	input := OnboardingInput{Habits: []HabitInput{{Name: "Read"}, {Name: "Walk"}}}
	for i := 0; i < 2; i++ {
		if _, _, err := app.Profiles.CompleteOnboarding(ctx, "u1", input); err != nil {
			t.Fatalf("CompleteOnboarding #%d returned error: %v", i+1, err)
		}
	}

	habits, _ := app.Habits.List(ctx, "u1")
	if len(habits) != 2 || habits[0].Name != "Read" || habits[1].Name != "Walk" {
		t.Fatalf("expected onboarding habits only, got %+v", habits)
	}
}

func TestProfileReset(t *testing.T) {
	app, store := setupApp(t)
	ctx := context.Background()

	account, _ := app.Accounts.Signup(ctx, SignupInput{Name: "Ava", Email: "ava@example.com", Password: "password123"})
	_, _ = app.Habits.Create(ctx, account.ID, HabitInput{Name: "Read"})
	_, _ = app.Journal.Add(ctx, account.ID, JournalInput{Content: "hi", Mood: "Calm"})

	if err := app.Profiles.Reset(ctx, account.ID); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}

	keys, _ := store.Keys(ctx, storage.UserPrefix(account.ID))
	if len(keys) != 0 {
		t.Fatalf("expected no user keys after reset, got %v", keys)
	}
	habits, _ := app.Habits.List(ctx, account.ID)
	if len(habits) != 0 {
		t.Fatalf("expected habits to be cleared, got %d", len(habits))
	}
	if _, err := app.Accounts.Login(ctx, "ava@example.com", "password123"); err != nil {
		t.Fatalf("reset must keep the account, login failed: %v", err)
	}
}

func TestRenderAvatar(t *testing.T) {
	if got := Initials("ava  stone lee"); got != "AS" {
		t.Fatalf("unexpected initials %q", got)
	}
	if got := Initials("   "); got != "?" {
		t.Fatalf("unexpected initials for blank name %q", got)
	}

	raw, err := RenderAvatar("Ava Stone")
	if err != nil {
		t.Fatalf("RenderAvatar returned error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("avatar is not a valid png: %v", err)
	}
	if img.Bounds().Dx() != AvatarSize || img.Bounds().Dy() != AvatarSize {
		t.Fatalf("unexpected avatar size %v", img.Bounds())
	}

	again, _ := RenderAvatar("Ava Stone")
	if !bytes.Equal(raw, again) {
		t.Fatal("avatar rendering should be deterministic")
	}
}
