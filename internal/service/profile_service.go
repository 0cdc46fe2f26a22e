package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/zolffix/internal/locale"
	"github.com/zolffix/internal/model"
	"github.com/zolffix/internal/storage"
	"github.com/zolffix/internal/streak"
)

// ErrProfileInvalidInput 在语言或分类不合法时返回
var ErrProfileInvalidInput = errors.New("invalid profile input")

// defaultFavoriteCount 是默认偏好分类的数量
const defaultFavoriteCount = 3

// ProfileService 维护用户资料，并汇总习惯、日记、语录的统计数据
type ProfileService struct {
	store   storage.Store
	habits  *HabitService
	journal *JournalService
	quotes  *QuoteService

	mu sync.Mutex
}

// SettingsInput 描述可修改的偏好
type SettingsInput struct {
	Name               *string  `json:"name" validate:"omitempty,max=80"`
	Language           *string  `json:"language" validate:"omitempty,language"`
	FavoriteCategories []string `json:"favoriteCategories" validate:"omitempty,max=21,dive,quotecategory"`
}

// OnboardingInput 是首次使用时提交的选择
type OnboardingInput struct {
	Categories []string     `json:"categories" validate:"max=21,dive,quotecategory"`
	Habits     []HabitInput `json:"habits" validate:"max=20,dive"`
}

// ProfileStats 汇总用户数据
type ProfileStats struct {
	HabitCount      int `json:"habitCount"`
	CompletedToday  int `json:"completedToday"`
	LongestStreak   int `json:"longestStreak"`
	BestStreakEver  int `json:"bestStreakEver"`
	TotalCompletion int `json:"totalCompletions"`
	JournalCount    int `json:"journalCount"`
	SavedCount      int `json:"savedCount"`
	LikedCount      int `json:"likedCount"`
}

func NewProfileService(store storage.Store, habits *HabitService, journal *JournalService, quotes *QuoteService) *ProfileService {
	return &ProfileService{store: store, habits: habits, journal: journal, quotes: quotes}
}

func defaultProfile(account model.Account) model.Profile {
	return model.Profile{
		UserID:             account.ID,
		Name:               account.Name,
		Email:              account.Email,
		FavoriteCategories: append([]string(nil), model.QuoteCategories[:defaultFavoriteCount]...),
		Language:           locale.LanguageEnglish,
	}
}

func (s *ProfileService) key(userID string) string {
	return storage.UserKey(userID, storage.CollectionProfile)
}

// Init 为新账号写入默认资料
func (s *ProfileService) Init(ctx context.Context, account model.Account) (model.Profile, error) {
	profile := defaultProfile(account)
	if err := storage.SetJSON(ctx, s.store, s.key(account.ID), profile); err != nil {
		return model.Profile{}, fmt.Errorf("init profile: %w", err)
	}
	return profile, nil
}

// Get 读取资料，缺失时返回默认值
func (s *ProfileService) Get(ctx context.Context, userID string) (model.Profile, error) {
	var profile model.Profile
	found, err := storage.GetJSON(ctx, s.store, s.key(userID), &profile)
	if err != nil {
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if !found {
		profile = defaultProfile(model.Account{ID: userID})
	}
	if profile.Language == "" {
		profile.Language = locale.LanguageEnglish
	}
	return profile, nil
}

// Favorites 返回偏好分类，读取失败时返回 nil
func (s *ProfileService) Favorites(ctx context.Context, userID string) []string {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil
	}
	return profile.FavoriteCategories
}

func (s *ProfileService) modify(ctx context.Context, userID string, fn func(*model.Profile)) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.Get(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	fn(&profile)

	if err := storage.SetJSON(ctx, s.store, s.key(userID), profile); err != nil {
		return model.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}

// UpdateSettings 修改名称、语言或偏好分类，未提供的字段保持不变
func (s *ProfileService) UpdateSettings(ctx context.Context, userID string, input SettingsInput) (model.Profile, error) {
	if err := validateInput(ErrProfileInvalidInput, input); err != nil {
		return model.Profile{}, err
	}

	return s.modify(ctx, userID, func(p *model.Profile) {
		if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
			p.Name = strings.TrimSpace(*input.Name)
		}
		if input.Language != nil {
			p.Language = locale.NormalizeLanguage(*input.Language)
		}
		if input.FavoriteCategories != nil {
			p.FavoriteCategories = canonicalCategories(input.FavoriteCategories)
		}
	})
}

// CompleteOnboarding 保存分类偏好，并用初始习惯替换现有习惯列表，重复提交不会产生重复习惯
func (s *ProfileService) CompleteOnboarding(ctx context.Context, userID string, input OnboardingInput) (model.Profile, []model.Habit, error) {
	if err := validateInput(ErrProfileInvalidInput, input); err != nil {
		return model.Profile{}, nil, err
	}

	created, err := s.habits.Replace(ctx, userID, input.Habits)
	if err != nil {
		return model.Profile{}, nil, err
	}

	profile, err := s.modify(ctx, userID, func(p *model.Profile) {
		if len(input.Categories) > 0 {
			p.FavoriteCategories = canonicalCategories(input.Categories)
		}
		p.OnboardingComplete = true
	})
	if err != nil {
		return model.Profile{}, nil, err
	}
	return profile, created, nil
}

// Stats 汇总习惯、日记与语录数据
func (s *ProfileService) Stats(ctx context.Context, userID string) (ProfileStats, error) {
	habits, err := s.habits.List(ctx, userID)
	if err != nil {
		return ProfileStats{}, err
	}
	journalCount, err := s.journal.Count(ctx, userID)
	if err != nil {
		return ProfileStats{}, err
	}
	saved, err := s.quotes.Saved(ctx, userID)
	if err != nil {
		return ProfileStats{}, err
	}
	liked, err := s.quotes.Liked(ctx, userID)
	if err != nil {
		return ProfileStats{}, err
	}

	today := s.habits.Today(ctx)
	stats := ProfileStats{
		HabitCount:   len(habits),
		JournalCount: journalCount,
		SavedCount:   len(saved),
		LikedCount:   len(liked),
	}
	for _, habit := range habits {
		stats.LongestStreak = max(stats.LongestStreak, habit.Streak)
		stats.BestStreakEver = max(stats.BestStreakEver, streak.Longest(habit.CompletedDates))
		stats.TotalCompletion += len(habit.CompletedDates)
		if habit.CompletedOn(today) {
			stats.CompletedToday++
		}
	}
	return stats, nil
}

// Reset 删除用户的全部数据，账号本身保留
func (s *ProfileService) Reset(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := storage.DeletePrefix(ctx, s.store, storage.UserPrefix(userID)); err != nil {
		return fmt.Errorf("reset user data: %w", err)
	}

	s.habits.habits.forget(userID)
	s.journal.entries.forget(userID)
	s.quotes.saved.forget(userID)
	s.quotes.liked.forget(userID)
	return nil
}

func canonicalCategories(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		category := canonicalCategory(name)
		if seen[category] {
			continue
		}
		seen[category] = true
		out = append(out, category)
	}
	return out
}
