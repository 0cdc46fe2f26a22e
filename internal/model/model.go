package model

import (
	"slices"
	"strings"
	"time"

	"github.com/zolffix/internal/streak"
)

// Habit 是用户追踪的一个习惯。Streak 是由 CompletedDates 推导出的缓存值，
// 只在变更时重新计算。
type Habit struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Icon           string         `json:"icon"`
	CompletedDates streak.DaySet  `json:"completedDates"`
	Streak         int            `json:"streak"`
	ReminderTime   string         `json:"reminderTime,omitempty"`
	ReminderDays   []time.Weekday `json:"reminderDays,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// CompletedOn 报告该习惯在 day 是否已完成
func (h Habit) CompletedOn(day streak.Day) bool {
	return h.CompletedDates.Has(day)
}

// RemindsOn 报告提醒是否适用于 weekday，未设置 ReminderDays 时每天都提醒
func (h Habit) RemindsOn(weekday time.Weekday) bool {
	if len(h.ReminderDays) == 0 {
		return true
	}
	return slices.Contains(h.ReminderDays, weekday)
}

// Clone 返回深拷贝，避免调用方修改缓存中的集合
func (h Habit) Clone() Habit {
	out := h
	out.CompletedDates = h.CompletedDates.Clone()
	out.ReminderDays = slices.Clone(h.ReminderDays)
	return out
}

// Mood 描述日记的心情
type Mood struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

// Moods 是允许的心情集合
var Moods = []Mood{
	{Name: "Happy", Emoji: "😊"},
	{Name: "Sad", Emoji: "😢"},
	{Name: "Anxious", Emoji: "😟"},
	{Name: "Excited", Emoji: "🤩"},
	{Name: "Calm", Emoji: "😌"},
	{Name: "Angry", Emoji: "😠"},
}

// LookupMood 按名称查找心情，大小写不敏感
func LookupMood(name string) (Mood, bool) {
	for _, mood := range Moods {
		if equalFold(mood.Name, name) {
			return mood, true
		}
	}
	return Mood{}, false
}

// JournalEntry 是一条心情日记，创建后除删除外不可修改
type JournalEntry struct {
	ID      string    `json:"id"`
	Content string    `json:"content"`
	Mood    Mood      `json:"mood"`
	Date    time.Time `json:"date"`
}

// Quote 是一条励志语录；收藏/点赞状态由用户集合维护，不挂在 Quote 上
type Quote struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Author   string `json:"author"`
	Category string `json:"category"`
	ImageURL string `json:"imageUrl"`
}

// QuoteCategories 是可选的语录分类
var QuoteCategories = []string{
	"Sad", "Emotional", "Heart-touching", "Love", "Heartbreak", "Motivation", "Self-Respect",
	"Life", "Success", "Family", "Self-Improvement", "Friendship", "Failure", "Loneliness",
	"Growth", "Confidence", "Healing", "Moving On", "Mindset", "Attitude", "Silence",
}

// IsQuoteCategory 报告 name 是否为已知分类
func IsQuoteCategory(name string) bool {
	for _, category := range QuoteCategories {
		if equalFold(category, name) {
			return true
		}
	}
	return false
}

// Account 保存登录凭据
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile 保存用户偏好
type Profile struct {
	UserID             string   `json:"userId"`
	Name               string   `json:"name"`
	Email              string   `json:"email"`
	FavoriteCategories []string `json:"favoriteCategories"`
	OnboardingComplete bool     `json:"onboardingComplete"`
	Language           string   `json:"language"`
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
