package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zolffix/internal/metrics"
	"github.com/zolffix/internal/model"
	"github.com/zolffix/internal/storage"
	"github.com/zolffix/internal/streak"
)

var (
	// ErrHabitNotFound 在指定习惯不存在时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitInvalidInput 在名称或提醒配置不合法时返回
	ErrHabitInvalidInput = errors.New("invalid habit input")
)

// DefaultHabitIcon 是未指定图标时使用的图标
const DefaultHabitIcon = "💪"

// HabitService 维护用户的习惯集合。
// Streak 是 CompletedDates 的派生缓存，只在 mutate 中重新计算。
type HabitService struct {
	habits   *collection[model.Habit]
	clock    Clock
	location *time.Location
}

// HabitInput 定义创建/编辑习惯时可配置字段
type HabitInput struct {
	Name         string         `json:"name" validate:"required,max=80"`
	Icon         string         `json:"icon" validate:"max=32"`
	ReminderTime string         `json:"reminderTime" validate:"omitempty,clock"`
	ReminderDays []time.Weekday `json:"reminderDays" validate:"max=7,dive,min=0,max=6"`
}

func (in HabitInput) normalized() HabitInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Icon = strings.TrimSpace(in.Icon)
	if in.Icon == "" {
		in.Icon = DefaultHabitIcon
	}
	in.ReminderTime = strings.TrimSpace(in.ReminderTime)
	in.ReminderDays = normalizeWeekdays(in.ReminderDays)
	return in
}

// HabitCalendar 是某月的完成情况，Weeks 以周日开头，月外的格子为 nil
type HabitCalendar struct {
	Month  string            `json:"month"`
	Weeks  [][]*CalendarDay  `json:"weeks"`
	Habits map[string]string `json:"habits"`
}

// CalendarDay 汇总单日完成的习惯
type CalendarDay struct {
	Date      string   `json:"date"`
	Completed []string `json:"completed"`
	Count     int      `json:"count"`
}

// NewHabitService 构造 HabitService。watchCtx 结束后停止同步远端变更。
func NewHabitService(watchCtx context.Context, store storage.Store, clock Clock, loc *time.Location) *HabitService {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &HabitService{
		habits:   newCollection(watchCtx, store, storage.CollectionHabits, model.Habit.Clone),
		clock:    clock,
		location: loc,
	}
}

// Today 返回 ctx 时区下的今天
func (s *HabitService) Today(ctx context.Context) streak.Day {
	return TodayFor(ctx, s.clock, s.location)
}

// List 返回用户全部习惯，按创建顺序
func (s *HabitService) List(ctx context.Context, userID string) ([]model.Habit, error) {
	return s.habits.load(ctx, userID)
}

// Get 根据 ID 获取习惯
func (s *HabitService) Get(ctx context.Context, userID, habitID string) (model.Habit, error) {
	habits, err := s.habits.load(ctx, userID)
	if err != nil {
		return model.Habit{}, err
	}
	idx := indexOf(habits, habitKey, habitID)
	if idx < 0 {
		return model.Habit{}, ErrHabitNotFound
	}
	return habits[idx], nil
}

// Create 新建习惯，初始没有完成记录，streak 为 0
func (s *HabitService) Create(ctx context.Context, userID string, input HabitInput) (model.Habit, error) {
	input = input.normalized()
	if err := validateInput(ErrHabitInvalidInput, input); err != nil {
		return model.Habit{}, err
	}

	now := s.clock().UTC()
	habit := model.Habit{
		ID:             uuid.NewString(),
		Name:           input.Name,
		Icon:           input.Icon,
		CompletedDates: streak.NewDaySet(),
		Streak:         0,
		ReminderTime:   input.ReminderTime,
		ReminderDays:   input.ReminderDays,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := s.habits.update(ctx, userID, func(habits []model.Habit) ([]model.Habit, error) {
		return append(habits, habit), nil
	}); err != nil {
		return model.Habit{}, fmt.Errorf("create habit: %w", err)
	}
	return habit.Clone(), nil
}

// Replace 用 inputs 新建的习惯整体替换用户的习惯列表，任一输入不合法时不做修改
func (s *HabitService) Replace(ctx context.Context, userID string, inputs []HabitInput) ([]model.Habit, error) {
	now := s.clock().UTC()
	habits := make([]model.Habit, 0, len(inputs))
	for _, input := range inputs {
		input = input.normalized()
		if err := validateInput(ErrHabitInvalidInput, input); err != nil {
			return nil, err
		}
		habits = append(habits, model.Habit{
			ID:             uuid.NewString(),
			Name:           input.Name,
			Icon:           input.Icon,
			CompletedDates: streak.NewDaySet(),
			ReminderTime:   input.ReminderTime,
			ReminderDays:   input.ReminderDays,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	saved, err := s.habits.update(ctx, userID, func([]model.Habit) ([]model.Habit, error) {
		return habits, nil
	})
	if err != nil {
		return nil, fmt.Errorf("replace habits: %w", err)
	}
	return saved, nil
}

// Edit 只修改名称、图标与提醒，不影响完成记录
func (s *HabitService) Edit(ctx context.Context, userID, habitID string, input HabitInput) (model.Habit, error) {
	input = input.normalized()
	if err := validateInput(ErrHabitInvalidInput, input); err != nil {
		return model.Habit{}, err
	}

	return s.mutate(ctx, userID, habitID, false, func(h *model.Habit) error {
		h.Name = input.Name
		h.Icon = input.Icon
		h.ReminderTime = input.ReminderTime
		h.ReminderDays = input.ReminderDays
		return nil
	})
}

// Update 用 habit 整体替换 ID 相同的记录，并按当前日期重新计算 streak。
func (s *HabitService) Update(ctx context.Context, userID string, habit model.Habit) (model.Habit, error) {
	input := HabitInput{
		Name:         habit.Name,
		Icon:         habit.Icon,
		ReminderTime: habit.ReminderTime,
		ReminderDays: habit.ReminderDays,
	}.normalized()
	if err := validateInput(ErrHabitInvalidInput, input); err != nil {
		return model.Habit{}, err
	}

	return s.mutate(ctx, userID, habit.ID, true, func(h *model.Habit) error {
		h.Name = input.Name
		h.Icon = input.Icon
		h.ReminderTime = input.ReminderTime
		h.ReminderDays = input.ReminderDays
		h.CompletedDates = habit.CompletedDates.Clone()
		return nil
	})
}

// Delete 删除习惯，不存在时直接返回
func (s *HabitService) Delete(ctx context.Context, userID, habitID string) error {
	_, err := s.habits.update(ctx, userID, func(habits []model.Habit) ([]model.Habit, error) {
		idx := indexOf(habits, habitKey, habitID)
		if idx < 0 {
			return nil, errSkipWrite
		}
		return slices.Delete(habits, idx, idx+1), nil
	})
	if err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return nil
}

// ToggleCompletion 切换习惯在 day 的完成状态并重新计算 streak。
// day 为零值时使用 ctx 时区下的今天，晚于今天的日期返回 ErrHabitInvalidInput。
// 写入失败时快照保持不变。
func (s *HabitService) ToggleCompletion(ctx context.Context, userID, habitID string, day streak.Day) (model.Habit, error) {
	today := s.Today(ctx)
	if day.IsZero() {
		day = today
	}
	if day.After(today) {
		return model.Habit{}, fmt.Errorf("%w: %s is after today", ErrHabitInvalidInput, day)
	}

	var completed bool
	habit, err := s.mutate(ctx, userID, habitID, true, func(h *model.Habit) error {
		h.CompletedDates = h.CompletedDates.Toggle(day)
		completed = h.CompletedDates.Has(day)
		return nil
	})
	if err != nil {
		return model.Habit{}, err
	}

	metrics.TrackHabitToggle(completed)
	return habit, nil
}

// mutate 是唯一修改已有习惯的入口：应用 fn，recompute 为 true 或完成记录变化时
// 按当前时间重算 streak，再整体写回存储。
func (s *HabitService) mutate(ctx context.Context, userID, habitID string, recompute bool, fn func(*model.Habit) error) (model.Habit, error) {
	var result model.Habit

	_, err := s.habits.update(ctx, userID, func(habits []model.Habit) ([]model.Habit, error) {
		idx := indexOf(habits, habitKey, habitID)
		if idx < 0 {
			return nil, ErrHabitNotFound
		}

		habit := habits[idx]
		before := habit.CompletedDates.Clone()
		if err := fn(&habit); err != nil {
			return nil, err
		}

		now := localNow(ctx, s.clock, s.location)
		if recompute || !before.Equal(habit.CompletedDates) {
			habit.Streak = streak.Compute(habit.CompletedDates, now)
		}
		habit.ID = habitID
		habit.UpdatedAt = now.UTC()

		habits[idx] = habit
		result = habit.Clone()
		return habits, nil
	})
	if err != nil {
		if errors.Is(err, ErrHabitNotFound) {
			return model.Habit{}, err
		}
		return model.Habit{}, fmt.Errorf("update habit: %w", err)
	}
	return result, nil
}

// Calendar 返回 month 所在月份每天的完成情况
func (s *HabitService) Calendar(ctx context.Context, userID string, month time.Time) (HabitCalendar, error) {
	habits, err := s.habits.load(ctx, userID)
	if err != nil {
		return HabitCalendar{}, err
	}

	first := streak.NewDay(month.Year(), month.Month(), 1)
	daysInMonth := time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()

	calendar := HabitCalendar{
		Month:  fmt.Sprintf("%04d-%02d", first.Year(), int(first.Month())),
		Habits: make(map[string]string, len(habits)),
		Weeks:  [][]*CalendarDay{},
	}
	for _, habit := range habits {
		calendar.Habits[habit.ID] = habit.Name
	}

	week := make([]*CalendarDay, 7)
	for i := 0; i < daysInMonth; i++ {
		day := first.AddDays(i)
		cell := &CalendarDay{Date: day.String(), Completed: []string{}}
		for _, habit := range habits {
			if habit.CompletedOn(day) {
				cell.Completed = append(cell.Completed, habit.ID)
			}
		}
		cell.Count = len(cell.Completed)

		week[int(day.Weekday())] = cell
		if day.Weekday() == time.Saturday || i == daysInMonth-1 {
			calendar.Weeks = append(calendar.Weeks, week)
			week = make([]*CalendarDay, 7)
		}
	}
	return calendar, nil
}

func habitKey(h model.Habit) string { return h.ID }

func normalizeWeekdays(days []time.Weekday) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	out := slices.Clone(days)
	slices.Sort(out)
	return slices.Compact(out)
}
