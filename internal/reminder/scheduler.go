// Package reminder 定时检查习惯提醒。每个习惯每个自然日最多提醒一次，
// 已提醒标记保存在 users/<uid>/notified/<habitID>。
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/zolffix/internal/locale"
	"github.com/zolffix/internal/logger"
	"github.com/zolffix/internal/metrics"
	"github.com/zolffix/internal/model"
	"github.com/zolffix/internal/service"
	"github.com/zolffix/internal/storage"
	"github.com/zolffix/internal/streak"
)

// Scheduler 周期性检查所有账号的习惯提醒
type Scheduler struct {
	app      *service.App
	notifier Notifier
	interval time.Duration
}

func NewScheduler(app *service.App, notifier Notifier, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Scheduler{app: app, notifier: notifier, interval: interval}
}

// Run 阻塞直到 ctx 结束
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info("reminder scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.CheckOnce(ctx, s.app.Clock()); err != nil {
				logger.Error("reminder check failed", "err", err)
			}
		}
	}
}

// CheckOnce 检查 now 这一分钟应发出的提醒，返回发送数量
func (s *Scheduler) CheckOnce(ctx context.Context, now time.Time) (int, error) {
	accounts, err := s.app.Accounts.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}

	local := now.In(s.app.Location)
	sent := 0
	for _, account := range accounts {
		n, err := s.checkUser(ctx, account, local)
		sent += n
		if err != nil {
			logger.Warn("reminder check for user failed", "user", account.ID, "err", err)
		}
	}
	return sent, nil
}

func (s *Scheduler) checkUser(ctx context.Context, account model.Account, now time.Time) (int, error) {
	habits, err := s.app.Habits.List(ctx, account.ID)
	if err != nil {
		return 0, err
	}

	language := locale.LanguageEnglish
	if profile, err := s.app.Profiles.Get(ctx, account.ID); err == nil {
		language = profile.Language
	}

	clock := now.Format("15:04")
	today := streak.DayOf(now).String()

	sent := 0
	for _, habit := range habits {
		if habit.ReminderTime == "" || habit.ReminderTime != clock || !habit.RemindsOn(now.Weekday()) {
			continue
		}

		markerKey := storage.NotifiedKey(account.ID, habit.ID)
		var lastNotified string
		if _, err := storage.GetJSON(ctx, s.app.Store, markerKey, &lastNotified); err != nil {
			return sent, err
		}
		if lastNotified == today {
			continue
		}

		notification := Notification{
			UserID:    account.ID,
			HabitID:   habit.ID,
			HabitName: habit.Name,
			Title:     locale.Text(language, locale.MsgReminderTitle),
			Body:      locale.Text(language, locale.MsgReminderBody, habit.Name, habit.Icon),
			Language:  language,
			At:        now,
		}
		err := s.notifier.Notify(ctx, notification)
		metrics.TrackReminder(err)
		if err != nil {
			logger.Warn("send reminder failed", "user", account.ID, "habit", habit.ID, "err", err)
			continue
		}

		if err := storage.SetJSON(ctx, s.app.Store, markerKey, today); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
