package service

import (
	"context"
	"time"

	"github.com/zolffix/internal/storage"
)

// AppOptions 汇总构造 App 所需的依赖
type AppOptions struct {
	Store       storage.Store
	QuoteSource QuoteSource
	Clock       Clock
	Location    *time.Location
	JWTSecret   string
	JWTTTL      time.Duration
}

// App 持有全部服务，由 main 构造后注入 handler 与后台任务
type App struct {
	Store    storage.Store
	Habits   *HabitService
	Journal  *JournalService
	Quotes   *QuoteService
	Profiles *ProfileService
	Accounts *AccountService
	Location *time.Location
	Clock    Clock

	cancel context.CancelFunc
}

func NewApp(opts AppOptions) *App {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	watchCtx, cancel := context.WithCancel(context.Background())

	habits := NewHabitService(watchCtx, opts.Store, clock, loc)
	journal := NewJournalService(watchCtx, opts.Store, clock)

	profiles := NewProfileService(opts.Store, habits, journal, nil)
	quotes := NewQuoteService(watchCtx, opts.Store, opts.QuoteSource, profiles.Favorites)
	profiles.quotes = quotes

	return &App{
		Store:    opts.Store,
		Habits:   habits,
		Journal:  journal,
		Quotes:   quotes,
		Profiles: profiles,
		Accounts: NewAccountService(opts.Store, profiles, opts.JWTSecret, opts.JWTTTL, clock),
		Location: loc,
		Clock:    clock,
		cancel:   cancel,
	}
}

// Close 停止变更订阅并关闭存储
func (a *App) Close() error {
	a.cancel()
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
