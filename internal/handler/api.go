package handler

import (
	"github.com/zolffix/internal/service"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	app      *service.App
	habits   *service.HabitService
	journal  *service.JournalService
	quotes   *service.QuoteService
	profiles *service.ProfileService
	accounts *service.AccountService
}

// NewAPI constructs a handler set on top of the application services.
func NewAPI(app *service.App) *API {
	return &API{
		app:      app,
		habits:   app.Habits,
		journal:  app.Journal,
		quotes:   app.Quotes,
		profiles: app.Profiles,
		accounts: app.Accounts,
	}
}
