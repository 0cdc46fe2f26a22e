package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/zolffix/internal/handler"
	"github.com/zolffix/internal/metrics"
	"github.com/zolffix/internal/service"
)

const (
	sessionName   = "zolffix_session"
	sessionMaxAge = 30 * 24 * 60 * 60
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(sessionSecret string, app *service.App) *gin.Engine {
	r := gin.Default()
	r.Use(metrics.Middleware())

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/metrics", metrics.Handler())

	api := handler.NewAPI(app)

	apiGroup := r.Group("/api")
	apiGroup.Use(handler.TimezoneMiddleware())
	{
		auth := apiGroup.Group("/auth")
		{
			auth.POST("/signup", api.Signup)
			auth.POST("/login", api.Login)
			auth.POST("/logout", api.Logout)
		}

		// 需要认证的路由
		protected := apiGroup.Group("")
		protected.Use(api.AuthRequired())
		{
			protected.GET("/habits", api.ListHabits)
			protected.POST("/habits", api.CreateHabit)
			protected.GET("/habits/calendar", api.GetHabitCalendar)
			protected.GET("/habits/:id", api.GetHabit)
			protected.PUT("/habits/:id", api.UpdateHabit)
			protected.DELETE("/habits/:id", api.DeleteHabit)
			protected.POST("/habits/:id/toggle", api.ToggleHabit)

			protected.GET("/journal", api.ListJournal)
			protected.POST("/journal", api.AddJournalEntry)
			protected.GET("/journal/moods", api.ListMoods)
			protected.DELETE("/journal/:id", api.DeleteJournalEntry)

			protected.GET("/quotes", api.GetQuoteFeed)
			protected.GET("/quotes/categories", api.ListQuoteCategories)
			protected.GET("/quotes/saved", api.ListSavedQuotes)
			protected.POST("/quotes/saved", api.ToggleSavedQuote)
			protected.GET("/quotes/liked", api.ListLikedQuotes)
			protected.POST("/quotes/liked", api.ToggleLikedQuote)

			protected.GET("/profile", api.GetProfile)
			protected.PUT("/profile", api.UpdateProfile)
			protected.DELETE("/profile", api.ResetProfile)
			protected.GET("/profile/stats", api.GetProfileStats)
			protected.GET("/profile/avatar.png", api.GetAvatar)
			protected.POST("/profile/onboarding", api.CompleteOnboarding)
		}
	}

	return r
}
