package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of document store operations",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation", "backend"},
	)

	HabitTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_toggles_total",
			Help: "Total number of habit completion toggles",
		},
		[]string{"result"}, // completed, uncompleted
	)

	QuoteFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_fallbacks_total",
			Help: "Total number of quote feeds served from fallback quotes",
		},
		[]string{"reason"},
	)

	RemindersSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Total number of habit reminders sent",
		},
		[]string{"status"}, // success, failure
	)
)

// Middleware 记录请求次数与耗时，path 使用路由模板避免标签爆炸
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler 暴露 /metrics
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func TrackHabitToggle(completed bool) {
	result := "uncompleted"
	if completed {
		result = "completed"
	}
	HabitTogglesTotal.WithLabelValues(result).Inc()
}

func TrackQuoteFallback(reason string) {
	QuoteFallbacksTotal.WithLabelValues(reason).Inc()
}

func TrackReminder(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	RemindersSentTotal.WithLabelValues(status).Inc()
}
