package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zolffix/internal/service"
)

const timezoneHeader = "X-Timezone"

// TimezoneMiddleware 读取 X-Timezone（IANA 名称），决定请求里的“今天”。
// 缺省时服务层退回 APP_TIMEZONE。
func TimezoneMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.GetHeader(timezoneHeader))
		if name == "" {
			c.Next()
			return
		}

		loc, err := time.LoadLocation(name)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid "+timezoneHeader+" header")
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(service.WithLocation(c.Request.Context(), loc))
		appendVaryHeader(c, timezoneHeader)
		c.Next()
	}
}

func appendVaryHeader(c *gin.Context, values ...string) {
	existing := c.Writer.Header().Values("Vary")
	seen := make(map[string]struct{}, len(existing)+len(values))
	merged := make([]string, 0, len(existing)+len(values))
	for _, raw := range existing {
		for _, part := range strings.Split(raw, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if _, ok := seen[strings.ToLower(trimmed)]; ok {
				continue
			}
			seen[strings.ToLower(trimmed)] = struct{}{}
			merged = append(merged, trimmed)
		}
	}
	for _, value := range values {
		if _, ok := seen[strings.ToLower(value)]; ok {
			continue
		}
		seen[strings.ToLower(value)] = struct{}{}
		merged = append(merged, value)
	}
	c.Header("Vary", strings.Join(merged, ", "))
}
