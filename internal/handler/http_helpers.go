package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zolffix/internal/logger"
	"github.com/zolffix/internal/service"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// hasBody 报告请求是否可能带有请求体，ContentLength 为 -1 时表示分块传输
func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}

// requestContext 返回脱离请求取消的上下文，写入一旦开始就不会被客户端断开打断。
// 时区等请求级的值会保留下来。
func requestContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func parseIntQuery(c *gin.Context, key string, fallback int) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

// handleServiceError 把服务层的哨兵错误映射为状态码
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, "habit not found")
	case errors.Is(err, service.ErrAccountNotFound):
		respondError(c, http.StatusNotFound, "account not found")
	case errors.Is(err, service.ErrHabitInvalidInput),
		errors.Is(err, service.ErrJournalInvalidInput),
		errors.Is(err, service.ErrQuoteInvalidInput),
		errors.Is(err, service.ErrProfileInvalidInput),
		errors.Is(err, service.ErrAccountInvalidInput):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAccountExists):
		respondError(c, http.StatusConflict, "an account with this email already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrInvalidToken):
		respondError(c, http.StatusUnauthorized, "invalid or expired token")
	default:
		logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		respondError(c, http.StatusInternalServerError, "operation failed")
	}
}
