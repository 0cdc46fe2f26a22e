package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/zolffix/internal/locale"
	"github.com/zolffix/internal/logger"
	"github.com/zolffix/internal/model"
	"github.com/zolffix/internal/service"
)

const (
	sessionUserKey   = "user_id"
	userIDContextKey = "__user_id"
)

type accountPayload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type authResponse struct {
	Account   accountPayload `json:"account"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func accountToPayload(account model.Account) accountPayload {
	return accountPayload{
		ID:        account.ID,
		Name:      account.Name,
		Email:     account.Email,
		CreatedAt: account.CreatedAt,
	}
}

// Signup 注册新账号并建立会话
func (a *API) Signup(c *gin.Context) {
	var input service.SignupInput
	if !bindJSON(c, &input, "invalid signup payload") {
		return
	}

	ctx := requestContext(c)
	account, err := a.accounts.Signup(ctx, input)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if language := locale.LanguageFromAcceptLanguage(c.GetHeader("Accept-Language")); language != "" && language != locale.LanguageEnglish {
		if _, err := a.profiles.UpdateSettings(ctx, account.ID, service.SettingsInput{Language: &language}); err != nil {
			logger.Warn("apply signup language failed", "user", account.ID, "err", err)
		}
	}

	a.startSession(c, http.StatusCreated, account)
}

// Login 校验凭据，同时写入会话并签发 token
func (a *API) Login(c *gin.Context) {
	var payload loginPayload
	if !bindJSON(c, &payload, "invalid login payload") {
		return
	}

	account, err := a.accounts.Login(requestContext(c), payload.Email, payload.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	a.startSession(c, http.StatusOK, account)
}

// Logout 清除会话；Bearer token 由客户端自行丢弃
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to clear session")
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) startSession(c *gin.Context, status int, account model.Account) {
	token, expiresAt, err := a.accounts.IssueToken(account)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, account.ID)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to save session")
		return
	}

	browser, os, device := describeClient(c.Request.UserAgent())
	logger.Info("session started", "user", account.ID, "browser", browser, "os", os, "device", device)

	c.JSON(status, authResponse{
		Account:   accountToPayload(account),
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// AuthRequired 接受 Bearer token 或会话 cookie，二者都没有时返回 401
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				respondError(c, http.StatusUnauthorized, "unsupported authorization scheme")
				c.Abort()
				return
			}
			userID, err := a.accounts.ParseToken(strings.TrimSpace(token))
			if err != nil {
				handleServiceError(c, err)
				c.Abort()
				return
			}
			c.Set(userIDContextKey, userID)
			c.Next()
			return
		}

		session := sessions.Default(c)
		userID, _ := session.Get(sessionUserKey).(string)
		if userID == "" {
			respondError(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}
		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}
