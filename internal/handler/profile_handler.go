package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zolffix/internal/locale"
	"github.com/zolffix/internal/service"
)

// GetProfile 返回偏好设置与语言方向
func (a *API) GetProfile(c *gin.Context) {
	profile, err := a.profiles.Get(requestContext(c), currentUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	pref := locale.PreferenceForLanguage(profile.Language)
	if pref.HTMLLang != "" {
		c.Header("Content-Language", pref.HTMLLang)
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "dir": pref.Dir})
}

// UpdateProfile 修改名称、语言与喜欢的分类
func (a *API) UpdateProfile(c *gin.Context) {
	var input service.SettingsInput
	if !bindJSON(c, &input, "invalid settings payload") {
		return
	}

	profile, err := a.profiles.UpdateSettings(requestContext(c), currentUserID(c), input)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// CompleteOnboarding 保存首次选择的分类并批量创建习惯
func (a *API) CompleteOnboarding(c *gin.Context) {
	var input service.OnboardingInput
	if !bindJSON(c, &input, "invalid onboarding payload") {
		return
	}

	ctx := requestContext(c)
	profile, habits, err := a.profiles.CompleteOnboarding(ctx, currentUserID(c), input)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	today := a.habits.Today(ctx)
	items := make([]habitPayload, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToPayload(habit, today))
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "habits": items})
}

func (a *API) GetProfileStats(c *gin.Context) {
	stats, err := a.profiles.Stats(requestContext(c), currentUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetAvatar 按名字首字母生成头像
func (a *API) GetAvatar(c *gin.Context) {
	profile, err := a.profiles.Get(requestContext(c), currentUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	png, err := service.RenderAvatar(profile.Name)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

// ResetProfile 清空用户的全部数据，账号本身保留
func (a *API) ResetProfile(c *gin.Context) {
	if err := a.profiles.Reset(requestContext(c), currentUserID(c)); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
