package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zolffix/internal/model"
	"github.com/zolffix/internal/service"
	"github.com/zolffix/internal/streak"
)

const monthFormat = "2006-01"

type habitPayload struct {
	model.Habit
	CompletedToday bool `json:"completedToday"`
}

// habitUpdatePayload 带 completedDates 时整体替换完成记录
type habitUpdatePayload struct {
	service.HabitInput
	CompletedDates *streak.DaySet `json:"completedDates"`
}

type togglePayload struct {
	Date string `json:"date"`
}

func habitToPayload(habit model.Habit, today streak.Day) habitPayload {
	return habitPayload{Habit: habit, CompletedToday: habit.CompletedOn(today)}
}

func respondHabitSuccess(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// ListHabits 返回当前用户的全部习惯
func (a *API) ListHabits(c *gin.Context) {
	ctx := requestContext(c)
	habits, err := a.habits.List(ctx, currentUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	today := a.habits.Today(ctx)
	items := make([]habitPayload, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToPayload(habit, today))
	}

	respondHabitSuccess(c, http.StatusOK, gin.H{"habits": items, "today": today.String()})
}

// CreateHabit 新建习惯
func (a *API) CreateHabit(c *gin.Context) {
	var input service.HabitInput
	if !bindJSON(c, &input, "invalid habit payload") {
		return
	}

	ctx := requestContext(c)
	habit, err := a.habits.Create(ctx, currentUserID(c), input)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusCreated, gin.H{"habit": habitToPayload(habit, a.habits.Today(ctx))})
}

// GetHabit 返回单个习惯
func (a *API) GetHabit(c *gin.Context) {
	ctx := requestContext(c)
	habit, err := a.habits.Get(ctx, currentUserID(c), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusOK, gin.H{"habit": habitToPayload(habit, a.habits.Today(ctx))})
}

// UpdateHabit 修改名称、图标与提醒；请求带 completedDates 时一并替换完成记录并重算 streak
func (a *API) UpdateHabit(c *gin.Context) {
	var payload habitUpdatePayload
	if !bindJSON(c, &payload, "invalid habit payload") {
		return
	}

	ctx := requestContext(c)
	var (
		habit model.Habit
		err   error
	)
	if payload.CompletedDates != nil {
		habit, err = a.habits.Update(ctx, currentUserID(c), model.Habit{
			ID:             c.Param("id"),
			Name:           payload.Name,
			Icon:           payload.Icon,
			CompletedDates: *payload.CompletedDates,
			ReminderTime:   payload.ReminderTime,
			ReminderDays:   payload.ReminderDays,
		})
	} else {
		habit, err = a.habits.Edit(ctx, currentUserID(c), c.Param("id"), payload.HabitInput)
	}
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusOK, gin.H{"habit": habitToPayload(habit, a.habits.Today(ctx))})
}

// DeleteHabit 删除习惯，重复删除同样返回成功
func (a *API) DeleteHabit(c *gin.Context) {
	if err := a.habits.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleHabit 切换某天的完成状态，未指定日期时为用户时区的今天
func (a *API) ToggleHabit(c *gin.Context) {
	var payload togglePayload
	if hasBody(c.Request) {
		// 分块传输的空请求体等同于未指定日期
		if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, http.StatusBadRequest, "invalid toggle payload")
			return
		}
	}

	var day streak.Day
	if raw := strings.TrimSpace(payload.Date); raw != "" {
		parsed, err := streak.ParseDay(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	ctx := requestContext(c)
	habit, err := a.habits.ToggleCompletion(ctx, currentUserID(c), c.Param("id"), day)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusOK, gin.H{"habit": habitToPayload(habit, a.habits.Today(ctx))})
}

// GetHabitCalendar 返回 month（YYYY-MM）的月历视图，默认本月
func (a *API) GetHabitCalendar(c *gin.Context) {
	ctx := requestContext(c)

	today := a.habits.Today(ctx)
	month := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		parsed, err := time.Parse(monthFormat, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		month = parsed
	}

	calendar, err := a.habits.Calendar(ctx, currentUserID(c), month)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	respondHabitSuccess(c, http.StatusOK, calendar)
}
