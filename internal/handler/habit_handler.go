package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/driftlog/internal/db"
	"github.com/driftlog/internal/service"
	"github.com/gin-gonic/gin"
)

type habitPayload struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	TargetCount int    `json:"target_count"`
	IsActive    *bool  `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
}

type checkInPayload struct {
	LogDate string `json:"log_date"` // 2006-01-02，缺省为今天
	Hour    *int   `json:"hour"`     // 0-23，缺省取当前时刻
}

// ListHabits 返回习惯列表 JSON
func (a *API) ListHabits(c *gin.Context) {
	filter := service.HabitFilter{
		ActiveOnly: c.Query("active") == "true",
		Category:   c.Query("category"),
	}

	habits, err := a.habits.List(filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取习惯列表失败")
		return
	}

	items := make([]gin.H, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToPayload(habit))
	}

	c.JSON(http.StatusOK, gin.H{"habits": items})
}

// GetHabit 返回单个习惯详情
func (a *API) GetHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	habit, err := a.habits.Get(id)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// CreateHabit 创建习惯
func (a *API) CreateHabit(c *gin.Context) {
	var payload habitPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	habit, err := a.habits.Create(payload.toInput())
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// UpdateHabit 更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload habitPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	habit, err := a.habits.Update(id, payload.toInput())
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// DeleteHabit 删除习惯及其全部打卡记录
func (a *API) DeleteHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	if err := a.habits.Delete(id); err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// CheckInHabit 在指定日期为习惯打卡，同一天重复打卡累加计数
func (a *API) CheckInHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload checkInPayload
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &payload, "请求参数不合法") {
			return
		}
	}

	now := time.Now()
	date := payload.LogDate
	if date == "" {
		date = service.FormatDate(now)
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		respondError(c, http.StatusBadRequest, "无效的打卡日期")
		return
	}

	hour := now.Hour()
	if payload.Hour != nil {
		if *payload.Hour < 0 || *payload.Hour > 23 {
			respondError(c, http.StatusBadRequest, "无效的打卡时间")
			return
		}
		hour = *payload.Hour
	}

	logEntry, err := a.habitLogs.CheckIn(id, date, hour)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"log": habitLogToPayload(*logEntry)})
}

func (p habitPayload) toInput() service.HabitInput {
	return service.HabitInput{
		Name:        p.Name,
		Category:    p.Category,
		TargetCount: p.TargetCount,
		IsActive:    p.IsActive,
		SortOrder:   p.SortOrder,
	}
}

func habitToPayload(habit db.Habit) gin.H {
	return gin.H{
		"id":           habit.ID,
		"name":         habit.Name,
		"category":     habit.Category,
		"target_count": habit.TargetCount,
		"is_active":    habit.IsActive,
		"sort_order":   habit.SortOrder,
	}
}

func habitLogToPayload(log db.HabitLog) gin.H {
	return gin.H{
		"id":          log.ID,
		"habit_id":    log.HabitID,
		"log_date":    log.LogDate,
		"count":       log.Count,
		"time_of_day": log.TimeOfDay,
	}
}

func handleHabitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, "习惯不存在")
	case errors.Is(err, service.ErrHabitInvalidCategory):
		respondError(c, http.StatusBadRequest, "习惯分类无效")
	case errors.Is(err, service.ErrHabitInvalidTarget):
		respondError(c, http.StatusBadRequest, "目标次数无效")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
