package handler

import (
	"net/http"

	"github.com/driftlog/internal/service"
	"github.com/gin-gonic/gin"
)

// GetInsights 返回洞察页的全部派生指标
func (a *API) GetInsights(c *gin.Context) {
	overview, err := a.analytics.Overview(service.Today())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取洞察数据失败")
		return
	}

	week := make([]gin.H, 0, len(overview.Week))
	for _, point := range overview.Week {
		week = append(week, gin.H{
			"date":     point.Date,
			"checkins": point.Checkins,
			"is_today": point.IsToday,
		})
	}

	timeOfDay := make([]gin.H, 0, len(overview.TimeOfDay))
	for _, bucket := range overview.TimeOfDay {
		timeOfDay = append(timeOfDay, gin.H{"bucket": bucket.Bucket, "count": bucket.Count})
	}

	habits := make([]gin.H, 0, len(overview.Habits))
	for _, stat := range overview.Habits {
		habits = append(habits, gin.H{
			"habit_id":        stat.HabitID,
			"name":            stat.Name,
			"category":        stat.Category,
			"target_count":    stat.TargetCount,
			"total_checkins":  stat.TotalCheckins,
			"days_active":     stat.DaysActive,
			"last7_checkins":  stat.Last7Checkins,
			"avg_per_day":     stat.AvgPerDay,
			"completion_rate": stat.CompletionRate,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"week":        week,
		"time_of_day": timeOfDay,
		"habits":      habits,
		"focus": gin.H{
			"completed_sessions": overview.Focus.CompletedSessions,
			"total_minutes":      overview.Focus.TotalMinutes,
			"avg_minutes":        overview.Focus.AvgMinutes,
		},
	})
}
