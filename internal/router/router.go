package router

import (
	"github.com/driftlog/internal/handler"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(db *gorm.DB, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("driftlog_session", store))

	api := handler.NewAPI(db)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	r.GET("/healthz", api.HealthCheck)

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.GET("/logout", api.Logout)

		// 需要认证的 API 路由
		auth := admin.Group("/api")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("/habits", api.ListHabits)
			auth.GET("/habits/:id", api.GetHabit)
			auth.POST("/habits", api.CreateHabit)
			auth.PUT("/habits/:id", api.UpdateHabit)
			auth.DELETE("/habits/:id", api.DeleteHabit)
			auth.POST("/habits/:id/checkin", api.CheckInHabit)

			auth.GET("/dashboard", api.GetDashboard)

			auth.POST("/nudge", api.GenerateNudge)
			auth.GET("/suggestions", api.ListSuggestions)
			auth.POST("/suggestions/:id/act", api.ActSuggestion)
			auth.POST("/suggestions/:id/dismiss", api.DismissSuggestion)

			auth.GET("/focus/status", api.GetFocusStatus)
			auth.GET("/focus/sessions", api.ListFocusSessions)
			auth.POST("/focus/start", api.StartFocus)
			auth.POST("/focus/pause", api.PauseFocus)
			auth.POST("/focus/resume", api.ResumeFocus)
			auth.POST("/focus/break", api.StartBreak)
			auth.POST("/focus/reset", api.ResetFocus)

			auth.GET("/journal", api.ListJournalEntries)
			auth.GET("/journal/prompt", api.GetJournalPrompt)
			auth.GET("/journal/:id", api.GetJournalEntry)
			auth.POST("/journal", api.CreateJournalEntry)
			auth.PUT("/journal/:id", api.UpdateJournalEntry)
			auth.DELETE("/journal/:id", api.DeleteJournalEntry)

			auth.GET("/insights", api.GetInsights)

			auth.GET("/export", api.ExportData)
			auth.POST("/export/report", api.GenerateReport)

			auth.GET("/settings", api.GetSystemSettings)
			auth.PUT("/settings", api.UpdateSystemSettings)
			auth.POST("/settings/welcome-seen", api.MarkWelcomeSeen)
			auth.POST("/settings/ai-test", api.TestAIConnection)
		}
	}

	return r
}
