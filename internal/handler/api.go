package handler

import (
	"github.com/driftlog/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	habits      *service.HabitService
	habitLogs   *service.HabitLogService
	analytics   *service.AnalyticsService
	suggestions *service.SuggestionService
	focus       *service.FocusService
	journal     *service.JournalService
	export      *service.ExportService
	system      *service.SystemSettingService
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB) *API {
	systemService := service.NewSystemSettingService(db)
	insightService := service.NewAIInsightService(systemService)

	return &API{
		db:          db,
		habits:      service.NewHabitService(db),
		habitLogs:   service.NewHabitLogService(db),
		analytics:   service.NewAnalyticsService(db),
		suggestions: service.NewSuggestionService(db, insightService),
		focus:       service.NewFocusService(db),
		journal:     service.NewJournalService(db, systemService),
		export:      service.NewExportService(db, systemService),
		system:      systemService,
	}
}

// DB exposes the underlying gorm instance for legacy paths.
func (a *API) DB() *gorm.DB {
	return a.db
}
