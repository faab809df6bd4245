package service

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/driftlog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAnalyticsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.Habit{}, &db.HabitLog{}, &db.FocusSession{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func TestBuildHabitStats(t *testing.T) {
	today := "2026-03-10"
	habits := []db.Habit{{Model: gorm.Model{ID: 1}, Name: "喝水", Category: "hydration", TargetCount: 4}}

	// 近 7 天共 14 次打卡：日均 2 次，目标 4 次 → 完成率 50%
	logs := []db.HabitLog{
		{HabitID: 1, LogDate: "2026-03-04", Count: 2},
		{HabitID: 1, LogDate: "2026-03-05", Count: 2},
		{HabitID: 1, LogDate: "2026-03-06", Count: 2},
		{HabitID: 1, LogDate: "2026-03-07", Count: 2},
		{HabitID: 1, LogDate: "2026-03-08", Count: 2},
		{HabitID: 1, LogDate: "2026-03-09", Count: 2},
		{HabitID: 1, LogDate: "2026-03-10", Count: 2},
	}

	stats := BuildHabitStats(habits, logs, today)
	if len(stats) != 1 {
		t.Fatalf("expected 1 stat, got %d", len(stats))
	}

	stat := stats[0]
	if stat.TotalCheckins != 14 {
		t.Fatalf("expected 14 total checkins, got %d", stat.TotalCheckins)
	}
	if stat.DaysActive != 7 {
		t.Fatalf("expected 7 active days, got %d", stat.DaysActive)
	}
	if math.Abs(stat.AvgPerDay-2.0) > 1e-9 {
		t.Fatalf("expected avg 2.0, got %v", stat.AvgPerDay)
	}
	if math.Abs(stat.CompletionRate-50.0) > 1e-9 {
		t.Fatalf("expected completion rate 50, got %v", stat.CompletionRate)
	}
}

func TestBuildHabitStatsWindowExcludesOldLogs(t *testing.T) {
	today := "2026-03-10"
	habits := []db.Habit{{Model: gorm.Model{ID: 1}, Name: "吃药", Category: "meds", TargetCount: 1}}
	logs := []db.HabitLog{
		{HabitID: 1, LogDate: "2026-03-01", Count: 5},
		{HabitID: 1, LogDate: "2026-03-10", Count: 1},
	}

	stats := BuildHabitStats(habits, logs, today)
	if stats[0].Last7Checkins != 1 {
		t.Fatalf("expected 1 in window, got %d", stats[0].Last7Checkins)
	}
	if stats[0].TotalCheckins != 6 {
		t.Fatalf("expected 6 total, got %d", stats[0].TotalCheckins)
	}
}

func TestBuildHabitStatsDeterministic(t *testing.T) {
	today := "2026-03-10"
	habits := []db.Habit{
		{Model: gorm.Model{ID: 2}, Name: "喝水", Category: "hydration", TargetCount: 4},
		{Model: gorm.Model{ID: 1}, Name: "拉伸", Category: "breaks", TargetCount: 2},
		{Model: gorm.Model{ID: 3}, Name: "冥想", Category: "focus", TargetCount: 1},
	}
	logs := []db.HabitLog{
		{HabitID: 1, LogDate: "2026-03-09", Count: 3},
		{HabitID: 2, LogDate: "2026-03-10", Count: 3},
		{HabitID: 3, LogDate: "2026-03-08", Count: 1},
	}

	first := BuildHabitStats(habits, logs, today)
	for i := 0; i < 10; i++ {
		again := BuildHabitStats(habits, logs, today)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("iteration %d produced different output", i)
		}
	}

	// 同分时按名称再按 ID 排序，保证稳定
	if first[0].TotalCheckins < first[1].TotalCheckins {
		t.Fatal("expected descending order by total checkins")
	}
}

func TestBuildTimeOfDayBreakdownIgnoresUnknownBucket(t *testing.T) {
	logs := []db.HabitLog{
		{HabitID: 1, LogDate: "2026-03-10", Count: 2, TimeOfDay: TimeOfDayMorning},
		{HabitID: 1, LogDate: "2026-03-10", Count: 1, TimeOfDay: "brunch"},
		{HabitID: 1, LogDate: "2026-03-10", Count: 3, TimeOfDay: TimeOfDayNight},
	}

	stats := BuildTimeOfDayBreakdown(logs)
	if len(stats) != 4 {
		t.Fatalf("expected 4 fixed buckets, got %d", len(stats))
	}
	total := 0
	for _, bucket := range stats {
		total += bucket.Count
	}
	if total != 5 {
		t.Fatalf("expected 5 counted checkins, got %d", total)
	}
	if stats[0].Bucket != TimeOfDayMorning || stats[0].Count != 2 {
		t.Fatalf("unexpected first bucket %+v", stats[0])
	}
}

func TestBuildWeeklySeries(t *testing.T) {
	today := "2026-03-10"
	logs := []db.HabitLog{
		{HabitID: 1, LogDate: "2026-03-04", Count: 1},
		{HabitID: 1, LogDate: "2026-03-10", Count: 2},
		{HabitID: 1, LogDate: "2026-02-20", Count: 9},
	}

	series := BuildWeeklySeries(logs, today)
	if len(series) != 7 {
		t.Fatalf("expected 7 points, got %d", len(series))
	}
	if series[0].Date != "2026-03-04" || series[0].Checkins != 1 {
		t.Fatalf("unexpected first point %+v", series[0])
	}
	if !series[6].IsToday || series[6].Checkins != 2 {
		t.Fatalf("unexpected last point %+v", series[6])
	}
}

func TestBuildFocusSummary(t *testing.T) {
	sessions := []db.FocusSession{
		{LogDate: "2026-03-09", DurationMinutes: 25, Completed: true},
		{LogDate: "2026-03-10", DurationMinutes: 50, Completed: true},
		{LogDate: "2026-03-10", DurationMinutes: 10, Completed: false},
	}

	summary := BuildFocusSummary(sessions)
	if summary.CompletedSessions != 2 {
		t.Fatalf("expected 2 completed, got %d", summary.CompletedSessions)
	}
	if summary.TotalMinutes != 75 {
		t.Fatalf("expected 75 minutes, got %d", summary.TotalMinutes)
	}
	if summary.AvgMinutes != 38 {
		t.Fatalf("expected avg 38, got %d", summary.AvgMinutes)
	}
}

func TestBuildFocusSummaryEmpty(t *testing.T) {
	summary := BuildFocusSummary(nil)
	if summary.AvgMinutes != 0 || summary.TotalMinutes != 0 || summary.CompletedSessions != 0 {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}

func TestAnalyticsDashboard(t *testing.T) {
	gdb := setupAnalyticsTestDB(t)

	habit := db.Habit{Name: "喝水", Category: "hydration", TargetCount: 2, IsActive: true}
	if err := gdb.Create(&habit).Error; err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}

	today := Today()
	if err := gdb.Create(&db.HabitLog{HabitID: habit.ID, LogDate: today, Count: 2, TimeOfDay: TimeOfDayMorning}).Error; err != nil {
		t.Fatalf("failed to create log: %v", err)
	}

	view, err := NewAnalyticsService(gdb).Dashboard(today)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}

	if view.MomentumDays != 1 {
		t.Fatalf("expected momentum 1, got %d", view.MomentumDays)
	}
	if view.CompletedToday != 2 || view.TotalTarget != 2 {
		t.Fatalf("unexpected progress %d/%d", view.CompletedToday, view.TotalTarget)
	}
	if len(view.Habits) != 1 || !view.Habits[0].Done {
		t.Fatalf("expected habit done, got %+v", view.Habits)
	}
}
