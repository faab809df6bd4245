package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/driftlog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupHabitTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.Habit{}, &db.HabitLog{}); err != nil {
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

func TestHabitServiceCreateAndList(t *testing.T) {
	gdb := setupHabitTestDB(t)
	svc := NewHabitService(gdb)

	created, err := svc.Create(HabitInput{Name: " 喝水 ", Category: "Hydration", TargetCount: 4})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Name != "喝水" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if created.Category != "hydration" {
		t.Fatalf("expected normalized category, got %q", created.Category)
	}
	if !created.IsActive {
		t.Fatal("expected habit active by default")
	}

	habits, err := svc.List(HabitFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(habits) != 1 {
		t.Fatalf("expected 1 habit, got %d", len(habits))
	}
}

func TestHabitServiceCreateValidation(t *testing.T) {
	gdb := setupHabitTestDB(t)
	svc := NewHabitService(gdb)

	if _, err := svc.Create(HabitInput{Name: "", Category: "focus", TargetCount: 1}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := svc.Create(HabitInput{Name: "冥想", Category: "sleep", TargetCount: 1}); !errors.Is(err, ErrHabitInvalidCategory) {
		t.Fatalf("expected invalid category error, got %v", err)
	}
	if _, err := svc.Create(HabitInput{Name: "冥想", Category: "focus", TargetCount: 0}); !errors.Is(err, ErrHabitInvalidTarget) {
		t.Fatalf("expected invalid target error, got %v", err)
	}
}

func TestHabitServiceListActiveOnly(t *testing.T) {
	gdb := setupHabitTestDB(t)
	svc := NewHabitService(gdb)

	inactive := false
	if _, err := svc.Create(HabitInput{Name: "冥想", Category: "focus", TargetCount: 1}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Create(HabitInput{Name: "拉伸", Category: "breaks", TargetCount: 1, IsActive: &inactive}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	habits, err := svc.List(HabitFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(habits) != 1 || habits[0].Name != "冥想" {
		t.Fatalf("expected only active habit, got %+v", habits)
	}
}

func TestHabitServiceDeleteCascades(t *testing.T) {
	gdb := setupHabitTestDB(t)
	svc := NewHabitService(gdb)
	logs := NewHabitLogService(gdb)

	habit, err := svc.Create(HabitInput{Name: "喝水", Category: "hydration", TargetCount: 2})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := logs.CheckIn(habit.ID, "2026-03-10", 9); err != nil {
		t.Fatalf("checkin failed: %v", err)
	}

	if err := svc.Delete(habit.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	var logCount int64
	gdb.Model(&db.HabitLog{}).Where("habit_id = ?", habit.ID).Count(&logCount)
	if logCount != 0 {
		t.Fatalf("expected cascaded log deletion, got %d rows", logCount)
	}
}

func TestCheckInCreatesThenIncrements(t *testing.T) {
	gdb := setupHabitTestDB(t)
	habits := NewHabitService(gdb)
	logs := NewHabitLogService(gdb)

	habit, err := habits.Create(HabitInput{Name: "喝水", Category: "hydration", TargetCount: 4})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first, err := logs.CheckIn(habit.ID, "2026-03-10", 9)
	if err != nil {
		t.Fatalf("first checkin failed: %v", err)
	}
	if first.Count != 1 {
		t.Fatalf("expected count 1, got %d", first.Count)
	}
	if first.TimeOfDay != TimeOfDayMorning {
		t.Fatalf("expected morning bucket, got %q", first.TimeOfDay)
	}

	second, err := logs.CheckIn(habit.ID, "2026-03-10", 22)
	if err != nil {
		t.Fatalf("second checkin failed: %v", err)
	}
	if second.Count != 2 {
		t.Fatalf("expected count 2, got %d", second.Count)
	}
	// 时段以首次打卡为准，追加不改写
	if second.TimeOfDay != TimeOfDayMorning {
		t.Fatalf("expected original bucket, got %q", second.TimeOfDay)
	}

	var rows int64
	gdb.Model(&db.HabitLog{}).Where("habit_id = ? AND log_date = ?", habit.ID, "2026-03-10").Count(&rows)
	if rows != 1 {
		t.Fatalf("expected single row per habit per day, got %d", rows)
	}
}

func TestCheckInUnknownHabit(t *testing.T) {
	gdb := setupHabitTestDB(t)
	logs := NewHabitLogService(gdb)

	if _, err := logs.CheckIn(42, "2026-03-10", 9); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected habit not found, got %v", err)
	}
}

func TestHabitServiceGetByName(t *testing.T) {
	gdb := setupHabitTestDB(t)
	svc := NewHabitService(gdb)

	first, err := svc.Create(HabitInput{Name: "喝水", Category: "hydration", TargetCount: 4})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Create(HabitInput{Name: "喝水", Category: "hydration", TargetCount: 8}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// 同名取最早创建的一条
	found, err := svc.GetByName(" 喝水 ")
	if err != nil {
		t.Fatalf("get by name failed: %v", err)
	}
	if found.ID != first.ID {
		t.Fatalf("expected earliest habit %d, got %d", first.ID, found.ID)
	}

	if _, err := svc.GetByName("不存在"); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected habit not found, got %v", err)
	}
	if _, err := svc.GetByName("  "); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected habit not found for blank name, got %v", err)
	}
}

func TestHabitLogQueries(t *testing.T) {
	gdb := setupHabitTestDB(t)
	svc := NewHabitService(gdb)
	logs := NewHabitLogService(gdb)

	habit, err := svc.Create(HabitInput{Name: "喝水", Category: "hydration", TargetCount: 4})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	for _, date := range []string{"2026-03-09", "2026-03-10", "2026-03-10"} {
		if _, err := logs.CheckIn(habit.ID, date, 9); err != nil {
			t.Fatalf("checkin failed: %v", err)
		}
	}

	byDate, err := logs.ListByDate("2026-03-10")
	if err != nil {
		t.Fatalf("list by date failed: %v", err)
	}
	if len(byDate) != 1 || byDate[0].Count != 2 {
		t.Fatalf("unexpected logs for date %+v", byDate)
	}

	total, err := logs.CountLogs()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 log rows, got %d", total)
	}
}
