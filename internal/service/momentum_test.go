package service

import (
	"testing"

	"github.com/driftlog/internal/db"
)

func logsOn(dates ...string) []db.HabitLog {
	logs := make([]db.HabitLog, 0, len(dates))
	for _, date := range dates {
		logs = append(logs, db.HabitLog{HabitID: 1, LogDate: date, Count: 1})
	}
	return logs
}

func TestMomentumDaysEmpty(t *testing.T) {
	if got := MomentumDays(nil, "2026-03-10"); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMomentumDaysUnbrokenChain(t *testing.T) {
	logs := logsOn("2026-03-08", "2026-03-09", "2026-03-10")
	if got := MomentumDays(logs, "2026-03-10"); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMomentumDaysGapAtToday(t *testing.T) {
	// 今天没有打卡时连续天数归零，不延续昨天的链条
	logs := logsOn("2026-03-07", "2026-03-08", "2026-03-09")
	if got := MomentumDays(logs, "2026-03-10"); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMomentumDaysGapInMiddle(t *testing.T) {
	logs := logsOn("2026-03-05", "2026-03-06", "2026-03-08", "2026-03-09", "2026-03-10")
	if got := MomentumDays(logs, "2026-03-10"); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMomentumDaysMultipleLogsSameDay(t *testing.T) {
	logs := []db.HabitLog{
		{HabitID: 1, LogDate: "2026-03-09", Count: 2},
		{HabitID: 2, LogDate: "2026-03-09", Count: 1},
		{HabitID: 1, LogDate: "2026-03-10", Count: 3},
	}
	if got := MomentumDays(logs, "2026-03-10"); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestMomentumDaysLookbackCap(t *testing.T) {
	// 超过 60 天的链条只计到回看窗口上限
	dates := make([]string, 0, 90)
	date := "2026-03-10"
	for i := 0; i < 90; i++ {
		dates = append(dates, date)
		date = shiftDate(date, -1)
	}
	if got := MomentumDays(logsOn(dates...), "2026-03-10"); got != 60 {
		t.Fatalf("expected 60, got %d", got)
	}
}

func TestTimeOfDayForHour(t *testing.T) {
	tests := []struct {
		hour     int
		expected string
	}{
		{0, TimeOfDayMorning},
		{11, TimeOfDayMorning},
		{12, TimeOfDayAfternoon},
		{16, TimeOfDayAfternoon},
		{17, TimeOfDayEvening},
		{20, TimeOfDayEvening},
		{21, TimeOfDayNight},
		{23, TimeOfDayNight},
	}
	for _, tt := range tests {
		if got := TimeOfDayForHour(tt.hour); got != tt.expected {
			t.Fatalf("hour %d: expected %s, got %s", tt.hour, tt.expected, got)
		}
	}
}
