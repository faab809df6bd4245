package service

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/driftlog/internal/db"
	"gorm.io/gorm"
)

const (
	analyticsLogFetchLimit     = 500
	analyticsSessionFetchLimit = 200
	habitStatsWindowDays       = 7
)

// HabitStat 汇总单个习惯的打卡表现。
// AvgPerDay 与 CompletionRate 全精度计算，四舍五入只发生在展示层。
type HabitStat struct {
	HabitID        uint
	Name           string
	Category       string
	TargetCount    int
	TotalCheckins  int
	DaysActive     int
	Last7Checkins  int
	AvgPerDay      float64
	CompletionRate float64
}

// TimeBucketStat 表示单个时间段的打卡总量。
type TimeBucketStat struct {
	Bucket string
	Count  int
}

// WeekdayPoint 表示近 7 天序列中的单日打卡总量。
type WeekdayPoint struct {
	Date     string
	Checkins int
	IsToday  bool
}

// FocusSummary 汇总已完成专注会话的整体数据。
type FocusSummary struct {
	CompletedSessions int
	TotalMinutes      int
	AvgMinutes        int
}

// InsightsOverview 聚合洞察页所需的全部派生指标。
type InsightsOverview struct {
	Week      []WeekdayPoint
	TimeOfDay []TimeBucketStat
	Habits    []HabitStat
	Focus     FocusSummary
}

// BuildHabitStats 按习惯归并打卡数据，输出按总打卡数降序的排行。
// 纯函数：相同输入必然产出逐位一致的结果。
func BuildHabitStats(habits []db.Habit, logs []db.HabitLog, today string) []HabitStat {
	windowStart := shiftDate(today, -(habitStatsWindowDays - 1))

	type bucket struct {
		total int
		last7 int
		days  map[string]struct{}
	}
	byHabit := make(map[uint]*bucket, len(habits))
	for _, habit := range habits {
		byHabit[habit.ID] = &bucket{days: make(map[string]struct{})}
	}

	for _, log := range logs {
		agg, ok := byHabit[log.HabitID]
		if !ok {
			continue
		}
		count := log.Count
		if count <= 0 {
			count = 1
		}
		agg.total += count
		agg.days[log.LogDate] = struct{}{}
		if log.LogDate >= windowStart && log.LogDate <= today {
			agg.last7 += count
		}
	}

	stats := make([]HabitStat, 0, len(habits))
	for _, habit := range habits {
		agg := byHabit[habit.ID]
		target := habit.TargetCount
		if target <= 0 {
			target = 1
		}

		avg := float64(agg.last7) / float64(habitStatsWindowDays)
		stats = append(stats, HabitStat{
			HabitID:        habit.ID,
			Name:           habit.Name,
			Category:       habit.Category,
			TargetCount:    target,
			TotalCheckins:  agg.total,
			DaysActive:     len(agg.days),
			Last7Checkins:  agg.last7,
			AvgPerDay:      avg,
			CompletionRate: avg / float64(target) * 100,
		})
	}

	slices.SortFunc(stats, func(a, b HabitStat) int {
		if diff := cmp.Compare(b.TotalCheckins, a.TotalCheckins); diff != 0 {
			return diff
		}
		if diff := cmp.Compare(a.Name, b.Name); diff != 0 {
			return diff
		}
		return cmp.Compare(a.HabitID, b.HabitID)
	})

	return stats
}

// BuildTimeOfDayBreakdown 按四个时间段归并打卡总数，无法识别的时段直接忽略。
func BuildTimeOfDayBreakdown(logs []db.HabitLog) []TimeBucketStat {
	counts := make(map[string]int, len(timeOfDayBuckets))
	for _, log := range logs {
		if !slices.Contains(timeOfDayBuckets, log.TimeOfDay) {
			continue
		}
		count := log.Count
		if count <= 0 {
			count = 1
		}
		counts[log.TimeOfDay] += count
	}

	stats := make([]TimeBucketStat, 0, len(timeOfDayBuckets))
	for _, bucket := range timeOfDayBuckets {
		stats = append(stats, TimeBucketStat{Bucket: bucket, Count: counts[bucket]})
	}
	return stats
}

// BuildWeeklySeries 产出近 7 个日历日（由远及近）的打卡总量序列。
func BuildWeeklySeries(logs []db.HabitLog, today string) []WeekdayPoint {
	totals := make(map[string]int, len(logs))
	for _, log := range logs {
		count := log.Count
		if count <= 0 {
			count = 1
		}
		totals[log.LogDate] += count
	}

	series := make([]WeekdayPoint, 0, habitStatsWindowDays)
	for i := habitStatsWindowDays - 1; i >= 0; i-- {
		date := shiftDate(today, -i)
		series = append(series, WeekdayPoint{
			Date:     date,
			Checkins: totals[date],
			IsToday:  i == 0,
		})
	}
	return series
}

// BuildFocusSummary 汇总已完成的专注会话；没有会话时平均值为 0 而非除零。
func BuildFocusSummary(sessions []db.FocusSession) FocusSummary {
	var summary FocusSummary
	for _, session := range sessions {
		if !session.Completed {
			continue
		}
		summary.CompletedSessions++
		summary.TotalMinutes += session.DurationMinutes
	}
	if summary.CompletedSessions > 0 {
		avg := float64(summary.TotalMinutes) / float64(summary.CompletedSessions)
		summary.AvgMinutes = int(avg + 0.5)
	}
	return summary
}

// AnalyticsService 负责从存储新取数据并调用纯归并函数。
// 不缓存任何中间结果：每次查询都基于最新快照重算。
type AnalyticsService struct {
	db *gorm.DB
}

// NewAnalyticsService 构造 AnalyticsService。
func NewAnalyticsService(gdb *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: gdb}
}

// Overview 重新拉取习惯、打卡与专注会话，聚合出洞察页数据。
func (s *AnalyticsService) Overview(today string) (*InsightsOverview, error) {
	var habits []db.Habit
	if err := s.db.Order("sort_order ASC, id ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	var logs []db.HabitLog
	if err := s.db.Order("log_date DESC, id ASC").Limit(analyticsLogFetchLimit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}

	var sessions []db.FocusSession
	if err := s.db.Order("log_date DESC, id ASC").Limit(analyticsSessionFetchLimit).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list focus sessions: %w", err)
	}

	return &InsightsOverview{
		Week:      BuildWeeklySeries(logs, today),
		TimeOfDay: BuildTimeOfDayBreakdown(logs),
		Habits:    BuildHabitStats(habits, logs, today),
		Focus:     BuildFocusSummary(sessions),
	}, nil
}

// DashboardHabit 表示首页上单个习惯的当日进度。
type DashboardHabit struct {
	HabitID     uint   `json:"habit_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	TargetCount int    `json:"target_count"`
	TodayCount  int    `json:"today_count"`
	Done        bool   `json:"done"`
}

// DashboardView 聚合首页所需的当日进度与连续天数。
type DashboardView struct {
	Date           string           `json:"date"`
	MomentumDays   int              `json:"momentum_days"`
	CompletedToday int              `json:"completed_today"`
	TotalTarget    int              `json:"total_target"`
	Habits         []DashboardHabit `json:"habits"`
	Week           []WeekdayPoint   `json:"week"`
}

// Dashboard 重新拉取数据，聚合出首页视图。
func (s *AnalyticsService) Dashboard(today string) (*DashboardView, error) {
	var habits []db.Habit
	if err := s.db.Where("is_active = ?", true).Order("sort_order ASC, id ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	var logs []db.HabitLog
	if err := s.db.Order("log_date DESC, id ASC").Limit(analyticsLogFetchLimit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}

	todayCounts := make(map[uint]int, len(habits))
	for _, log := range logs {
		if log.LogDate != today {
			continue
		}
		count := log.Count
		if count <= 0 {
			count = 1
		}
		todayCounts[log.HabitID] += count
	}

	view := &DashboardView{
		Date:         today,
		MomentumDays: MomentumDays(logs, today),
		Habits:       make([]DashboardHabit, 0, len(habits)),
		Week:         BuildWeeklySeries(logs, today),
	}

	for _, habit := range habits {
		target := habit.TargetCount
		if target <= 0 {
			target = 1
		}
		count := todayCounts[habit.ID]

		view.TotalTarget += target
		view.CompletedToday += count
		view.Habits = append(view.Habits, DashboardHabit{
			HabitID:     habit.ID,
			Name:        habit.Name,
			Category:    habit.Category,
			TargetCount: target,
			TodayCount:  count,
			Done:        count >= target,
		})
	}

	return view, nil
}
