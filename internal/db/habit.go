package db

import (
	"gorm.io/gorm"
)

// Habit 定义了习惯模型
// Category 区分习惯类别（focus/hydration/meds/breaks/quick_wins），便于统计与 AI 建议
// TargetCount 为每日目标打卡次数，必须为正数
// IsActive 软性控制习惯是否展示，删除时级联清理打卡日志
// SortOrder 决定前端展示顺序
type Habit struct {
	gorm.Model
	Name        string
	Category    string `gorm:"size:32"`
	TargetCount int    `gorm:"default:1"`
	IsActive    bool   `gorm:"default:true"`
	SortOrder   int
}

// HabitLog 记录习惯打卡日志
// Habit + LogDate 采用唯一索引保证每天至多一行；重复打卡累加 Count 而非新建
// LogDate 统一存储 yyyy-MM-dd 格式的本地日历日期，不携带时区
// TimeOfDay 在创建时根据打卡时刻推导（morning/afternoon/evening/night）
type HabitLog struct {
	gorm.Model
	HabitID   uint   `gorm:"index;index:idx_habit_log_unique,unique"`
	Habit     Habit  `gorm:"constraint:OnDelete:CASCADE"`
	LogDate   string `gorm:"size:10;index:idx_habit_log_unique,unique"`
	Count     int    `gorm:"default:1"`
	TimeOfDay string `gorm:"size:16"`
}

// TableName 重写确保唯一索引作用到 habit_id + log_date
func (HabitLog) TableName() string {
	return "habit_logs"
}
