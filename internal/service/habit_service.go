package service

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/driftlog/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrHabitNotFound 在指定习惯不存在时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitInvalidCategory 当类别不在枚举内时返回
	ErrHabitInvalidCategory = errors.New("invalid habit category")
	// ErrHabitInvalidTarget 当每日目标非正数时返回
	ErrHabitInvalidTarget = errors.New("invalid habit target count")
)

// habitCategories 列出受支持的习惯类别。
var habitCategories = []string{"focus", "hydration", "meds", "breaks", "quick_wins"}

// HabitService 负责 Habit 数据的增删改查
// Category 限定为 focus/hydration/meds/breaks/quick_wins
// TargetCount 为每日目标，必须大于 0
type HabitService struct {
	db *gorm.DB
}

// HabitFilter 描述列表过滤条件
type HabitFilter struct {
	ActiveOnly bool
	Category   string
}

// HabitInput 定义创建/更新习惯时可配置字段
type HabitInput struct {
	Name        string
	Category    string
	TargetCount int
	IsActive    *bool
	SortOrder   int
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB) *HabitService {
	return &HabitService{db: gdb}
}

// List 返回习惯集合，按 sort_order 排序
func (s *HabitService) List(filter HabitFilter) ([]db.Habit, error) {
	var habits []db.Habit

	query := s.db.Model(&db.Habit{})
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	if err := query.Order("sort_order ASC, id ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	return habits, nil
}

// Get 根据 ID 获取习惯
func (s *HabitService) Get(id uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

// GetByName 根据名称查找习惯，用于处理 modify_existing 类建议。
// 名称不唯一时返回最早创建的一条；重命名会使旧建议失效，这是已知限制。
func (s *HabitService) GetByName(name string) (*db.Habit, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrHabitNotFound
	}

	var habit db.Habit
	if err := s.db.Where("name = ?", trimmed).Order("id ASC").First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit by name: %w", err)
	}
	return &habit, nil
}

// Create 新建习惯
func (s *HabitService) Create(input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	habit := db.Habit{
		Name:        strings.TrimSpace(input.Name),
		Category:    normalizeCategory(input.Category),
		TargetCount: input.TargetCount,
		IsActive:    true,
		SortOrder:   input.SortOrder,
	}
	if input.IsActive != nil {
		habit.IsActive = *input.IsActive
	}

	if err := s.db.Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &habit, nil
}

// Update 更新习惯
func (s *HabitService) Update(id uint, input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	var existing db.Habit
	if err := s.db.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("find habit: %w", err)
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Category = normalizeCategory(input.Category)
	existing.TargetCount = input.TargetCount
	existing.SortOrder = input.SortOrder
	if input.IsActive != nil {
		existing.IsActive = *input.IsActive
	}

	if err := s.db.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return &existing, nil
}

// Delete 删除习惯并级联清理其打卡日志
func (s *HabitService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", id).Delete(&db.HabitLog{}).Error; err != nil {
			return fmt.Errorf("delete habit logs: %w", err)
		}
		if err := tx.Delete(&db.Habit{}, id).Error; err != nil {
			return fmt.Errorf("delete habit: %w", err)
		}
		return nil
	})
}

func validateHabitInput(input HabitInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("habit name is required")
	}

	if !slices.Contains(habitCategories, normalizeCategory(input.Category)) {
		return fmt.Errorf("%w: %s", ErrHabitInvalidCategory, input.Category)
	}

	if input.TargetCount <= 0 {
		return fmt.Errorf("%w: count must be positive", ErrHabitInvalidTarget)
	}

	return nil
}

func normalizeCategory(category string) string {
	return strings.TrimSpace(strings.ToLower(category))
}

// HabitLogService 负责打卡写入与查询逻辑
type HabitLogService struct {
	db *gorm.DB
}

// NewHabitLogService 构造 HabitLogService
func NewHabitLogService(gdb *gorm.DB) *HabitLogService {
	return &HabitLogService{db: gdb}
}

// CheckIn 针对 (habit_id, date) 追加一次打卡。
// 在单个事务内先读取当前行再累加 Count，避免快速连点时的丢失更新；
// 当日没有记录时创建 Count=1 的新行，并按打卡时刻写入时间段。
func (s *HabitLogService) CheckIn(habitID uint, date string, hour int) (*db.HabitLog, error) {
	if habitID == 0 {
		return nil, fmt.Errorf("habit id is required")
	}

	var record db.HabitLog

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var habit db.Habit
		if err := tx.First(&habit, habitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHabitNotFound
			}
			return fmt.Errorf("find habit: %w", err)
		}

		result := tx.Where("habit_id = ? AND log_date = ?", habitID, date).First(&record)
		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			record = db.HabitLog{
				HabitID:   habitID,
				LogDate:   date,
				Count:     1,
				TimeOfDay: TimeOfDayForHour(hour),
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("create habit log: %w", err)
			}
			return nil
		case result.Error != nil:
			return fmt.Errorf("load habit log: %w", result.Error)
		}

		record.Count++
		if err := tx.Save(&record).Error; err != nil {
			return fmt.Errorf("update habit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// ListByDate 返回指定日期的全部打卡记录
func (s *HabitLogService) ListByDate(date string) ([]db.HabitLog, error) {
	var logs []db.HabitLog
	if err := s.db.Where("log_date = ?", date).Order("habit_id ASC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}
	return logs, nil
}

// ListRecent 返回按日期倒序的最近打卡记录
func (s *HabitLogService) ListRecent(limit int) ([]db.HabitLog, error) {
	if limit <= 0 {
		limit = analyticsLogFetchLimit
	}

	var logs []db.HabitLog
	if err := s.db.Order("log_date DESC, id ASC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}
	return logs, nil
}

// CountLogs 返回打卡记录总数，用于建议生成的最小数据门槛。
func (s *HabitLogService) CountLogs() (int64, error) {
	var total int64
	if err := s.db.Model(&db.HabitLog{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count habit logs: %w", err)
	}
	return total, nil
}
