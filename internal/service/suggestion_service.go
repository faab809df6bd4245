package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"

	"github.com/driftlog/internal/db"
	"gorm.io/gorm"
)

// minLogsForSuggestion 为生成个性化建议所需的最少历史打卡条数，
// 数据不足时只返回固定文案，不调用模型也不落建议记录。
const minLogsForSuggestion = 5

const suggestionHistoryLimit = 50

// cannedNudges 为模型不可用或数据不足时的兜底文案。
var cannedNudges = []string{
	"从最小的一步开始，点一次就算数。",
	"进步从来不是直线，小步也在累积。",
	"把新习惯挂在一件每天都做的事后面试试。",
	"换个地方做熟悉的事，大脑喜欢一点新鲜感。",
	"两分钟法则：两分钟内能做完的，现在就做。",
}

var (
	// ErrSuggestionNotFound 在指定建议不存在时返回。
	ErrSuggestionNotFound = errors.New("suggestion not found")
	// ErrSuggestionNotActionable 表示建议缺少可执行的动作载荷，只能忽略。
	ErrSuggestionNotActionable = errors.New("suggestion is not actionable")
	// ErrSuggestionTargetMissing 表示 modify_existing 指向的习惯已不存在。
	ErrSuggestionTargetMissing = errors.New("suggestion target habit not found")
)

// SuggestionService 负责建议的生成周期与单次处置生命周期。
// 每条建议只允许从 active 流转一次到 acted_on 或 dismissed，
// 对已处置记录的重复调用是无害的空操作。
type SuggestionService struct {
	db        *gorm.DB
	habits    *HabitService
	habitLogs *HabitLogService
	insights  InsightGenerator
}

// NewSuggestionService 构造 SuggestionService。
func NewSuggestionService(gdb *gorm.DB, insights InsightGenerator) *SuggestionService {
	return &SuggestionService{
		db:        gdb,
		habits:    NewHabitService(gdb),
		habitLogs: NewHabitLogService(gdb),
		insights:  insights,
	}
}

// NudgeResult 返回一轮生成周期的产出。
// Suggestion 为空表示本轮只有兜底文案，没有新建议记录。
type NudgeResult struct {
	Nudge      string
	Suggestion *db.AISuggestion
}

// SuggestionAction 描述一次采纳操作交给 UI 层的动作载荷。
// 生命周期组件只授权并记录决定，不直接创建或修改习惯。
type SuggestionAction struct {
	Suggestion      db.AISuggestion
	NewHabit        *HabitInput
	TargetHabit     *db.Habit
	AlreadyResolved bool
}

// GenerateNudge 执行一轮轻推生成周期：
// 数据不足或模型失败时回退到固定文案（伪随机挑选），该路径永远不返回错误；
// 成功时创建一条 status=active 的建议记录。
func (s *SuggestionService) GenerateNudge(ctx context.Context, today string, hour int) (*NudgeResult, error) {
	habits, err := s.habits.List(HabitFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	totalLogs, err := s.habitLogs.CountLogs()
	if err != nil {
		return nil, err
	}

	if len(habits) == 0 || totalLogs < minLogsForSuggestion {
		return &NudgeResult{Nudge: pickCannedNudge()}, nil
	}

	recentLogs, err := s.habitLogs.ListRecent(analyticsLogFetchLimit)
	if err != nil {
		return nil, err
	}

	todayLogs, err := s.habitLogs.ListByDate(today)
	if err != nil {
		return nil, err
	}
	completedToday := 0
	for _, logEntry := range todayLogs {
		completedToday += logEntry.Count
	}

	totalTarget := 0
	for _, habit := range habits {
		target := habit.TargetCount
		if target <= 0 {
			target = 1
		}
		totalTarget += target
	}

	insight, err := s.insights.GenerateInsight(ctx, InsightContext{
		TimeOfDay:      TimeOfDayForHour(hour),
		CompletedToday: completedToday,
		TotalTarget:    totalTarget,
		MomentumDays:   MomentumDays(recentLogs, today),
		HabitStats:     BuildHabitStats(habits, recentLogs, today),
	})
	if err != nil {
		// 生成失败是可恢复的：降级为兜底文案，不向用户暴露错误
		log.Printf("[AI INSIGHT] generation failed, falling back: %v", err)
		return &NudgeResult{Nudge: pickCannedNudge()}, nil
	}

	result := &NudgeResult{Nudge: insight.Nudge}
	if insight.Suggestion == "" {
		return result, nil
	}

	suggestion := db.AISuggestion{
		LogDate:           today,
		SuggestionText:    insight.Suggestion,
		Reasoning:         insight.Reasoning,
		ActionType:        validateActionType(insight),
		SuggestedName:     insight.SuggestedName,
		SuggestedCategory: insight.SuggestedCategory,
		SuggestedTarget:   insight.SuggestedTarget,
		ExistingHabitName: insight.ExistingHabitName,
		Status:            db.SuggestionStatusActive,
	}

	if err := s.db.Create(&suggestion).Error; err != nil {
		return nil, fmt.Errorf("create suggestion: %w", err)
	}

	result.Suggestion = &suggestion
	return result, nil
}

// validateActionType 把模型输出当作不可信输入校验：
// 动作类型必须在枚举内且携带对应载荷，否则降级为空（只能忽略）。
func validateActionType(insight InsightResult) string {
	switch insight.ActionType {
	case db.SuggestionActionAddNew:
		if insight.SuggestedName != "" {
			return db.SuggestionActionAddNew
		}
	case db.SuggestionActionModifyExisting:
		if insight.ExistingHabitName != "" {
			return db.SuggestionActionModifyExisting
		}
	}
	return ""
}

// Get 根据 ID 获取建议。
func (s *SuggestionService) Get(id uint) (*db.AISuggestion, error) {
	var suggestion db.AISuggestion
	if err := s.db.First(&suggestion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSuggestionNotFound
		}
		return nil, fmt.Errorf("get suggestion: %w", err)
	}
	return &suggestion, nil
}

// List 返回按日期倒序的建议历史。
func (s *SuggestionService) List(limit int) ([]db.AISuggestion, error) {
	if limit <= 0 {
		limit = suggestionHistoryLimit
	}

	var suggestions []db.AISuggestion
	if err := s.db.Order("log_date DESC, id DESC").Limit(limit).Find(&suggestions).Error; err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	return suggestions, nil
}

// Act 采纳建议：仅当 status=active 时流转为 acted_on 并返回动作载荷。
// 对已处置的记录返回 AlreadyResolved，不产生任何副作用。
func (s *SuggestionService) Act(id uint) (*SuggestionAction, error) {
	suggestion, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if suggestion.Resolved() {
		return &SuggestionAction{Suggestion: *suggestion, AlreadyResolved: true}, nil
	}

	action := &SuggestionAction{Suggestion: *suggestion}
	switch suggestion.ActionType {
	case db.SuggestionActionAddNew:
		target := suggestion.SuggestedTarget
		if target <= 0 {
			target = 1
		}
		category := suggestion.SuggestedCategory
		if category == "" {
			category = "focus"
		}
		action.NewHabit = &HabitInput{
			Name:        suggestion.SuggestedName,
			Category:    category,
			TargetCount: target,
		}
	case db.SuggestionActionModifyExisting:
		habit, err := s.habits.GetByName(suggestion.ExistingHabitName)
		if err != nil {
			if errors.Is(err, ErrHabitNotFound) {
				return nil, ErrSuggestionTargetMissing
			}
			return nil, err
		}
		action.TargetHabit = habit
	default:
		return nil, ErrSuggestionNotActionable
	}

	resolved, err := s.transition(id, db.SuggestionStatusActedOn)
	if err != nil {
		return nil, err
	}
	if !resolved {
		// 并发场景下刚好被处置：同样视为无害的空操作
		action.AlreadyResolved = true
		action.NewHabit = nil
		action.TargetHabit = nil
		return action, nil
	}

	action.Suggestion.Status = db.SuggestionStatusActedOn
	return action, nil
}

// Dismiss 忽略建议：仅当 status=active 时流转为 dismissed。
// 重复调用是无害的空操作。
func (s *SuggestionService) Dismiss(id uint) (*db.AISuggestion, error) {
	suggestion, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if suggestion.Resolved() {
		return suggestion, nil
	}

	if _, err := s.transition(id, db.SuggestionStatusDismissed); err != nil {
		return nil, err
	}

	return s.Get(id)
}

// transition 以 status=active 为条件做单次状态流转，
// 返回是否真正发生了更新。
func (s *SuggestionService) transition(id uint, status string) (bool, error) {
	result := s.db.Model(&db.AISuggestion{}).
		Where("id = ? AND status = ?", id, db.SuggestionStatusActive).
		Update("status", status)
	if result.Error != nil {
		return false, fmt.Errorf("update suggestion status: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func pickCannedNudge() string {
	return cannedNudges[rand.IntN(len(cannedNudges))]
}
