package db

import "gorm.io/gorm"

const (
	// SuggestionStatusActive 表示建议等待用户处理。
	SuggestionStatusActive = "active"
	// SuggestionStatusActedOn 表示用户已采纳建议。
	SuggestionStatusActedOn = "acted_on"
	// SuggestionStatusDismissed 表示用户已忽略建议。
	SuggestionStatusDismissed = "dismissed"

	// SuggestionActionAddNew 建议新增一个习惯。
	SuggestionActionAddNew = "add_new"
	// SuggestionActionModifyExisting 建议调整已有习惯。
	SuggestionActionModifyExisting = "modify_existing"
)

// AISuggestion 持久化模型产出的个性化建议
// 每轮生成至多创建一条，status 从 active 单向流转到 acted_on 或 dismissed
// ActionType 为空表示模型返回了无法识别的动作，该建议只允许忽略
// SuggestedName/SuggestedCategory/SuggestedTarget 为 add_new 时的预填习惯载荷
type AISuggestion struct {
	gorm.Model
	LogDate           string `gorm:"size:10;index"`
	SuggestionText    string `gorm:"type:text"`
	Reasoning         string `gorm:"type:text"`
	ActionType        string `gorm:"size:32"`
	SuggestedName     string
	SuggestedCategory string `gorm:"size:32"`
	SuggestedTarget   int
	ExistingHabitName string
	Status            string `gorm:"size:16;default:active;index"`
}

// TableName 自定义表名以保持命名一致。
func (AISuggestion) TableName() string {
	return "ai_suggestions"
}

// Resolved 返回建议是否已处于终态。
func (s *AISuggestion) Resolved() bool {
	return s.Status != SuggestionStatusActive
}
