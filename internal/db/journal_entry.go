package db

import (
	"encoding/json"

	"gorm.io/gorm"
)

// JournalEntry 记录用户的日记条目
// Content 为 Markdown 文本，展示前需经过渲染与清洗
// Mood 取值 great/good/okay/struggling/rough
// RelatedHabitIDs 以 JSON 数组文本存储关联习惯，Prompt 为触发写作的引导语（可为空）
type JournalEntry struct {
	gorm.Model
	LogDate         string `gorm:"size:10;index"`
	Content         string `gorm:"type:text"`
	Mood            string `gorm:"size:16"`
	RelatedHabitIDs string `gorm:"type:text"`
	Prompt          string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (JournalEntry) TableName() string {
	return "journal_entries"
}

// SetRelatedHabits 序列化关联习惯 ID 列表。
func (e *JournalEntry) SetRelatedHabits(ids []uint) error {
	if len(ids) == 0 {
		e.RelatedHabitIDs = ""
		return nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	e.RelatedHabitIDs = string(data)
	return nil
}

// RelatedHabits 反序列化关联习惯 ID 列表，空值返回 nil。
func (e *JournalEntry) RelatedHabits() []uint {
	if e.RelatedHabitIDs == "" {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal([]byte(e.RelatedHabitIDs), &ids); err != nil {
		return nil
	}
	return ids
}
