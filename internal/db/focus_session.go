package db

import "gorm.io/gorm"

// FocusSession 记录一次完整跑完工作阶段的专注会话
// 仅在计时器自然走完工作阶段时写入，中途重置不会留下任何记录
// SessionType 对应三种预设：focus_sprint/body_doubling/quick_win
type FocusSession struct {
	gorm.Model
	LogDate         string `gorm:"size:10;index"`
	DurationMinutes int
	BreakMinutes    int
	Completed       bool
	SessionType     string `gorm:"size:32"`
}

// TableName 自定义表名以保持命名一致。
func (FocusSession) TableName() string {
	return "focus_sessions"
}
