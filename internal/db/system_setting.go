package db

import "gorm.io/gorm"

// SystemSetting 存储进程级可配置的键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeyAIProvider 表示当前启用的 AI 平台。
	SettingKeyAIProvider = "ai_provider"
	// SettingKeyOpenAIAPIKey 表示 OpenAI API Key。
	SettingKeyOpenAIAPIKey = "openai_api_key"
	// SettingKeyDeepSeekAPIKey 表示 DeepSeek API Key。
	SettingKeyDeepSeekAPIKey = "deepseek_api_key"
	// SettingKeyTheme 表示界面主题（dark/light）。
	SettingKeyTheme = "theme"
	// SettingKeyWelcomeSeen 表示用户是否看过欢迎引导。
	SettingKeyWelcomeSeen = "welcome_seen"
	// SettingKeyNotifications 表示是否开启提醒。
	SettingKeyNotifications = "notifications_enabled"
)
