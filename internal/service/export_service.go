package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/driftlog/internal/db"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 周报支持的时间范围（天）。
var reportRanges = map[int]bool{7: true, 30: true, 90: true}

// ErrReportInvalidRange 表示报告范围不在 7/30/90 之内。
var ErrReportInvalidRange = errors.New("report range must be 7, 30 or 90 days")

// ErrReportMalformed 表示模型返回的报告内容无法解析。
var ErrReportMalformed = errors.New("AI 返回的报告内容无法解析")

// ExportSnapshot 为一次完整数据导出。
type ExportSnapshot struct {
	ExportID       string            `json:"export_id"`
	ExportedAt     time.Time         `json:"exported_at"`
	Habits         []db.Habit        `json:"habits"`
	HabitLogs      []db.HabitLog     `json:"habit_logs"`
	FocusSessions  []db.FocusSession `json:"focus_sessions"`
	JournalEntries []db.JournalEntry `json:"journal_entries"`
}

// ProgressReport 为模型生成的阶段性回顾。
type ProgressReport struct {
	RangeDays  int       `json:"range_days"`
	Summary    string    `json:"summary"`
	HTMLReport string    `json:"html_report"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExportService 负责全量数据导出与 AI 阶段报告。
type ExportService struct {
	db     *gorm.DB
	client *aiChatClient
}

// NewExportService 构造 ExportService。
func NewExportService(gdb *gorm.DB, settings *SystemSettingService) *ExportService {
	return &ExportService{db: gdb, client: newAIChatClient(settings, "gpt-4o-mini", "deepseek-chat")}
}

// SetHTTPClient 替换底层 HTTP 客户端，主要用于测试。
func (s *ExportService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// SetOpenAIBaseURL 覆盖 OpenAI 接口地址。
func (s *ExportService) SetOpenAIBaseURL(base string) {
	s.client.SetOpenAIBaseURL(base)
}

// Snapshot 导出全部数据为一个扁平快照，供用户自行备份或迁移。
func (s *ExportService) Snapshot() (*ExportSnapshot, error) {
	snapshot := &ExportSnapshot{
		ExportID:   uuid.NewString(),
		ExportedAt: time.Now(),
	}

	if err := s.db.Order("sort_order ASC, id ASC").Find(&snapshot.Habits).Error; err != nil {
		return nil, fmt.Errorf("export habits: %w", err)
	}
	if err := s.db.Order("log_date ASC, id ASC").Find(&snapshot.HabitLogs).Error; err != nil {
		return nil, fmt.Errorf("export habit logs: %w", err)
	}
	if err := s.db.Order("log_date ASC, id ASC").Find(&snapshot.FocusSessions).Error; err != nil {
		return nil, fmt.Errorf("export focus sessions: %w", err)
	}
	if err := s.db.Order("log_date ASC, id ASC").Find(&snapshot.JournalEntries).Error; err != nil {
		return nil, fmt.Errorf("export journal entries: %w", err)
	}

	return snapshot, nil
}

// reportSystemPrompt 要求模型输出结构化的阶段回顾。
const reportSystemPrompt = `你是一位理解注意力障碍人群的成长教练。
根据提供的统计数据写一份温和、具体、不带评判的阶段回顾。
必须只返回 JSON 对象，格式如下：
{"summary": "一句话总结", "report": "Markdown 正文"}
正文使用二级标题分节（做得好的地方 / 观察到的模式 / 下阶段的一个小建议），
语气鼓励但不浮夸，不要编造数据之外的事实。`

type reportPayload struct {
	Summary string `json:"summary"`
	Report  string `json:"report"`
}

// GenerateReport 对指定范围内的数据做聚合，再交给模型生成回顾。
// 生成失败向上返回错误，由用户自行重试。
func (s *ExportService) GenerateReport(ctx context.Context, rangeDays int) (*ProgressReport, error) {
	if !reportRanges[rangeDays] {
		return nil, ErrReportInvalidRange
	}

	today := Today()
	since := shiftDate(today, -(rangeDays - 1))

	var habits []db.Habit
	if err := s.db.Where("is_active = ?", true).Order("sort_order ASC, id ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	var logs []db.HabitLog
	if err := s.db.Where("log_date >= ?", since).Order("log_date ASC, id ASC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}

	var sessions []db.FocusSession
	if err := s.db.Where("log_date >= ?", since).Order("log_date ASC, id ASC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list focus sessions: %w", err)
	}

	var journalCount int64
	if err := s.db.Model(&db.JournalEntry{}).Where("log_date >= ?", since).Count(&journalCount).Error; err != nil {
		return nil, fmt.Errorf("count journal entries: %w", err)
	}

	prompt := buildReportPrompt(rangeDays, habits, logs, sessions, journalCount, today)
	logAIExchange("REPORT", "prompt", prompt)

	result, err := s.client.call(ctx, aiChatRequest{
		SystemPrompt: reportSystemPrompt,
		UserPrompt:   prompt,
		MaxTokens:    1024,
		Temperature:  0.5,
		ForceJSON:    true,
	})
	if err != nil {
		return nil, err
	}

	logAIExchange("REPORT", "response", result.Content)

	var payload reportPayload
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportMalformed, err)
	}
	if strings.TrimSpace(payload.Report) == "" {
		return nil, ErrReportMalformed
	}

	var buf bytes.Buffer
	if err := journalMarkdown.Convert([]byte(payload.Report), &buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	return &ProgressReport{
		RangeDays:  rangeDays,
		Summary:    strings.TrimSpace(payload.Summary),
		HTMLReport: journalSanitizer.Sanitize(buf.String()),
		CreatedAt:  time.Now(),
	}, nil
}

func buildReportPrompt(rangeDays int, habits []db.Habit, logs []db.HabitLog, sessions []db.FocusSession, journalCount int64, today string) string {
	stats := BuildHabitStats(habits, logs, today)
	focus := BuildFocusSummary(sessions)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("统计范围：最近 %d 天（截至 %s）\n", rangeDays, today))
	sb.WriteString(fmt.Sprintf("连续天数：%d\n", MomentumDays(logs, today)))
	sb.WriteString(fmt.Sprintf("专注会话：完成 %d 次，共 %d 分钟\n", focus.CompletedSessions, focus.TotalMinutes))
	sb.WriteString(fmt.Sprintf("日记篇数：%d\n", journalCount))
	for _, stat := range stats {
		sb.WriteString(fmt.Sprintf("习惯「%s」（%s）：共打卡 %d 次，活跃 %d 天，完成率 %.0f%%\n",
			stat.Name, stat.Category, stat.TotalCheckins, stat.DaysActive, stat.CompletionRate))
	}
	sb.WriteString("请基于以上数据生成阶段回顾。")
	return sb.String()
}
