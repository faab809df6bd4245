package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/driftlog/internal/db"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"
)

var (
	journalMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	journalSanitizer = bluemonday.UGCPolicy()
)

const journalListLimit = 100

// 日记允许的心情枚举。
var journalMoods = []string{"great", "good", "okay", "struggling", "rough"}

// cannedPrompts 为模型不可用时的引导语兜底集合。
var cannedPrompts = []string{
	"今天哪一刻让你觉得比想象中顺利？",
	"如果给今天的能量打分，是什么影响了它？",
	"今天有没有一个瞬间，你差点放弃但还是做了？",
	"此刻脑子里转来转去的是什么？写下来就好。",
	"今天你对自己说过最苛刻的一句话是什么？换个说法试试。",
}

var (
	// ErrJournalNotFound 在指定日记不存在时返回。
	ErrJournalNotFound = errors.New("journal entry not found")
	// ErrJournalInvalidMood 表示心情取值不在枚举内。
	ErrJournalInvalidMood = errors.New("invalid journal mood")
	// ErrJournalEmptyContent 表示正文为空。
	ErrJournalEmptyContent = errors.New("journal content is empty")
	// ErrJournalInvalidHabits 表示关联习惯 ID 列表非法或无法序列化。
	ErrJournalInvalidHabits = errors.New("invalid related habit ids")
)

// JournalService 负责日记的增删改查、引导语生成与正文渲染。
type JournalService struct {
	db     *gorm.DB
	client *aiChatClient
}

// NewJournalService 构造 JournalService。
func NewJournalService(gdb *gorm.DB, settings *SystemSettingService) *JournalService {
	return &JournalService{db: gdb, client: newAIChatClient(settings, "gpt-4o-mini", "deepseek-chat")}
}

// SetHTTPClient 替换底层 HTTP 客户端，主要用于测试。
func (s *JournalService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// SetOpenAIBaseURL 覆盖 OpenAI 接口地址。
func (s *JournalService) SetOpenAIBaseURL(base string) {
	s.client.SetOpenAIBaseURL(base)
}

// JournalInput 定义创建/更新日记时可写入的字段。
type JournalInput struct {
	LogDate         string `json:"log_date"`
	Content         string `json:"content"`
	Mood            string `json:"mood"`
	RelatedHabitIDs []uint `json:"related_habit_ids"`
	Prompt          string `json:"prompt"`
}

// List 返回按日期倒序的日记列表。
func (s *JournalService) List(limit int) ([]db.JournalEntry, error) {
	if limit <= 0 {
		limit = journalListLimit
	}

	var entries []db.JournalEntry
	if err := s.db.Order("log_date DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	return entries, nil
}

// Get 根据 ID 获取日记。
func (s *JournalService) Get(id uint) (*db.JournalEntry, error) {
	var entry db.JournalEntry
	if err := s.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJournalNotFound
		}
		return nil, fmt.Errorf("get journal entry: %w", err)
	}
	return &entry, nil
}

// Create 新建一篇日记。
func (s *JournalService) Create(input JournalInput) (*db.JournalEntry, error) {
	if err := validateJournalInput(input); err != nil {
		return nil, err
	}

	entry := db.JournalEntry{
		LogDate: input.LogDate,
		Content: strings.TrimSpace(input.Content),
		Mood:    input.Mood,
		Prompt:  input.Prompt,
	}
	if entry.LogDate == "" {
		entry.LogDate = Today()
	}
	if err := entry.SetRelatedHabits(input.RelatedHabitIDs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJournalInvalidHabits, err)
	}

	if err := s.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("create journal entry: %w", err)
	}
	return &entry, nil
}

// Update 更新指定日记。
func (s *JournalService) Update(id uint, input JournalInput) (*db.JournalEntry, error) {
	if err := validateJournalInput(input); err != nil {
		return nil, err
	}

	entry, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	entry.Content = strings.TrimSpace(input.Content)
	entry.Mood = input.Mood
	if input.LogDate != "" {
		entry.LogDate = input.LogDate
	}
	if err := entry.SetRelatedHabits(input.RelatedHabitIDs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJournalInvalidHabits, err)
	}

	if err := s.db.Save(entry).Error; err != nil {
		return nil, fmt.Errorf("update journal entry: %w", err)
	}
	return entry, nil
}

// Delete 删除指定日记。
func (s *JournalService) Delete(id uint) error {
	result := s.db.Delete(&db.JournalEntry{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete journal entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrJournalNotFound
	}
	return nil
}

// RenderContent 把日记正文从 Markdown 渲染为净化后的 HTML。
func (s *JournalService) RenderContent(entry *db.JournalEntry) (string, error) {
	var buf bytes.Buffer
	if err := journalMarkdown.Convert([]byte(entry.Content), &buf); err != nil {
		return "", fmt.Errorf("render journal content: %w", err)
	}
	return journalSanitizer.Sanitize(buf.String()), nil
}

func validateJournalInput(input JournalInput) error {
	if strings.TrimSpace(input.Content) == "" {
		return ErrJournalEmptyContent
	}
	if input.Mood != "" && !isJournalMood(input.Mood) {
		return ErrJournalInvalidMood
	}
	for _, id := range input.RelatedHabitIDs {
		if id == 0 {
			return ErrJournalInvalidHabits
		}
	}
	return nil
}

func isJournalMood(mood string) bool {
	for _, m := range journalMoods {
		if m == mood {
			return true
		}
	}
	return false
}

// promptSystemPrompt 约束模型只返回一条 JSON 引导语。
const promptSystemPrompt = `你是一位温和的日记引导者，服务对象是注意力容易分散的用户。
根据用户近期的打卡情况，提出一个简短、开放、不带评判的反思问题。
问题控制在 40 个字以内，避免说教。
必须只返回 JSON 对象：{"prompt": "..."}，不要输出其他内容。`

type promptPayload struct {
	Prompt string `json:"prompt"`
}

// GeneratePrompt 生成当天的日记引导语。
// 模型不可用或返回内容无法解析时回退到兜底集合，永远不返回错误。
func (s *JournalService) GeneratePrompt(ctx context.Context, stats []HabitStat, momentumDays int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("连续天数：%d\n", momentumDays))
	for _, stat := range stats {
		sb.WriteString(fmt.Sprintf("习惯「%s」最近 7 天打卡 %d 次\n", stat.Name, stat.Last7Checkins))
	}
	sb.WriteString("请给出今天的日记引导问题。")

	logAIExchange("JOURNAL", "prompt", sb.String())

	result, err := s.client.call(ctx, aiChatRequest{
		SystemPrompt: promptSystemPrompt,
		UserPrompt:   sb.String(),
		MaxTokens:    128,
		Temperature:  0.8,
		ForceJSON:    true,
	})
	if err != nil {
		return pickCannedPrompt()
	}

	logAIExchange("JOURNAL", "response", result.Content)

	var payload promptPayload
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil || strings.TrimSpace(payload.Prompt) == "" {
		return pickCannedPrompt()
	}
	return strings.TrimSpace(payload.Prompt)
}

func pickCannedPrompt() string {
	return cannedPrompts[rand.IntN(len(cannedPrompts))]
}
