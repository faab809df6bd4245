package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	defaultOpenAIInsightModel   = "gpt-4o-mini"
	defaultDeepSeekInsightModel = "deepseek-chat"
	defaultInsightMaxTokens     = 512
	defaultInsightTemperature   = 0.4
)

// ErrInsightMalformed 表示模型返回的内容无法解析为结构化洞察。
var ErrInsightMalformed = errors.New("insight response is malformed")

// InsightContext 描述生成轻推与建议所需的上下文。
// 只携带数值聚合结果，绝不把原始打卡日志交给模型。
type InsightContext struct {
	TimeOfDay      string
	CompletedToday int
	TotalTarget    int
	MomentumDays   int
	HabitStats     []HabitStat
}

// InsightResult 返回模型生成的轻推文案与可选的习惯建议。
type InsightResult struct {
	Nudge             string
	Suggestion        string
	Reasoning         string
	ActionType        string
	SuggestedName     string
	SuggestedCategory string
	SuggestedTarget   int
	ExistingHabitName string
}

// InsightGenerator 定义洞察生成能力，便于在业务层注入不同实现。
type InsightGenerator interface {
	GenerateInsight(ctx context.Context, input InsightContext) (InsightResult, error)
}

// AIInsightService 基于大模型接口生成每日轻推与习惯建议。
type AIInsightService struct {
	client *aiChatClient
}

// NewAIInsightService 构造默认的 AIInsightService。
func NewAIInsightService(settings *SystemSettingService) *AIInsightService {
	return &AIInsightService{
		client: newAIChatClient(settings, defaultOpenAIInsightModel, defaultDeepSeekInsightModel),
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *AIInsightService) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// SetOpenAIBaseURL 覆盖默认的 OpenAI API 地址。
func (s *AIInsightService) SetOpenAIBaseURL(base string) {
	s.client.SetOpenAIBaseURL(base)
}

// SetDeepSeekBaseURL 覆盖默认的 DeepSeek API 地址。
func (s *AIInsightService) SetDeepSeekBaseURL(base string) {
	s.client.SetDeepSeekBaseURL(base)
}

// SetOpenAIModel 指定 OpenAI 洞察所使用的模型名称。
func (s *AIInsightService) SetOpenAIModel(model string) {
	s.client.SetOpenAIModel(model)
}

// SetDeepSeekModel 指定 DeepSeek 洞察所使用的模型名称。
func (s *AIInsightService) SetDeepSeekModel(model string) {
	s.client.SetDeepSeekModel(model)
}

const insightSystemPrompt = "你是一位温和、支持性的习惯教练，面向注意力容易分散的用户。" +
	"根据用户的数值统计生成：1) 一句轻推文案 nudge（20 字以内，温暖、具体、零压力，不用感叹号，不说空洞的打气话）；" +
	"2) 一条个性化建议 suggestion（30 字以内）：完成率高于 80% 的习惯可建议小幅加量或新增相关习惯，" +
	"低于 40% 的习惯建议缩小目标，整体良好时建议补充尚未覆盖的类别，建议必须小而具体、容易执行；" +
	"3) 一两句 reasoning 解释数据依据。" +
	"只输出 JSON 对象，字段：nudge、suggestion、reasoning、action_type(add_new|modify_existing)、" +
	"suggested_habit{name,category,target_count}、existing_habit_name。" +
	"category 限定为 focus/hydration/meds/breaks/quick_wins。"

type insightHabitPayload struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	TargetCount float64 `json:"target_count"`
}

type insightPayload struct {
	Nudge             string               `json:"nudge"`
	Suggestion        string               `json:"suggestion"`
	Reasoning         string               `json:"reasoning"`
	ActionType        string               `json:"action_type"`
	SuggestedHabit    *insightHabitPayload `json:"suggested_habit"`
	ExistingHabitName string               `json:"existing_habit_name"`
}

// GenerateInsight 调用当前配置的 AI 平台生成轻推与建议。
// 返回的任何错误都应由调用方降级处理，绝不透传给用户。
func (s *AIInsightService) GenerateInsight(ctx context.Context, input InsightContext) (InsightResult, error) {
	userPrompt := buildInsightPrompt(input)
	logAIExchange("INSIGHT", "prompt", userPrompt)

	result, err := s.client.call(ctx, aiChatRequest{
		SystemPrompt: insightSystemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    defaultInsightMaxTokens,
		Temperature:  defaultInsightTemperature,
		ForceJSON:    true,
	})
	if err != nil {
		return InsightResult{}, err
	}

	logAIExchange("INSIGHT", "response", result.Content)

	var payload insightPayload
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil {
		return InsightResult{}, fmt.Errorf("%w: %v", ErrInsightMalformed, err)
	}

	nudge := strings.TrimSpace(payload.Nudge)
	if nudge == "" {
		return InsightResult{}, fmt.Errorf("%w: empty nudge", ErrInsightMalformed)
	}

	parsed := InsightResult{
		Nudge:             nudge,
		Suggestion:        strings.TrimSpace(payload.Suggestion),
		Reasoning:         strings.TrimSpace(payload.Reasoning),
		ActionType:        strings.TrimSpace(strings.ToLower(payload.ActionType)),
		ExistingHabitName: strings.TrimSpace(payload.ExistingHabitName),
	}
	if payload.SuggestedHabit != nil {
		parsed.SuggestedName = strings.TrimSpace(payload.SuggestedHabit.Name)
		parsed.SuggestedCategory = normalizeCategory(payload.SuggestedHabit.Category)
		parsed.SuggestedTarget = int(payload.SuggestedHabit.TargetCount)
	}

	return parsed, nil
}

func buildInsightPrompt(input InsightContext) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "当前时段：%s\n", input.TimeOfDay)
	fmt.Fprintf(&builder, "今日进度：%d/%d 次打卡\n", input.CompletedToday, input.TotalTarget)
	fmt.Fprintf(&builder, "动量连胜：%d 天\n", input.MomentumDays)
	fmt.Fprintf(&builder, "追踪习惯数：%d\n", len(input.HabitStats))
	builder.WriteString("近 7 天各习惯表现：\n")
	for _, stat := range input.HabitStats {
		fmt.Fprintf(&builder, "- %s (%s)：完成率 %.0f%%，日均 %.1f/%d\n",
			stat.Name, stat.Category, stat.CompletionRate, stat.AvgPerDay, stat.TargetCount)
	}
	return builder.String()
}
