package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/driftlog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeHTTPClient struct {
	handler func(*http.Request) (*http.Response, error)
}

func (f fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if f.handler == nil {
		return nil, errors.New("no handler configured")
	}
	return f.handler(req)
}

func chatResponseWith(t *testing.T, content string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	if err != nil {
		t.Fatalf("failed to marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func setupInsightTestDB(t *testing.T) *SystemSettingService {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.SystemSetting{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	system := NewSystemSettingService(gdb)
	if _, err := system.UpdateSettings(SystemSettingsInput{
		AIProvider:   AIProviderOpenAI,
		OpenAIAPIKey: "sk-test",
	}); err != nil {
		t.Fatalf("failed to seed settings: %v", err)
	}
	return system
}

func TestGenerateInsightParsesPayload(t *testing.T) {
	system := setupInsightTestDB(t)
	svc := NewAIInsightService(system)
	svc.SetOpenAIBaseURL("https://openai.test/v1")

	payload := `{"nudge":"先喝一杯水","suggestion":"新增上午喝水","reasoning":"上午完成率最高",` +
		`"action_type":"ADD_NEW","suggested_habit":{"name":"上午喝水","category":"Hydration","target_count":2}}`

	svc.SetHTTPClient(fakeHTTPClient{handler: func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("unexpected authorization header %s", got)
		}

		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Fatalf("expected json_object response format, got %+v", req.ResponseFormat)
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "动量连胜") {
			t.Fatalf("unexpected messages %+v", req.Messages)
		}
		return chatResponseWith(t, payload), nil
	}})

	result, err := svc.GenerateInsight(context.Background(), InsightContext{
		TimeOfDay:      TimeOfDayMorning,
		CompletedToday: 2,
		TotalTarget:    6,
		MomentumDays:   3,
		HabitStats:     []HabitStat{{Name: "喝水", Category: "hydration", TargetCount: 4, CompletionRate: 85, AvgPerDay: 3.4}},
	})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if result.Nudge != "先喝一杯水" {
		t.Fatalf("unexpected nudge %q", result.Nudge)
	}
	if result.ActionType != "add_new" {
		t.Fatalf("expected lowered action type, got %q", result.ActionType)
	}
	if result.SuggestedName != "上午喝水" || result.SuggestedCategory != "hydration" || result.SuggestedTarget != 2 {
		t.Fatalf("unexpected habit payload %+v", result)
	}
}

func TestGenerateInsightMalformedResponse(t *testing.T) {
	system := setupInsightTestDB(t)
	svc := NewAIInsightService(system)
	svc.SetOpenAIBaseURL("https://openai.test/v1")
	svc.SetHTTPClient(fakeHTTPClient{handler: func(r *http.Request) (*http.Response, error) {
		return chatResponseWith(t, "今天继续加油哦！"), nil
	}})

	if _, err := svc.GenerateInsight(context.Background(), InsightContext{}); !errors.Is(err, ErrInsightMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestGenerateInsightEmptyNudge(t *testing.T) {
	system := setupInsightTestDB(t)
	svc := NewAIInsightService(system)
	svc.SetOpenAIBaseURL("https://openai.test/v1")
	svc.SetHTTPClient(fakeHTTPClient{handler: func(r *http.Request) (*http.Response, error) {
		return chatResponseWith(t, `{"nudge":"","suggestion":"加个新习惯"}`), nil
	}})

	if _, err := svc.GenerateInsight(context.Background(), InsightContext{}); !errors.Is(err, ErrInsightMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestGenerateInsightMissingKey(t *testing.T) {
	system := setupInsightTestDB(t)
	if _, err := system.UpdateSettings(SystemSettingsInput{AIProvider: AIProviderOpenAI}); err != nil {
		t.Fatalf("failed to clear key: %v", err)
	}

	svc := NewAIInsightService(system)
	if _, err := svc.GenerateInsight(context.Background(), InsightContext{}); !errors.Is(err, ErrAIAPIKeyMissing) {
		t.Fatalf("expected missing key error, got %v", err)
	}
}
