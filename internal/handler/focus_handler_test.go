package handler

import (
	"net/http"
	"testing"
)

func TestFocusStartAndStatus(t *testing.T) {
	api, r, _ := setupHandlerTest(t)
	r.POST("/focus/start", api.StartFocus)
	r.GET("/focus/status", api.GetFocusStatus)
	r.POST("/focus/reset", api.ResetFocus)

	rr := doJSON(t, r, http.MethodPost, "/focus/start", map[string]string{"session_type": "focus_sprint"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	timer := decodeBody(t, rr)["timer"].(map[string]any)
	if timer["state"] != "work" || timer["session_type"] != "focus_sprint" {
		t.Fatalf("unexpected timer %+v", timer)
	}
	if remaining := timer["remaining_seconds"].(float64); remaining <= 24*60 || remaining > 25*60 {
		t.Fatalf("unexpected remaining seconds %v", remaining)
	}

	// 运行中再次启动后者获胜，直接换成新会话
	rr = doJSON(t, r, http.MethodPost, "/focus/start", map[string]string{"session_type": "quick_win"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	timer = decodeBody(t, rr)["timer"].(map[string]any)
	if timer["state"] != "work" || timer["session_type"] != "quick_win" {
		t.Fatalf("unexpected timer after restart %+v", timer)
	}

	rr = doJSON(t, r, http.MethodPost, "/focus/reset", nil)
	timer = decodeBody(t, rr)["timer"].(map[string]any)
	if timer["state"] != "idle" {
		t.Fatalf("expected idle after reset, got %v", timer["state"])
	}
}

func TestFocusStartUnknownType(t *testing.T) {
	api, r, _ := setupHandlerTest(t)
	r.POST("/focus/start", api.StartFocus)

	rr := doJSON(t, r, http.MethodPost, "/focus/start", map[string]string{"session_type": "marathon"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
