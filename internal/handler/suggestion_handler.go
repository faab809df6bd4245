package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/driftlog/internal/db"
	"github.com/driftlog/internal/service"
	"github.com/gin-gonic/gin"
)

// GenerateNudge 触发一轮轻推生成周期
func (a *API) GenerateNudge(c *gin.Context) {
	now := time.Now()
	result, err := a.suggestions.GenerateNudge(c.Request.Context(), service.FormatDate(now), now.Hour())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "生成建议失败，请稍后重试")
		return
	}

	payload := gin.H{"nudge": result.Nudge}
	if result.Suggestion != nil {
		payload["suggestion"] = suggestionToPayload(*result.Suggestion)
	}
	c.JSON(http.StatusOK, payload)
}

// ListSuggestions 返回建议历史
func (a *API) ListSuggestions(c *gin.Context) {
	suggestions, err := a.suggestions.List(0)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取建议列表失败")
		return
	}

	items := make([]gin.H, 0, len(suggestions))
	for _, suggestion := range suggestions {
		items = append(items, suggestionToPayload(suggestion))
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": items})
}

// ActSuggestion 采纳建议并返回交给前端的动作载荷
func (a *API) ActSuggestion(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的建议ID")
		return
	}

	action, err := a.suggestions.Act(id)
	if err != nil {
		handleSuggestionError(c, err)
		return
	}

	payload := gin.H{
		"suggestion":       suggestionToPayload(action.Suggestion),
		"already_resolved": action.AlreadyResolved,
	}
	if action.NewHabit != nil {
		payload["new_habit"] = gin.H{
			"name":         action.NewHabit.Name,
			"category":     action.NewHabit.Category,
			"target_count": action.NewHabit.TargetCount,
		}
	}
	if action.TargetHabit != nil {
		payload["target_habit"] = habitToPayload(*action.TargetHabit)
	}
	c.JSON(http.StatusOK, payload)
}

// DismissSuggestion 忽略建议，重复调用无副作用
func (a *API) DismissSuggestion(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的建议ID")
		return
	}

	suggestion, err := a.suggestions.Dismiss(id)
	if err != nil {
		handleSuggestionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestion": suggestionToPayload(*suggestion)})
}

func suggestionToPayload(suggestion db.AISuggestion) gin.H {
	return gin.H{
		"id":                  suggestion.ID,
		"log_date":            suggestion.LogDate,
		"suggestion_text":     suggestion.SuggestionText,
		"reasoning":           suggestion.Reasoning,
		"action_type":         suggestion.ActionType,
		"suggested_name":      suggestion.SuggestedName,
		"suggested_category":  suggestion.SuggestedCategory,
		"suggested_target":    suggestion.SuggestedTarget,
		"existing_habit_name": suggestion.ExistingHabitName,
		"status":              suggestion.Status,
	}
}

func handleSuggestionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSuggestionNotFound):
		respondError(c, http.StatusNotFound, "建议不存在")
	case errors.Is(err, service.ErrSuggestionNotActionable):
		respondError(c, http.StatusBadRequest, "该建议没有可执行的操作")
	case errors.Is(err, service.ErrSuggestionTargetMissing):
		respondError(c, http.StatusConflict, "建议指向的习惯已不存在")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
