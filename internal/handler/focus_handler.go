package handler

import (
	"errors"
	"net/http"

	"github.com/driftlog/internal/db"
	"github.com/driftlog/internal/service"
	"github.com/gin-gonic/gin"
)

type focusStartPayload struct {
	SessionType string `json:"session_type"`
}

// GetFocusStatus 返回计时器当前快照
func (a *API) GetFocusStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"timer": a.focus.Timer().Status()})
}

// StartFocus 以指定时段类型启动计时器。
// 已有会话在运行时后启动者获胜，旧会话被丢弃且不落库。
func (a *API) StartFocus(c *gin.Context) {
	var payload focusStartPayload
	if !bindJSON(c, &payload, "请选择专注类型") {
		return
	}

	status, err := a.focus.Timer().Start(payload.SessionType)
	if err != nil {
		if errors.Is(err, service.ErrUnknownSessionType) {
			respondError(c, http.StatusBadRequest, "未知的专注类型")
			return
		}
		respondError(c, http.StatusInternalServerError, "启动计时器失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"timer": status})
}

// PauseFocus 暂停倒计时
func (a *API) PauseFocus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"timer": a.focus.Timer().Pause()})
}

// ResumeFocus 恢复倒计时
func (a *API) ResumeFocus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"timer": a.focus.Timer().Resume()})
}

// StartBreak 在工作完成后开启休息，也允许从工作阶段提前跳入
func (a *API) StartBreak(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"timer": a.focus.Timer().StartBreak()})
}

// ResetFocus 丢弃当前会话
func (a *API) ResetFocus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"timer": a.focus.Timer().Reset()})
}

// ListFocusSessions 返回历史专注会话
func (a *API) ListFocusSessions(c *gin.Context) {
	sessions, err := a.focus.ListSessions(0)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取专注记录失败")
		return
	}

	items := make([]gin.H, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, focusSessionToPayload(session))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": items})
}

func focusSessionToPayload(session db.FocusSession) gin.H {
	return gin.H{
		"id":               session.ID,
		"log_date":         session.LogDate,
		"duration_minutes": session.DurationMinutes,
		"break_minutes":    session.BreakMinutes,
		"completed":        session.Completed,
		"session_type":     session.SessionType,
	}
}
