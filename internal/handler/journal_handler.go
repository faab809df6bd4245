package handler

import (
	"errors"
	"net/http"

	"github.com/driftlog/internal/db"
	"github.com/driftlog/internal/service"
	"github.com/gin-gonic/gin"
)

// ListJournalEntries 返回日记列表
func (a *API) ListJournalEntries(c *gin.Context) {
	entries, err := a.journal.List(0)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取日记列表失败")
		return
	}

	items := make([]gin.H, 0, len(entries))
	for i := range entries {
		items = append(items, journalToPayload(&entries[i], ""))
	}
	c.JSON(http.StatusOK, gin.H{"entries": items})
}

// GetJournalEntry 返回单篇日记，正文同时给出渲染后的 HTML
func (a *API) GetJournalEntry(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日记ID")
		return
	}

	entry, err := a.journal.Get(id)
	if err != nil {
		handleJournalError(c, err)
		return
	}

	rendered, err := a.journal.RenderContent(entry)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "渲染日记失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": journalToPayload(entry, rendered)})
}

// CreateJournalEntry 新建日记
func (a *API) CreateJournalEntry(c *gin.Context) {
	var payload service.JournalInput
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	entry, err := a.journal.Create(payload)
	if err != nil {
		handleJournalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": journalToPayload(entry, "")})
}

// UpdateJournalEntry 更新日记
func (a *API) UpdateJournalEntry(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日记ID")
		return
	}

	var payload service.JournalInput
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	entry, err := a.journal.Update(id, payload)
	if err != nil {
		handleJournalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": journalToPayload(entry, "")})
}

// DeleteJournalEntry 删除日记
func (a *API) DeleteJournalEntry(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日记ID")
		return
	}

	if err := a.journal.Delete(id); err != nil {
		handleJournalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GetJournalPrompt 生成今天的日记引导语，失败时自动回退到兜底文案
func (a *API) GetJournalPrompt(c *gin.Context) {
	today := service.Today()

	var habits []db.Habit
	if err := a.db.Where("is_active = ?", true).Order("sort_order ASC, id ASC").Find(&habits).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "获取习惯数据失败")
		return
	}

	logs, err := a.habitLogs.ListRecent(0)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取打卡数据失败")
		return
	}

	prompt := a.journal.GeneratePrompt(
		c.Request.Context(),
		service.BuildHabitStats(habits, logs, today),
		service.MomentumDays(logs, today),
	)
	c.JSON(http.StatusOK, gin.H{"prompt": prompt})
}

func journalToPayload(entry *db.JournalEntry, rendered string) gin.H {
	payload := gin.H{
		"id":                entry.ID,
		"log_date":          entry.LogDate,
		"content":           entry.Content,
		"mood":              entry.Mood,
		"related_habit_ids": entry.RelatedHabits(),
		"prompt":            entry.Prompt,
	}
	if rendered != "" {
		payload["content_html"] = rendered
	}
	return payload
}

func handleJournalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrJournalNotFound):
		respondError(c, http.StatusNotFound, "日记不存在")
	case errors.Is(err, service.ErrJournalEmptyContent):
		respondError(c, http.StatusBadRequest, "日记内容不能为空")
	case errors.Is(err, service.ErrJournalInvalidMood):
		respondError(c, http.StatusBadRequest, "心情取值无效")
	case errors.Is(err, service.ErrJournalInvalidHabits):
		respondError(c, http.StatusBadRequest, "关联习惯无效")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
