package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/driftlog/internal/service"
	"github.com/gin-gonic/gin"
)

type reportRequest struct {
	RangeDays int `json:"range_days"`
}

// ExportData 导出全部数据为 JSON 附件
func (a *API) ExportData(c *gin.Context) {
	snapshot, err := a.export.Snapshot()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "导出数据失败")
		return
	}

	filename := fmt.Sprintf("driftlog-export-%s.json", snapshot.ExportedAt.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.JSON(http.StatusOK, snapshot)
}

// GenerateReport 生成指定范围的 AI 阶段回顾
func (a *API) GenerateReport(c *gin.Context) {
	var payload reportRequest
	if !bindJSON(c, &payload, "请选择报告范围") {
		return
	}

	report, err := a.export.GenerateReport(c.Request.Context(), payload.RangeDays)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReportInvalidRange):
			respondError(c, http.StatusBadRequest, "报告范围只支持 7/30/90 天")
		case errors.Is(err, service.ErrAIAPIKeyMissing):
			respondError(c, http.StatusBadRequest, "请先在设置中配置 AI API Key")
		default:
			respondError(c, http.StatusBadGateway, "生成报告失败，请稍后重试")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}
