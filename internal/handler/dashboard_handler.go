package handler

import (
	"net/http"

	"github.com/driftlog/internal/service"
	"github.com/gin-gonic/gin"
)

// GetDashboard 返回首页视图：当日进度、连续天数与近 7 天序列
func (a *API) GetDashboard(c *gin.Context) {
	view, err := a.analytics.Dashboard(service.Today())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取首页数据失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"dashboard": view})
}
