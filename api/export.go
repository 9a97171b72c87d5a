package api

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"claimflow/config"
	"claimflow/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出处理器
type ExportHandler struct {
	exporter *service.ClaimExporter
	server   config.ServerConfig
}

// NewExportHandler 创建导出处理器
func NewExportHandler(exporter *service.ClaimExporter, server config.ServerConfig) *ExportHandler {
	return &ExportHandler{exporter: exporter, server: server}
}

// ExportClaims 导出报销单为 Excel
// @Summary 导出报销单
// @Description 按提交时间范围导出全部报销单为 Excel 文件
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param start_date query string true "开始日期 (2024-01-01)"
// @Param end_date query string true "结束日期 (2024-12-31)"
// @Success 200 {file} file "Excel 文件"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "需要管理员权限"
// @Router /api/v1/admin/claims/export [get]
func (h *ExportHandler) ExportClaims(c *gin.Context) {
	startStr := c.Query("start_date")
	endStr := c.Query("end_date")
	if startStr == "" || endStr == "" {
		BadRequest(c, "请提供开始日期和结束日期")
		return
	}

	start, err := time.ParseInLocation("2006-01-02", startStr, time.Local)
	if err != nil {
		BadRequest(c, "开始日期格式错误，应为: 2006-01-02")
		return
	}
	end, err := time.ParseInLocation("2006-01-02", endStr, time.Local)
	if err != nil {
		BadRequest(c, "结束日期格式错误，应为: 2006-01-02")
		return
	}
	end = end.Add(24*time.Hour - time.Second)

	buf, _, err := h.exporter.Export(c.Request.Context(), start, end)
	if err != nil {
		ServiceError(c, h.server, err, "导出失败")
		return
	}

	filename := fmt.Sprintf("报销单_%s_%s.xlsx", startStr, endStr)
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
