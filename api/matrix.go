package api

import (
	"claimflow/config"
	"claimflow/service"

	"github.com/gin-gonic/gin"
)

// MatrixHandler 审批矩阵处理器（管理员）
type MatrixHandler struct {
	matrix *service.MatrixService
	server config.ServerConfig
}

// NewMatrixHandler 创建审批矩阵处理器
func NewMatrixHandler(matrix *service.MatrixService, server config.ServerConfig) *MatrixHandler {
	return &MatrixHandler{matrix: matrix, server: server}
}

// UpsertMatrixRequest 审批规则请求
type UpsertMatrixRequest struct {
	Department string `json:"department" binding:"required,max=100" example:"IT"`
	ApproverID uint   `json:"approverId" binding:"required" example:"1"`
	Level      int    `json:"level" binding:"gte=0" example:"1"`
}

// List 审批规则列表
// @Summary 审批规则列表
// @Tags 审批矩阵
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.ApprovalMatrix} "获取成功"
// @Failure 403 {object} Response "需要管理员权限"
// @Router /api/v1/admin/matrix [get]
func (h *MatrixHandler) List(c *gin.Context) {
	rows, err := h.matrix.List(c.Request.Context())
	if err != nil {
		ServiceError(c, h.server, err, "查询审批规则失败")
		return
	}
	Success(c, rows)
}

// Upsert 新增或更新审批规则
// @Summary 新增或更新审批规则
// @Description 同一部门同一级别只保留一条规则，已存在时替换审批人；级别默认为 1
// @Tags 审批矩阵
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpsertMatrixRequest true "审批规则"
// @Success 200 {object} Response{data=models.ApprovalMatrix} "保存成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/admin/matrix [post]
func (h *MatrixHandler) Upsert(c *gin.Context) {
	var req UpsertMatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	row, err := h.matrix.Upsert(c.Request.Context(), service.UpsertMatrixCommand{
		Department: req.Department,
		ApproverID: req.ApproverID,
		Level:      req.Level,
	})
	if err != nil {
		ServiceError(c, h.server, err, "保存审批规则失败")
		return
	}
	SuccessWithMessage(c, "保存成功", row)
}

// Delete 删除审批规则
// @Summary 删除审批规则
// @Tags 审批矩阵
// @Produce json
// @Security BearerAuth
// @Param id path int true "规则 ID"
// @Success 200 {object} Response "删除成功"
// @Failure 404 {object} Response "规则不存在"
// @Router /api/v1/admin/matrix/{id} [delete]
func (h *MatrixHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.matrix.Delete(c.Request.Context(), id); err != nil {
		ServiceError(c, h.server, err, "删除审批规则失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
