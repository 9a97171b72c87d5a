package api

import (
	"claimflow/config"
	"claimflow/service"

	"github.com/gin-gonic/gin"
)

// ClaimHandler 报销单处理器
type ClaimHandler struct {
	claims *service.ClaimService
	server config.ServerConfig
}

// NewClaimHandler 创建报销单处理器
func NewClaimHandler(claims *service.ClaimService, server config.ServerConfig) *ClaimHandler {
	return &ClaimHandler{claims: claims, server: server}
}

// CreateClaimRequest 提交报销单请求
type CreateClaimRequest struct {
	Title          string  `json:"title" binding:"required,max=200" example:"北京出差"`
	Type           string  `json:"type" binding:"required,max=50" example:"Travel"`
	Amount         float64 `json:"amount" binding:"gte=0" example:"1280.50"`
	Date           string  `json:"date" binding:"required" example:"2024-05-01"`
	Description    string  `json:"description" example:"客户拜访"`
	Category       string  `json:"category" binding:"max=50" example:"交通"`
	Destination    string  `json:"destination" binding:"max=100" example:"北京"`
	StartDate      string  `json:"startDate" example:"2024-05-01"`
	EndDate        string  `json:"endDate" example:"2024-05-03"`
	ReceiptURL     string  `json:"receiptUrl" binding:"max=500"`
	RelatedClaimID *uint   `json:"relatedClaimId"`
	Department     string  `json:"department" binding:"max=100" example:"IT"`
}

// UpdateStatusRequest 审批请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=Approved Rejected" example:"Approved"`
}

// ClaimListQuery 报销单列表查询参数
type ClaimListQuery struct {
	Scope    string `form:"scope" binding:"omitempty,oneof=mine tasks"`
	Status   string `form:"status" binding:"omitempty,oneof=Pending Approved Rejected"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// List 报销单列表
// @Summary 报销单列表
// @Description 管理员可查看全部；普通用户可查看本人提交及待本人审批的报销单
// @Tags 报销单
// @Produce json
// @Security BearerAuth
// @Param scope query string false "mine: 本人提交 / tasks: 待我审批"
// @Param status query string false "Pending / Approved / Rejected"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} Response{data=PageResponse{list=[]models.Claim}} "获取成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/claims [get]
func (h *ClaimHandler) List(c *gin.Context) {
	var q ClaimListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	query := service.ClaimListQuery{
		Actor:    currentActor(c),
		Scope:    q.Scope,
		Status:   q.Status,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	claims, total, err := h.claims.List(c.Request.Context(), query)
	if err != nil {
		ServiceError(c, h.server, err, "查询报销单失败")
		return
	}

	page, pageSize := service.NormalizePage(q.Page, q.PageSize)
	Success(c, PageResponse{Total: total, Page: page, PageSize: pageSize, List: claims})
}

// Get 报销单详情
// @Summary 报销单详情
// @Description 返回报销单及所属部门的审批链
// @Tags 报销单
// @Produce json
// @Security BearerAuth
// @Param id path int true "报销单 ID"
// @Success 200 {object} Response{data=service.ClaimDetail} "获取成功"
// @Failure 403 {object} Response "无权查看"
// @Failure 404 {object} Response "报销单不存在"
// @Router /api/v1/claims/{id} [get]
func (h *ClaimHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	detail, err := h.claims.Get(c.Request.Context(), id, currentActor(c))
	if err != nil {
		ServiceError(c, h.server, err, "查询报销单失败")
		return
	}
	Success(c, detail)
}

// Create 提交报销单
// @Summary 提交报销单
// @Description 根据费用归属部门的审批矩阵分配一级审批人；部门未配置审批人时自动通过
// @Tags 报销单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateClaimRequest true "报销单"
// @Success 200 {object} Response{data=models.Claim} "提交成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/claims [post]
func (h *ClaimHandler) Create(c *gin.Context) {
	var req CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	claim, err := h.claims.Create(c.Request.Context(), service.CreateClaimCommand{
		UserID:         currentActor(c).ID,
		Title:          req.Title,
		Type:           req.Type,
		Amount:         req.Amount,
		Date:           req.Date,
		Description:    req.Description,
		Category:       req.Category,
		Destination:    req.Destination,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		ReceiptURL:     req.ReceiptURL,
		RelatedClaimID: req.RelatedClaimID,
		Department:     req.Department,
	})
	if err != nil {
		ServiceError(c, h.server, err, "提交报销单失败")
		return
	}
	SuccessWithMessage(c, "提交成功", claim)
}

// UpdateStatus 审批报销单
// @Summary 审批报销单
// @Description 当前审批人或管理员通过/驳回报销单。通过后若存在下一级审批人则流转，否则终审通过
// @Tags 报销单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "报销单 ID"
// @Param request body UpdateStatusRequest true "审批结果"
// @Success 200 {object} Response{data=models.Claim} "审批成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "不是当前审批人"
// @Failure 404 {object} Response "报销单不存在"
// @Failure 409 {object} Response "报销单已处理或状态已变更"
// @Router /api/v1/claims/{id}/status [put]
func (h *ClaimHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	tr, err := h.claims.Decide(c.Request.Context(), service.DecideClaimCommand{
		ClaimID:  id,
		Actor:    currentActor(c),
		Decision: req.Status,
	})
	if err != nil {
		ServiceError(c, h.server, err, "审批失败")
		return
	}

	message := "审批成功"
	if tr.Outcome == service.OutcomeAdvanced {
		message = "审批成功，已流转至下一级审批人"
	}
	SuccessWithMessage(c, message, tr.Claim)
}

// Delete 删除报销单
// @Summary 删除报销单
// @Tags 报销单
// @Produce json
// @Security BearerAuth
// @Param id path int true "报销单 ID"
// @Success 200 {object} Response "删除成功"
// @Failure 403 {object} Response "无权删除"
// @Failure 404 {object} Response "报销单不存在"
// @Router /api/v1/claims/{id} [delete]
func (h *ClaimHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.claims.Delete(c.Request.Context(), id, currentActor(c)); err != nil {
		ServiceError(c, h.server, err, "删除报销单失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
