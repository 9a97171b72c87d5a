package api

import (
	"claimflow/config"
	"claimflow/service"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户管理处理器（管理员）
type UserHandler struct {
	users  *service.UserService
	server config.ServerConfig
}

// NewUserHandler 创建用户管理处理器
func NewUserHandler(users *service.UserService, server config.ServerConfig) *UserHandler {
	return &UserHandler{users: users, server: server}
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	Username   string `json:"username" binding:"required,min=3,max=50"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6,max=50"`
	Role       string `json:"role" binding:"omitempty,oneof=user admin"`
	Department string `json:"department" binding:"max=100"`
}

// UpdateUserRequest 更新用户请求，未传的字段保持不变
type UpdateUserRequest struct {
	IsActive   *bool   `json:"isActive"`
	Name       *string `json:"name" binding:"omitempty,max=100"`
	Username   *string `json:"username" binding:"omitempty,min=3,max=50"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Role       *string `json:"role" binding:"omitempty,oneof=user admin"`
	Department *string `json:"department" binding:"omitempty,max=100"`
	Password   *string `json:"password" binding:"omitempty,min=6,max=50"`
}

// List 用户列表
// @Summary 用户列表
// @Tags 用户管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.User} "获取成功"
// @Failure 403 {object} Response "需要管理员权限"
// @Router /api/v1/admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		ServiceError(c, h.server, err, "查询用户失败")
		return
	}
	Success(c, users)
}

// Create 创建用户
// @Summary 创建用户
// @Description 管理员创建的账号直接启用
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "用户信息"
// @Success 200 {object} Response{data=models.User} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "用户名或邮箱已存在"
// @Router /api/v1/admin/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.users.Create(c.Request.Context(), service.CreateUserCommand{
		Name:       req.Name,
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		Department: req.Department,
	})
	if err != nil {
		ServiceError(c, h.server, err, "创建用户失败")
		return
	}
	SuccessWithMessage(c, "创建成功", user)
}

// Update 更新用户
// @Summary 更新用户
// @Description 部分更新，可用于激活/停用账号
// @Tags 用户管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户 ID"
// @Param request body UpdateUserRequest true "更新内容"
// @Success 200 {object} Response{data=models.User} "更新成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 404 {object} Response "用户不存在"
// @Failure 403 {object} Response "不能降级或禁用自己"
// @Failure 409 {object} Response "用户名或邮箱已存在，或将移除最后一个管理员"
// @Router /api/v1/admin/users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.users.Update(c.Request.Context(), currentActor(c), id, service.UpdateUserCommand{
		IsActive:   req.IsActive,
		Name:       req.Name,
		Username:   req.Username,
		Email:      req.Email,
		Role:       req.Role,
		Department: req.Department,
		Password:   req.Password,
	})
	if err != nil {
		ServiceError(c, h.server, err, "更新用户失败")
		return
	}
	SuccessWithMessage(c, "更新成功", user)
}

// Delete 删除用户
// @Summary 删除用户
// @Description 硬删除，同时移除其审批规则。不能删除自己，名下有待审批报销单时拒绝
// @Tags 用户管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户 ID"
// @Success 200 {object} Response "删除成功"
// @Failure 403 {object} Response "不能删除自己"
// @Failure 404 {object} Response "用户不存在"
// @Failure 409 {object} Response "仍有待审批报销单"
// @Router /api/v1/admin/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.users.Delete(c.Request.Context(), currentActor(c), id); err != nil {
		ServiceError(c, h.server, err, "删除用户失败")
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
