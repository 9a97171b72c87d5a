package api

import (
	"claimflow/config"
	"claimflow/middleware"
	"claimflow/models"
	"claimflow/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	users  *service.UserService
	jwt    *middleware.JWTManager
	server config.ServerConfig
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(users *service.UserService, jwt *middleware.JWTManager, server config.ServerConfig) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt, server: server}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name       string `json:"name" binding:"required,max=100" example:"张三"`
	Email      string `json:"email" binding:"required,email" example:"zhangsan@example.com"`
	Department string `json:"department" binding:"max=100" example:"IT"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required" example:"john"`
	Password string `json:"password" binding:"required" example:"password"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token      string      `json:"token"`
	User       models.User `json:"user"`
	IsApprover bool        `json:"isApprover"`
}

// ForgotPasswordRequest 忘记密码请求
type ForgotPasswordRequest struct {
	Username string `json:"username" binding:"required" example:"john"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=50"`
}

// Register 用户注册
// @Summary 用户注册
// @Description 用户名取邮箱前缀，初始密码通过邮件发送。新账号需管理员激活后才能登录。
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册信息"
// @Success 200 {object} Response{data=models.User} "注册成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "邮箱已被注册"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterCommand{
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
	})
	if err != nil {
		ServiceError(c, h.server, err, "注册失败")
		return
	}

	SuccessWithMessage(c, "注册成功，登录信息已发送至您的邮箱，请等待管理员激活", user)
}

// Login 用户登录
// @Summary 用户登录
// @Description 使用用户名和密码登录，返回 JWT token 以及是否为审批人
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=LoginResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "用户名或密码错误"
// @Failure 403 {object} Response "账号已停用"
// @Failure 429 {object} Response "请求过于频繁"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	res, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		ServiceError(c, h.server, err, "登录失败")
		return
	}

	token, err := h.jwt.Generate(res.User.ID, res.User.Username, res.User.Role)
	if err != nil {
		InternalError(c, "生成 token 失败")
		return
	}

	Success(c, LoginResponse{
		Token:      token,
		User:       *res.User,
		IsApprover: res.IsApprover,
	})
}

// ForgotPassword 忘记密码
// @Summary 忘记密码
// @Description 为用户生成新的随机密码并通过邮件发送。无论用户是否存在都返回相同结果。
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "用户名"
// @Success 200 {object} Response "处理成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.users.ForgotPassword(c.Request.Context(), req.Username); err != nil {
		ServiceError(c, h.server, err, "重置密码失败")
		return
	}

	SuccessWithMessage(c, "如果该用户存在，新密码已发送至其邮箱", nil)
}

// GetProfile 获取当前用户信息
// @Summary 获取当前用户信息
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.User} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		ServiceError(c, h.server, err, "获取用户信息失败")
		return
	}
	Success(c, user)
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "密码信息"
// @Success 200 {object} Response "修改成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	err := h.users.ChangePassword(c.Request.Context(), middleware.GetCurrentUserID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		ServiceError(c, h.server, err, "修改密码失败")
		return
	}
	SuccessWithMessage(c, "密码修改成功", nil)
}
