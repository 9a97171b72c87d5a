package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"claimflow/models"
	"claimflow/repository"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID   = "userID"
	ctxUsername = "username"
	ctxRole     = "role"
)

// Claims JWT 载荷
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// UserLookup 按 ID 读取用户，repository.UserRepository 满足该接口
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// JWTManager 签发与校验 token
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTManager 创建 JWT 管理器
func NewJWTManager(secret string, ttl time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, errors.New("JWT secret 不能为空，请配置 CLAIMFLOW_JWT_SECRET")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl}, nil
}

// TTL token 有效期
func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// Generate 签发 token
func (m *JWTManager) Generate(userID uint, username, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "claimflow",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse 解析并校验 token
func (m *JWTManager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Auth Bearer token 认证中间件。每次请求都会重新读取用户，
// 已删除的账号返回 401，已禁用的账号返回 403，角色以数据库为准。
func (m *JWTManager) Auth(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "未提供认证信息")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			abort(c, http.StatusUnauthorized, "认证格式错误")
			return
		}

		claims, err := m.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			abort(c, http.StatusUnauthorized, "token 无效或已过期")
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			abort(c, http.StatusUnauthorized, "用户不存在")
			return
		}
		if err != nil {
			abort(c, http.StatusInternalServerError, "读取用户信息失败")
			return
		}
		if !user.IsActive {
			abort(c, http.StatusForbidden, "账号已被禁用，请联系管理员")
			return
		}

		c.Set(ctxUserID, user.ID)
		c.Set(ctxUsername, user.Username)
		c.Set(ctxRole, user.Role)
		c.Next()
	}
}

// AdminOnly 仅管理员可访问，需放在 Auth 之后
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetCurrentRole(c) != models.RoleAdmin {
			abort(c, http.StatusForbidden, "需要管理员权限")
			return
		}
		c.Next()
	}
}

// GetCurrentUserID 获取当前用户 ID
func GetCurrentUserID(c *gin.Context) uint {
	if id, ok := c.Get(ctxUserID); ok {
		if v, ok := id.(uint); ok {
			return v
		}
	}
	return 0
}

// GetCurrentRole 获取当前用户角色
func GetCurrentRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// GetCurrentUsername 获取当前用户名
func GetCurrentUsername(c *gin.Context) string {
	return c.GetString(ctxUsername)
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    status,
		"message": message,
		"data":    nil,
	})
}
