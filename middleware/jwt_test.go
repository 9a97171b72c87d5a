package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"claimflow/models"
	"claimflow/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWT(t *testing.T) *JWTManager {
	m, err := NewJWTManager("test-jwt-secret-key", time.Hour)
	require.NoError(t, err)
	return m
}

type fakeUsers map[uint]*models.User

func (f fakeUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	if id == 500 {
		return nil, errors.New("connection refused")
	}
	u, ok := f[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func TestNewJWTManager(t *testing.T) {
	_, err := NewJWTManager("", time.Hour)
	assert.Error(t, err)

	m, err := NewJWTManager("secret", 0)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, m.TTL())
}

func TestGenerateAndParse(t *testing.T) {
	m := newTestJWT(t)

	token, err := m.Generate(1, "testuser", "admin")
	require.NoError(t, err)
	assert.Greater(t, len(token), 20)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.Equal(t, "testuser", claims.Username)
	assert.Equal(t, "admin", claims.Role)

	// 空字符串
	_, err = m.Parse("")
	assert.Error(t, err)

	// 无效格式
	_, err = m.Parse("not.a.valid.jwt")
	assert.Error(t, err)

	// 其他密钥签发
	other, err := NewJWTManager("another-secret", time.Hour)
	require.NoError(t, err)
	foreign, _ := other.Generate(1, "testuser", "admin")
	_, err = m.Parse(foreign)
	assert.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	m := &JWTManager{secret: []byte("test"), ttl: -time.Minute}
	token, err := m.Generate(1, "u", "user")
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.Error(t, err)
}

func TestAuth(t *testing.T) {
	m := newTestJWT(t)
	gin.SetMode(gin.TestMode)

	users := fakeUsers{
		42: {ID: 42, Username: "user42", Role: models.RoleUser, IsActive: true},
		43: {ID: 43, Username: "promoted", Role: models.RoleAdmin, IsActive: true},
		44: {ID: 44, Username: "disabled", Role: models.RoleUser, IsActive: false},
	}

	router := gin.New()
	router.Use(m.Auth(users))
	router.GET("/protected", func(c *gin.Context) {
		c.String(200, "id:%d role:%s", GetCurrentUserID(c), GetCurrentRole(c))
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// 无 token
	w := do("")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "401")

	// 格式错误
	assert.Equal(t, http.StatusUnauthorized, do("Basic xyz").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer ").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)

	// 有效 token
	token, _ := m.Generate(42, "user42", "user")
	w = do("Bearer " + token)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "id:42 role:user", w.Body.String())

	// 角色以数据库为准
	token, _ = m.Generate(43, "promoted", "user")
	w = do("Bearer " + token)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "id:43 role:admin", w.Body.String())

	// 已禁用
	token, _ = m.Generate(44, "disabled", "user")
	assert.Equal(t, http.StatusForbidden, do("Bearer "+token).Code)

	// 已删除
	token, _ = m.Generate(99, "gone", "admin")
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+token).Code)

	// 读取失败
	token, _ = m.Generate(500, "broken", "user")
	assert.Equal(t, http.StatusInternalServerError, do("Bearer "+token).Code)
}

func TestAdminOnly(t *testing.T) {
	m := newTestJWT(t)
	gin.SetMode(gin.TestMode)

	users := fakeUsers{1: {ID: 1, Username: "u", IsActive: true}}

	router := gin.New()
	router.GET("/admin", m.Auth(users), AdminOnly(), func(c *gin.Context) {
		c.String(200, "ok")
	})

	do := func(role string) int {
		users[1].Role = role
		// token 中的角色始终为 admin，不影响结果
		token, _ := m.Generate(1, "u", models.RoleAdmin)
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusForbidden, do("user"))
	assert.Equal(t, 200, do("admin"))
}

func TestGetCurrentUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uint(0), GetCurrentUserID(c))
	assert.Equal(t, "", GetCurrentRole(c))

	c.Set("userID", uint(99))
	c.Set("role", "admin")
	assert.Equal(t, uint(99), GetCurrentUserID(c))
	assert.Equal(t, "admin", GetCurrentRole(c))
}
