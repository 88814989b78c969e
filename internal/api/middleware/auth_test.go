package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/trademint_server/internal/pkg/jwt"
	"github.com/qs3c/trademint_server/internal/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret-key-for-middleware"

func mustToken(t *testing.T, userID int64, role string, hours int) string {
	t.Helper()
	token, err := jwt.GenerateToken(userID, role, testJWTSecret, hours)
	require.NoError(t, err)
	return token
}

// serve 挂上中间件后请求 /me，处理函数回显上下文中的身份
func serve(t *testing.T, authorization string, chain ...gin.HandlerFunc) response.Response {
	t.Helper()
	router := gin.New()
	handlers := append(chain, func(c *gin.Context) {
		userID, _ := GetUserID(c)
		response.Success(c, gin.H{"user_id": userID, "role": GetRole(c)})
	})
	router.GET("/me", handlers...)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAuth_SetsIdentity(t *testing.T) {
	for _, role := range []string{"client", "trader", "admin"} {
		t.Run(role, func(t *testing.T) {
			resp := serve(t, "Bearer "+mustToken(t, 42, role, 1), Auth(testJWTSecret))

			require.Equal(t, response.CodeSuccess, resp.Code)
			data := resp.Data.(map[string]interface{})
			assert.Equal(t, float64(42), data["user_id"])
			assert.Equal(t, role, data["role"])
		})
	}
}

func TestAuth_Rejections(t *testing.T) {
	otherSecret, err := jwt.GenerateToken(42, "client", "another-secret", 1)
	require.NoError(t, err)

	tests := []struct {
		name          string
		authorization string
		message       string
	}{
		{"missing header", "", "请提供认证信息"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "认证格式错误"},
		{"bearer without token", "Bearer ", "认证格式错误"},
		{"bare token", mustToken(t, 42, "client", 1), "认证格式错误"},
		{"garbage token", "Bearer not.a.jwt", "认证失败"},
		{"signed with other secret", "Bearer " + otherSecret, "认证失败"},
		{"expired", "Bearer " + mustToken(t, 42, "client", -1), "登录已过期"},
		{"no role", "Bearer " + mustToken(t, 42, "", 1), "令牌缺少身份信息"},
		{"no user", "Bearer " + mustToken(t, 0, "trader", 1), "令牌缺少身份信息"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(t, tt.authorization, Auth(testJWTSecret))
			assert.Equal(t, response.CodeAuthFailed, resp.Code)
			assert.Equal(t, tt.message, resp.Message)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestAuth_SchemeCaseInsensitive(t *testing.T) {
	resp := serve(t, "bearer "+mustToken(t, 9, "trader", 1), Auth(testJWTSecret))
	assert.Equal(t, response.CodeSuccess, resp.Code)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		allowed  []string
		role     string
		wantCode int
	}{
		{"client on checkout", []string{"client"}, "client", response.CodeSuccess},
		{"trader on checkout", []string{"client"}, "trader", response.CodePermissionDenied},
		{"trader publishes", []string{"trader"}, "trader", response.CodeSuccess},
		{"admin publishes", []string{"trader"}, "admin", response.CodePermissionDenied},
		{"admin console", []string{"admin"}, "admin", response.CodeSuccess},
		{"either role", []string{"trader", "admin"}, "admin", response.CodeSuccess},
		{"unknown role", []string{"trader", "admin"}, "root", response.CodePermissionDenied},
		{"no roles configured", nil, "admin", response.CodePermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := mustToken(t, 1, tt.role, 1)
			resp := serve(t, "Bearer "+token, Auth(testJWTSecret), RequireRole(tt.allowed...))
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

// 未经过 Auth 时角色为空，一律拒绝
func TestRequireRole_WithoutAuth(t *testing.T) {
	resp := serve(t, "", RequireRole("client"))
	assert.Equal(t, response.CodePermissionDenied, resp.Code)
	assert.Equal(t, "权限不足", resp.Message)
}

func TestGetUserID(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		set    bool
		wantID int64
		wantOK bool
	}{
		{"not set", nil, false, 0, false},
		{"wrong type", "42", true, 0, false},
		{"zero", int64(0), true, 0, false},
		{"valid", int64(789), true, 789, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			if tt.set {
				c.Set(UserIDKey, tt.value)
			}
			id, ok := GetUserID(c)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
