package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/trademint_server/internal/pkg/jwt"
	"github.com/qs3c/trademint_server/internal/pkg/response"
)

const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// Auth 校验 Bearer 令牌，令牌必须同时携带用户 ID 和角色
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, msg := bearerToken(c.GetHeader("Authorization"))
		if msg != "" {
			deny(c, response.CodeAuthFailed, msg)
			return
		}

		claims, err := jwt.ParseToken(token, jwtSecret)
		switch {
		case errors.Is(err, jwt.ErrExpiredToken):
			deny(c, response.CodeAuthFailed, "登录已过期")
			return
		case err != nil:
			deny(c, response.CodeAuthFailed, "认证失败")
			return
		case claims.UserID <= 0 || claims.Role == "":
			deny(c, response.CodeAuthFailed, "令牌缺少身份信息")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole 放在 Auth 之后，角色不在列表中时返回权限不足
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := allowed[GetRole(c)]; !ok {
			deny(c, response.CodePermissionDenied, "")
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) (int64, bool) {
	id, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	userID, ok := id.(int64)
	return userID, ok && userID > 0
}

// GetRole 未认证时为空
func GetRole(c *gin.Context) string {
	return c.GetString(RoleKey)
}

func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "请提供认证信息"
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", "认证格式错误"
	}
	return strings.TrimSpace(token), ""
}

func deny(c *gin.Context, code int, message string) {
	response.Error(c, code, message)
	c.Abort()
}
