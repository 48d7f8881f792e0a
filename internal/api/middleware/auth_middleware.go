package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumeEditor/internal/auth"
)

// UserIDKey 是 gin 上下文中保存当前用户的键。
const UserIDKey = "userID"

// TokenVerifier 校验访问令牌。
type TokenVerifier interface {
	ValidateToken(token string) (*auth.TokenClaims, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
}

// AuthMiddleware 校验访问令牌并将 userID 注入上下文。
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		claims, err := verifier.ValidateToken(parts[1])
		if err != nil {
			LoggerFromContext(c).Debug("reject access token", slog.Any("error", err))
			abortUnauthorized(c)
			return
		}

		c.Set(UserIDKey, claims.UserID())
		c.Next()
	}
}
