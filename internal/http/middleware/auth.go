package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

// AdminAuth guards the admin surface with a shared bearer token.
type AdminAuth struct {
	log   *logger.Logger
	token []byte
}

func NewAdminAuth(log *logger.Logger, token string) *AdminAuth {
	return &AdminAuth{log: log.With("Middleware", "AdminAuth"), token: []byte(strings.TrimSpace(token))}
}

// RequireToken rejects every request when no token is configured.
func (a *AdminAuth) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(a.token) == 0 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"message": "admin api is not configured", "code": "forbidden"},
			})
			return
		}
		got := extractToken(c)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), a.token) != 1 {
			a.log.Warn("Admin request rejected", "path", c.FullPath(), "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
