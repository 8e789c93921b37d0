package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rishi-narain/ad-tester/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	AdminTokenHeader = "X-Admin-Token"
	AdminTokenCookie = "admin-token"
)

// AdminMiddleware accepts the shared admin token (header or cookie) or a
// Bearer JWT issued by admin login.
func AdminMiddleware(auth *service.AdminAuth, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.Enabled() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin access is not configured"})
			c.Abort()
			return
		}

		if token := c.GetHeader(AdminTokenHeader); token != "" {
			authorize(c, auth.CheckToken(token), "header", logger)
			return
		}

		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer <token>"})
				c.Abort()
				return
			}

			_, err := auth.ParseToken(parts[1])
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
				c.Abort()
				return
			}
			authorize(c, err, "jwt", logger)
			return
		}

		if cookie, err := c.Cookie(AdminTokenCookie); err == nil && cookie != "" {
			authorize(c, auth.CheckToken(cookie), "cookie", logger)
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Admin access required"})
		c.Abort()
	}
}

func authorize(c *gin.Context, err error, via string, logger *zap.Logger) {
	if err != nil {
		logger.Warn("Admin authentication failed", zap.String("via", via), zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid admin token"})
		c.Abort()
		return
	}

	c.Set("role", "admin")
	c.Next()
}
