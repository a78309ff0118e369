package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin 在鉴权中间件之后使用，拒绝非管理员访问管理路由。
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := c.Get("isAdmin")
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		if admin, ok := val.(bool); !ok || !admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
