package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRoles restricts a route group to the given roles. It must run after
// AuthMiddleware, which puts the caller's role in the context.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		role := c.GetString("userRole")
		if !allowed[role] {
			c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action"})
			c.Abort()
			return
		}
		c.Next()
	}
}
