package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"librarium/internal/pkg/response"
)

// RequireRole ensures that the authenticated user has one of the given roles
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			c.Abort()
			return
		}

		for _, want := range allowed {
			if role.(string) == want {
				c.Next()
				return
			}
		}

		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
		c.Abort()
	}
}

// AdminOnly middleware requires admin role
func AdminOnly() gin.HandlerFunc {
	return RequireRole("admin")
}

// LibrarianOnly middleware requires librarian (or admin) role
func LibrarianOnly() gin.HandlerFunc {
	return RequireRole("librarian", "admin")
}
