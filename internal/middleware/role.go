package middleware

import (
	"net/http"

	"pgstay/internal/domain"
	"pgstay/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole ensures that the authenticated user has one of the given roles.
func RequireRole(roles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			c.Abort()
			return
		}
		for _, r := range roles {
			if role == string(r) {
				c.Next()
				return
			}
		}
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
		c.Abort()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin)
}

func OwnerOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleOwner)
}
