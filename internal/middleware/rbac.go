package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-hub-api/internal/models"
	"github.com/noah-isme/student-hub-api/internal/service"
	"github.com/noah-isme/student-hub-api/pkg/response"
)

// RequireRole lets the request through only when the principal holds exactly role.
// Admin does not satisfy a faculty requirement.
func RequireRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.CheckRole(Principal(c), role); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
