package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-hub-api/internal/models"
	appErrors "github.com/noah-isme/student-hub-api/pkg/errors"
	"github.com/noah-isme/student-hub-api/pkg/logger"
	"github.com/noah-isme/student-hub-api/pkg/response"
)

// ContextUserKey is the gin context key storing the resolved principal.
const ContextUserKey = "currentUser"

type principalResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// JWT requires a bearer token that resolves to an active principal.
func JWT(authService principalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "not authenticated"))
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		principal, err := authService.Resolve(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, principal)
		c.Set(logger.PrincipalKey, principal.ID)
		c.Next()
	}
}

// Principal returns the principal stored by JWT, if any.
func Principal(c *gin.Context) *models.User {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	principal, _ := value.(*models.User)
	return principal
}
