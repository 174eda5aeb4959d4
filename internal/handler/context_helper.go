package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-hub-api/internal/middleware"
	"github.com/noah-isme/student-hub-api/internal/models"
	appErrors "github.com/noah-isme/student-hub-api/pkg/errors"
	"github.com/noah-isme/student-hub-api/pkg/response"
)

// principalOrAbort returns the authenticated principal, writing a 401 when none is present.
func principalOrAbort(c *gin.Context) (*models.User, bool) {
	principal := middleware.Principal(c)
	if principal == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		c.Abort()
		return nil, false
	}
	return principal, true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}
