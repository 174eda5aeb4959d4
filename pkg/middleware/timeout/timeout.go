package timeout

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware bounds the request context so store calls made by handlers give up after d.
// It does not interrupt handlers that ignore their context.
func Middleware(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
