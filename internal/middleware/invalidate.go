package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DashboardInvalidator drops cached dashboard payloads after a write.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context)
}

// InvalidateDashboard flushes the dashboard cache once a mutating request
// succeeds, so completed reviews and queue edits show up without waiting
// for the cache TTL to lapse.
func InvalidateDashboard(invalidator DashboardInvalidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if invalidator == nil {
			return
		}
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			return
		}
		if status := c.Writer.Status(); status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}
		invalidator.Invalidate(c.Request.Context())
	}
}
