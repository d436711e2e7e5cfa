package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorRecorder receives error counts
type ErrorRecorder interface {
	RecordError(component, errorType string)
}

// MonitoringMiddleware counts failed requests by class. Handlers attach the
// underlying error with c.Error so it shows up in the request log as well.
func MonitoringMiddleware(recorder ErrorRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if recorder == nil {
			return
		}

		switch status := c.Writer.Status(); {
		case status == http.StatusBadGateway:
			recorder.RecordError("http", "upstream")
		case status == http.StatusTooManyRequests:
			recorder.RecordError("http", "rate_limited")
		case status >= http.StatusInternalServerError:
			recorder.RecordError("http", "internal")
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			recorder.RecordError("http", "auth")
		}
	}
}
