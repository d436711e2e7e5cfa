package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PanicRecorder receives recovered panics
type PanicRecorder interface {
	RecordPanicRecovery(component string)
}

// LoggingMiddleware writes one structured line per request
func LoggingMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "http").Logger()

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		var event *zerolog.Event
		switch {
		case statusCode >= http.StatusInternalServerError:
			event = log.Error()
		case statusCode >= http.StatusBadRequest:
			event = log.Warn()
		default:
			event = log.Info()
		}

		event = event.
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status_code", statusCode).
			Float64("duration_ms", float64(duration.Microseconds())/1000).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int("response_size", c.Writer.Size())

		if query := c.Request.URL.RawQuery; query != "" && !c.IsWebsocket() {
			event = event.Str("query", query)
		}
		if owner, ok := GetOwner(c); ok {
			event = event.Str("owner", owner)
		}
		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.Last().Error())
		}

		event.Msg("request completed")
	}
}

// HealthCheckLoggingMiddleware skips request logging for health checks and scrapes
func HealthCheckLoggingMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	logging := LoggingMiddleware(logger)
	return func(c *gin.Context) {
		switch c.Request.URL.Path {
		case "/health/live", "/health/ready", "/metrics":
			c.Next()
			return
		}
		logging(c)
	}
}

// ErrorLoggingMiddleware recovers panics, logs them and answers 500
func ErrorLoggingMiddleware(logger zerolog.Logger, recorder PanicRecorder) gin.HandlerFunc {
	log := logger.With().Str("component", "http").Logger()

	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := GetRequestID(c)

		log.Error().
			Str("request_id", requestID).
			Str("type", "panic_recovery").
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("client_ip", c.ClientIP()).
			Interface("panic_value", recovered).
			Msg("recovered from panic")

		if recorder != nil {
			recorder.RecordPanicRecovery("http")
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":       "INTERNAL_ERROR",
				"message":    "Internal server error",
				"request_id": requestID,
			},
		})
	})
}
