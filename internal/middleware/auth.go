package middleware

import (
	"net/http"
	"time"

	"portfolio-dashboard/pkg/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionKey   = "session"
	ownerKey     = "owner"
	requestIDKey = "request_id"
)

// AuthRecorder receives rejected authentication attempts
type AuthRecorder interface {
	RecordAuthFailure(reason string)
}

// SessionMiddleware builds an auth.Session from the bearer token of the
// request. WebSocket upgrades may pass the token as the "token" query
// parameter since browsers cannot set headers on them.
func SessionMiddleware(recorder AuthRecorder) gin.HandlerFunc {
	reject := func(c *gin.Context, code, message string) {
		if recorder != nil {
			recorder.RecordAuthFailure(code)
		}
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": message,
			},
		})
		c.Abort()
	}

	return func(c *gin.Context) {
		var token string
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			t, err := auth.ExtractTokenFromHeader(authHeader)
			if err != nil {
				reject(c, "INVALID_TOKEN", "Invalid authorization header format")
				return
			}
			token = t
		} else if c.IsWebsocket() {
			token = c.Query("token")
		}

		if token == "" {
			reject(c, "AUTH_REQUIRED", "Authorization header is required")
			return
		}

		session, err := auth.NewSession(token)
		if err != nil {
			reject(c, "INVALID_TOKEN", "Invalid token")
			return
		}
		if session.Expired() {
			reject(c, "AUTH_EXPIRED", "Session has expired, please sign in again")
			return
		}

		c.Set(sessionKey, session)
		c.Set(ownerKey, session.Fingerprint())
		c.Next()
	}
}

// GetSession extracts the session from gin context
func GetSession(c *gin.Context) (*auth.Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}
	session, ok := v.(*auth.Session)
	return session, ok
}

// GetOwner extracts the session fingerprint from gin context
func GetOwner(c *gin.Context) (string, bool) {
	owner := c.GetString(ownerKey)
	return owner, owner != ""
}

// IsAuthenticated checks if the request carries a session
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(sessionKey)
	return exists
}

// CORSMiddleware handles cross-origin requests for the dashboard frontend
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Request-ID", "Cache-Control"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	for _, origin := range allowedOrigins {
		if origin == "*" {
			cfg.AllowOriginFunc = func(string) bool { return true }
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = allowedOrigins
	return cors.New(cfg)
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header("X-Request-ID", requestID)
		c.Set(requestIDKey, requestID)
		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestIDMiddleware
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}
