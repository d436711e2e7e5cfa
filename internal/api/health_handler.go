package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is reported by the readiness check
var Version = "dev"

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checks map[string]HealthCheck
	// optional dependencies are reported but never fail readiness
	optional map[string]bool
}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		checks:   make(map[string]HealthCheck),
		optional: make(map[string]bool),
	}
}

// Register adds a required dependency check
func (h *HealthHandler) Register(name string, check HealthCheck) *HealthHandler {
	h.checks[name] = check
	return h
}

// RegisterOptional adds a dependency whose failure degrades but does not
// fail readiness
func (h *HealthHandler) RegisterOptional(name string, check HealthCheck) *HealthHandler {
	h.checks[name] = check
	h.optional[name] = true
	return h
}

// Liveness handles the Kubernetes liveness check
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /health/live [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, CreateSuccessResponse(gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"message":   "Service is alive",
	}, getTraceID(c)))
}

// Readiness handles the Kubernetes readiness check
// @Summary Readiness check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} ErrorResponse
// @Router /health/ready [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	dependencies := make(map[string]HealthStatus, len(names))
	overallHealthy := true
	degraded := false
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			dependencies[name] = HealthStatus{Status: "unhealthy", Message: err.Error()}
			if h.optional[name] {
				degraded = true
			} else {
				overallHealthy = false
			}
			continue
		}
		dependencies[name] = HealthStatus{Status: "healthy"}
	}

	if !overallHealthy {
		resp := CreateErrorResponse(
			"SERVICE_UNAVAILABLE",
			"One or more dependencies are unhealthy",
			"",
			getTraceID(c),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success":  resp.Success,
			"error":    resp.Error,
			"metadata": resp.Metadata,
			"data":     HealthResponse{Status: "unhealthy", Timestamp: resp.Metadata.Timestamp, Version: Version, Dependencies: dependencies},
		})
		return
	}

	status := "healthy"
	if degraded {
		status = "degraded"
	}
	c.JSON(http.StatusOK, CreateSuccessResponse(HealthResponse{
		Status:       status,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Version:      Version,
		Dependencies: dependencies,
	}, getTraceID(c)))
}
