package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readiness(t *testing.T, h *HealthHandler) (int, HealthResponse) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ready", h.Readiness)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var body struct {
		Data HealthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body.Data
}

func healthy(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		handler    *HealthHandler
		wantCode   int
		wantStatus string
	}{
		{
			name:       "all_healthy",
			handler:    NewHealthHandler().Register("database", healthy).Register("cache", healthy),
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		{
			name:       "optional_failure_degrades",
			handler:    NewHealthHandler().Register("database", healthy).RegisterOptional("nats", failing),
			wantCode:   http.StatusOK,
			wantStatus: "degraded",
		},
		{
			name:       "required_failure",
			handler:    NewHealthHandler().Register("database", failing).RegisterOptional("nats", healthy),
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
		{
			name:       "no_checks",
			handler:    NewHealthHandler(),
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := readiness(t, tt.handler)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, Version, resp.Version)
		})
	}
}

func TestReadiness_ReportsFailingDependency(t *testing.T) {
	_, resp := readiness(t, NewHealthHandler().Register("cache", healthy).RegisterOptional("nats", failing))

	require.Contains(t, resp.Dependencies, "nats")
	assert.Equal(t, "unhealthy", resp.Dependencies["nats"].Status)
	assert.Equal(t, "connection refused", resp.Dependencies["nats"].Message)
	assert.Equal(t, "healthy", resp.Dependencies["cache"].Status)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.True(t, originChecker([]string{"*"})(req))
}
