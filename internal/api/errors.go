package api

import (
	"context"
	"errors"
	"net/http"

	"portfolio-dashboard/internal/backend"
	"portfolio-dashboard/internal/repositories"
	"portfolio-dashboard/internal/services"
	"portfolio-dashboard/pkg/auth"

	"github.com/gin-gonic/gin"
)

// respondError maps service and upstream errors onto HTTP answers. Errors
// without a more specific mapping are answered with status, code and message.
func respondError(c *gin.Context, err error, status int, code, message string) {
	_ = c.Error(err)

	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		resp := CreateErrorResponse("VALIDATION_FAILED", "Request validation failed", validation.Message, getTraceID(c))
		resp.Error.Field = validation.Field
		c.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, backend.ErrUnauthorized), errors.Is(err, auth.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, CreateErrorResponse(
			"AUTH_EXPIRED",
			"Session has expired, please sign in again",
			"",
			getTraceID(c),
		))
	case errors.Is(err, backend.ErrForbidden):
		c.JSON(http.StatusForbidden, CreateErrorResponse("FORBIDDEN", "Access denied", err.Error(), getTraceID(c)))
	case errors.Is(err, backend.ErrNotFound):
		c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", "Resource not found", err.Error(), getTraceID(c)))
	case errors.Is(err, repositories.ErrInvalidNotificationID), errors.Is(err, repositories.ErrInvalidOwner):
		c.JSON(http.StatusBadRequest, CreateErrorResponse("INVALID_REQUEST", "Invalid notification", err.Error(), getTraceID(c)))
	case errors.Is(err, services.ErrUnknownResource):
		c.JSON(http.StatusBadRequest, CreateErrorResponse("INVALID_REQUEST", "Unknown resource", err.Error(), getTraceID(c)))
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, CreateErrorResponse("UPSTREAM_TIMEOUT", message, err.Error(), getTraceID(c)))
	case errors.Is(err, context.Canceled):
		// client went away, nobody reads this
		c.Status(499)
	default:
		c.JSON(status, CreateErrorResponse(code, message, err.Error(), getTraceID(c)))
	}
}
