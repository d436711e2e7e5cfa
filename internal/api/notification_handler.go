package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NotificationHandler handles notification center endpoints
type NotificationHandler struct {
	scope               *sessionScope
	notificationService NotificationServiceInterface
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(scope *sessionScope, notificationService NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{
		scope:               scope,
		notificationService: notificationService,
	}
}

// ListNotifications returns the merged notification feed
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.NotificationFeed
// @Failure 401 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	caller, account, ok := h.scope.resolve(c)
	if !ok {
		return
	}

	feed, err := h.notificationService.List(c.Request.Context(), caller, account)
	if err != nil {
		respondError(c, err, http.StatusBadGateway, "NOTIFICATIONS_UNAVAILABLE", "Failed to load notifications")
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(feed, getTraceID(c)))
}

// MarkRead marks one notification as read
// @Summary Mark notification read
// @Tags Notifications
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	caller, account, ok := h.scope.resolve(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), caller, account, c.Param("id")); err != nil {
		respondError(c, err, http.StatusInternalServerError, "NOTIFICATION_UPDATE_FAILED", "Failed to update notification")
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkAllRead marks every visible notification as read
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MarkAllReadResponse
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	caller, account, ok := h.scope.resolve(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), caller, account)
	if err != nil {
		respondError(c, err, http.StatusBadGateway, "NOTIFICATION_UPDATE_FAILED", "Failed to update notifications")
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(MarkAllReadResponse{Updated: updated}, getTraceID(c)))
}

// Dismiss hides a notification for good
// @Summary Dismiss notification
// @Tags Notifications
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Dismiss(c *gin.Context) {
	caller, account, ok := h.scope.resolve(c)
	if !ok {
		return
	}

	if err := h.notificationService.Dismiss(c.Request.Context(), caller, account, c.Param("id")); err != nil {
		respondError(c, err, http.StatusInternalServerError, "NOTIFICATION_UPDATE_FAILED", "Failed to dismiss notification")
		return
	}

	c.Status(http.StatusNoContent)
}

// Reset clears every read and dismissed flag of the caller
// @Summary Reset notification state
// @Tags Notifications
// @Security BearerAuth
// @Success 204
// @Router /notifications/state [delete]
func (h *NotificationHandler) Reset(c *gin.Context) {
	caller, account, ok := h.scope.resolve(c)
	if !ok {
		return
	}

	if err := h.notificationService.Reset(c.Request.Context(), caller, account); err != nil {
		respondError(c, err, http.StatusInternalServerError, "NOTIFICATION_UPDATE_FAILED", "Failed to reset notifications")
		return
	}

	c.Status(http.StatusNoContent)
}
