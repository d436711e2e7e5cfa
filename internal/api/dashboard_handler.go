package api

import (
	"net/http"

	"portfolio-dashboard/internal/services"

	"github.com/gin-gonic/gin"
)

// DashboardHandler handles dashboard widget endpoints
type DashboardHandler struct {
	scope            *sessionScope
	dashboardService DashboardServiceInterface
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(scope *sessionScope, dashboardService DashboardServiceInterface) *DashboardHandler {
	return &DashboardHandler{
		scope:            scope,
		dashboardService: dashboardService,
	}
}

// GetPortfolio returns the portfolio statistics
// @Summary Portfolio statistics
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.PortfolioView
// @Failure 401 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /dashboard/portfolio [get]
func (h *DashboardHandler) GetPortfolio(c *gin.Context) {
	caller, account, ok := h.scope.resolve(c)
	if !ok {
		return
	}

	view, err := h.dashboardService.Portfolio(c.Request.Context(), caller.Owner, account)
	if err != nil {
		respondError(c, err, http.StatusBadGateway, "PORTFOLIO_UNAVAILABLE", "Failed to load portfolio")
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(view, getTraceID(c)))
}

// GetAllocation returns the asset allocation chart data
// @Summary Asset allocation
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.AllocationView
// @Router /dashboard/allocation [get]
func (h *DashboardHandler) GetAllocation(c *gin.Context) {
	caller, account, ok := h.scope.resolve(c)
	if !ok {
		return
	}

	view, err := h.dashboardService.Allocation(c.Request.Context(), caller.Owner, account)
	if err != nil {
		respondError(c, err, http.StatusBadGateway, "ALLOCATION_UNAVAILABLE", "Failed to load asset allocation")
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(view, getTraceID(c)))
}

// GetAchievements returns achievement progress
// @Summary Achievements
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.AchievementsView
// @Router /dashboard/achievements [get]
func (h *DashboardHandler) GetAchievements(c *gin.Context) {
	caller, account, ok := h.scope.resolve(c)
	if !ok {
		return
	}

	view, err := h.dashboardService.Achievements(c.Request.Context(), caller.Owner, account)
	if err != nil {
		respondError(c, err, http.StatusBadGateway, "ACHIEVEMENTS_UNAVAILABLE", "Failed to load achievements")
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(view, getTraceID(c)))
}

// GetActivity returns the recent activity feed
// @Summary Recent activity
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.ActivityView
// @Router /dashboard/activity [get]
func (h *DashboardHandler) GetActivity(c *gin.Context) {
	caller, account, ok := h.scope.resolve(c)
	if !ok {
		return
	}

	view, err := h.dashboardService.Activity(c.Request.Context(), caller.Owner, account)
	if err != nil {
		respondError(c, err, http.StatusBadGateway, "ACTIVITY_UNAVAILABLE", "Failed to load recent activity")
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(view, getTraceID(c)))
}

// GetSummary returns every widget computed from one snapshot
// @Summary Dashboard summary
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.SummaryView
// @Router /dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	caller, account, ok := h.scope.resolve(c)
	if !ok {
		return
	}

	view, err := h.dashboardService.Summary(c.Request.Context(), caller.Owner, account)
	if err != nil {
		respondError(c, err, http.StatusBadGateway, "SUMMARY_UNAVAILABLE", "Failed to load dashboard")
		return
	}

	c.JSON(http.StatusOK, CreateSuccessResponse(view, getTraceID(c)))
}

// Refresh drops the cached backend data of the caller
// @Summary Force refresh
// @Tags Dashboard
// @Security BearerAuth
// @Success 204
// @Router /dashboard/refresh [post]
func (h *DashboardHandler) Refresh(c *gin.Context) {
	caller, _, ok := h.scope.resolve(c)
	if !ok {
		return
	}

	h.dashboardService.Invalidate(c.Request.Context(), caller.Owner, services.AllResources...)
	c.Status(http.StatusNoContent)
}
