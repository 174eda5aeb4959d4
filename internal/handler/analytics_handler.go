package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-hub-api/internal/middleware"
	"github.com/noah-isme/student-hub-api/internal/models"
	"github.com/noah-isme/student-hub-api/pkg/response"
)

type analyticsService interface {
	Summary(ctx context.Context, admin *models.User) (*models.AnalyticsSummary, bool, error)
	System(ctx context.Context, admin *models.User) (models.AnalyticsSystemMetrics, error)
}

// AnalyticsHandler exposes admin aggregates.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Summary godoc
// @Summary Student and activity totals
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /analytics/ [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	summary, cacheHit, err := h.analytics.Summary(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, middleware.ExtractMeta(c))
}

// System godoc
// @Summary Process metrics snapshot
// @Tags Analytics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	snapshot, err := h.analytics.System(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, middleware.ExtractMeta(c))
}
