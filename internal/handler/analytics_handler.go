package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
	"github.com/noah-isme/youthhub-metrics-api/pkg/response"
)

type systemAnalytics interface {
	SystemMetrics() models.SystemSnapshot
	FlushCaches(ctx context.Context) error
}

// AnalyticsHandler exposes operational analytics endpoints.
type AnalyticsHandler struct {
	analytics systemAnalytics
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics systemAnalytics) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// System godoc
// @Summary Reporting engine instrumentation snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	response.JSON(c, http.StatusOK, h.analytics.SystemMetrics(), nil)
}

// FlushCaches godoc
// @Summary Drop cached reports and dashboards
// @Tags Analytics
// @Success 204
// @Router /analytics/cache [delete]
func (h *AnalyticsHandler) FlushCaches(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	if err := h.analytics.FlushCaches(c.Request.Context()); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flush caches"))
		return
	}
	c.Status(http.StatusNoContent)
}
