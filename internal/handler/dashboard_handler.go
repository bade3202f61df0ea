package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/youthhub-metrics-api/internal/dto"
	"github.com/noah-isme/youthhub-metrics-api/internal/middleware"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
	"github.com/noah-isme/youthhub-metrics-api/pkg/response"
)

type dashboardService interface {
	Get(ctx context.Context, actor models.Actor, query dto.DashboardQuery) (*models.Dashboard, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Get godoc
// @Summary Role dashboard
// @Tags Dashboard
// @Produce json
// @Param range query string false "7d, 30d, 90d or 1y"
// @Param start query string false "RFC3339 start, requires end"
// @Param end query string false "RFC3339 end, requires start"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.DashboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	start := time.Now()
	dashboard, cacheHit, err := h.service.Get(c.Request.Context(), claims.Actor(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetProcessingTime(c, start)
	response.JSON(c, http.StatusOK, dashboard, nil, middleware.ExtractMeta(c))
}
