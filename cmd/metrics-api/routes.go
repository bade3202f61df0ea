package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/youthhub-metrics-api/api/swagger"
	"github.com/noah-isme/youthhub-metrics-api/internal/handler"
	"github.com/noah-isme/youthhub-metrics-api/internal/middleware"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	"github.com/noah-isme/youthhub-metrics-api/internal/service"
	"github.com/noah-isme/youthhub-metrics-api/pkg/config"
	"github.com/noah-isme/youthhub-metrics-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/youthhub-metrics-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/youthhub-metrics-api/pkg/middleware/requestid"
)

type routeDeps struct {
	auth       *service.AuthService
	metrics    *service.MetricsService
	reports    *handler.ReportHandler
	dashboards *handler.DashboardHandler
	analytics  *handler.AnalyticsHandler
	health     *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", deps.health.Health)
	r.GET("/ready", deps.health.Ready)
	r.GET("/metrics", deps.health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	// Download tokens carry their own signature.
	api.GET("/export/:token", deps.reports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.auth))

	reports := secured.Group("/reports")
	reports.GET("", deps.reports.Types)
	reports.POST("/exports", deps.reports.CreateExport)
	reports.GET("/exports", deps.reports.ListExports)
	reports.GET("/exports/:id", deps.reports.GetExport)
	reports.GET("/:type", deps.reports.Generate)

	if cfg.Dashboard.Enabled {
		secured.GET("/dashboard", deps.dashboards.Get)
	}

	analytics := secured.Group("/analytics", middleware.RequireRoles(models.RoleAdmin))
	analytics.GET("/system", deps.analytics.System)
	analytics.DELETE("/cache", deps.analytics.FlushCaches)

	return r
}
