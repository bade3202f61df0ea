package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/youthhub-metrics-api/internal/service"
)

// unmatchedRoute labels requests gin could not route so raw paths never
// become label values.
const unmatchedRoute = "unmatched"

// Metrics observes every request on metricsSvc, labelled by route template.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
