package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// AnalyticsService exposes operational views of the reporting engine.
type AnalyticsService struct {
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{cache: cache, metrics: metrics, logger: logger}
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.SystemSnapshot {
	return s.metrics.Snapshot()
}

// FlushCaches drops every cached report and dashboard.
func (s *AnalyticsService) FlushCaches(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	for _, pattern := range []string{"report:*", "dashboard:*"} {
		if err := s.cache.Invalidate(ctx, pattern); err != nil {
			return err
		}
	}
	s.logger.Info("report caches flushed")
	return nil
}
