package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/youthhub-metrics-api/internal/aggregator"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
)

var reportAggregators = map[models.ReportType][]aggregator.Name{
	models.ReportCoursePerformance:   {aggregator.Overview, aggregator.CourseCompletion},
	models.ReportStudentEngagement:   {aggregator.Engagement, aggregator.Demographics},
	models.ReportInstructorAnalytics: {aggregator.CourseCompletion, aggregator.Engagement, aggregator.Revenue},
	models.ReportCompletionAnalysis:  {aggregator.CourseCompletion},
	models.ReportContentAnalytics:    {aggregator.Overview, aggregator.Entrepreneurship},
	models.ReportJobPlacement:        {aggregator.Overview, aggregator.JobPlacement},
	models.ReportComprehensive:       aggregator.All,
}

// RequiredAggregators returns the aggregators a report type is built from.
func RequiredAggregators(t models.ReportType) ([]aggregator.Name, bool) {
	names, ok := reportAggregators[t]
	return names, ok
}

// ReportTypes lists every supported report type.
func ReportTypes() []models.ReportType {
	return []models.ReportType{
		models.ReportCoursePerformance,
		models.ReportStudentEngagement,
		models.ReportInstructorAnalytics,
		models.ReportCompletionAnalysis,
		models.ReportContentAnalytics,
		models.ReportJobPlacement,
		models.ReportComprehensive,
	}
}

type scopeResolver interface {
	Resolve(ctx context.Context, req ScopeRequest) (models.Scope, error)
}

type aggregatorRegistry interface {
	Get(name aggregator.Name) (aggregator.Aggregator, bool)
}

// ReportRequest describes one report generation call.
type ReportRequest struct {
	Type          models.ReportType
	Actor         models.Actor
	Range         string
	Start         *time.Time
	End           *time.Time
	CompanyID     string
	InstitutionID string
	UserID        string
}

func (r ReportRequest) scopeRequest() ScopeRequest {
	return ScopeRequest{
		Actor:         r.Actor,
		Range:         r.Range,
		Start:         r.Start,
		End:           r.End,
		CompanyID:     r.CompanyID,
		InstitutionID: r.InstitutionID,
		UserID:        r.UserID,
	}
}

// ReportServiceConfig tunes report caching.
type ReportServiceConfig struct {
	CacheTTL time.Duration
}

// ReportService assembles reports by running the aggregators of a report
// type concurrently over one resolved scope.
type ReportService struct {
	scopes   scopeResolver
	registry aggregatorRegistry
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      ReportServiceConfig
	now      func() time.Time
	newID    func() string
}

// NewReportService constructs the assembler. cache and metrics may be nil.
func NewReportService(scopes scopeResolver, registry aggregatorRegistry, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		scopes:   scopes,
		registry: registry,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Build resolves the caller scope and assembles the requested report. The
// boolean reports whether the data came from cache.
func (s *ReportService) Build(ctx context.Context, req ReportRequest) (*models.Report, bool, error) {
	names, ok := RequiredAggregators(req.Type)
	if !ok {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report type %q", req.Type))
	}
	scope, err := s.scopes.Resolve(ctx, req.scopeRequest())
	if err != nil {
		return nil, false, err
	}

	key := reportCacheKey(string(req.Type), scope)
	var data models.ReportData
	hit := s.readCache(ctx, key, &data)
	if !hit {
		start := time.Now()
		data, err = s.Assemble(ctx, scope, names)
		s.metrics.RecordReport(req.Type, err)
		if err != nil {
			s.logger.Warn("report assembly failed",
				zap.String("report_type", string(req.Type)),
				zap.String("owner_kind", string(scope.OwnerKind)),
				zap.Error(err))
			return nil, false, err
		}
		s.logger.Debug("report assembled",
			zap.String("report_type", string(req.Type)),
			zap.String("owner_kind", string(scope.OwnerKind)),
			zap.String("owner_id", scope.OwnerID),
			zap.Duration("duration", time.Since(start)))
		s.writeCache(ctx, key, data)
	}

	return &models.Report{
		Metadata: models.ReportMetadata{
			ID:          s.newID(),
			Type:        req.Type,
			GeneratedAt: s.now().UTC(),
			GeneratedBy: req.Actor.ID,
			Period:      models.ReportPeriod{Start: scope.Window.Start, End: scope.Window.End},
			Filters: models.ReportFilters{
				CompanyID:     req.CompanyID,
				InstitutionID: req.InstitutionID,
				UserID:        req.UserID,
				Range:         scope.Window.Label,
			},
		},
		Data: data,
	}, hit, nil
}

// Assemble runs the named aggregators concurrently and merges their output.
// The first failure cancels the remaining runs. Cancellation of ctx is
// observed until merging starts; the merge itself is never interrupted.
func (s *ReportService) Assemble(ctx context.Context, scope models.Scope, names []aggregator.Name) (models.ReportData, error) {
	aggs := make([]aggregator.Aggregator, len(names))
	for i, name := range names {
		agg, ok := s.registry.Get(name)
		if !ok {
			return models.ReportData{}, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("aggregator %s not registered", name))
		}
		aggs[i] = agg
	}

	parts := make([]models.ReportData, len(aggs))
	g, gctx := errgroup.WithContext(ctx)
	for i, agg := range aggs {
		i, agg := i, agg
		g.Go(func() error {
			start := time.Now()
			part, err := agg.Run(gctx, scope)
			s.metrics.ObserveAggregator(string(agg.Name()), time.Since(start), err)
			if err != nil {
				return &aggregatorError{name: agg.Name(), err: err}
			}
			parts[i] = part
			return nil
		})
	}
	err := g.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return models.ReportData{}, appErrors.WrapAs(appErrors.ErrRequestCancelled, ctxErr, "")
	}
	if err != nil {
		var aggErr *aggregatorError
		if errors.As(err, &aggErr) {
			return models.ReportData{}, appErrors.WrapAs(appErrors.ErrAggregationFailure, aggErr, fmt.Sprintf("aggregator %s failed", aggErr.name))
		}
		return models.ReportData{}, appErrors.WrapAs(appErrors.ErrAggregationFailure, err, "")
	}

	var data models.ReportData
	for _, part := range parts {
		aggregator.Merge(&data, part)
	}
	return data, nil
}

func (s *ReportService) readCache(ctx context.Context, key string, dest *models.ReportData) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *ReportService) writeCache(ctx context.Context, key string, data models.ReportData) {
	if s.cache == nil {
		return
	}
	// Detached from ctx so a disconnected caller still populates the cache.
	if err := s.cache.Set(context.WithoutCancel(ctx), key, data, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
}

type aggregatorError struct {
	name aggregator.Name
	err  error
}

func (e *aggregatorError) Error() string {
	return fmt.Sprintf("%s: %v", e.name, e.err)
}

func (e *aggregatorError) Unwrap() error {
	return e.err
}

func reportCacheKey(kind string, scope models.Scope) string {
	return fmt.Sprintf("report:%s:%s:%s:%s", kind, scope.OwnerKind, scope.OwnerID, windowKey(scope.Window))
}

// windowKey renders window bounds to the second, the finest precision a
// caller can request.
func windowKey(w models.Window) string {
	const second = "20060102150405"
	return w.Start.UTC().Format(second) + ":" + w.End.UTC().Format(second)
}
