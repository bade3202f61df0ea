package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/youthhub-metrics-api/internal/aggregator"
	"github.com/noah-isme/youthhub-metrics-api/internal/dto"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
)

var dashboardAggregators = map[models.UserRole][]aggregator.Name{
	models.RoleAdmin:       {aggregator.Overview, aggregator.Engagement, aggregator.JobPlacement},
	models.RoleCompany:     {aggregator.Overview, aggregator.JobPlacement, aggregator.Demographics},
	models.RoleInstitution: {aggregator.Overview, aggregator.CourseCompletion, aggregator.Engagement},
	models.RoleIndividual:  {aggregator.Overview, aggregator.JobPlacement, aggregator.CourseCompletion},
}

// DashboardAggregators returns the aggregators shown to role.
func DashboardAggregators(role models.UserRole) ([]aggregator.Name, bool) {
	names, ok := dashboardAggregators[role]
	return names, ok
}

type reportAssembler interface {
	Assemble(ctx context.Context, scope models.Scope, names []aggregator.Name) (models.ReportData, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes role-specific dashboards from the report
// assembler.
type DashboardService struct {
	scopes    scopeResolver
	assembler reportAssembler
	cache     *CacheService
	logger    *zap.Logger
	now       func() time.Time
	cfg       DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Scopes    scopeResolver
	Assembler reportAssembler
	Cache     *CacheService
	Logger    *zap.Logger
	Config    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		scopes:    params.Scopes,
		assembler: params.Assembler,
		cache:     params.Cache,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Get returns the dashboard of actor and indicates cache utilisation.
func (s *DashboardService) Get(ctx context.Context, actor models.Actor, query dto.DashboardQuery) (*models.Dashboard, bool, error) {
	names, ok := DashboardAggregators(actor.Role)
	if !ok {
		return nil, false, appErrors.ErrUnauthorized
	}
	start, end, err := query.Bounds()
	if err != nil {
		return nil, false, err
	}
	scope, err := s.scopes.Resolve(ctx, ScopeRequest{
		Actor: actor,
		Range: query.Range,
		Start: start,
		End:   end,
	})
	if err != nil {
		return nil, false, err
	}

	key := dashboardCacheKey(actor.Role, scope)
	var data models.ReportData
	hit := false
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key, &data)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		}
		hit = cached && err == nil
	}
	if !hit {
		data, err = s.assembler.Assemble(ctx, scope, names)
		if err != nil {
			return nil, false, err
		}
		s.persistCache(ctx, key, data)
	}

	return &models.Dashboard{
		Role:        actor.Role,
		GeneratedAt: s.now().UTC(),
		Period:      models.ReportPeriod{Start: scope.Window.Start, End: scope.Window.End},
		Data:        data,
	}, hit, nil
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(context.WithoutCancel(ctx), key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func dashboardCacheKey(role models.UserRole, scope models.Scope) string {
	return fmt.Sprintf("dashboard:%s:%s:%s:%s", role, scope.OwnerKind, scope.OwnerID, windowKey(scope.Window))
}
