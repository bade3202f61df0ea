package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/youthhub-metrics-api/internal/aggregator"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
)

func newTestReportService(cache *CacheService) (*ReportService, map[aggregator.Name]*stubAggregator) {
	registry, stubs := stubRegistry()
	svc := NewReportService(newTestScopes(), registry, cache, NewMetricsService(), nil, ReportServiceConfig{CacheTTL: time.Minute})
	svc.now = func() time.Time { return fixedNow }
	return svc, stubs
}

var admin = models.Actor{ID: "root", Role: models.RoleAdmin}

func TestBuildRunsOnlyRequiredAggregators(t *testing.T) {
	svc, stubs := newTestReportService(nil)

	report, hit, err := svc.Build(context.Background(), ReportRequest{Type: models.ReportJobPlacement, Actor: admin})
	require.NoError(t, err)
	assert.False(t, hit)

	assert.NotNil(t, report.Data.Overview)
	assert.NotNil(t, report.Data.JobPlacement)
	assert.Nil(t, report.Data.Demographics)
	assert.Nil(t, report.Data.Engagement)
	assert.Equal(t, 1, stubs[aggregator.Overview].callCount())
	assert.Equal(t, 1, stubs[aggregator.JobPlacement].callCount())
	assert.Zero(t, stubs[aggregator.Demographics].callCount())

	assert.Equal(t, models.ReportJobPlacement, report.Metadata.Type)
	assert.Equal(t, "root", report.Metadata.GeneratedBy)
	assert.Equal(t, fixedNow, report.Metadata.GeneratedAt)
	assert.Equal(t, DefaultRange, report.Metadata.Filters.Range)
	assert.Equal(t, fixedNow.AddDate(0, 0, -30), report.Metadata.Period.Start)
	assert.NotEmpty(t, report.Metadata.ID)
}

func TestBuildComprehensiveHasEveryEntry(t *testing.T) {
	svc, _ := newTestReportService(nil)

	report, _, err := svc.Build(context.Background(), ReportRequest{Type: models.ReportComprehensive, Actor: admin})
	require.NoError(t, err)
	d := report.Data
	for name, present := range map[string]bool{
		"overview":         d.Overview != nil,
		"engagement":       d.Engagement != nil,
		"jobPlacement":     d.JobPlacement != nil,
		"courseCompletion": d.CourseCompletion != nil,
		"entrepreneurship": d.Entrepreneurship != nil,
		"revenue":          d.Revenue != nil,
		"demographics":     d.Demographics != nil,
	} {
		assert.True(t, present, name)
	}
}

func TestBuildSharesOneScopeAcrossAggregators(t *testing.T) {
	svc, stubs := newTestReportService(nil)

	_, _, err := svc.Build(context.Background(), ReportRequest{
		Type:  models.ReportComprehensive,
		Actor: models.Actor{ID: "owner-1", Role: models.RoleCompany},
	})
	require.NoError(t, err)

	var first models.Scope
	for i, name := range aggregator.All {
		scopes := stubs[name].scopes
		require.Len(t, scopes, 1, name)
		if i == 0 {
			first = scopes[0]
			continue
		}
		assert.Equal(t, first, scopes[0], name)
	}
	assert.Equal(t, "company-1", first.OwnerID)
}

func TestBuildIsIdempotentApartFromMetadata(t *testing.T) {
	svc, _ := newTestReportService(nil)
	req := ReportRequest{Type: models.ReportStudentEngagement, Actor: admin}

	a, _, err := svc.Build(context.Background(), req)
	require.NoError(t, err)
	b, _, err := svc.Build(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a.Data, b.Data)
	assert.NotEqual(t, a.Metadata.ID, b.Metadata.ID)
}

func TestBuildRejectsUnknownType(t *testing.T) {
	svc, _ := newTestReportService(nil)
	_, _, err := svc.Build(context.Background(), ReportRequest{Type: "weekly-digest", Actor: admin})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestBuildPropagatesScopeErrors(t *testing.T) {
	svc, stubs := newTestReportService(nil)
	_, _, err := svc.Build(context.Background(), ReportRequest{
		Type:   models.ReportJobPlacement,
		Actor:  models.Actor{ID: "owner-1", Role: models.RoleCompany},
		UserID: "kid-1",
	})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Zero(t, stubs[aggregator.Overview].callCount())
}

func TestAssembleFailureIsAggregationFailure(t *testing.T) {
	svc, stubs := newTestReportService(nil)
	stubs[aggregator.Demographics].err = errors.New("profiles table locked")

	_, _, err := svc.Build(context.Background(), ReportRequest{Type: models.ReportStudentEngagement, Actor: admin})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrAggregationFailure))
	assert.Contains(t, err.Error(), "demographics")
}

func TestAssembleCancellation(t *testing.T) {
	svc, stubs := newTestReportService(nil)
	stubs[aggregator.Engagement].block = true

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, _, err := svc.Build(ctx, ReportRequest{Type: models.ReportStudentEngagement, Actor: admin})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrRequestCancelled))
}

func TestAssembleUnregisteredAggregator(t *testing.T) {
	svc := NewReportService(newTestScopes(), aggregator.NewRegistryFrom(stubFor(aggregator.Overview)), nil, nil, nil, ReportServiceConfig{})
	_, _, err := svc.Build(context.Background(), ReportRequest{Type: models.ReportJobPlacement, Actor: admin})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestBuildServesSecondCallFromCache(t *testing.T) {
	repo := newMemoryCache()
	svc, stubs := newTestReportService(NewCacheService(repo, nil, time.Minute, nil, true))
	req := ReportRequest{Type: models.ReportCompletionAnalysis, Actor: admin}

	first, hit, err := svc.Build(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, repo.setCount())

	second, hit, err := svc.Build(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, stubs[aggregator.CourseCompletion].callCount())
	assert.Equal(t, first.Data, second.Data)
}

func TestBuildIgnoresCacheFailures(t *testing.T) {
	repo := newMemoryCache()
	repo.getErr = errors.New("redis down")
	svc, _ := newTestReportService(NewCacheService(repo, nil, time.Minute, nil, true))

	report, hit, err := svc.Build(context.Background(), ReportRequest{Type: models.ReportCompletionAnalysis, Actor: admin})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, report.Data.CourseCompletion)
}

func TestReportCacheKeySeparatesOwners(t *testing.T) {
	w := models.Window{Start: fixedNow.Add(-time.Hour), End: fixedNow}
	a := reportCacheKey("job-placement", models.Scope{OwnerKind: models.OwnerCompany, OwnerID: "company-1", Window: w})
	b := reportCacheKey("job-placement", models.Scope{OwnerKind: models.OwnerCompany, OwnerID: "company-2", Window: w})
	assert.NotEqual(t, a, b)
	assert.Equal(t, "report:job-placement:company:company-1:20261014110000:20261014120000", a)
}

func TestBuildKeepsWindowsSecondsApartSeparate(t *testing.T) {
	repo := newMemoryCache()
	svc, stubs := newTestReportService(NewCacheService(repo, nil, time.Minute, nil, true))
	start := fixedNow.Add(-time.Hour)
	end := fixedNow.Add(-10 * time.Minute)
	later := end.Add(30 * time.Second)

	_, hit, err := svc.Build(context.Background(), ReportRequest{Type: models.ReportCompletionAnalysis, Actor: admin, Start: &start, End: &end})
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = svc.Build(context.Background(), ReportRequest{Type: models.ReportCompletionAnalysis, Actor: admin, Start: &start, End: &later})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, stubs[aggregator.CourseCompletion].callCount())
	assert.Equal(t, 2, repo.setCount())
}
