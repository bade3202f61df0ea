package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/noah-isme/youthhub-metrics-api/internal/aggregator"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
)

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type fakeOrgs struct {
	companies    map[string]*models.Company
	institutions map[string]*models.Institution
	err          error
}

func newFakeOrgs() *fakeOrgs {
	return &fakeOrgs{
		companies: map[string]*models.Company{
			"company-1": {ID: "company-1", Name: "Acme", OwnerID: "owner-1"},
			"company-2": {ID: "company-2", Name: "Globex", OwnerID: "owner-2"},
		},
		institutions: map[string]*models.Institution{
			"inst-1": {ID: "inst-1", Name: "Northside", AdminID: "admin-inst-1"},
		},
	}
}

func (f *fakeOrgs) CompanyByOwner(ctx context.Context, ownerID string) (*models.Company, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.companies {
		if c.OwnerID == ownerID {
			return c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeOrgs) CompanyByID(ctx context.Context, id string) (*models.Company, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.companies[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeOrgs) InstitutionByAdmin(ctx context.Context, adminID string) (*models.Institution, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, i := range f.institutions {
		if i.AdminID == adminID {
			return i, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeOrgs) InstitutionByID(ctx context.Context, id string) (*models.Institution, error) {
	if f.err != nil {
		return nil, f.err
	}
	if i, ok := f.institutions[id]; ok {
		return i, nil
	}
	return nil, sql.ErrNoRows
}

func newTestScopes() *ScopeService {
	s := NewScopeService(newFakeOrgs())
	s.now = func() time.Time { return fixedNow }
	return s
}

// stubAggregator returns a fixed entry, or blocks until the context ends
// when block is set.
type stubAggregator struct {
	name  aggregator.Name
	data  models.ReportData
	err   error
	block bool

	mu     sync.Mutex
	calls  int
	scopes []models.Scope
}

func (s *stubAggregator) Name() aggregator.Name { return s.name }

func (s *stubAggregator) Run(ctx context.Context, scope models.Scope) (models.ReportData, error) {
	s.mu.Lock()
	s.calls++
	s.scopes = append(s.scopes, scope)
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return models.ReportData{}, ctx.Err()
	}
	if s.err != nil {
		return models.ReportData{}, s.err
	}
	return s.data, nil
}

func (s *stubAggregator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func stubFor(name aggregator.Name) *stubAggregator {
	stub := &stubAggregator{name: name}
	switch name {
	case aggregator.Overview:
		stub.data.Overview = &models.OverviewStats{Applications: 3, Enrollments: 2}
	case aggregator.Engagement:
		stub.data.Engagement = &models.EngagementStats{
			ActiveUsers:            4,
			ActivityWindows:        []models.ActivityWindow{{Window: "7d", ActiveUsers: 2}, {Window: "30d", ActiveUsers: 4}},
			AverageSessionDuration: models.NotYetInstrumented(),
		}
	case aggregator.JobPlacement:
		stub.data.JobPlacement = &models.JobPlacementStats{TotalApplications: 3, StatusDistribution: map[string]int{"PENDING": 3}}
	case aggregator.CourseCompletion:
		stub.data.CourseCompletion = &models.CourseCompletionStats{
			TotalEnrollments: 2,
			TopCourses:       []models.CourseRanking{{CourseID: "c1", Title: "Go 101", Enrollments: 2, Completions: 1, CompletionRate: 50}},
		}
	case aggregator.Entrepreneurship:
		stub.data.Entrepreneurship = &models.EntrepreneurshipStats{TotalPlans: 1}
	case aggregator.Revenue:
		stub.data.Revenue = &models.RevenueStats{TotalRevenue: models.NotYetInstrumented()}
	case aggregator.Demographics:
		stub.data.Demographics = &models.DemographicsStats{TotalProfiles: 5}
	}
	return stub
}

func stubRegistry() (*aggregator.Registry, map[aggregator.Name]*stubAggregator) {
	stubs := make(map[aggregator.Name]*stubAggregator, len(aggregator.All))
	aggs := make([]aggregator.Aggregator, 0, len(aggregator.All))
	for _, name := range aggregator.All {
		stub := stubFor(name)
		stubs[name] = stub
		aggs = append(aggs, stub)
	}
	return aggregator.NewRegistryFrom(aggs...), stubs
}

// memoryCache is a CacheRepository kept in process memory.
type memoryCache struct {
	mu     sync.Mutex
	items  map[string][]byte
	getErr error
	sets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	m.sets++
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = map[string][]byte{}
	return nil
}

func (m *memoryCache) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}
