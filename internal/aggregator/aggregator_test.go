package aggregator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/youthhub-metrics-api/internal/metric"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

var asOfTime = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func strPtr(v string) *string { return &v }

func timePtr(v time.Time) *time.Time { return &v }

func floatPtr(v float64) *float64 { return &v }

type fakeApplications struct {
	items   []models.Application
	err     error
	filters []models.ApplicationFilter
}

func (f *fakeApplications) List(_ context.Context, filter models.ApplicationFilter) ([]models.Application, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Application, 0)
	for _, app := range f.items {
		if filter.CompanyID != "" && app.CompanyID != filter.CompanyID {
			continue
		}
		if filter.ApplicantID != "" && app.ApplicantID != filter.ApplicantID {
			continue
		}
		if filter.Window.Contains(app.AppliedAt) {
			out = append(out, app)
		}
	}
	return out, nil
}

func (f *fakeApplications) Count(ctx context.Context, filter models.ApplicationFilter) (int, error) {
	items, err := f.List(ctx, filter)
	return len(items), err
}

type fakeEnrollments struct {
	items []models.Enrollment
}

func (f *fakeEnrollments) List(_ context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	out := make([]models.Enrollment, 0)
	for _, e := range f.items {
		if filter.Window.Contains(e.EnrolledAt) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEnrollments) Count(ctx context.Context, filter models.EnrollmentFilter) (int, error) {
	items, err := f.List(ctx, filter)
	return len(items), err
}

type fakeMessages struct {
	items []models.Message
}

func (f *fakeMessages) List(_ context.Context, filter models.MessageFilter) ([]models.Message, error) {
	out := make([]models.Message, 0)
	for _, m := range f.items {
		if filter.ParticipantID != "" && m.SenderID != filter.ParticipantID && m.RecipientID != filter.ParticipantID {
			continue
		}
		if filter.Window.Contains(m.CreatedAt) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessages) Count(ctx context.Context, filter models.MessageFilter) (int, error) {
	items, err := f.List(ctx, filter)
	return len(items), err
}

type fakeCertificates struct {
	count int
}

func (f *fakeCertificates) Count(context.Context, models.CertificateFilter) (int, error) {
	return f.count, nil
}

func reportWindow() models.Window {
	return models.Window{Start: asOfTime.AddDate(0, 0, -30), End: asOfTime, Label: "30d"}
}

func applications(n, hired int, at time.Time) []models.Application {
	out := make([]models.Application, 0, n)
	for i := 0; i < n; i++ {
		status := models.ApplicationSubmitted
		if i < hired {
			status = models.ApplicationHired
		}
		out = append(out, models.Application{
			ID:          fmt.Sprintf("app-%d", i),
			ApplicantID: fmt.Sprintf("user-%d", i),
			CompanyID:   "acme",
			CompanyName: strPtr("Acme"),
			Status:      status,
			AppliedAt:   at,
		})
	}
	return out
}

func TestJobPlacementPlacementRate(t *testing.T) {
	stats := ComputeJobPlacement(applications(10, 3, asOfTime), 5)

	assert.Equal(t, 10, stats.TotalApplications)
	assert.Equal(t, 30.0, stats.PlacementRate)
	assert.Equal(t, 3, stats.StatusDistribution["hired"])
	assert.Equal(t, 7, stats.StatusDistribution["submitted"])
	assert.Equal(t, 0, stats.StatusDistribution["rejected"])
	assert.Equal(t, 0, stats.StatusDistribution[metric.Unknown])
}

func TestJobPlacementSameMonthSingleBucket(t *testing.T) {
	apps := []models.Application{
		{ID: "a", Status: models.ApplicationSubmitted, AppliedAt: time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)},
		{ID: "b", Status: models.ApplicationSubmitted, AppliedAt: time.Date(2026, 5, 28, 18, 0, 0, 0, time.UTC)},
	}

	stats := ComputeJobPlacement(apps, 5)

	require.Len(t, stats.ApplicationsByMonth, 1)
	assert.Equal(t, models.MonthCount{Month: "2026-05", Count: 2}, stats.ApplicationsByMonth[0])
}

func TestJobPlacementFunnelAndReviewTime(t *testing.T) {
	applied := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	apps := []models.Application{
		{ID: "1", Status: models.ApplicationSubmitted, AppliedAt: applied},
		{ID: "2", Status: models.ApplicationUnderReview, AppliedAt: applied, ReviewedAt: timePtr(applied.Add(36 * time.Hour))},
		{ID: "3", Status: models.ApplicationRejected, AppliedAt: applied, ReviewedAt: timePtr(applied.Add(72 * time.Hour))},
		{ID: "4", Status: models.ApplicationPreSelected, AppliedAt: applied},
		{ID: "5", Status: models.ApplicationHired, AppliedAt: applied, CompanyName: strPtr("Globex"), ExperienceLevel: strPtr("junior")},
		{ID: "6", Status: "archived", AppliedAt: applied},
	}

	stats := ComputeJobPlacement(apps, 5)

	assert.Equal(t, []models.FunnelStage{
		{Stage: StageSubmitted, Count: 6, Percentage: 100},
		{Stage: StageReviewed, Count: 4, Percentage: 67},
		{Stage: StagePreSelected, Count: 2, Percentage: 33},
		{Stage: StageHired, Count: 1, Percentage: 17},
	}, stats.Funnel)
	require.NotNil(t, stats.AverageDaysToReview)
	assert.Equal(t, 2.0, *stats.AverageDaysToReview)
	assert.Equal(t, 1, stats.StatusDistribution[metric.Unknown])
	assert.Equal(t, []metric.Ranked{{Label: metric.Unknown, Count: 5}, {Label: "Globex", Count: 1}}, stats.TopCompanies)
	assert.Equal(t, []metric.Ranked{{Label: metric.Unknown, Count: 5}, {Label: "junior", Count: 1}}, stats.TopCategories)
}

func TestJobPlacementEmpty(t *testing.T) {
	stats := ComputeJobPlacement(nil, 5)

	assert.Equal(t, 0.0, stats.PlacementRate)
	assert.Nil(t, stats.AverageDaysToReview)
	assert.Empty(t, stats.ApplicationsByMonth)
	assert.Equal(t, 0.0, stats.Funnel[0].Percentage)
}

func TestCourseCompletionZeroEnrollments(t *testing.T) {
	stats := ComputeCourseCompletion(nil, 0, 5)

	assert.Equal(t, 0.0, stats.CompletionRate)
	assert.Equal(t, 0.0, stats.AverageProgress)
	assert.Nil(t, stats.AverageDaysToComplete)
	assert.Empty(t, stats.TopCourses)
}

func TestCourseCompletionIgnoresStatusStrings(t *testing.T) {
	enrolled := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	done := enrolled.Add(10 * 24 * time.Hour)
	enrollments := []models.Enrollment{
		{ID: "1", CourseID: "go", CourseTitle: strPtr("Go Basics"), Status: strPtr("completed"), EnrolledAt: enrolled, Progress: floatPtr(100)},
		{ID: "2", CourseID: "go", CourseTitle: strPtr("Go Basics"), Status: strPtr("in-progress"), EnrolledAt: enrolled, CompletedAt: &done, Progress: floatPtr(100)},
		{ID: "3", CourseID: "sql", CourseTitle: strPtr("SQL"), EnrolledAt: enrolled, Progress: floatPtr(250)},
		{ID: "4", CourseID: "sql", CourseTitle: strPtr("SQL"), EnrolledAt: enrolled},
	}

	stats := ComputeCourseCompletion(enrollments, 7, 5)

	assert.Equal(t, 1, stats.CompletedEnrollments)
	assert.Equal(t, 25.0, stats.CompletionRate)
	assert.Equal(t, 75.0, stats.AverageProgress)
	assert.Equal(t, 7, stats.CertificatesIssued)
	require.NotNil(t, stats.AverageDaysToComplete)
	assert.Equal(t, 10.0, *stats.AverageDaysToComplete)
	require.Len(t, stats.TopCourses, 2)
	assert.Equal(t, models.CourseRanking{CourseID: "go", Title: "Go Basics", Enrollments: 2, Completions: 1, CompletionRate: 50}, stats.TopCourses[0])
	assert.Equal(t, "sql", stats.TopCourses[1].CourseID)
}

func TestEntrepreneurshipSafeCoercion(t *testing.T) {
	plans := []models.BusinessPlan{
		{ID: "1", Status: "draft", Content: models.PlanContent{"fundingGoal": 1000.0, "currentFunding": "250", "industry": "Agritech"}},
		{ID: "2", Status: "published", Content: models.PlanContent{"fundingGoal": "lots", "currentFunding": true, "industry": ""}},
		{ID: "3", Status: "", Content: nil},
	}

	stats := ComputeEntrepreneurship(plans, 5)

	assert.Equal(t, 3, stats.TotalPlans)
	assert.Equal(t, 1000.0, stats.TotalFundingGoal)
	assert.Equal(t, 250.0, stats.TotalCurrentFunding)
	assert.Equal(t, 333.33, stats.AverageFundingGoal)
	assert.Equal(t, 25.0, stats.FundingProgress)
	assert.Equal(t, map[string]int{"draft": 1, "published": 1, metric.Unknown: 1}, stats.StatusDistribution)
	assert.Equal(t, []metric.Ranked{{Label: metric.Unknown, Count: 2}, {Label: "Agritech", Count: 1}}, stats.TopIndustries)
}

func TestDemographicsBuckets(t *testing.T) {
	birth := func(y, m, d int) *time.Time { return timePtr(time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)) }
	year := func(y int) *int { return &y }
	profiles := []models.Profile{
		{ID: "teen", BirthDate: birth(2010, 1, 1), GraduationYear: year(2028), City: strPtr("Bandung")},
		{ID: "almost-18", BirthDate: birth(2008, 10, 15), City: strPtr("Bandung")},
		{ID: "just-18", BirthDate: birth(2008, 10, 14), GraduationYear: year(2026)},
		{ID: "mid", BirthDate: birth(1990, 6, 1), GraduationYear: year(2012), City: strPtr("Jakarta")},
		{ID: "senior", BirthDate: birth(1960, 6, 1), GraduationYear: year(1020)},
		{ID: "blank"},
	}

	stats := ComputeDemographics(profiles, asOfTime, 5)

	assert.Equal(t, 6, stats.TotalProfiles)
	assert.Equal(t, 2, stats.AgeGroups[AgeUnder18])
	assert.Equal(t, 1, stats.AgeGroups[Age18To24])
	assert.Equal(t, 1, stats.AgeGroups[Age35To44])
	assert.Equal(t, 1, stats.AgeGroups[Age55Plus])
	assert.Equal(t, 1, stats.AgeGroups[metric.Unknown])
	assert.Equal(t, 0, stats.AgeGroups[Age45To54])
	assert.Len(t, stats.AgeGroups, 7)

	assert.Equal(t, 1, stats.TenureGroups[TenureNotGraduated])
	assert.Equal(t, 1, stats.TenureGroups[Tenure0To1])
	assert.Equal(t, 1, stats.TenureGroups[Tenure10Plus])
	assert.Equal(t, 3, stats.TenureGroups[metric.Unknown])

	assert.Equal(t, []metric.Ranked{{Label: metric.Unknown, Count: 3}, {Label: "Bandung", Count: 2}, {Label: "Jakarta", Count: 1}}, stats.TopCities)
}

func TestEngagementTrailingWindowsAnchorOnNow(t *testing.T) {
	window := models.Window{Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)}
	activity := []Activity{
		{UserID: "a", At: asOfTime.Add(-2 * time.Hour)},
		{UserID: "a", At: asOfTime.Add(-3 * time.Hour)},
		{UserID: "b", At: asOfTime.Add(-5 * 24 * time.Hour)},
		{UserID: "c", At: asOfTime.Add(-20 * 24 * time.Hour)},
		{UserID: "d", At: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
	}
	messages := []models.Message{
		{ID: "m1", SenderID: "d", CreatedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
		{ID: "m2", SenderID: "a", CreatedAt: asOfTime},
	}

	stats := ComputeEngagement(activity, messages, window, asOfTime)

	assert.Equal(t, []models.ActivityWindow{
		{Window: "1d", ActiveUsers: 1},
		{Window: "7d", ActiveUsers: 2},
		{Window: "30d", ActiveUsers: 3},
		{Window: PeriodWindow, ActiveUsers: 1},
	}, stats.ActivityWindows)
	assert.Equal(t, 1, stats.ActiveUsers)
	assert.Equal(t, 1, stats.MessagesSent)
	assert.Equal(t, models.MeasurementNotYetInstrumented, stats.AverageSessionDuration.Status)
	assert.Nil(t, stats.AverageSessionDuration.Value)
}

func TestEngagementRunFetchesHullOnce(t *testing.T) {
	apps := &fakeApplications{items: applications(2, 0, asOfTime.Add(-time.Hour))}
	registry := NewRegistry(Sources{Applications: apps}, Options{})
	window := models.Window{Start: asOfTime.AddDate(0, -6, 0), End: asOfTime.AddDate(0, -5, 0)}
	scope := models.Scope{Window: window, AsOf: asOfTime, Applications: &models.ApplicationFilter{Window: window}}

	agg, ok := registry.Get(Engagement)
	require.True(t, ok)
	data, err := agg.Run(context.Background(), scope)
	require.NoError(t, err)

	require.Len(t, apps.filters, 1)
	assert.Equal(t, window.Start, apps.filters[0].Window.Start)
	assert.Equal(t, asOfTime, apps.filters[0].Window.End)
	require.NotNil(t, data.Engagement)
	assert.Equal(t, 2, data.Engagement.ActivityWindows[0].ActiveUsers)
	assert.Equal(t, 0, data.Engagement.ActiveUsers)
}

func TestEngagementIgnoresSendersOutsideScope(t *testing.T) {
	window := reportWindow()
	apps := &fakeApplications{items: []models.Application{
		{ID: "a1", ApplicantID: "acme-applicant", CompanyID: "acme", AppliedAt: asOfTime.Add(-time.Hour)},
		{ID: "a2", ApplicantID: "globex-applicant", CompanyID: "globex", AppliedAt: asOfTime.Add(-time.Hour)},
	}}
	msgs := &fakeMessages{items: []models.Message{
		{ID: "m1", SenderID: "recruiter-from-globex", RecipientID: "acme-owner", CreatedAt: asOfTime.Add(-2 * time.Hour)},
		{ID: "m2", SenderID: "someone-else", RecipientID: "another-user", CreatedAt: asOfTime.Add(-2 * time.Hour)},
	}}
	registry := NewRegistry(Sources{Applications: apps, Messages: msgs}, Options{})
	scope := models.Scope{
		Window:       window,
		AsOf:         asOfTime,
		OwnerKind:    models.OwnerCompany,
		OwnerID:      "acme",
		Applications: &models.ApplicationFilter{Window: window, CompanyID: "acme"},
		Messages:     &models.MessageFilter{Window: window, ParticipantID: "acme-owner"},
	}

	agg, _ := registry.Get(Engagement)
	data, err := agg.Run(context.Background(), scope)
	require.NoError(t, err)

	for _, w := range data.Engagement.ActivityWindows {
		assert.Equal(t, 1, w.ActiveUsers, w.Window)
	}
	assert.Equal(t, 0, data.Engagement.MessagesSent)

	msgs.items = append(msgs.items, models.Message{ID: "m3", SenderID: "acme-owner", RecipientID: "recruiter-from-globex", CreatedAt: asOfTime.Add(-time.Hour)})
	data, err = agg.Run(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Engagement.ActiveUsers)
	assert.Equal(t, 1, data.Engagement.MessagesSent)
}

func TestOverviewSkipsOutOfScopeSources(t *testing.T) {
	window := reportWindow()
	apps := &fakeApplications{items: applications(4, 1, asOfTime.Add(-time.Hour))}
	registry := NewRegistry(Sources{
		Applications: apps,
		Enrollments:  &fakeEnrollments{items: []models.Enrollment{{ID: "e", EnrolledAt: asOfTime}}},
		Messages:     &fakeMessages{items: []models.Message{{ID: "m", CreatedAt: asOfTime}}},
		Certificates: &fakeCertificates{count: 9},
	}, Options{})
	scope := models.Scope{
		Window:       window,
		AsOf:         asOfTime,
		Applications: &models.ApplicationFilter{Window: window, CompanyID: "acme"},
		Messages:     &models.MessageFilter{Window: window},
	}

	agg, _ := registry.Get(Overview)
	data, err := agg.Run(context.Background(), scope)
	require.NoError(t, err)

	assert.Equal(t, models.OverviewStats{Applications: 4, Messages: 1}, *data.Overview)
}

func TestAggregatorPropagatesSourceErrors(t *testing.T) {
	window := reportWindow()
	boom := errors.New("connection reset")
	registry := NewRegistry(Sources{Applications: &fakeApplications{err: boom}}, Options{})
	scope := models.Scope{Window: window, AsOf: asOfTime, Applications: &models.ApplicationFilter{Window: window}}

	agg, _ := registry.Get(JobPlacement)
	_, err := agg.Run(context.Background(), scope)
	assert.ErrorIs(t, err, boom)

	scope.Enrollments = &models.EnrollmentFilter{Window: window}
	agg, _ = registry.Get(CourseCompletion)
	_, err = agg.Run(context.Background(), scope)
	assert.Error(t, err)
}

func TestMergeByFixedKey(t *testing.T) {
	var data models.ReportData
	revenue := ComputeRevenue()
	Merge(&data, models.ReportData{Revenue: &revenue})
	Merge(&data, models.ReportData{Overview: &models.OverviewStats{Applications: 2}})

	assert.NotNil(t, data.Revenue)
	assert.Equal(t, 2, data.Overview.Applications)
	assert.Nil(t, data.Demographics)
}
