package aggregator

import (
	"context"
	"fmt"
	"sort"

	"github.com/noah-isme/youthhub-metrics-api/internal/metric"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// Funnel stage labels, in pipeline order.
const (
	StageSubmitted   = "submitted"
	StageReviewed    = "reviewed"
	StagePreSelected = "pre-selected"
	StageHired       = "hired"
)

type jobPlacementAggregator struct {
	src  ApplicationSource
	topN int
}

func (a *jobPlacementAggregator) Name() Name { return JobPlacement }

func (a *jobPlacementAggregator) Run(ctx context.Context, scope models.Scope) (models.ReportData, error) {
	var apps []models.Application
	if f := scope.Applications; f != nil {
		if a.src == nil {
			return models.ReportData{}, errSourceMissing("applications")
		}
		var err error
		if apps, err = a.src.List(ctx, *f); err != nil {
			return models.ReportData{}, fmt.Errorf("list applications: %w", err)
		}
	}
	stats := ComputeJobPlacement(apps, a.topN)
	return models.ReportData{JobPlacement: &stats}, nil
}

// ComputeJobPlacement derives pipeline statistics from applications.
// Unrecognised statuses are counted under Unknown.
func ComputeJobPlacement(apps []models.Application, topN int) models.JobPlacementStats {
	distribution := make(map[string]int, len(models.ApplicationStatuses)+1)
	for _, s := range models.ApplicationStatuses {
		distribution[string(s)] = 0
	}
	distribution[metric.Unknown] = 0

	byMonth := make(map[string]int)
	companies := make(map[string]int)
	categories := make(map[string]int)
	var reviewed, preSelected, hired int
	var reviewDays, reviewSamples int

	for _, app := range apps {
		status := app.Status
		if isKnownStatus(status) {
			distribution[string(status)]++
		} else {
			distribution[metric.Unknown]++
		}

		byMonth[metric.MonthKey(app.AppliedAt)]++
		companies[metric.Label(app.CompanyName)]++
		categories[metric.Label(app.ExperienceLevel)]++

		if app.ReviewedAt != nil || (status != models.ApplicationSubmitted && isKnownStatus(status)) {
			reviewed++
		}
		if status == models.ApplicationPreSelected || status == models.ApplicationHired {
			preSelected++
		}
		if status == models.ApplicationHired {
			hired++
		}
		applied := app.AppliedAt
		if days := metric.DayDelta(&applied, app.ReviewedAt); days != nil {
			reviewDays += *days
			reviewSamples++
		}
	}

	total := len(apps)
	stats := models.JobPlacementStats{
		TotalApplications:   total,
		StatusDistribution:  distribution,
		ApplicationsByMonth: monthSeries(byMonth),
		PlacementRate:       metric.Rate(hired, total),
		Funnel: []models.FunnelStage{
			{Stage: StageSubmitted, Count: total, Percentage: metric.Rate(total, total)},
			{Stage: StageReviewed, Count: reviewed, Percentage: metric.Rate(reviewed, total)},
			{Stage: StagePreSelected, Count: preSelected, Percentage: metric.Rate(preSelected, total)},
			{Stage: StageHired, Count: hired, Percentage: metric.Rate(hired, total)},
		},
		TopCompanies:  metric.TopN(companies, topN),
		TopCategories: metric.TopN(categories, topN),
	}
	if reviewSamples > 0 {
		avg := metric.Round2(metric.SafeDivide(float64(reviewDays), float64(reviewSamples)))
		stats.AverageDaysToReview = &avg
	}
	return stats
}

func isKnownStatus(s models.ApplicationStatus) bool {
	for _, known := range models.ApplicationStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func monthSeries(byMonth map[string]int) []models.MonthCount {
	series := make([]models.MonthCount, 0, len(byMonth))
	for month, count := range byMonth {
		series = append(series, models.MonthCount{Month: month, Count: count})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Month < series[j].Month })
	return series
}
