package aggregator

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/noah-isme/youthhub-metrics-api/internal/metric"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

type courseCompletionAggregator struct {
	enrollments  EnrollmentSource
	certificates CertificateSource
	topN         int
}

func (a *courseCompletionAggregator) Name() Name { return CourseCompletion }

func (a *courseCompletionAggregator) Run(ctx context.Context, scope models.Scope) (models.ReportData, error) {
	var enrollments []models.Enrollment
	if f := scope.Enrollments; f != nil {
		if a.enrollments == nil {
			return models.ReportData{}, errSourceMissing("enrollments")
		}
		var err error
		if enrollments, err = a.enrollments.List(ctx, *f); err != nil {
			return models.ReportData{}, fmt.Errorf("list enrollments: %w", err)
		}
	}

	certificates := 0
	if f := scope.Certificates; f != nil {
		if a.certificates == nil {
			return models.ReportData{}, errSourceMissing("certificates")
		}
		var err error
		if certificates, err = a.certificates.Count(ctx, *f); err != nil {
			return models.ReportData{}, fmt.Errorf("count certificates: %w", err)
		}
	}

	stats := ComputeCourseCompletion(enrollments, certificates, a.topN)
	return models.ReportData{CourseCompletion: &stats}, nil
}

// ComputeCourseCompletion derives completion statistics. An enrollment is
// complete exactly when it has a completion timestamp; missing progress
// counts as 0.
func ComputeCourseCompletion(enrollments []models.Enrollment, certificatesIssued, topN int) models.CourseCompletionStats {
	type courseAcc struct {
		title       string
		enrollments int
		completions int
	}
	courses := make(map[string]*courseAcc)

	var completed int
	var progressSum float64
	var completionDays, completionSamples int

	for _, e := range enrollments {
		acc, ok := courses[e.CourseID]
		if !ok {
			acc = &courseAcc{title: metric.Label(e.CourseTitle)}
			courses[e.CourseID] = acc
		}
		acc.enrollments++

		if e.Progress != nil {
			progressSum += clampProgress(*e.Progress)
		}
		if !e.Completed() {
			continue
		}
		completed++
		acc.completions++
		enrolled := e.EnrolledAt
		if days := metric.DayDelta(&enrolled, e.CompletedAt); days != nil {
			completionDays += *days
			completionSamples++
		}
	}

	ranking := make([]models.CourseRanking, 0, len(courses))
	for id, acc := range courses {
		ranking = append(ranking, models.CourseRanking{
			CourseID:       id,
			Title:          acc.title,
			Enrollments:    acc.enrollments,
			Completions:    acc.completions,
			CompletionRate: metric.Rate(acc.completions, acc.enrollments),
		})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Enrollments != ranking[j].Enrollments {
			return ranking[i].Enrollments > ranking[j].Enrollments
		}
		if ranking[i].Title != ranking[j].Title {
			return ranking[i].Title < ranking[j].Title
		}
		return ranking[i].CourseID < ranking[j].CourseID
	})
	if topN > 0 && len(ranking) > topN {
		ranking = ranking[:topN]
	}

	total := len(enrollments)
	stats := models.CourseCompletionStats{
		TotalEnrollments:     total,
		CompletedEnrollments: completed,
		CompletionRate:       metric.Rate(completed, total),
		AverageProgress:      metric.Round2(metric.SafeDivide(progressSum, float64(total))),
		CertificatesIssued:   certificatesIssued,
		TopCourses:           ranking,
	}
	if completionSamples > 0 {
		avg := metric.Round2(metric.SafeDivide(float64(completionDays), float64(completionSamples)))
		stats.AverageDaysToComplete = &avg
	}
	return stats
}

func clampProgress(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
