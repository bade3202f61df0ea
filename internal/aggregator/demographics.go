package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/youthhub-metrics-api/internal/metric"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// Age groups, lower bound inclusive.
const (
	AgeUnder18 = "Under 18"
	Age18To24  = "18-24"
	Age25To34  = "25-34"
	Age35To44  = "35-44"
	Age45To54  = "45-54"
	Age55Plus  = "55+"
)

// Tenure groups count whole years since graduation.
const (
	TenureNotGraduated = "Not graduated"
	Tenure0To1         = "0-1 years"
	Tenure2To4         = "2-4 years"
	Tenure5To9         = "5-9 years"
	Tenure10Plus       = "10+ years"
)

var (
	ageGroups    = []string{AgeUnder18, Age18To24, Age25To34, Age35To44, Age45To54, Age55Plus, metric.Unknown}
	tenureGroups = []string{TenureNotGraduated, Tenure0To1, Tenure2To4, Tenure5To9, Tenure10Plus, metric.Unknown}
)

const (
	oldestPlausibleAge = 120
	earliestGraduation = 1900
)

type demographicsAggregator struct {
	src  ProfileSource
	topN int
}

func (a *demographicsAggregator) Name() Name { return Demographics }

func (a *demographicsAggregator) Run(ctx context.Context, scope models.Scope) (models.ReportData, error) {
	var profiles []models.Profile
	if f := scope.Profiles; f != nil {
		if a.src == nil {
			return models.ReportData{}, errSourceMissing("profiles")
		}
		var err error
		if profiles, err = a.src.List(ctx, *f); err != nil {
			return models.ReportData{}, fmt.Errorf("list profiles: %w", err)
		}
	}
	stats := ComputeDemographics(profiles, asOf(scope), a.topN)
	return models.ReportData{Demographics: &stats}, nil
}

// ComputeDemographics buckets profiles by age and graduation tenure as of
// the given instant. Missing or implausible values land in Unknown.
func ComputeDemographics(profiles []models.Profile, asOf time.Time, topN int) models.DemographicsStats {
	stats := models.DemographicsStats{
		TotalProfiles: len(profiles),
		AgeGroups:     zeroBuckets(ageGroups),
		TenureGroups:  zeroBuckets(tenureGroups),
	}
	cities := make(map[string]int)

	for _, p := range profiles {
		stats.AgeGroups[ageGroup(p.BirthDate, asOf)]++
		stats.TenureGroups[tenureGroup(p.GraduationYear, asOf)]++
		cities[metric.Label(p.City)]++
	}
	stats.TopCities = metric.TopN(cities, topN)
	return stats
}

func zeroBuckets(labels []string) map[string]int {
	out := make(map[string]int, len(labels))
	for _, l := range labels {
		out[l] = 0
	}
	return out
}

func ageGroup(birth *time.Time, asOf time.Time) string {
	if birth == nil {
		return metric.Unknown
	}
	age := yearsBetween(birth.UTC(), asOf.UTC())
	switch {
	case age < 0 || age > oldestPlausibleAge:
		return metric.Unknown
	case age < 18:
		return AgeUnder18
	case age <= 24:
		return Age18To24
	case age <= 34:
		return Age25To34
	case age <= 44:
		return Age35To44
	case age <= 54:
		return Age45To54
	default:
		return Age55Plus
	}
}

func tenureGroup(graduationYear *int, asOf time.Time) string {
	if graduationYear == nil || *graduationYear < earliestGraduation {
		return metric.Unknown
	}
	years := asOf.UTC().Year() - *graduationYear
	switch {
	case years < 0:
		return TenureNotGraduated
	case years <= 1:
		return Tenure0To1
	case years <= 4:
		return Tenure2To4
	case years <= 9:
		return Tenure5To9
	default:
		return Tenure10Plus
	}
}

// yearsBetween counts completed years, so a birthday later in the year has
// not been reached yet.
func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}
