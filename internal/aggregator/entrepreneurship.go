package aggregator

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/noah-isme/youthhub-metrics-api/internal/metric"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// Business plan content keys read by the aggregator.
const (
	ContentFundingGoal    = "fundingGoal"
	ContentCurrentFunding = "currentFunding"
	ContentIndustry       = "industry"
)

type entrepreneurshipAggregator struct {
	src  BusinessPlanSource
	topN int
}

func (a *entrepreneurshipAggregator) Name() Name { return Entrepreneurship }

func (a *entrepreneurshipAggregator) Run(ctx context.Context, scope models.Scope) (models.ReportData, error) {
	var plans []models.BusinessPlan
	if f := scope.BusinessPlans; f != nil {
		if a.src == nil {
			return models.ReportData{}, errSourceMissing("business plans")
		}
		var err error
		if plans, err = a.src.List(ctx, *f); err != nil {
			return models.ReportData{}, fmt.Errorf("list business plans: %w", err)
		}
	}
	stats := ComputeEntrepreneurship(plans, a.topN)
	return models.ReportData{Entrepreneurship: &stats}, nil
}

// ComputeEntrepreneurship sums and averages plan funding. Content values that
// do not coerce to a finite number count as 0.
func ComputeEntrepreneurship(plans []models.BusinessPlan, topN int) models.EntrepreneurshipStats {
	statuses := make(map[string]int)
	industries := make(map[string]int)
	var goal, current float64

	for _, plan := range plans {
		statuses[metric.LabelOf(plan.Status)]++
		goal += amount(plan.Content[ContentFundingGoal])
		current += amount(plan.Content[ContentCurrentFunding])
		industries[metric.LabelOf(cast.ToString(plan.Content[ContentIndustry]))]++
	}

	total := float64(len(plans))
	return models.EntrepreneurshipStats{
		TotalPlans:            len(plans),
		StatusDistribution:    statuses,
		TotalFundingGoal:      metric.Round2(goal),
		TotalCurrentFunding:   metric.Round2(current),
		AverageFundingGoal:    metric.Round2(metric.SafeDivide(goal, total)),
		AverageCurrentFunding: metric.Round2(metric.SafeDivide(current, total)),
		FundingProgress:       metric.Percentage(current, goal),
		TopIndustries:         metric.TopN(industries, topN),
	}
}

func amount(raw interface{}) float64 {
	switch v := raw.(type) {
	case nil, bool:
		return 0
	case string:
		raw = strings.TrimSpace(v)
	}
	n, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}
