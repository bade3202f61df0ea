package aggregator

import (
	"context"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// revenueAggregator reports revenue metrics that have no data source on the
// platform yet. It performs no I/O.
type revenueAggregator struct{}

func (revenueAggregator) Name() Name { return Revenue }

func (revenueAggregator) Run(ctx context.Context, _ models.Scope) (models.ReportData, error) {
	if err := ctx.Err(); err != nil {
		return models.ReportData{}, err
	}
	stats := ComputeRevenue()
	return models.ReportData{Revenue: &stats}, nil
}

// ComputeRevenue marks every revenue metric as not yet instrumented.
func ComputeRevenue() models.RevenueStats {
	return models.RevenueStats{
		TotalRevenue:          models.NotYetInstrumented(),
		AverageRevenuePerUser: models.NotYetInstrumented(),
		RecurringRevenue:      models.NotYetInstrumented(),
	}
}
