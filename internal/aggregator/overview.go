package aggregator

import (
	"context"
	"fmt"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

type overviewAggregator struct {
	src Sources
}

func (a *overviewAggregator) Name() Name { return Overview }

// Run counts every record type the scope can see. Types outside the scope
// stay at zero without touching the store.
func (a *overviewAggregator) Run(ctx context.Context, scope models.Scope) (models.ReportData, error) {
	var stats models.OverviewStats
	var err error

	if f := scope.Applications; f != nil {
		if a.src.Applications == nil {
			return models.ReportData{}, errSourceMissing("applications")
		}
		if stats.Applications, err = a.src.Applications.Count(ctx, *f); err != nil {
			return models.ReportData{}, fmt.Errorf("count applications: %w", err)
		}
	}
	if f := scope.Enrollments; f != nil {
		if a.src.Enrollments == nil {
			return models.ReportData{}, errSourceMissing("enrollments")
		}
		if stats.Enrollments, err = a.src.Enrollments.Count(ctx, *f); err != nil {
			return models.ReportData{}, fmt.Errorf("count enrollments: %w", err)
		}
	}
	if f := scope.BusinessPlans; f != nil {
		if a.src.BusinessPlans == nil {
			return models.ReportData{}, errSourceMissing("business plans")
		}
		if stats.BusinessPlans, err = a.src.BusinessPlans.Count(ctx, *f); err != nil {
			return models.ReportData{}, fmt.Errorf("count business plans: %w", err)
		}
	}
	if f := scope.Profiles; f != nil {
		if a.src.Profiles == nil {
			return models.ReportData{}, errSourceMissing("profiles")
		}
		if stats.Profiles, err = a.src.Profiles.Count(ctx, *f); err != nil {
			return models.ReportData{}, fmt.Errorf("count profiles: %w", err)
		}
	}
	if f := scope.Messages; f != nil {
		if a.src.Messages == nil {
			return models.ReportData{}, errSourceMissing("messages")
		}
		if stats.Messages, err = a.src.Messages.Count(ctx, *f); err != nil {
			return models.ReportData{}, fmt.Errorf("count messages: %w", err)
		}
	}
	if f := scope.Certificates; f != nil {
		if a.src.Certificates == nil {
			return models.ReportData{}, errSourceMissing("certificates")
		}
		if stats.Certificates, err = a.src.Certificates.Count(ctx, *f); err != nil {
			return models.ReportData{}, fmt.Errorf("count certificates: %w", err)
		}
	}

	return models.ReportData{Overview: &stats}, nil
}
