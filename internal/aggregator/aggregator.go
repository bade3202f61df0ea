// Package aggregator computes the domain statistics of a report. Each
// aggregator loads the records its scope allows and hands them to a pure
// Compute function; the I/O and the arithmetic are kept apart so the
// arithmetic can be tested on fixed snapshots.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// Name identifies an aggregator and the report data key it fills.
type Name string

const (
	Overview         Name = "overview"
	Engagement       Name = "engagement"
	JobPlacement     Name = "jobPlacement"
	CourseCompletion Name = "courseCompletion"
	Entrepreneurship Name = "entrepreneurship"
	Revenue          Name = "revenue"
	Demographics     Name = "demographics"
)

// All lists every aggregator in merge order.
var All = []Name{Overview, Engagement, JobPlacement, CourseCompletion, Entrepreneurship, Revenue, Demographics}

// Aggregator produces one domain entry of a report. The returned data only
// sets the field matching Name.
type Aggregator interface {
	Name() Name
	Run(ctx context.Context, scope models.Scope) (models.ReportData, error)
}

// ApplicationSource reads job applications.
type ApplicationSource interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error)
	Count(ctx context.Context, filter models.ApplicationFilter) (int, error)
}

// EnrollmentSource reads course enrollments.
type EnrollmentSource interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
	Count(ctx context.Context, filter models.EnrollmentFilter) (int, error)
}

// BusinessPlanSource reads business plans.
type BusinessPlanSource interface {
	List(ctx context.Context, filter models.BusinessPlanFilter) ([]models.BusinessPlan, error)
	Count(ctx context.Context, filter models.BusinessPlanFilter) (int, error)
}

// ProfileSource reads user profiles.
type ProfileSource interface {
	List(ctx context.Context, filter models.ProfileFilter) ([]models.Profile, error)
	Count(ctx context.Context, filter models.ProfileFilter) (int, error)
}

// MessageSource reads direct messages.
type MessageSource interface {
	List(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)
	Count(ctx context.Context, filter models.MessageFilter) (int, error)
}

// CertificateSource counts issued certificates. Certificates are queried on
// their own and never inferred from completed enrollments.
type CertificateSource interface {
	Count(ctx context.Context, filter models.CertificateFilter) (int, error)
}

// Sources bundles the record readers aggregators depend on.
type Sources struct {
	Applications  ApplicationSource
	Enrollments   EnrollmentSource
	BusinessPlans BusinessPlanSource
	Profiles      ProfileSource
	Messages      MessageSource
	Certificates  CertificateSource
}

// Options tunes aggregator output.
type Options struct {
	TopN int
}

// Registry resolves aggregator names to implementations.
type Registry struct {
	byName map[Name]Aggregator
}

// NewRegistry wires every aggregator to the given sources.
func NewRegistry(src Sources, opts Options) *Registry {
	if opts.TopN <= 0 {
		opts.TopN = 5
	}
	aggs := []Aggregator{
		&overviewAggregator{src: src},
		&engagementAggregator{src: src},
		&jobPlacementAggregator{src: src.Applications, topN: opts.TopN},
		&courseCompletionAggregator{enrollments: src.Enrollments, certificates: src.Certificates, topN: opts.TopN},
		&entrepreneurshipAggregator{src: src.BusinessPlans, topN: opts.TopN},
		revenueAggregator{},
		&demographicsAggregator{src: src.Profiles, topN: opts.TopN},
	}
	r := &Registry{byName: make(map[Name]Aggregator, len(aggs))}
	for _, a := range aggs {
		r.byName[a.Name()] = a
	}
	return r
}

// NewRegistryFrom builds a registry from explicit implementations.
func NewRegistryFrom(aggs ...Aggregator) *Registry {
	r := &Registry{byName: make(map[Name]Aggregator, len(aggs))}
	for _, a := range aggs {
		r.byName[a.Name()] = a
	}
	return r
}

// Get returns the aggregator registered under name.
func (r *Registry) Get(name Name) (Aggregator, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Merge copies the entry set in part into dst.
func Merge(dst *models.ReportData, part models.ReportData) {
	if part.Overview != nil {
		dst.Overview = part.Overview
	}
	if part.Engagement != nil {
		dst.Engagement = part.Engagement
	}
	if part.JobPlacement != nil {
		dst.JobPlacement = part.JobPlacement
	}
	if part.CourseCompletion != nil {
		dst.CourseCompletion = part.CourseCompletion
	}
	if part.Entrepreneurship != nil {
		dst.Entrepreneurship = part.Entrepreneurship
	}
	if part.Revenue != nil {
		dst.Revenue = part.Revenue
	}
	if part.Demographics != nil {
		dst.Demographics = part.Demographics
	}
}

func errSourceMissing(name string) error {
	return fmt.Errorf("%s source not configured", name)
}

func asOf(scope models.Scope) time.Time {
	if scope.AsOf.IsZero() {
		return time.Now().UTC()
	}
	return scope.AsOf
}
