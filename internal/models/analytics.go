package models

import "github.com/noah-isme/youthhub-metrics-api/internal/metric"

// MeasurementStatus states whether a metric has a data source yet.
type MeasurementStatus string

const (
	MeasurementMeasured           MeasurementStatus = "measured"
	MeasurementNotYetInstrumented MeasurementStatus = "not_yet_instrumented"
)

// Measurement is a value that may not be collected by the platform yet.
// Consumers must not read Value as zero when Status is not measured.
type Measurement struct {
	Status MeasurementStatus `json:"status"`
	Value  *float64          `json:"value"`
}

// NotYetInstrumented marks a metric whose source does not exist yet.
func NotYetInstrumented() Measurement {
	return Measurement{Status: MeasurementNotYetInstrumented}
}

// Measured wraps a collected value.
func Measured(v float64) Measurement {
	return Measurement{Status: MeasurementMeasured, Value: &v}
}

// OverviewStats counts visible records per type.
type OverviewStats struct {
	Applications  int `json:"applications"`
	Enrollments   int `json:"enrollments"`
	BusinessPlans int `json:"businessPlans"`
	Profiles      int `json:"profiles"`
	Messages      int `json:"messages"`
	Certificates  int `json:"certificates"`
}

// ActivityWindow is the distinct active user count for a trailing window.
type ActivityWindow struct {
	Window      string `json:"window"`
	ActiveUsers int    `json:"activeUsers"`
}

// EngagementStats summarises user activity.
type EngagementStats struct {
	ActiveUsers            int              `json:"activeUsers"`
	ActivityWindows        []ActivityWindow `json:"activityWindows"`
	MessagesSent           int              `json:"messagesSent"`
	AverageSessionDuration Measurement      `json:"averageSessionDuration"`
}

// MonthCount is one month bucket of a time series.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// FunnelStage is one step of the application funnel. Percentage is relative
// to the first stage.
type FunnelStage struct {
	Stage      string  `json:"stage"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// JobPlacementStats summarises the hiring pipeline.
type JobPlacementStats struct {
	TotalApplications   int             `json:"totalApplications"`
	StatusDistribution  map[string]int  `json:"statusDistribution"`
	ApplicationsByMonth []MonthCount    `json:"applicationsByMonth"`
	PlacementRate       float64         `json:"placementRate"`
	Funnel              []FunnelStage   `json:"funnel"`
	AverageDaysToReview *float64        `json:"averageDaysToReview"`
	TopCompanies        []metric.Ranked `json:"topCompanies"`
	TopCategories       []metric.Ranked `json:"topCategories"`
}

// CourseRanking is a course entry of the completion ranking.
type CourseRanking struct {
	CourseID       string  `json:"courseId"`
	Title          string  `json:"title"`
	Enrollments    int     `json:"enrollments"`
	Completions    int     `json:"completions"`
	CompletionRate float64 `json:"completionRate"`
}

// CourseCompletionStats summarises learning outcomes.
type CourseCompletionStats struct {
	TotalEnrollments      int             `json:"totalEnrollments"`
	CompletedEnrollments  int             `json:"completedEnrollments"`
	CompletionRate        float64         `json:"completionRate"`
	AverageProgress       float64         `json:"averageProgress"`
	AverageDaysToComplete *float64        `json:"averageDaysToComplete"`
	CertificatesIssued    int             `json:"certificatesIssued"`
	TopCourses            []CourseRanking `json:"topCourses"`
}

// EntrepreneurshipStats summarises business plans and their funding.
type EntrepreneurshipStats struct {
	TotalPlans            int             `json:"totalPlans"`
	StatusDistribution    map[string]int  `json:"statusDistribution"`
	TotalFundingGoal      float64         `json:"totalFundingGoal"`
	TotalCurrentFunding   float64         `json:"totalCurrentFunding"`
	AverageFundingGoal    float64         `json:"averageFundingGoal"`
	AverageCurrentFunding float64         `json:"averageCurrentFunding"`
	FundingProgress       float64         `json:"fundingProgress"`
	TopIndustries         []metric.Ranked `json:"topIndustries"`
}

// RevenueStats has no data source yet; every field is NotYetInstrumented.
type RevenueStats struct {
	TotalRevenue          Measurement `json:"totalRevenue"`
	AverageRevenuePerUser Measurement `json:"averageRevenuePerUser"`
	RecurringRevenue      Measurement `json:"recurringRevenue"`
}

// DemographicsStats buckets the scoped profile population. Every bucket is
// present, zero or not.
type DemographicsStats struct {
	TotalProfiles int             `json:"totalProfiles"`
	AgeGroups     map[string]int  `json:"ageGroups"`
	TenureGroups  map[string]int  `json:"tenureGroups"`
	TopCities     []metric.Ranked `json:"topCities"`
}

// SystemSnapshot is the operational view exposed to administrators.
type SystemSnapshot struct {
	ReportsGenerated   uint64             `json:"reportsGenerated"`
	ReportsFailed      uint64             `json:"reportsFailed"`
	CacheHits          uint64             `json:"cacheHits"`
	CacheMisses        uint64             `json:"cacheMisses"`
	CacheHitRatio      float64            `json:"cacheHitRatio"`
	AggregatorRuns     map[string]uint64  `json:"aggregatorRuns"`
	AggregatorAvgMs    map[string]float64 `json:"aggregatorAvgMs"`
	AverageLatencyMs   float64            `json:"averageLatencyMs"`
	RequestsTotal      uint64             `json:"requestsTotal"`
	ExportJobsQueued   uint64             `json:"exportJobsQueued"`
	ExportJobsFinished uint64             `json:"exportJobsFinished"`
}
