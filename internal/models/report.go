package models

import "time"

// ReportType names a bundle of aggregators.
type ReportType string

const (
	ReportCoursePerformance   ReportType = "course-performance"
	ReportStudentEngagement   ReportType = "student-engagement"
	ReportInstructorAnalytics ReportType = "instructor-analytics"
	ReportCompletionAnalysis  ReportType = "completion-analysis"
	ReportContentAnalytics    ReportType = "content-analytics"
	ReportJobPlacement        ReportType = "job-placement"
	ReportComprehensive       ReportType = "comprehensive"
)

// ExportFormat selects the rendering of a report.
type ExportFormat string

const (
	FormatStructured ExportFormat = "structured"
	FormatCSV        ExportFormat = "csv"
	FormatXLSX       ExportFormat = "xlsx"
	FormatPDF        ExportFormat = "pdf"
)

// Tabular reports whether the format needs a flattened section.
func (f ExportFormat) Tabular() bool {
	return f == FormatCSV || f == FormatXLSX || f == FormatPDF
}

// ReportFilters echoes the narrowing a report was built with.
type ReportFilters struct {
	CompanyID     string `json:"companyId,omitempty"`
	InstitutionID string `json:"institutionId,omitempty"`
	UserID        string `json:"userId,omitempty"`
	Range         string `json:"range"`
}

// ReportPeriod is the window a report covers.
type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ReportMetadata is stamped once per generated report.
type ReportMetadata struct {
	ID          string        `json:"id"`
	Type        ReportType    `json:"type"`
	GeneratedAt time.Time     `json:"generatedAt"`
	GeneratedBy string        `json:"generatedBy"`
	Period      ReportPeriod  `json:"period"`
	Filters     ReportFilters `json:"filters"`
}

// ReportData holds one entry per aggregator the report type requires.
type ReportData struct {
	Overview         *OverviewStats         `json:"overview,omitempty"`
	Engagement       *EngagementStats       `json:"engagement,omitempty"`
	JobPlacement     *JobPlacementStats     `json:"jobPlacement,omitempty"`
	CourseCompletion *CourseCompletionStats `json:"courseCompletion,omitempty"`
	Entrepreneurship *EntrepreneurshipStats `json:"entrepreneurship,omitempty"`
	Revenue          *RevenueStats          `json:"revenue,omitempty"`
	Demographics     *DemographicsStats     `json:"demographics,omitempty"`
}

// Report is the assembled output of a report request.
type Report struct {
	Metadata ReportMetadata `json:"metadata"`
	Data     ReportData     `json:"data"`
}

// Dashboard is a role-specific report without a report type.
type Dashboard struct {
	Role        UserRole     `json:"role"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Period      ReportPeriod `json:"period"`
	Data        ReportData   `json:"data"`
}
