package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/youthhub-metrics-api/internal/metric"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
	"github.com/noah-isme/youthhub-metrics-api/pkg/export"
)

type sectionFlattener struct {
	headers []string
	rows    func(models.ReportData) ([][]string, bool)
}

// flatteners lists every section that has a tabular shape. Sections of the
// report that are not listed here hold grouped values.
var flatteners = map[string]sectionFlattener{
	"overview": {
		headers: []string{"Metric", "Count"},
		rows: func(d models.ReportData) ([][]string, bool) {
			if d.Overview == nil {
				return nil, false
			}
			o := d.Overview
			return [][]string{
				{"applications", itoa(o.Applications)},
				{"enrollments", itoa(o.Enrollments)},
				{"businessPlans", itoa(o.BusinessPlans)},
				{"profiles", itoa(o.Profiles)},
				{"messages", itoa(o.Messages)},
				{"certificates", itoa(o.Certificates)},
			}, true
		},
	},
	"engagement": {
		headers: []string{"Window", "Active Users"},
		rows: func(d models.ReportData) ([][]string, bool) {
			if d.Engagement == nil {
				return nil, false
			}
			rows := make([][]string, 0, len(d.Engagement.ActivityWindows))
			for _, w := range d.Engagement.ActivityWindows {
				rows = append(rows, []string{w.Window, itoa(w.ActiveUsers)})
			}
			return rows, true
		},
	},
	"jobPlacement.applicationsByMonth": {
		headers: []string{"Month", "Applications"},
		rows: func(d models.ReportData) ([][]string, bool) {
			if d.JobPlacement == nil {
				return nil, false
			}
			rows := make([][]string, 0, len(d.JobPlacement.ApplicationsByMonth))
			for _, m := range d.JobPlacement.ApplicationsByMonth {
				rows = append(rows, []string{m.Month, itoa(m.Count)})
			}
			return rows, true
		},
	},
	"jobPlacement.topCompanies": rankedSection("Company", "Applications", func(d models.ReportData) ([]metric.Ranked, bool) {
		if d.JobPlacement == nil {
			return nil, false
		}
		return d.JobPlacement.TopCompanies, true
	}),
	"jobPlacement.topCategories": rankedSection("Experience Level", "Applications", func(d models.ReportData) ([]metric.Ranked, bool) {
		if d.JobPlacement == nil {
			return nil, false
		}
		return d.JobPlacement.TopCategories, true
	}),
	"jobPlacement.funnel": {
		headers: []string{"Stage", "Count", "Percentage"},
		rows: func(d models.ReportData) ([][]string, bool) {
			if d.JobPlacement == nil {
				return nil, false
			}
			rows := make([][]string, 0, len(d.JobPlacement.Funnel))
			for _, st := range d.JobPlacement.Funnel {
				rows = append(rows, []string{st.Stage, itoa(st.Count), ftoa(st.Percentage)})
			}
			return rows, true
		},
	},
	"courseCompletion.topCourses": {
		headers: []string{"Course ID", "Title", "Enrollments", "Completions", "Completion Rate"},
		rows: func(d models.ReportData) ([][]string, bool) {
			if d.CourseCompletion == nil {
				return nil, false
			}
			rows := make([][]string, 0, len(d.CourseCompletion.TopCourses))
			for _, c := range d.CourseCompletion.TopCourses {
				rows = append(rows, []string{c.CourseID, c.Title, itoa(c.Enrollments), itoa(c.Completions), ftoa(c.CompletionRate)})
			}
			return rows, true
		},
	},
	"entrepreneurship.topIndustries": rankedSection("Industry", "Plans", func(d models.ReportData) ([]metric.Ranked, bool) {
		if d.Entrepreneurship == nil {
			return nil, false
		}
		return d.Entrepreneurship.TopIndustries, true
	}),
	"demographics.topCities": rankedSection("City", "Profiles", func(d models.ReportData) ([]metric.Ranked, bool) {
		if d.Demographics == nil {
			return nil, false
		}
		return d.Demographics.TopCities, true
	}),
}

var defaultSections = map[models.ReportType]string{
	models.ReportCoursePerformance:   "courseCompletion.topCourses",
	models.ReportStudentEngagement:   "engagement",
	models.ReportInstructorAnalytics: "courseCompletion.topCourses",
	models.ReportCompletionAnalysis:  "courseCompletion.topCourses",
	models.ReportContentAnalytics:    "entrepreneurship.topIndustries",
	models.ReportJobPlacement:        "jobPlacement.topCompanies",
	models.ReportComprehensive:       "overview",
}

// DefaultSection returns the section exported when the caller names none.
func DefaultSection(t models.ReportType) string {
	return defaultSections[t]
}

// CheckSection reports whether section of a t report has a tabular form.
// An empty section selects the default of the report type.
func CheckSection(t models.ReportType, section string) error {
	if section == "" {
		section = DefaultSection(t)
	}
	if _, ok := flatteners[section]; !ok {
		return appErrors.Clone(appErrors.ErrUnsupportedExportShape,
			fmt.Sprintf("section %q holds grouped values and has no tabular form", section))
	}
	root, _, _ := strings.Cut(section, ".")
	names, _ := RequiredAggregators(t)
	for _, name := range names {
		if string(name) == root {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("section %q is not part of %s reports", section, t))
}

// ExportFile is a rendered report ready to be served or stored.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService flattens one report section into rows and renders it.
type ExportService struct {
	renderers map[models.ExportFormat]export.Renderer
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the package defaults.
func NewExportService(csv, xlsx, pdf export.Renderer) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{renderers: map[models.ExportFormat]export.Renderer{
		models.FormatCSV:  csv,
		models.FormatXLSX: xlsx,
		models.FormatPDF:  pdf,
	}}
}

// Dataset flattens section of report. An empty section selects the default
// of the report type.
func (s *ExportService) Dataset(report *models.Report, section string) (export.Dataset, error) {
	if report == nil {
		return export.Dataset{}, appErrors.Clone(appErrors.ErrInternal, "report missing")
	}
	if section == "" {
		section = DefaultSection(report.Metadata.Type)
	}
	if err := CheckSection(report.Metadata.Type, section); err != nil {
		return export.Dataset{}, err
	}
	flat := flatteners[section]
	rows, present := flat.rows(report.Data)
	if !present {
		return export.Dataset{}, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("section %q is not part of %s reports", section, report.Metadata.Type))
	}
	return export.Dataset{
		Title:   fmt.Sprintf("%s report: %s", report.Metadata.Type, section),
		Headers: flat.headers,
		Rows:    rows,
	}, nil
}

// Render flattens and renders report in a tabular format.
func (s *ExportService) Render(report *models.Report, format models.ExportFormat, section string) (*ExportFile, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("format %q is not a file format", format))
	}
	dataset, err := s.Dataset(report, section)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err, "failed to render export")
	}
	return &ExportFile{
		Filename:    ExportFilename(report.Metadata.Type, report.Metadata.Filters.Range, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, nil
}

// ExportFilename builds <report-type>_<window>.<ext>.
func ExportFilename(t models.ReportType, window, ext string) string {
	return fmt.Sprintf("%s_%s.%s", t, sanitizeFilename(window), ext)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func rankedSection(label, count string, pick func(models.ReportData) ([]metric.Ranked, bool)) sectionFlattener {
	return sectionFlattener{
		headers: []string{label, count},
		rows: func(d models.ReportData) ([][]string, bool) {
			ranked, ok := pick(d)
			if !ok {
				return nil, false
			}
			rows := make([][]string, 0, len(ranked))
			for _, r := range ranked {
				rows = append(rows, []string{r.Label, itoa(r.Count)})
			}
			return rows, true
		},
	}
}

func itoa(v int) string { return strconv.Itoa(v) }

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
