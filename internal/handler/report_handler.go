package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/youthhub-metrics-api/internal/dto"
	"github.com/noah-isme/youthhub-metrics-api/internal/middleware"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	"github.com/noah-isme/youthhub-metrics-api/internal/service"
	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
	"github.com/noah-isme/youthhub-metrics-api/pkg/response"
)

type reportBuilder interface {
	Build(ctx context.Context, req service.ReportRequest) (*models.Report, bool, error)
}

type reportRenderer interface {
	Render(report *models.Report, format models.ExportFormat, section string) (*service.ExportFile, error)
}

type exportJobManager interface {
	CreateJob(ctx context.Context, req dto.ExportJobRequest, actor models.Actor) (*dto.ExportJobResponse, error)
	Get(ctx context.Context, id string, actor models.Actor) (*models.ExportJob, error)
	List(ctx context.Context, query dto.ExportJobListQuery, actor models.Actor) ([]models.ExportJob, *models.Pagination, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ReportHandler exposes report generation and export endpoints.
type ReportHandler struct {
	reports   reportBuilder
	renderer  reportRenderer
	jobs      exportJobManager
	validator *validator.Validate
}

// NewReportHandler constructs handler. jobs may be nil when asynchronous
// exports are disabled.
func NewReportHandler(reports reportBuilder, renderer reportRenderer, jobs exportJobManager) *ReportHandler {
	return &ReportHandler{reports: reports, renderer: renderer, jobs: jobs, validator: validator.New()}
}

// Types godoc
// @Summary List report types
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) Types(c *gin.Context) {
	types := service.ReportTypes()
	out := make([]gin.H, 0, len(types))
	for _, t := range types {
		names, _ := service.RequiredAggregators(t)
		out = append(out, gin.H{"type": t, "aggregators": names, "defaultSection": service.DefaultSection(t)})
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// Generate godoc
// @Summary Generate a report
// @Tags Reports
// @Produce json
// @Produce text/csv
// @Param type path string true "Report type"
// @Param range query string false "7d, 30d, 90d or 1y"
// @Param start query string false "RFC3339 start, requires end"
// @Param end query string false "RFC3339 end, requires start"
// @Param companyId query string false "Company ID"
// @Param institutionId query string false "Institution ID"
// @Param userId query string false "User ID"
// @Param format query string false "structured, csv, xlsx or pdf"
// @Param section query string false "Section to export for tabular formats"
// @Success 200 {object} response.Envelope
// @Router /reports/{type} [get]
func (h *ReportHandler) Generate(c *gin.Context) {
	if h.reports == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	if err := h.validator.Struct(query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	reportType := models.ReportType(c.Param("type"))
	if _, ok := service.RequiredAggregators(reportType); !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported report type "+string(reportType)))
		return
	}
	start, end, err := query.Bounds()
	if err != nil {
		response.Error(c, err)
		return
	}
	format := models.ExportFormat(query.Format)
	if format == "" {
		format = models.FormatStructured
	}
	if format.Tabular() {
		if err := service.CheckSection(reportType, query.Section); err != nil {
			response.Error(c, err)
			return
		}
	}

	began := time.Now()
	report, cacheHit, err := h.reports.Build(c.Request.Context(), service.ReportRequest{
		Type:          reportType,
		Actor:         claims.Actor(),
		Range:         query.Range,
		Start:         start,
		End:           end,
		CompanyID:     query.CompanyID,
		InstitutionID: query.InstitutionID,
		UserID:        query.UserID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if format.Tabular() {
		file, err := h.renderer.Render(report, format, query.Section)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Attachment(c, file.Filename, file.ContentType, file.Payload)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	middleware.SetProcessingTime(c, began)
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

// CreateExport godoc
// @Summary Queue an asynchronous export
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ExportJobRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Router /reports/exports [post]
func (h *ReportHandler) CreateExport(c *gin.Context) {
	claims, ok := h.jobsAndClaims(c)
	if !ok {
		return
	}
	var req dto.ExportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export payload"))
		return
	}
	resp, err := h.jobs.CreateJob(c.Request.Context(), req, claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, resp)
}

// ListExports godoc
// @Summary List export jobs
// @Tags Reports
// @Produce json
// @Param status query string false "Job status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reports/exports [get]
func (h *ReportHandler) ListExports(c *gin.Context) {
	claims, ok := h.jobsAndClaims(c)
	if !ok {
		return
	}
	var query dto.ExportJobListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	items, pagination, err := h.jobs.List(c.Request.Context(), query, claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// GetExport godoc
// @Summary Export job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/exports/{id} [get]
func (h *ReportHandler) GetExport(c *gin.Context) {
	claims, ok := h.jobsAndClaims(c)
	if !ok {
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished export
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Router /export/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Expires", download.ExpiresAt.UTC().Format(http.TimeFormat))
	response.Attachment(c, download.Filename, download.ContentType, download.Payload)
}

func (h *ReportHandler) jobsAndClaims(c *gin.Context) (*models.JWTClaims, bool) {
	if h.jobs == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return nil, false
	}
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}
