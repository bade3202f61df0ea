package dto

import (
	"time"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// ReportQuery captures GET /reports/:type query parameters.
type ReportQuery struct {
	Range         string `form:"range" validate:"omitempty,max=16"`
	Start         string `form:"start" validate:"omitempty,max=64"`
	End           string `form:"end" validate:"omitempty,max=64"`
	CompanyID     string `form:"companyId" validate:"omitempty,max=64"`
	InstitutionID string `form:"institutionId" validate:"omitempty,max=64"`
	UserID        string `form:"userId" validate:"omitempty,max=64"`
	Format        string `form:"format" validate:"omitempty,oneof=structured csv xlsx pdf"`
	Section       string `form:"section" validate:"omitempty,max=64"`
}

// Bounds parses the explicit window bounds.
func (q ReportQuery) Bounds() (*time.Time, *time.Time, error) {
	return ParseBounds(q.Start, q.End)
}

// ExportJobRequest captures POST /reports/exports payload.
type ExportJobRequest struct {
	Type          models.ReportType   `json:"type" validate:"required"`
	Format        models.ExportFormat `json:"format" validate:"required,oneof=csv xlsx pdf"`
	Section       string              `json:"section,omitempty" validate:"omitempty,max=64"`
	Range         string              `json:"range,omitempty" validate:"omitempty,max=16"`
	Start         string              `json:"start,omitempty" validate:"omitempty,max=64"`
	End           string              `json:"end,omitempty" validate:"omitempty,max=64"`
	CompanyID     string              `json:"companyId,omitempty" validate:"omitempty,max=64"`
	InstitutionID string              `json:"institutionId,omitempty" validate:"omitempty,max=64"`
	UserID        string              `json:"userId,omitempty" validate:"omitempty,max=64"`
}

// Bounds parses the explicit window bounds.
func (r ExportJobRequest) Bounds() (*time.Time, *time.Time, error) {
	return ParseBounds(r.Start, r.End)
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ExportStatus `json:"status"`
}

// ExportJobListQuery captures GET /reports/exports query parameters.
type ExportJobListQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=QUEUED PROCESSING FINISHED FAILED EXPIRED"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}
