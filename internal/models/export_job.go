package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportStatus captures background export lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
	// ExportStatusExpired marks a finished job whose file has been removed.
	ExportStatusExpired ExportStatus = "EXPIRED"
)

// ExportJob is persisted metadata of an asynchronous report export.
type ExportJob struct {
	ID           string       `db:"id" json:"id"`
	ReportType   ReportType   `db:"report_type" json:"report_type"`
	Params       ExportParams `db:"params" json:"params"`
	Status       ExportStatus `db:"status" json:"status"`
	FilePath     *string      `db:"file_path" json:"-"`
	DownloadURL  *string      `db:"download_url" json:"download_url,omitempty"`
	CreatedBy    string       `db:"created_by" json:"created_by"`
	CreatedRole  UserRole     `db:"created_role" json:"created_role"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
	ExpiresAt    *time.Time   `db:"expires_at" json:"expires_at,omitempty"`
	ErrorMessage *string      `db:"error_message" json:"error_message,omitempty"`
}

// ExportParams stores the report request options persisted as JSONB.
type ExportParams struct {
	Format        ExportFormat `json:"format"`
	Section       string       `json:"section,omitempty"`
	Range         string       `json:"range,omitempty"`
	Start         *time.Time   `json:"start,omitempty"`
	End           *time.Time   `json:"end,omitempty"`
	CompanyID     string       `json:"companyId,omitempty"`
	InstitutionID string       `json:"institutionId,omitempty"`
	UserID        string       `json:"userId,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p ExportParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ExportParams) Scan(value interface{}) error {
	if value == nil {
		*p = ExportParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ExportParams", value)
	}
	if len(data) == 0 {
		*p = ExportParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal export params: %w", err)
	}
	return nil
}

// ExportJobFilter scopes job listing.
type ExportJobFilter struct {
	CreatedBy string
	Status    ExportStatus
	Page      int
	PageSize  int
}
