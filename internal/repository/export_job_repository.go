package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

const exportJobColumns = `id, report_type, params, status, file_path, download_url, created_by, created_role, created_at, finished_at, expires_at, error_message`

// ExportJobRepository persists asynchronous export job metadata.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a new export job, filling id, status and creation time.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO export_jobs (` + exportJobColumns + `)
VALUES (:id, :report_type, :params, :status, :file_path, :download_url, :created_by, :created_role, :created_at, :finished_at, :expires_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID returns a job by identifier. The error wraps sql.ErrNoRows when absent.
func (r *ExportJobRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get export job: %w", err)
	}
	return &job, nil
}

// ExportJobUpdate lists the mutable fields; nil fields are left unchanged.
type ExportJobUpdate struct {
	Status       *models.ExportStatus
	FilePath     *string
	DownloadURL  *string
	ErrorMessage *string
	FinishedAt   *time.Time
	ExpiresAt    *time.Time
}

// Update persists the provided changes for a job row.
func (r *ExportJobRepository) Update(ctx context.Context, id string, params ExportJobUpdate) error {
	set := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	assign := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Status != nil {
		assign("status", *params.Status)
	}
	if params.FilePath != nil {
		assign("file_path", *params.FilePath)
	}
	if params.DownloadURL != nil {
		assign("download_url", *params.DownloadURL)
	}
	if params.ErrorMessage != nil {
		assign("error_message", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		assign("finished_at", *params.FinishedAt)
	}
	if params.ExpiresAt != nil {
		assign("expires_at", *params.ExpiresAt)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE export_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	return nil
}

// List returns a page of jobs newest first together with the total count.
func (r *ExportJobRepository) List(ctx context.Context, filter models.ExportJobFilter) ([]models.ExportJob, int, error) {
	where := &whereBuilder{}
	if filter.CreatedBy != "" {
		where.add("created_by = %s", filter.CreatedBy)
	}
	if filter.Status != "" {
		where.add("status = %s", filter.Status)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM export_jobs"+where.String(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count export jobs: %w", err)
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	args := append(append([]interface{}{}, where.args...), size, (page-1)*size)
	query := fmt.Sprintf("SELECT %s FROM export_jobs%s ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d",
		exportJobColumns, where.String(), len(where.args)+1, len(where.args)+2)

	jobs := make([]models.ExportJob, 0)
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list export jobs: %w", err)
	}
	return jobs, total, nil
}

// ListPending fetches queued and in-flight jobs for recovery after a restart.
// A PROCESSING row at startup was orphaned by the previous process.
func (r *ExportJobRepository) ListPending(ctx context.Context, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE status IN ('QUEUED', 'PROCESSING') ORDER BY created_at ASC LIMIT $1`
	jobs := make([]models.ExportJob, 0)
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list pending export jobs: %w", err)
	}
	return jobs, nil
}

// ListExpired retrieves finished jobs whose download expired before cutoff.
func (r *ExportJobRepository) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + exportJobColumns + ` FROM export_jobs
WHERE status = 'FINISHED' AND expires_at IS NOT NULL AND expires_at < $1 ORDER BY expires_at ASC LIMIT $2`
	jobs := make([]models.ExportJob, 0)
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list expired export jobs: %w", err)
	}
	return jobs, nil
}

func normalisePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
