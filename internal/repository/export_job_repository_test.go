package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

var exportJobRowColumns = []string{"id", "report_type", "params", "status", "file_path", "download_url", "created_by", "created_role", "created_at", "finished_at", "expires_at", "error_message"}

func TestExportJobRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO export_jobs")).
		WithArgs(sqlmock.AnyArg(), "job-placement", sqlmock.AnyArg(), "QUEUED", nil, nil, "user-1", "COMPANY", sqlmock.AnyArg(), nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{
		ReportType:  models.ReportJobPlacement,
		Params:      models.ExportParams{Format: models.FormatCSV, Range: "30d"},
		CreatedBy:   "user-1",
		CreatedRole: models.RoleCompany,
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)

	rows := sqlmock.NewRows(exportJobRowColumns).
		AddRow(job.ID, "job-placement", `{"format":"csv","range":"30d"}`, "QUEUED", nil, nil, "user-1", "COMPANY", time.Now(), nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(rows)

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FormatCSV, fetched.Params.Format)
	assert.Equal(t, models.RoleCompany, fetched.CreatedRole)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	now := time.Now()
	status := models.ExportStatusFinished
	path := "2026/10/job-1.csv"
	url := "/api/v1/export/token"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, file_path = $2, download_url = $3, finished_at = $4, expires_at = $5 WHERE id = $6")).
		WithArgs(status, path, url, now, now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", ExportJobUpdate{
		Status:      &status,
		FilePath:    &path,
		DownloadURL: &url,
		FinishedAt:  &now,
		ExpiresAt:   &now,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Update(context.Background(), "job-1", ExportJobUpdate{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListPaginates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM export_jobs WHERE created_by = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE created_by = $1 ORDER BY created_at DESC, id ASC LIMIT $2 OFFSET $3")).
		WithArgs("user-1", 20, 20).
		WillReturnRows(sqlmock.NewRows(exportJobRowColumns).
			AddRow("job-21", "comprehensive", `{"format":"xlsx"}`, "FINISHED", "a.xlsx", "/x", "user-1", "ADMIN", time.Now(), time.Now(), time.Now(), nil))

	jobs, total, err := repo.List(context.Background(), models.ExportJobFilter{CreatedBy: "user-1", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.FormatXLSX, jobs[0].Params.Format)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobRepositoryListPendingAndExpired(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE status IN ('QUEUED', 'PROCESSING') ORDER BY created_at ASC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(exportJobRowColumns).
			AddRow("job-1", "comprehensive", `{"format":"csv"}`, "QUEUED", nil, nil, "user-1", "ADMIN", time.Now(), nil, nil, nil).
			AddRow("job-2", "overview", `{"format":"pdf"}`, "PROCESSING", nil, nil, "user-1", "ADMIN", time.Now(), nil, nil, nil))
	pending, err := repo.ListPending(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, models.ExportStatusProcessing, pending[1].Status)

	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE status = 'FINISHED' AND expires_at IS NOT NULL AND expires_at < $1 ORDER BY expires_at ASC LIMIT $2")).
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(sqlmock.NewRows(exportJobRowColumns))
	expired, err := repo.ListExpired(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	assert.Empty(t, expired)
	require.NoError(t, mock.ExpectationsWereMet())
}
