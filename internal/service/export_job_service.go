package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/youthhub-metrics-api/internal/dto"
	"github.com/noah-isme/youthhub-metrics-api/internal/models"
	"github.com/noah-isme/youthhub-metrics-api/internal/repository"
	appErrors "github.com/noah-isme/youthhub-metrics-api/pkg/errors"
	"github.com/noah-isme/youthhub-metrics-api/pkg/jobs"
	"github.com/noah-isme/youthhub-metrics-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.ExportJobUpdate) error
	List(ctx context.Context, filter models.ExportJobFilter) ([]models.ExportJob, int, error)
	ListPending(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	Delete(name string) error
	CleanupOlderThan(cutoff time.Time) ([]string, error)
}

type downloadSigner interface {
	Generate(exportID, path string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (storage.DownloadClaims, error)
}

type reportBuilder interface {
	Build(ctx context.Context, req ReportRequest) (*models.Report, bool, error)
}

type reportRenderer interface {
	Render(report *models.Report, format models.ExportFormat, section string) (*ExportFile, error)
}

// ExportJobServiceConfig governs download links and cleanup.
type ExportJobServiceConfig struct {
	APIPrefix  string
	ResultTTL  time.Duration
	MaxRetries int
}

// ExportDownload is a resolved download.
type ExportDownload struct {
	Filename    string
	ContentType string
	Payload     []byte
	ExpiresAt   time.Time
}

// ExportJobService orchestrates the asynchronous export lifecycle.
type ExportJobService struct {
	repo      exportJobStore
	scopes    scopeResolver
	queue     jobDispatcher
	storage   fileStorage
	signer    downloadSigner
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportJobServiceConfig
	now       func() time.Time
}

// ExportJobServiceParams groups constructor dependencies.
type ExportJobServiceParams struct {
	Repo      exportJobStore
	Scopes    scopeResolver
	Queue     jobDispatcher
	Storage   fileStorage
	Signer    downloadSigner
	Validator *validator.Validate
	Metrics   *MetricsService
	Logger    *zap.Logger
	Config    ExportJobServiceConfig
}

// NewExportJobService constructs the export job service.
func NewExportJobService(params ExportJobServiceParams) *ExportJobService {
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &ExportJobService{
		repo:      params.Repo,
		scopes:    params.Scopes,
		queue:     params.Queue,
		storage:   params.Storage,
		signer:    params.Signer,
		validator: validate,
		metrics:   params.Metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CreateJob validates the request against the caller scope, persists the job
// and enqueues it.
func (s *ExportJobService) CreateJob(ctx context.Context, req dto.ExportJobRequest, actor models.Actor) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export request")
	}
	if _, ok := RequiredAggregators(req.Type); !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report type %q", req.Type))
	}
	if err := CheckSection(req.Type, req.Section); err != nil {
		return nil, err
	}
	start, end, err := req.Bounds()
	if err != nil {
		return nil, err
	}
	if _, err := s.scopes.Resolve(ctx, ScopeRequest{
		Actor:         actor,
		Range:         req.Range,
		Start:         start,
		End:           end,
		CompanyID:     req.CompanyID,
		InstitutionID: req.InstitutionID,
		UserID:        req.UserID,
	}); err != nil {
		return nil, err
	}

	job := &models.ExportJob{
		ReportType: req.Type,
		Params: models.ExportParams{
			Format:        req.Format,
			Section:       req.Section,
			Range:         req.Range,
			Start:         start,
			End:           end,
			CompanyID:     req.CompanyID,
			InstitutionID: req.InstitutionID,
			UserID:        req.UserID,
		},
		Status:      models.ExportStatusQueued,
		CreatedBy:   actor.ID,
		CreatedRole: actor.Role,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID}); err != nil {
		failed := models.ExportStatusFailed
		msg := "failed to enqueue job"
		now := s.now().UTC()
		if updateErr := s.repo.Update(ctx, job.ID, repository.ExportJobUpdate{
			Status:       &failed,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		}); updateErr != nil {
			s.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		s.metrics.RecordExportJob(failed)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	s.metrics.RecordExportJob(models.ExportStatusQueued)
	s.logger.Info("export job queued",
		zap.String("job_id", job.ID),
		zap.String("report_type", string(job.ReportType)),
		zap.String("format", string(job.Params.Format)))
	return &dto.ExportJobResponse{ID: job.ID, Status: job.Status}, nil
}

// Get returns a job visible to actor. Only admins see other callers' jobs.
func (s *ExportJobService) Get(ctx context.Context, id string, actor models.Actor) (*models.ExportJob, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && job.CreatedBy != actor.ID {
		return nil, appErrors.ErrForbidden
	}
	return job, nil
}

// List pages through the jobs visible to actor.
func (s *ExportJobService) List(ctx context.Context, query dto.ExportJobListQuery, actor models.Actor) ([]models.ExportJob, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query")
	}
	filter := models.ExportJobFilter{
		Status:   models.ExportStatus(query.Status),
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if actor.Role != models.RoleAdmin {
		filter.CreatedBy = actor.ID
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list export jobs")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ResolveDownload validates token and loads the stored export file.
func (s *ExportJobService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	claims, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.load(ctx, claims.ExportID)
	if err != nil {
		return nil, err
	}
	if job.DownloadURL == nil || !strings.HasSuffix(*job.DownloadURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	payload, err := s.storage.Read(claims.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export file")
	}
	return &ExportDownload{
		Filename:    path.Base(claims.Path),
		ContentType: contentTypeFor(job.Params.Format),
		Payload:     payload,
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a restart, along with jobs a
// previous process left in PROCESSING. The worker accepts both states.
func (s *ExportJobService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListPending(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover pending export jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID}); err != nil {
			s.logger.Warn("failed to requeue pending job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// ScheduleCleanup registers the expired-export sweep on c.
func (s *ExportJobService) ScheduleCleanup(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		s.CleanupExpired(context.Background())
	})
}

// CleanupExpired removes files whose download expired and marks their jobs.
// Stray files older than the result TTL are swept as well.
func (s *ExportJobService) CleanupExpired(ctx context.Context) int {
	now := s.now().UTC()
	expired, err := s.repo.ListExpired(ctx, now, 100)
	if err != nil {
		s.logger.Warn("cleanup list failed", zap.Error(err))
		return 0
	}
	removed := 0
	status := models.ExportStatusExpired
	for _, job := range expired {
		if job.FilePath != nil {
			if err := s.storage.Delete(*job.FilePath); err != nil {
				s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
				continue
			}
		}
		if err := s.repo.Update(ctx, job.ID, repository.ExportJobUpdate{Status: &status}); err != nil {
			s.logger.Warn("cleanup status update failed", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		removed++
	}
	if stray, err := s.storage.CleanupOlderThan(now.Add(-s.cfg.ResultTTL)); err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
	} else if len(stray) > 0 {
		s.logger.Info("removed stray export files", zap.Int("count", len(stray)))
	}
	return removed
}

func (s *ExportJobService) load(ctx context.Context, id string) (*models.ExportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	return job, nil
}

func contentTypeFor(format models.ExportFormat) string {
	switch format {
	case models.FormatCSV:
		return "text/csv"
	case models.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case models.FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// ExportWorker bridges queue jobs to the report assembler and renderer.
type ExportWorker struct {
	repo       exportJobStore
	reports    reportBuilder
	renderer   reportRenderer
	storage    fileStorage
	signer     downloadSigner
	metrics    *MetricsService
	logger     *zap.Logger
	apiPrefix  string
	maxRetries int
	now        func() time.Time
}

// ExportWorkerParams groups worker dependencies.
type ExportWorkerParams struct {
	Repo       exportJobStore
	Reports    reportBuilder
	Renderer   reportRenderer
	Storage    fileStorage
	Signer     downloadSigner
	Metrics    *MetricsService
	Logger     *zap.Logger
	APIPrefix  string
	MaxRetries int
}

// NewExportWorker constructs a worker.
func NewExportWorker(params ExportWorkerParams) *ExportWorker {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	prefix := strings.TrimRight(params.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportWorker{
		repo:       params.Repo,
		reports:    params.Reports,
		renderer:   params.Renderer,
		storage:    params.Storage,
		signer:     params.Signer,
		metrics:    params.Metrics,
		logger:     logger,
		apiPrefix:  prefix,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// Handle processes a queue job. Errors the caller could not fix by retrying
// fail the job immediately and are not returned to the queue.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if record.Status != models.ExportStatusQueued && record.Status != models.ExportStatusProcessing {
		w.logger.Debug("skipping settled export job", zap.String("job_id", job.ID), zap.String("status", string(record.Status)))
		return nil
	}
	processing := models.ExportStatusProcessing
	if err := w.repo.Update(ctx, job.ID, repository.ExportJobUpdate{Status: &processing}); err != nil {
		return err
	}

	relPath, err := w.produce(ctx, record)
	if err != nil {
		if permanent(err) {
			w.fail(ctx, job.ID, err)
			return nil
		}
		if job.Attempt >= w.maxRetries {
			w.fail(ctx, job.ID, err)
		} else {
			queued := models.ExportStatusQueued
			msg := err.Error()
			if updateErr := w.repo.Update(ctx, job.ID, repository.ExportJobUpdate{
				Status:       &queued,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Warn("failed to mark job queued", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		}
		return err
	}

	token, expiresAt, err := w.signer.Generate(record.ID, relPath)
	if err != nil {
		return err
	}
	finished := models.ExportStatusFinished
	now := w.now().UTC()
	url := fmt.Sprintf("%s/export/%s", w.apiPrefix, token)
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.ExportJobUpdate{
		Status:       &finished,
		FilePath:     &relPath,
		DownloadURL:  &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
		ExpiresAt:    &expiresAt,
	}); err != nil {
		w.logger.Warn("failed to mark job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	w.metrics.RecordExportJob(finished)
	w.logger.Info("export job finished", zap.String("job_id", job.ID), zap.String("path", relPath))
	return nil
}

// GiveUp is the queue hook for jobs that exhausted their retries.
func (w *ExportWorker) GiveUp(ctx context.Context, job jobs.Job, err error) {
	w.logger.Error("export job abandoned", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
}

func (w *ExportWorker) produce(ctx context.Context, record *models.ExportJob) (string, error) {
	report, _, err := w.reports.Build(ctx, ReportRequest{
		Type:          record.ReportType,
		Actor:         models.Actor{ID: record.CreatedBy, Role: record.CreatedRole},
		Range:         record.Params.Range,
		Start:         record.Params.Start,
		End:           record.Params.End,
		CompanyID:     record.Params.CompanyID,
		InstitutionID: record.Params.InstitutionID,
		UserID:        record.Params.UserID,
	})
	if err != nil {
		return "", err
	}
	file, err := w.renderer.Render(report, record.Params.Format, record.Params.Section)
	if err != nil {
		return "", err
	}
	return w.storage.Save(path.Join(record.ID, file.Filename), file.Payload)
}

func (w *ExportWorker) fail(ctx context.Context, id string, cause error) {
	failed := models.ExportStatusFailed
	msg := cause.Error()
	now := w.now().UTC()
	if err := w.repo.Update(ctx, id, repository.ExportJobUpdate{
		Status:       &failed,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark job failed", zap.String("job_id", id), zap.Error(err))
	}
	w.metrics.RecordExportJob(failed)
}

// permanent reports whether err is a client error retrying cannot fix.
func permanent(err error) bool {
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Status >= http.StatusBadRequest && appErr.Status < http.StatusInternalServerError &&
		appErr.Status != http.StatusRequestTimeout
}
