package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-tracker-api/internal/dto"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	"github.com/noah-isme/academic-tracker-api/internal/repository"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
	"github.com/noah-isme/academic-tracker-api/pkg/jobs"
)

const (
	defaultReportListLimit = 20
	cleanupBatchSize       = 100
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListForUser(ctx context.Context, userID string, limit int) ([]models.ReportJob, error)
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type refreshTokenPurger interface {
	PurgeExpiredRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

type exportFiles interface {
	ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	Cleanup(ttl time.Duration) ([]string, error)
	ContentType(format models.ReportFormat) string
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupSchedule string
	RecoverLimit    int
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File        *os.File
	Filename    string
	Format      models.ReportFormat
	ContentType string
	ExpiresAt   time.Time
}

// ReportServiceParams wires the report service dependencies.
type ReportServiceParams struct {
	Repo      reportJobStore
	Queue     jobDispatcher
	Files     exportFiles
	Tokens    refreshTokenPurger
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    ReportServiceConfig
}

// ReportService orchestrates report job lifecycle management.
type ReportService struct {
	repo     reportJobStore
	queue    jobDispatcher
	files    exportFiles
	tokens   refreshTokenPurger
	metrics  *MetricsService
	validate *validator.Validate
	logger   *zap.Logger
	cfg      ReportServiceConfig
	cron     *cron.Cron
	now      func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(params ReportServiceParams) *ReportService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Config.ResultTTL <= 0 {
		params.Config.ResultTTL = 24 * time.Hour
	}
	if params.Config.RecoverLimit <= 0 {
		params.Config.RecoverLimit = 50
	}
	return &ReportService{
		repo:     params.Repo,
		queue:    params.Queue,
		files:    params.Files,
		tokens:   params.Tokens,
		metrics:  params.Metrics,
		validate: params.Validator,
		logger:   params.Logger,
		cfg:      params.Config,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateJob validates the request, persists the job and enqueues processing.
func (s *ReportService) CreateJob(ctx context.Context, userID string, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err, "invalid report request")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}

	job := &models.ReportJob{
		Type: req.Type,
		Params: models.ReportJobParams{
			Format:      req.Format,
			Granularity: req.Granularity,
			From:        req.From,
			To:          req.To,
		},
		Status:    models.ReportStatusQueued,
		CreatedBy: userID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	s.metrics.RecordReportJob(models.ReportStatusQueued)

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := s.now()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		s.metrics.RecordReportJob(models.ReportStatusFailed)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job metadata to its owner. Other users see not found.
func (s *ReportService) GetStatus(ctx context.Context, userID, id string) (*dto.ReportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoError(err, "report job not found", "failed to load report job")
	}
	if job.CreatedBy != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	return statusResponse(*job), nil
}

// List returns the caller's most recent jobs.
func (s *ReportService) List(ctx context.Context, userID string, limit int) ([]dto.ReportStatusResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultReportListLimit
	}
	items, err := s.repo.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report jobs")
	}
	out := make([]dto.ReportStatusResponse, 0, len(items))
	for _, job := range items {
		out = append(out, *statusResponse(job))
	}
	return out, nil
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.files.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.files.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:        file,
		Filename:    filepath.Base(relPath),
		Format:      job.Params.Format,
		ContentType: s.files.ContentType(job.Params.Format),
		ExpiresAt:   expiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a restart.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) int {
	pending, err := s.repo.ListQueued(ctx, s.cfg.RecoverLimit)
	if err != nil {
		s.logger.Warn("failed to recover queued report jobs", zap.Error(err))
		return 0
	}
	recovered := 0
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
			s.logger.Warn("failed to requeue pending job", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		recovered++
	}
	if recovered > 0 {
		s.logger.Info("recovered queued report jobs", zap.Int("count", recovered))
	}
	return recovered
}

// StartCleanup schedules the export and refresh-token reaper on the configured
// cron spec. An empty schedule disables it.
func (s *ReportService) StartCleanup(ctx context.Context) error {
	if s.cfg.CleanupSchedule == "" {
		return nil
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(s.cfg.CleanupSchedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, 4*time.Minute)
		defer cancel()
		s.Cleanup(runCtx)
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.logger.Info("report cleanup scheduled", zap.String("schedule", s.cfg.CleanupSchedule), zap.Duration("ttl", s.cfg.ResultTTL))
	return nil
}

// StopCleanup stops the scheduler and waits for a running cleanup.
func (s *ReportService) StopCleanup() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Cleanup removes expired export files and refresh tokens.
func (s *ReportService) Cleanup(ctx context.Context) {
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	removed := 0
	for {
		finished, err := s.repo.ListFinishedBefore(ctx, cutoff, cleanupBatchSize)
		if err != nil {
			s.logger.Warn("cleanup list failed", zap.Error(err))
			break
		}
		for _, job := range finished {
			if job.ResultURL == nil {
				continue
			}
			token := extractToken(*job.ResultURL)
			if token == "" {
				continue
			}
			_, relPath, _, err := s.files.ParseToken(token, true)
			if err != nil {
				continue
			}
			if err := s.files.Delete(relPath); err != nil {
				s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
				continue
			}
			removed++
		}
		if len(finished) < cleanupBatchSize {
			break
		}
	}
	if _, err := s.files.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
	}

	var purged int64
	if s.tokens != nil {
		n, err := s.tokens.PurgeExpiredRefreshTokens(ctx, s.now())
		if err != nil {
			s.logger.Warn("refresh token purge failed", zap.Error(err))
		}
		purged = n
	}
	s.logger.Info("cleanup finished", zap.Int("exports_removed", removed), zap.Int64("tokens_purged", purged))
}

func statusResponse(job models.ReportJob) *dto.ReportStatusResponse {
	resp := &dto.ReportStatusResponse{
		ID:       job.ID,
		Type:     job.Type,
		Status:   job.Status,
		Progress: job.Progress,
	}
	if job.ResultURL != nil && *job.ResultURL != "" {
		resp.ResultURL = job.ResultURL
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ReportWorker bridges queue jobs to ExportService.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{
		repo:       repo,
		exporter:   exporter,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			w.logger.Warn("dropping job for missing report", zap.String("job_id", job.ID))
			return nil
		}
		return err
	}
	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ReportStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
			w.metrics.RecordReportJob(models.ReportStatusFailed)
		} else {
			queued := models.ReportStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Warn("failed to mark job queued", zap.String("job_id", job.ID), zap.Error(updateErr))
			}
		}
		return err
	}

	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	w.metrics.RecordReportJob(models.ReportStatusFinished)
	return nil
}
