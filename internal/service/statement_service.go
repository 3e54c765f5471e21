package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/models"
	"github.com/noah-isme/school-finance-api/pkg/jobs"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
)

type statementJobStore interface {
	Create(ctx context.Context, job *models.StatementJob) error
	FindByID(ctx context.Context, id string) (*models.StatementJob, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.StatementJob, error)
	UpdateProgress(ctx context.Context, id string, status models.StatementStatus, progress int) error
	MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// StatementServiceConfig tunes job processing behaviour.
type StatementServiceConfig struct {
	WorkerConcurrency int
	WorkerRetries     int
	CleanupInterval   time.Duration
	ResultTTL         time.Duration
}

// StatementService owns the asynchronous statement export lifecycle:
// enqueue, process, expose status, and clean up expired artifacts.
type StatementService struct {
	repo    statementJobStore
	export  *ExportService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	cfg     StatementServiceConfig
	queue   *jobs.Queue
}

// StatementServiceParams groups constructor dependencies.
type StatementServiceParams struct {
	Repo    statementJobStore
	Export  *ExportService
	Metrics *MetricsService
	Logger  *zap.Logger
	Config  StatementServiceConfig
}

// NewStatementService constructs a StatementService and its worker queue.
// Call Start to begin processing.
func NewStatementService(params StatementServiceParams) *StatementService {
	cfg := params.Config
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 2
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &StatementService{
		repo:    params.Repo,
		export:  params.Export,
		metrics: params.Metrics,
		logger:  logger,
		now:     time.Now,
		cfg:     cfg,
	}
	s.queue = jobs.NewQueue("statements", s.handle, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the worker pool and the cleanup loop.
func (s *StatementService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	go s.cleanupLoop(ctx)
}

// Stop drains the worker pool.
func (s *StatementService) Stop() {
	s.queue.Stop()
}

// Queue validates and persists a new statement job, then enqueues it.
func (s *StatementService) Queue(ctx context.Context, userID string, req dto.StatementRequest) (*dto.StatementJobResponse, error) {
	fieldErrs := appErrors.FieldErrors{}
	switch req.Type {
	case models.StatementClassFees:
		if req.ClassID == "" {
			fieldErrs.Add("class_id", "required for class fee statements")
		}
		if req.AcademicYear == "" {
			fieldErrs.Add("academic_year", "required for class fee statements")
		}
	case models.StatementPayrollRegister:
	default:
		fieldErrs.Add("type", "unknown statement type")
	}
	switch req.Format {
	case models.StatementFormatCSV, models.StatementFormatPDF:
	default:
		fieldErrs.Add("format", "must be csv or pdf")
	}
	if err := fieldErrs.AsError(); err != nil {
		return nil, err
	}

	job := &models.StatementJob{
		Type:      req.Type,
		Status:    models.StatementQueued,
		Format:    req.Format,
		CreatedBy: userID,
		CreatedAt: s.now().UTC(),
	}
	if req.ClassID != "" {
		job.ClassID = &req.ClassID
	}
	if req.AcademicYear != "" {
		job.AcademicYear = &req.AcademicYear
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("persist statement job: %w", err)
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		finishedAt := s.now().UTC()
		if markErr := s.repo.MarkFailed(ctx, job.ID, "queue unavailable", finishedAt); markErr != nil {
			s.logger.Error("statement job could not be marked failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, "QUEUE_FULL", 503, "statement queue is full")
	}

	return &dto.StatementJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// Status reports progress and, once finished, the signed download URL.
func (s *StatementService) Status(ctx context.Context, id string) (*dto.StatementStatusResponse, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "statement job not found")
		}
		return nil, err
	}
	return &dto.StatementStatusResponse{
		ID:        job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
		Error:     job.ErrorMessage,
	}, nil
}

// List returns the caller's recent statement jobs.
func (s *StatementService) List(ctx context.Context, userID string, limit int) ([]models.StatementJob, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

// Download resolves a signed token to the job and its stored file path.
func (s *StatementService) Download(ctx context.Context, token string) (string, string, error) {
	jobID, relPath, _, err := s.export.ParseToken(token, false)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", appErrors.Clone(appErrors.ErrNotFound, "statement job not found")
		}
		return "", "", err
	}
	if job.Status != models.StatementFinished {
		return "", "", appErrors.Clone(appErrors.ErrConflict, "statement is not ready")
	}
	return jobID, relPath, nil
}

// OpenArtifact opens the stored statement file for streaming.
func (s *StatementService) OpenArtifact(relPath string) (*os.File, error) {
	return s.export.Open(relPath)
}

// handle processes one queued job end to end.
func (s *StatementService) handle(ctx context.Context, queued jobs.Job) error {
	start := s.now()
	job, err := s.repo.FindByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load statement job %s: %w", queued.ID, err)
	}
	if job.Status == models.StatementFinished || job.Status == models.StatementFailed {
		return nil
	}

	if err := s.repo.UpdateProgress(ctx, job.ID, models.StatementProcessing, 10); err != nil {
		return err
	}

	result, err := s.export.Generate(ctx, job)
	if err != nil {
		finishedAt := s.now().UTC()
		if markErr := s.repo.MarkFailed(ctx, job.ID, err.Error(), finishedAt); markErr != nil {
			s.logger.Error("statement job could not be marked failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		if s.metrics != nil {
			s.metrics.RecordStatementJob(string(models.StatementFailed), s.now().Sub(start))
		}
		return err
	}

	if err := s.repo.MarkFinished(ctx, job.ID, result.URL, s.now().UTC()); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordStatementJob(string(models.StatementFinished), s.now().Sub(start))
	}
	s.logger.Info("statement generated",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("path", result.RelativePath))
	return nil
}

// cleanupLoop periodically deletes expired jobs and their artifacts.
func (s *StatementService) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := s.now().UTC().Add(-s.cfg.ResultTTL)
			ids, err := s.repo.DeleteFinishedBefore(ctx, cutoff)
			if err != nil {
				s.logger.Warn("statement cleanup failed", zap.Error(err))
				continue
			}
			removed, err := s.export.Cleanup(s.cfg.ResultTTL)
			if err != nil {
				s.logger.Warn("statement artifact cleanup failed", zap.Error(err))
			}
			if len(ids) > 0 || len(removed) > 0 {
				s.logger.Info("statement cleanup",
					zap.Int("jobs_deleted", len(ids)),
					zap.Int("files_removed", len(removed)))
			}
		}
	}
}
