package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-finance-api/internal/models"
)

// StatementRepository manages persistence for statement export jobs.
type StatementRepository struct {
	db *sqlx.DB
}

// NewStatementRepository constructs a StatementRepository.
func NewStatementRepository(db *sqlx.DB) *StatementRepository {
	return &StatementRepository{db: db}
}

const statementColumns = `id, type, status, progress, class_id, academic_year, format, result_url, error_message, created_by, created_at, finished_at`

// Create inserts a new statement job in queued state.
func (r *StatementRepository) Create(ctx context.Context, job *models.StatementJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.StatementQueued
	}

	const query = `INSERT INTO statement_jobs (id, type, status, progress, class_id, academic_year, format, result_url, error_message, created_by, created_at, finished_at)
		VALUES (:id, :type, :status, :progress, :class_id, :academic_year, :format, :result_url, :error_message, :created_by, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create statement job: %w", err)
	}
	return nil
}

// FindByID fetches one statement job.
func (r *StatementRepository) FindByID(ctx context.Context, id string) (*models.StatementJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM statement_jobs WHERE id = $1`, statementColumns)
	var job models.StatementJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByUser returns the most recent jobs created by one user.
func (r *StatementRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.StatementJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM statement_jobs WHERE created_by = $1 ORDER BY created_at DESC LIMIT %d`, statementColumns, limit)
	var jobs []models.StatementJob
	if err := r.db.SelectContext(ctx, &jobs, query, userID); err != nil {
		return nil, fmt.Errorf("list statement jobs: %w", err)
	}
	return jobs, nil
}

// UpdateProgress records worker progress for a running job.
func (r *StatementRepository) UpdateProgress(ctx context.Context, id string, status models.StatementStatus, progress int) error {
	const query = `UPDATE statement_jobs SET status = $2, progress = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, progress)
	if err != nil {
		return fmt.Errorf("update statement progress: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkFinished stores the download URL and stamps completion.
func (r *StatementRepository) MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error {
	const query = `UPDATE statement_jobs SET status = $2, progress = 100, result_url = $3, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.StatementFinished, resultURL, finishedAt); err != nil {
		return fmt.Errorf("mark statement finished: %w", err)
	}
	return nil
}

// MarkFailed records the terminal failure reason.
func (r *StatementRepository) MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error {
	const query = `UPDATE statement_jobs SET status = $2, error_message = $3, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.StatementFailed, message, finishedAt); err != nil {
		return fmt.Errorf("mark statement failed: %w", err)
	}
	return nil
}

// DeleteFinishedBefore removes finished or failed jobs older than the cutoff
// and returns the deleted IDs so the caller can clean up stored files.
func (r *StatementRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `DELETE FROM statement_jobs WHERE status IN ($1, $2) AND finished_at < $3 RETURNING id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, models.StatementFinished, models.StatementFailed, cutoff); err != nil {
		return nil, fmt.Errorf("delete finished statement jobs: %w", err)
	}
	return ids, nil
}
