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

// SalaryRepository manages persistence for staff salary records.
type SalaryRepository struct {
	db *sqlx.DB
}

// NewSalaryRepository constructs a SalaryRepository.
func NewSalaryRepository(db *sqlx.DB) *SalaryRepository {
	return &SalaryRepository{db: db}
}

const salaryColumns = `id, staff_id, staff_name, staff_role, monthly_salary, payment_status, last_payment_date, active, created_at, updated_at`

// Create inserts a salary record.
func (r *SalaryRepository) Create(ctx context.Context, record *models.SalaryRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.PaymentStatus == "" {
		record.PaymentStatus = models.SalaryPending
	}

	const query = `INSERT INTO salaries (id, staff_id, staff_name, staff_role, monthly_salary, payment_status, last_payment_date, active, created_at, updated_at)
		VALUES (:id, :staff_id, :staff_name, :staff_role, :monthly_salary, :payment_status, :last_payment_date, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create salary record: %w", err)
	}
	return nil
}

// FindByID fetches one salary record.
func (r *SalaryRepository) FindByID(ctx context.Context, id string) (*models.SalaryRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM salaries WHERE id = $1`, salaryColumns)
	var record models.SalaryRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListActive returns every active salary record ordered by staff name.
func (r *SalaryRepository) ListActive(ctx context.Context) ([]models.SalaryRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM salaries WHERE active = TRUE ORDER BY staff_name ASC`, salaryColumns)
	var records []models.SalaryRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list active salaries: %w", err)
	}
	return records, nil
}

// UpdateStatus moves one record between payment states and stamps the
// payment date when transitioning to paid.
func (r *SalaryRepository) UpdateStatus(ctx context.Context, id string, status models.SalaryStatus, paymentDate *time.Time) error {
	const query = `UPDATE salaries SET payment_status = $2, last_payment_date = $3, updated_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, paymentDate, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update salary status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TransitionAll moves every active record currently in `from` to `to` and
// returns the salary amounts of the transitioned rows so the caller can
// update its aggregates.
func (r *SalaryRepository) TransitionAll(ctx context.Context, from, to models.SalaryStatus, paymentDate *time.Time) ([]float64, error) {
	const query = `UPDATE salaries SET payment_status = $2, last_payment_date = $3, updated_at = $4
		WHERE payment_status = $1 AND active = TRUE RETURNING monthly_salary`
	var amounts []float64
	if err := r.db.SelectContext(ctx, &amounts, query, from, to, paymentDate, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("transition salaries %s to %s: %w", from, to, err)
	}
	return amounts, nil
}

// UpdateAmount changes the monthly salary of one record.
func (r *SalaryRepository) UpdateAmount(ctx context.Context, id string, amount float64) error {
	const query = `UPDATE salaries SET monthly_salary = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, amount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update salary amount: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
