package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-finance-api/internal/models"
)

// FeeRepository manages persistence for fee structures and fee records.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs a FeeRepository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// feeStructureRow maps the table shape; category maps are stored as JSONB.
type feeStructureRow struct {
	ID              string    `db:"id"`
	ClassID         string    `db:"class_id"`
	AcademicYear    string    `db:"academic_year"`
	TuitionFee      float64   `db:"tuition_fee"`
	Extracurricular []byte    `db:"extracurricular"`
	Miscellaneous   []byte    `db:"miscellaneous"`
	Discount        float64   `db:"discount"`
	TotalFee        float64   `db:"total_fee"`
	DueDate         time.Time `db:"due_date"`
	Superseded      bool      `db:"superseded"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r feeStructureRow) toModel() (*models.FeeStructure, error) {
	structure := &models.FeeStructure{
		ID:           r.ID,
		ClassID:      r.ClassID,
		AcademicYear: r.AcademicYear,
		TuitionFee:   r.TuitionFee,
		Discount:     r.Discount,
		TotalFee:     r.TotalFee,
		DueDate:      r.DueDate,
		Superseded:   r.Superseded,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if len(r.Extracurricular) > 0 {
		if err := json.Unmarshal(r.Extracurricular, &structure.Extracurricular); err != nil {
			return nil, fmt.Errorf("decode extracurricular components: %w", err)
		}
	}
	if len(r.Miscellaneous) > 0 {
		if err := json.Unmarshal(r.Miscellaneous, &structure.Miscellaneous); err != nil {
			return nil, fmt.Errorf("decode miscellaneous components: %w", err)
		}
	}
	return structure, nil
}

// UpsertStructure supersedes any active structure for the class/year pair
// and inserts the replacement inside one transaction.
func (r *FeeRepository) UpsertStructure(ctx context.Context, structure *models.FeeStructure) error {
	if structure.ID == "" {
		structure.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if structure.CreatedAt.IsZero() {
		structure.CreatedAt = now
	}
	structure.UpdatedAt = now

	extra, err := json.Marshal(structure.Extracurricular)
	if err != nil {
		return fmt.Errorf("encode extracurricular components: %w", err)
	}
	misc, err := json.Marshal(structure.Miscellaneous)
	if err != nil {
		return fmt.Errorf("encode miscellaneous components: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fee structure upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const supersede = `UPDATE fee_structures SET superseded = TRUE, updated_at = $3 WHERE class_id = $1 AND academic_year = $2 AND superseded = FALSE`
	if _, err := tx.ExecContext(ctx, supersede, structure.ClassID, structure.AcademicYear, now); err != nil {
		return fmt.Errorf("supersede fee structure: %w", err)
	}

	const insert = `INSERT INTO fee_structures (id, class_id, academic_year, tuition_fee, extracurricular, miscellaneous, discount, total_fee, due_date, superseded, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10, $11)`
	if _, err := tx.ExecContext(ctx, insert,
		structure.ID, structure.ClassID, structure.AcademicYear, structure.TuitionFee,
		extra, misc, structure.Discount, structure.TotalFee, structure.DueDate,
		structure.CreatedAt, structure.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert fee structure: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fee structure upsert: %w", err)
	}
	return nil
}

// ActiveStructure fetches the non-superseded structure for a class/year pair.
func (r *FeeRepository) ActiveStructure(ctx context.Context, classID, academicYear string) (*models.FeeStructure, error) {
	const query = `SELECT id, class_id, academic_year, tuition_fee, extracurricular, miscellaneous, discount, total_fee, due_date, superseded, created_at, updated_at
		FROM fee_structures WHERE class_id = $1 AND academic_year = $2 AND superseded = FALSE`
	var row feeStructureRow
	if err := r.db.GetContext(ctx, &row, query, classID, academicYear); err != nil {
		return nil, err
	}
	return row.toModel()
}

// CreateRecord inserts a new fee record.
func (r *FeeRepository) CreateRecord(ctx context.Context, record *models.FeeRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = models.FeeUnpaid
	}

	const query = `INSERT INTO fee_records (id, student_id, class_id, fee_type, academic_year, amount, due_date, status, superseded, created_at, updated_at)
		VALUES (:id, :student_id, :class_id, :fee_type, :academic_year, :amount, :due_date, :status, :superseded, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create fee record: %w", err)
	}
	return nil
}

// FindRecord fetches a fee record by ID.
func (r *FeeRepository) FindRecord(ctx context.Context, id string) (*models.FeeRecord, error) {
	const query = `SELECT id, student_id, class_id, fee_type, academic_year, amount, due_date, status, superseded, created_at, updated_at FROM fee_records WHERE id = $1`
	var record models.FeeRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

func recordFilterClause(filter models.FeeRecordFilter) (string, []interface{}) {
	base := "FROM fee_records WHERE superseded = FALSE"
	var args []interface{}

	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		base += fmt.Sprintf(" AND class_id = $%d", len(args))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		base += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if filter.AcademicYear != "" {
		args = append(args, filter.AcademicYear)
		base += fmt.Sprintf(" AND academic_year = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		base += fmt.Sprintf(" AND status = $%d", len(args))
	}
	return base, args
}

// ListRecords returns fee records matching the filter along with total count.
func (r *FeeRepository) ListRecords(ctx context.Context, filter models.FeeRecordFilter) ([]models.FeeRecord, int, error) {
	base, args := recordFilterClause(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 100
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, student_id, class_id, fee_type, academic_year, amount, due_date, status, superseded, created_at, updated_at %s ORDER BY due_date ASC LIMIT %d OFFSET %d", base, size, offset)
	var records []models.FeeRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fee records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fee records: %w", err)
	}

	return records, total, nil
}

// AllRecords returns every fee record matching the filter, without pagination.
// Aggregate paths (class summaries, statement exports, bulk fee generation)
// must see the full set; paging them would silently under-report.
func (r *FeeRepository) AllRecords(ctx context.Context, filter models.FeeRecordFilter) ([]models.FeeRecord, error) {
	base, args := recordFilterClause(filter)
	query := fmt.Sprintf("SELECT id, student_id, class_id, fee_type, academic_year, amount, due_date, status, superseded, created_at, updated_at %s ORDER BY due_date ASC", base)
	var records []models.FeeRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list all fee records: %w", err)
	}
	return records, nil
}

// UpdateRecordStatus persists a derived status change.
func (r *FeeRepository) UpdateRecordStatus(ctx context.Context, id string, status models.FeeStatus) error {
	const query = `UPDATE fee_records SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update fee record status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
