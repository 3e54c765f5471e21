package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-finance-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestFeeRepositoryUpsertStructureSupersedesActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE fee_structures SET superseded = TRUE").
		WithArgs("class-7b", "2025/2026", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO fee_structures").
		WithArgs(sqlmock.AnyArg(), "class-7b", "2025/2026", 2500.0, sqlmock.AnyArg(), sqlmock.AnyArg(), 300.0, 3600.0, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	structure := &models.FeeStructure{
		ClassID:      "class-7b",
		AcademicYear: "2025/2026",
		TuitionFee:   2500,
		Extracurricular: map[models.FeeCategory]float64{
			models.CategorySports: 500,
		},
		Discount: 300,
		TotalFee: 3600,
		DueDate:  time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.UpsertStructure(context.Background(), structure))
	assert.NotEmpty(t, structure.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryActiveStructureDecodesComponents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "class_id", "academic_year", "tuition_fee", "extracurricular", "miscellaneous", "discount", "total_fee", "due_date", "superseded", "created_at", "updated_at"}).
		AddRow("fs-1", "class-7b", "2025/2026", 2500.0, []byte(`{"sports":500}`), []byte(`{"exam":200}`), 300.0, 2900.0, time.Now(), false, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM fee_structures WHERE class_id = $1 AND academic_year = $2 AND superseded = FALSE")).
		WithArgs("class-7b", "2025/2026").
		WillReturnRows(rows)

	structure, err := repo.ActiveStructure(context.Background(), "class-7b", "2025/2026")
	require.NoError(t, err)
	assert.Equal(t, 500.0, structure.Extracurricular[models.CategorySports])
	assert.Equal(t, 200.0, structure.Miscellaneous[models.CategoryExam])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryListRecordsFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "class_id", "fee_type", "academic_year", "amount", "due_date", "status", "superseded", "created_at", "updated_at"}).
		AddRow("fr-1", "st-1", "class-7b", "tuition", "2025/2026", 1000.0, time.Now(), "unpaid", false, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM fee_records WHERE superseded = FALSE AND class_id = $1 ORDER BY due_date ASC LIMIT 100 OFFSET 0")).
		WithArgs("class-7b").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM fee_records WHERE superseded = FALSE AND class_id = $1")).
		WithArgs("class-7b").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.ListRecords(context.Background(), models.FeeRecordFilter{ClassID: "class-7b"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryAllRecordsIsUnpaginated(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "class_id", "fee_type", "academic_year", "amount", "due_date", "status", "superseded", "created_at", "updated_at"}).
		AddRow("fr-1", "st-1", "class-7b", "tuition", "2025/2026", 1000.0, time.Now(), "unpaid", false, time.Now(), time.Now()).
		AddRow("fr-2", "st-2", "class-7b", "tuition", "2025/2026", 1000.0, time.Now(), "paid", false, time.Now(), time.Now())
	// Anchored: the aggregate listing must carry no LIMIT clause.
	mock.ExpectQuery(regexp.QuoteMeta("FROM fee_records WHERE superseded = FALSE AND class_id = $1 AND academic_year = $2 ORDER BY due_date ASC") + "$").
		WithArgs("class-7b", "2025/2026").
		WillReturnRows(rows)

	records, err := repo.AllRecords(context.Background(), models.FeeRecordFilter{ClassID: "class-7b", AcademicYear: "2025/2026"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryUpdateRecordStatusMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectExec("UPDATE fee_records SET status").
		WithArgs("missing", string(models.FeePaid), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateRecordStatus(context.Background(), "missing", models.FeePaid)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
