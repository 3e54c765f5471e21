package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-finance-api/internal/models"
)

func TestSalaryRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSalaryRepository(db)

	rows := sqlmock.NewRows([]string{"id", "staff_id", "staff_name", "staff_role", "monthly_salary", "payment_status", "last_payment_date", "active", "created_at", "updated_at"}).
		AddRow("s1", "stf-1", "Alice Staff", "TEACHER", 4200.0, "pending", nil, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM salaries WHERE active = TRUE ORDER BY staff_name ASC")).
		WillReturnRows(rows)

	records, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.SalaryPending, records[0].PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSalaryRepositoryTransitionAllReturnsAmounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSalaryRepository(db)

	paidAt := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"monthly_salary"}).AddRow(4200.0).AddRow(3800.0)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE salaries SET payment_status = $2, last_payment_date = $3, updated_at = $4")).
		WithArgs(string(models.SalaryPending), string(models.SalaryPaid), paidAt, sqlmock.AnyArg()).
		WillReturnRows(rows)

	amounts, err := repo.TransitionAll(context.Background(), models.SalaryPending, models.SalaryPaid, &paidAt)
	require.NoError(t, err)
	assert.Equal(t, []float64{4200, 3800}, amounts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSalaryRepositoryUpdateAmountMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSalaryRepository(db)

	mock.ExpectExec("UPDATE salaries SET monthly_salary").
		WithArgs("missing", 5000.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateAmount(context.Background(), "missing", 5000)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSalaryRepositoryCreateDefaultsStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSalaryRepository(db)

	mock.ExpectExec("INSERT INTO salaries").
		WithArgs(sqlmock.AnyArg(), "stf-1", "Alice Staff", "TEACHER", 4200.0, string(models.SalaryPending), nil, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.SalaryRecord{StaffID: "stf-1", StaffName: "Alice Staff", StaffRole: "TEACHER", MonthlySalary: 4200, Active: true}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.Equal(t, models.SalaryPending, record.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
