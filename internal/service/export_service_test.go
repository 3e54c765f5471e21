package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-finance-api/internal/models"
	"github.com/noah-isme/school-finance-api/pkg/storage"
)

type fakeSalaryLister struct {
	records []models.SalaryRecord
}

func (f *fakeSalaryLister) ListActive(context.Context) ([]models.SalaryRecord, error) {
	return f.records, nil
}

func newExportService(t *testing.T, records *fakeRecordStore, payments *fakePaymentStore, salaries *fakeSalaryLister) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewExportService(ExportServiceParams{
		Records:  records,
		Payments: payments,
		Salaries: salaries,
		Storage:  store,
		Signer:   storage.NewSignedURLSigner("test-secret", time.Hour),
		Logger:   zap.NewNop(),
		Config:   ExportConfig{APIPrefix: "/api/v1"},
	})
}

func TestExportClassFeesCSVWithTotals(t *testing.T) {
	due := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	records := newFakeRecordStore(
		feeRecord("fr-1", 1000, due),
		feeRecord("fr-2", 2000, due),
	)
	payments := &fakePaymentStore{payments: []models.Payment{
		{ID: "p1", FeeID: "fr-1", Amount: 400, Status: models.PaymentCompleted},
	}}
	svc := newExportService(t, records, payments, &fakeSalaryLister{})

	classID := "class-7b"
	year := "2025/2026"
	job := &models.StatementJob{
		ID:           "job-1",
		Type:         models.StatementClassFees,
		Format:       models.StatementFormatCSV,
		ClassID:      &classID,
		AcademicYear: &year,
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Contains(t, result.URL, "/api/v1/statements/download/")
	assert.True(t, result.ExpiresAt.After(time.Now()))

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)

	csv := string(content)
	assert.Contains(t, csv, "Student ID,Fee Type,Amount,Outstanding,Status,Due Date")
	assert.Contains(t, csv, "600.00")
	assert.Contains(t, csv, "Total")
	assert.Contains(t, csv, "3000.00")
	assert.Contains(t, csv, "2600.00")
}

func TestExportPayrollRegisterPDF(t *testing.T) {
	paidAt := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	salaries := &fakeSalaryLister{records: []models.SalaryRecord{
		{StaffName: "Alice Staff", StaffRole: "TEACHER", MonthlySalary: 4200, PaymentStatus: models.SalaryPaid, LastPaymentDate: &paidAt},
		{StaffName: "Bob Staff", StaffRole: "BURSAR", MonthlySalary: 3800, PaymentStatus: models.SalaryPending},
	}}
	svc := newExportService(t, newFakeRecordStore(), &fakePaymentStore{}, salaries)

	job := &models.StatementJob{
		ID:     "job-2",
		Type:   models.StatementPayrollRegister,
		Format: models.StatementFormatPDF,
	}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(result.RelativePath, ".pdf"))

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	header := make([]byte, 4)
	_, err = file.Read(header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(header))
}

func TestExportTokenRoundTrip(t *testing.T) {
	svc := newExportService(t, newFakeRecordStore(), &fakePaymentStore{}, &fakeSalaryLister{})

	classID := "class-7b"
	year := "2025/2026"
	job := &models.StatementJob{
		ID: "job-3", Type: models.StatementClassFees, Format: models.StatementFormatCSV,
		ClassID: &classID, AcademicYear: &year,
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-3", jobID)
	assert.Equal(t, result.RelativePath, relPath)

	_, _, _, err = svc.ParseToken(result.Token+"x", false)
	assert.Error(t, err)
}

func TestExportRejectsUnknownType(t *testing.T) {
	svc := newExportService(t, newFakeRecordStore(), &fakePaymentStore{}, &fakeSalaryLister{})

	_, err := svc.Generate(context.Background(), &models.StatementJob{ID: "x", Type: "ledger", Format: models.StatementFormatCSV})
	assert.Error(t, err)
}
