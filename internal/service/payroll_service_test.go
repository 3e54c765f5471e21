package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/models"
	appErrors "github.com/noah-isme/school-finance-api/pkg/errors"
)

type fakeSalaryStore struct {
	records map[string]*models.SalaryRecord
	order   []string
}

func newFakeSalaryStore(records ...*models.SalaryRecord) *fakeSalaryStore {
	store := &fakeSalaryStore{records: map[string]*models.SalaryRecord{}}
	for _, record := range records {
		store.records[record.ID] = record
		store.order = append(store.order, record.ID)
	}
	return store
}

func (f *fakeSalaryStore) Create(_ context.Context, record *models.SalaryRecord) error {
	if record.ID == "" {
		record.ID = "gen-" + record.StaffID
	}
	f.records[record.ID] = record
	f.order = append(f.order, record.ID)
	return nil
}

func (f *fakeSalaryStore) FindByID(_ context.Context, id string) (*models.SalaryRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *record
	return &clone, nil
}

func (f *fakeSalaryStore) ListActive(context.Context) ([]models.SalaryRecord, error) {
	var out []models.SalaryRecord
	for _, id := range f.order {
		if f.records[id].Active {
			out = append(out, *f.records[id])
		}
	}
	return out, nil
}

func (f *fakeSalaryStore) UpdateStatus(_ context.Context, id string, status models.SalaryStatus, paymentDate *time.Time) error {
	record, ok := f.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	record.PaymentStatus = status
	record.LastPaymentDate = paymentDate
	return nil
}

func (f *fakeSalaryStore) TransitionAll(_ context.Context, from, to models.SalaryStatus, paymentDate *time.Time) ([]float64, error) {
	var amounts []float64
	for _, id := range f.order {
		record := f.records[id]
		if record.Active && record.PaymentStatus == from {
			record.PaymentStatus = to
			record.LastPaymentDate = paymentDate
			amounts = append(amounts, record.MonthlySalary)
		}
	}
	return amounts, nil
}

func (f *fakeSalaryStore) UpdateAmount(_ context.Context, id string, amount float64) error {
	record, ok := f.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	record.MonthlySalary = amount
	return nil
}

func pendingSalary(id string, amount float64) *models.SalaryRecord {
	return &models.SalaryRecord{
		ID:            id,
		StaffID:       "stf-" + id,
		StaffName:     "Staff " + id,
		StaffRole:     "TEACHER",
		MonthlySalary: amount,
		PaymentStatus: models.SalaryPending,
		Active:        true,
	}
}

func assertLedgerInvariant(t *testing.T, summary models.PayrollSummary) {
	t.Helper()
	assert.InDelta(t, summary.MonthlyPayroll, summary.PendingPayments+summary.PaidThisMonth, 0.001)
}

func TestPayrollProcessAllPaysEveryPending(t *testing.T) {
	store := newFakeSalaryStore(pendingSalary("s1", 4200), pendingSalary("s2", 3800))
	svc := NewPayrollService(PayrollServiceParams{Salaries: store, Logger: zap.NewNop()})

	resp, err := svc.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Transitioned)
	assert.InDelta(t, 8000, resp.TotalAmount, 0.001)
	assert.False(t, resp.NothingToDo)
	assert.InDelta(t, 0, resp.Summary.PendingPayments, 0.001)
	assert.InDelta(t, 8000, resp.Summary.PaidThisMonth, 0.001)
	assertLedgerInvariant(t, resp.Summary)
}

func TestPayrollProcessAllTwiceIsNoOp(t *testing.T) {
	store := newFakeSalaryStore(pendingSalary("s1", 4200))
	svc := NewPayrollService(PayrollServiceParams{Salaries: store, Logger: zap.NewNop()})

	_, err := svc.ProcessAll(context.Background())
	require.NoError(t, err)

	resp, err := svc.ProcessAll(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.NothingToDo)
	assert.Zero(t, resp.Transitioned)
	assertLedgerInvariant(t, resp.Summary)
}

func TestPayrollUndoAllRestoresPending(t *testing.T) {
	store := newFakeSalaryStore(pendingSalary("s1", 4200), pendingSalary("s2", 3800))
	svc := NewPayrollService(PayrollServiceParams{Salaries: store, Logger: zap.NewNop()})

	_, err := svc.ProcessAll(context.Background())
	require.NoError(t, err)

	resp, err := svc.UndoAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Transitioned)
	assert.InDelta(t, 8000, resp.Summary.PendingPayments, 0.001)
	assert.InDelta(t, 0, resp.Summary.PaidThisMonth, 0.001)
	assert.Equal(t, 2, resp.Summary.PendingCount)
	assertLedgerInvariant(t, resp.Summary)
}

func TestPayrollProcessOneRejectsAlreadyPaid(t *testing.T) {
	store := newFakeSalaryStore(pendingSalary("s1", 4200))
	svc := NewPayrollService(PayrollServiceParams{Salaries: store, Logger: zap.NewNop()})

	_, err := svc.ProcessOne(context.Background(), "s1")
	require.NoError(t, err)

	paidAt := store.records["s1"].LastPaymentDate
	require.NotNil(t, paidAt)
	before, err := svc.Summary(context.Background())
	require.NoError(t, err)

	_, err = svc.ProcessOne(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyPaid.Code, appErrors.FromError(err).Code)
	assert.True(t, appErrors.IsStateConflict(err))

	// The rejected retry is a pure no-op: payment date and aggregates stay put.
	assert.Equal(t, paidAt, store.records["s1"].LastPaymentDate)
	after, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assertLedgerInvariant(t, after)
}

func TestPayrollUndoOneRejectsAlreadyPending(t *testing.T) {
	store := newFakeSalaryStore(pendingSalary("s1", 4200))
	svc := NewPayrollService(PayrollServiceParams{Salaries: store, Logger: zap.NewNop()})

	_, err := svc.UndoOne(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyPending.Code, appErrors.FromError(err).Code)
}

func TestPayrollEditSalaryAdjustsAggregatesBySignedDelta(t *testing.T) {
	store := newFakeSalaryStore(pendingSalary("s1", 4000), pendingSalary("s2", 3000))
	svc := NewPayrollService(PayrollServiceParams{Salaries: store, Logger: zap.NewNop()})

	// s1 stays pending, raise by 500.
	resp, err := svc.EditSalary(context.Background(), "s1", dto.EditSalaryRequest{MonthlySalary: 4500})
	require.NoError(t, err)
	assert.InDelta(t, 7500, resp.Summary.MonthlyPayroll, 0.001)
	assert.InDelta(t, 7500, resp.Summary.PendingPayments, 0.001)
	assertLedgerInvariant(t, resp.Summary)

	// Pay s2, then lower it; the delta lands in paid, not pending.
	_, err = svc.ProcessOne(context.Background(), "s2")
	require.NoError(t, err)
	resp, err = svc.EditSalary(context.Background(), "s2", dto.EditSalaryRequest{MonthlySalary: 2500})
	require.NoError(t, err)
	assert.InDelta(t, 7000, resp.Summary.MonthlyPayroll, 0.001)
	assert.InDelta(t, 4500, resp.Summary.PendingPayments, 0.001)
	assert.InDelta(t, 2500, resp.Summary.PaidThisMonth, 0.001)
	assertLedgerInvariant(t, resp.Summary)
}

func TestPayrollEditSalaryRejectsOutOfBounds(t *testing.T) {
	store := newFakeSalaryStore(pendingSalary("s1", 4000))
	svc := NewPayrollService(PayrollServiceParams{
		Salaries: store,
		Logger:   zap.NewNop(),
		Config:   PayrollServiceConfig{MaxMonthlySalary: 10000},
	})

	_, err := svc.EditSalary(context.Background(), "s1", dto.EditSalaryRequest{MonthlySalary: 0})
	require.Error(t, err)
	_, err = svc.EditSalary(context.Background(), "s1", dto.EditSalaryRequest{MonthlySalary: 10001})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPayrollAddRegistersPending(t *testing.T) {
	store := newFakeSalaryStore(pendingSalary("s1", 4000))
	svc := NewPayrollService(PayrollServiceParams{Salaries: store, Logger: zap.NewNop()})

	resp, err := svc.Add(context.Background(), &models.SalaryRecord{
		StaffID: "stf-9", StaffName: "New Hire", StaffRole: "BURSAR", MonthlySalary: 2000,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SalaryPending, resp.Record.PaymentStatus)
	assert.InDelta(t, 6000, resp.Summary.MonthlyPayroll, 0.001)
	assert.Equal(t, 2, resp.Summary.PendingCount)
	assertLedgerInvariant(t, resp.Summary)
}
