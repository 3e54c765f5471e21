package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-finance-api/internal/dto"
	"github.com/noah-isme/school-finance-api/internal/finance"
	"github.com/noah-isme/school-finance-api/internal/models"
)

type fakeFeeSummaries struct {
	byClass map[string]models.ClassFeeSummary
}

func (f *fakeFeeSummaries) ClassSummary(_ context.Context, classID, academicYear string) (*dto.ClassSummaryResponse, bool, error) {
	summary := f.byClass[classID]
	summary.ClassID = classID
	summary.AcademicYear = academicYear
	return &dto.ClassSummaryResponse{Summary: summary, AsOf: time.Now()}, false, nil
}

type fakePayrollSummary struct {
	summary models.PayrollSummary
}

func (f *fakePayrollSummary) Summary(context.Context) (models.PayrollSummary, error) {
	return f.summary, nil
}

func TestDashboardFinanceComposesAndAlerts(t *testing.T) {
	cacheRepo := &stubCacheRepo{}
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)

	svc := NewDashboardService(DashboardServiceParams{
		Classes: &fakeClassLister{classes: []models.Class{
			{ID: "class-a", Name: "Grade 7 Blue", AcademicYear: "2025/2026"},
			{ID: "class-b", Name: "Grade 8 Red", AcademicYear: "2025/2026"},
		}},
		Fees: &fakeFeeSummaries{byClass: map[string]models.ClassFeeSummary{
			"class-a": {TotalFees: 10000, PaidFees: 9000, PendingFees: 1000, CollectionRate: 0.9, RecordCount: 10},
			"class-b": {TotalFees: 8000, PaidFees: 2000, PendingFees: 6000, OverdueFees: 3000, CollectionRate: 0.25, RecordCount: 8},
		}},
		Payroll: &fakePayrollSummary{summary: models.PayrollSummary{
			MonthlyPayroll: 50000, PendingPayments: 20000, PaidThisMonth: 30000,
		}},
		Cache:  cacheSvc,
		Logger: zap.NewNop(),
		Config: DashboardServiceConfig{LowCollectionAlertPct: 60},
	})

	resp, cached, err := svc.Finance(context.Background(), "2025/2026")
	require.NoError(t, err)
	assert.False(t, cached)

	assert.InDelta(t, 18000, resp.Fees.TotalFees, 0.001)
	assert.InDelta(t, 11000, resp.Fees.PaidFees, 0.001)
	assert.InDelta(t, 11000.0/18000.0, resp.Fees.CollectionRate, 0.001)
	assert.Equal(t, 18, resp.Fees.RecordCount)

	require.Len(t, resp.ByClass, 2)
	assert.Equal(t, "Grade 7 Blue", resp.ByClass[0].ClassName)
	assert.Equal(t, []string{"class-b"}, resp.Alerts.LowCollectionClasses)
	assert.InDelta(t, 20000, resp.Payroll.PendingPayments, 0.001)

	// The composed payload was written through to the cache.
	assert.Contains(t, cacheRepo.store, DashboardKey("2025/2026"))
}

// reconcilingFeeSummaries derives class summaries through the real reconciler
// instead of pre-baked numbers, so the alert threshold is checked against the
// rate scale the reconciler actually produces.
type reconcilingFeeSummaries struct {
	records  map[string][]models.FeeRecord
	payments map[string][]models.Payment
}

func (f *reconcilingFeeSummaries) ClassSummary(_ context.Context, classID, academicYear string) (*dto.ClassSummaryResponse, bool, error) {
	summary := finance.Reconcile(f.records[classID], f.payments[classID], time.Now())
	summary.ClassID = classID
	summary.AcademicYear = academicYear
	return &dto.ClassSummaryResponse{Summary: summary, AsOf: time.Now()}, false, nil
}

func TestDashboardFinanceNoAlertForFullyCollectedClass(t *testing.T) {
	due := time.Now().Add(24 * time.Hour)
	svc := NewDashboardService(DashboardServiceParams{
		Classes: &fakeClassLister{classes: []models.Class{
			{ID: "class-a", Name: "Grade 7 Blue", AcademicYear: "2025/2026"},
			{ID: "class-b", Name: "Grade 8 Red", AcademicYear: "2025/2026"},
		}},
		Fees: &reconcilingFeeSummaries{
			records: map[string][]models.FeeRecord{
				"class-a": {{ID: "fr-1", Amount: 1000, DueDate: due}},
				"class-b": {{ID: "fr-2", Amount: 1000, DueDate: due}},
			},
			payments: map[string][]models.Payment{
				"class-a": {{ID: "p1", FeeID: "fr-1", Amount: 1000, Status: models.PaymentCompleted}},
				"class-b": {{ID: "p2", FeeID: "fr-2", Amount: 200, Status: models.PaymentCompleted}},
			},
		},
		Payroll: &fakePayrollSummary{},
		Logger:  zap.NewNop(),
		Config:  DashboardServiceConfig{LowCollectionAlertPct: 60},
	})

	resp, _, err := svc.Finance(context.Background(), "2025/2026")
	require.NoError(t, err)

	// class-a collected 100%: no alert. class-b sits at 20%: alerted.
	assert.Equal(t, []string{"class-b"}, resp.Alerts.LowCollectionClasses)
	assert.InDelta(t, 0.6, resp.Fees.CollectionRate, 0.001)
}

func TestDashboardFinanceRequiresYear(t *testing.T) {
	svc := NewDashboardService(DashboardServiceParams{
		Classes: &fakeClassLister{},
		Fees:    &fakeFeeSummaries{},
		Payroll: &fakePayrollSummary{},
		Logger:  zap.NewNop(),
	})

	_, _, err := svc.Finance(context.Background(), "")
	require.Error(t, err)
}
