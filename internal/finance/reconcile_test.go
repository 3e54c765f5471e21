package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/school-finance-api/internal/models"
)

var reconcileNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func TestReconcileEmptySet(t *testing.T) {
	summary := Reconcile(nil, nil, reconcileNow)
	assert.Equal(t, 0.0, summary.TotalFees)
	assert.Equal(t, 0.0, summary.CollectionRate)
}

func TestReconcileZeroTotalGuardsDivision(t *testing.T) {
	records := []models.FeeRecord{
		{ID: "fee-1", Amount: 0, DueDate: reconcileNow.Add(24 * time.Hour)},
	}
	summary := Reconcile(records, nil, reconcileNow)
	assert.Equal(t, 0.0, summary.CollectionRate)
}

func TestReconcileUnpaidOverdue(t *testing.T) {
	records := []models.FeeRecord{
		{ID: "fee-1", Amount: 1000, Status: models.FeeUnpaid, DueDate: reconcileNow.Add(-24 * time.Hour)},
	}
	summary := Reconcile(records, nil, reconcileNow)
	assert.Equal(t, 1000.0, summary.TotalFees)
	assert.Equal(t, 0.0, summary.PaidFees)
	assert.Equal(t, 1000.0, summary.PendingFees)
	assert.Equal(t, 1000.0, summary.OverdueFees)
	assert.Equal(t, 0.0, summary.CollectionRate)
}

func TestReconcileCountsOnlyCompletedPayments(t *testing.T) {
	records := []models.FeeRecord{
		{ID: "fee-1", Amount: 1000, DueDate: reconcileNow.Add(24 * time.Hour)},
	}
	payments := []models.Payment{
		{FeeID: "fee-1", Amount: 400, Status: models.PaymentCompleted},
		{FeeID: "fee-1", Amount: 300, Status: models.PaymentPending},
		{FeeID: "fee-1", Amount: 200, Status: models.PaymentFailed},
	}
	summary := Reconcile(records, payments, reconcileNow)
	assert.Equal(t, 400.0, summary.PaidFees)
	assert.Equal(t, 600.0, summary.PendingFees)
	assert.InDelta(t, 0.4, summary.CollectionRate, 1e-9)
}

func TestReconcileCapsOverpayment(t *testing.T) {
	records := []models.FeeRecord{
		{ID: "fee-1", Amount: 500, DueDate: reconcileNow.Add(24 * time.Hour)},
	}
	payments := []models.Payment{
		{FeeID: "fee-1", Amount: 700, Status: models.PaymentCompleted},
	}
	summary := Reconcile(records, payments, reconcileNow)
	assert.Equal(t, 500.0, summary.PaidFees)
	assert.Equal(t, 0.0, summary.PendingFees)
	assert.Equal(t, 1.0, summary.CollectionRate)
}

func TestReconcileOverdueExcludesSettledRecords(t *testing.T) {
	records := []models.FeeRecord{
		{ID: "fee-1", Amount: 500, DueDate: reconcileNow.Add(-48 * time.Hour)},
		{ID: "fee-2", Amount: 500, DueDate: reconcileNow.Add(-48 * time.Hour)},
	}
	payments := []models.Payment{
		{FeeID: "fee-1", Amount: 500, Status: models.PaymentCompleted},
	}
	summary := Reconcile(records, payments, reconcileNow)
	assert.Equal(t, 500.0, summary.OverdueFees)
}

func TestRecordStatusTransitions(t *testing.T) {
	record := models.FeeRecord{ID: "fee-1", Amount: 1000}

	assert.Equal(t, models.FeeUnpaid, RecordStatus(record, nil))

	partial := []models.Payment{{FeeID: "fee-1", Amount: 400, Status: models.PaymentCompleted}}
	assert.Equal(t, models.FeePartial, RecordStatus(record, partial))

	full := append(partial, models.Payment{FeeID: "fee-1", Amount: 600, Status: models.PaymentCompleted})
	assert.Equal(t, models.FeePaid, RecordStatus(record, full))
}

func TestOutstandingFloorsAtZero(t *testing.T) {
	record := models.FeeRecord{ID: "fee-1", Amount: 300}
	payments := []models.Payment{{FeeID: "fee-1", Amount: 500, Status: models.PaymentCompleted}}
	assert.Equal(t, 0.0, Outstanding(record, payments))
}
