package finance

import (
	"time"

	"github.com/noah-isme/school-finance-api/internal/models"
)

// Reconcile aggregates fee records against their payments. Only completed
// payments count towards a record's paid amount; a record is overdue when it
// still has an outstanding balance and its due date lies before now. The
// collection rate guards the zero-total case explicitly and reports 0.
func Reconcile(records []models.FeeRecord, payments []models.Payment, now time.Time) models.ClassFeeSummary {
	paidByFee := make(map[string]float64, len(records))
	for _, payment := range payments {
		if payment.Status != models.PaymentCompleted {
			continue
		}
		paidByFee[payment.FeeID] += payment.Amount
	}

	summary := models.ClassFeeSummary{RecordCount: len(records)}
	for _, record := range records {
		paid := paidByFee[record.ID]
		if paid > record.Amount {
			paid = record.Amount
		}
		summary.TotalFees += record.Amount
		summary.PaidFees += paid

		outstanding := record.Amount - paid
		if outstanding > 0 && record.DueDate.Before(now) {
			summary.OverdueFees += record.Amount
		}
	}

	summary.PendingFees = summary.TotalFees - summary.PaidFees
	if summary.TotalFees > 0 {
		summary.CollectionRate = summary.PaidFees / summary.TotalFees
	}
	return summary
}

// RecordStatus derives a fee record's status from the completed payments
// applied to it.
func RecordStatus(record models.FeeRecord, payments []models.Payment) models.FeeStatus {
	var paid float64
	for _, payment := range payments {
		if payment.Status != models.PaymentCompleted || payment.FeeID != record.ID {
			continue
		}
		paid += payment.Amount
	}
	switch {
	case paid <= 0:
		return models.FeeUnpaid
	case paid < record.Amount:
		return models.FeePartial
	default:
		return models.FeePaid
	}
}

// Outstanding returns the unpaid remainder of a record given its payments,
// floored at zero.
func Outstanding(record models.FeeRecord, payments []models.Payment) float64 {
	var paid float64
	for _, payment := range payments {
		if payment.Status != models.PaymentCompleted || payment.FeeID != record.ID {
			continue
		}
		paid += payment.Amount
	}
	outstanding := record.Amount - paid
	if outstanding < 0 {
		return 0
	}
	return outstanding
}
