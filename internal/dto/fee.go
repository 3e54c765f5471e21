package dto

import (
	"time"

	"github.com/noah-isme/school-finance-api/internal/models"
)

// UpsertFeeStructureRequest creates or replaces the fee structure for a
// class/year pair. Category keys are validated against the closed set.
type UpsertFeeStructureRequest struct {
	ClassID         string             `json:"class_id" validate:"required"`
	AcademicYear    string             `json:"academic_year" validate:"required"`
	TuitionFee      float64            `json:"tuition_fee"`
	Extracurricular map[string]float64 `json:"extracurricular"`
	Miscellaneous   map[string]float64 `json:"miscellaneous"`
	Discount        float64            `json:"discount"`
	DueDate         time.Time          `json:"due_date" validate:"required"`
}

// FeeStructureResponse echoes a stored structure with its computed total.
type FeeStructureResponse struct {
	ID              string                         `json:"id"`
	ClassID         string                         `json:"class_id"`
	AcademicYear    string                         `json:"academic_year"`
	TuitionFee      float64                        `json:"tuition_fee"`
	Extracurricular map[models.FeeCategory]float64 `json:"extracurricular"`
	Miscellaneous   map[models.FeeCategory]float64 `json:"miscellaneous"`
	Discount        float64                        `json:"discount"`
	TotalFee        float64                        `json:"total_fee"`
	DueDate         time.Time                      `json:"due_date"`
	Superseded      bool                           `json:"superseded"`
}

// PayFeeRequest applies a payment against a fee record.
type PayFeeRequest struct {
	Amount      float64              `json:"amount" validate:"required"`
	Method      models.PaymentMethod `json:"method" validate:"required"`
	ReceiptNo   string               `json:"receipt_no"`
	CollectedBy string               `json:"-"`
}

// PayFeeResponse reports the updated record and the recorded payment.
type PayFeeResponse struct {
	Record      models.FeeRecord `json:"record"`
	Payment     models.Payment   `json:"payment"`
	Outstanding float64          `json:"outstanding"`
}

// ClassSummaryResponse wraps the reconciled aggregates for one class.
type ClassSummaryResponse struct {
	Summary models.ClassFeeSummary `json:"summary"`
	AsOf    time.Time              `json:"as_of"`
}
