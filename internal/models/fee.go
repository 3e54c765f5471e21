package models

import (
	"fmt"
	"time"
)

// FeeCategory is the closed set of fee components a structure may carry.
// Unknown category keys are rejected at validation time rather than silently
// accepted or defaulted.
type FeeCategory string

const (
	CategoryExam      FeeCategory = "exam"
	CategoryLibrary   FeeCategory = "library"
	CategorySports    FeeCategory = "sports"
	CategoryTransport FeeCategory = "transport"
	CategoryLab       FeeCategory = "lab"
	CategoryUniform   FeeCategory = "uniform"
)

// ParseFeeCategory validates a raw category key against the closed set.
func ParseFeeCategory(raw string) (FeeCategory, error) {
	switch FeeCategory(raw) {
	case CategoryExam, CategoryLibrary, CategorySports, CategoryTransport, CategoryLab, CategoryUniform:
		return FeeCategory(raw), nil
	default:
		return "", fmt.Errorf("unknown fee category %q", raw)
	}
}

// FeeStructure is the per-class, per-year template a total fee is derived from.
// The (class_id, academic_year) pair is its natural key; regeneration supersedes
// the previous structure instead of deleting it.
type FeeStructure struct {
	ID              string                  `db:"id" json:"id"`
	ClassID         string                  `db:"class_id" json:"class_id"`
	AcademicYear    string                  `db:"academic_year" json:"academic_year"`
	TuitionFee      float64                 `db:"tuition_fee" json:"tuition_fee"`
	Extracurricular map[FeeCategory]float64 `db:"-" json:"extracurricular"`
	Miscellaneous   map[FeeCategory]float64 `db:"-" json:"miscellaneous"`
	Discount        float64                 `db:"discount" json:"discount"`
	TotalFee        float64                 `db:"total_fee" json:"total_fee"`
	DueDate         time.Time               `db:"due_date" json:"due_date"`
	Superseded      bool                    `db:"superseded" json:"superseded"`
	CreatedAt       time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time               `db:"updated_at" json:"updated_at"`
}

// FeeStatus tracks how much of a fee record has been settled.
type FeeStatus string

const (
	FeeUnpaid  FeeStatus = "unpaid"
	FeePartial FeeStatus = "partial"
	FeePaid    FeeStatus = "paid"
)

// FeeRecord is a concrete amount owed by one student. The amount is immutable
// once created; corrections supersede the record.
type FeeRecord struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	ClassID      string    `db:"class_id" json:"class_id"`
	FeeType      string    `db:"fee_type" json:"fee_type"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Amount       float64   `db:"amount" json:"amount"`
	DueDate      time.Time `db:"due_date" json:"due_date"`
	Status       FeeStatus `db:"status" json:"status"`
	Superseded   bool      `db:"superseded" json:"superseded"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// PaymentMethod enumerates accepted settlement channels.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodOnline       PaymentMethod = "online"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheque       PaymentMethod = "cheque"
)

// ValidPaymentMethod reports whether the method is one of the accepted channels.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodCash, MethodOnline, MethodBankTransfer, MethodCheque:
		return true
	default:
		return false
	}
}

// PaymentStatus tracks the settlement state of a single payment. Only
// completed payments count towards a fee record's paid amount.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentPending   PaymentStatus = "pending"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment applies an amount against a fee record. A record may accumulate
// several partial payments.
type Payment struct {
	ID          string        `db:"id" json:"id"`
	FeeID       string        `db:"fee_id" json:"fee_id"`
	Amount      float64       `db:"amount" json:"amount"`
	Method      PaymentMethod `db:"method" json:"method"`
	Status      PaymentStatus `db:"status" json:"status"`
	ReceiptNo   string        `db:"receipt_no" json:"receipt_no"`
	CollectedBy string        `db:"collected_by" json:"collected_by"`
	PaidAt      time.Time     `db:"paid_at" json:"paid_at"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// ClassFeeSummary aggregates the fee records of one class. Derived only,
// never stored.
type ClassFeeSummary struct {
	ClassID        string  `json:"class_id,omitempty"`
	AcademicYear   string  `json:"academic_year,omitempty"`
	TotalFees      float64 `json:"total_fees"`
	PaidFees       float64 `json:"paid_fees"`
	PendingFees    float64 `json:"pending_fees"`
	OverdueFees    float64 `json:"overdue_fees"`
	// CollectionRate is a fraction in [0,1].
	CollectionRate float64 `json:"collection_rate"`
	RecordCount    int     `json:"record_count"`
}

// FeeRecordFilter captures filtering options for listing fee records.
type FeeRecordFilter struct {
	ClassID      string
	StudentID    string
	AcademicYear string
	Status       *FeeStatus
	Page         int
	PageSize     int
}
