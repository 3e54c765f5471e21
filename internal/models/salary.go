package models

import "time"

// SalaryStatus is the payroll state machine: pending and paid only, both
// transitions explicit and reversible.
type SalaryStatus string

const (
	SalaryPending SalaryStatus = "pending"
	SalaryPaid    SalaryStatus = "paid"
)

// SalaryRecord tracks one staff member's monthly salary and its payment state.
type SalaryRecord struct {
	ID              string       `db:"id" json:"id"`
	StaffID         string       `db:"staff_id" json:"staff_id"`
	StaffName       string       `db:"staff_name" json:"staff_name"`
	StaffRole       string       `db:"staff_role" json:"staff_role"`
	MonthlySalary   float64      `db:"monthly_salary" json:"monthly_salary"`
	PaymentStatus   SalaryStatus `db:"payment_status" json:"payment_status"`
	LastPaymentDate *time.Time   `db:"last_payment_date" json:"last_payment_date,omitempty"`
	Active          bool         `db:"active" json:"active"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// PayrollSummary holds the ledger aggregates. Invariant after every
// transition: PendingPayments + PaidThisMonth == MonthlyPayroll, and
// MonthlyPayroll equals the sum of all active monthly salaries.
type PayrollSummary struct {
	MonthlyPayroll  float64 `json:"monthly_payroll"`
	PendingPayments float64 `json:"pending_payments"`
	PaidThisMonth   float64 `json:"paid_this_month"`
	PendingCount    int     `json:"pending_count"`
	PaidCount       int     `json:"paid_count"`
}
