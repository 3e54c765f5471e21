package dto

import "github.com/noah-isme/school-finance-api/internal/models"

// EditSalaryRequest updates a staff member's monthly salary.
type EditSalaryRequest struct {
	MonthlySalary float64 `json:"monthly_salary" validate:"required"`
}

// PayrollActionResponse reports a process/undo transition and the resulting
// aggregates.
type PayrollActionResponse struct {
	Transitioned int                   `json:"transitioned"`
	TotalAmount  float64               `json:"total_amount"`
	NothingToDo  bool                  `json:"nothing_to_do"`
	Summary      models.PayrollSummary `json:"summary"`
}

// SalaryRecordResponse pairs one record with the ledger aggregates after an
// operation touched it.
type SalaryRecordResponse struct {
	Record  models.SalaryRecord   `json:"record"`
	Summary models.PayrollSummary `json:"summary"`
}
