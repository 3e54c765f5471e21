package dto

import "github.com/noah-isme/school-finance-api/internal/models"

// ClassCollection is one class's collection snapshot on the dashboard.
type ClassCollection struct {
	ClassID        string  `json:"class_id"`
	ClassName      string  `json:"class_name"`
	CollectionRate float64 `json:"collection_rate"`
	OverdueFees    float64 `json:"overdue_fees"`
}

// FinanceAlerts lists classes needing attention.
type FinanceAlerts struct {
	LowCollectionClasses []string `json:"low_collection_classes"`
}

// FinanceDashboardResponse is the principal-facing composite view.
type FinanceDashboardResponse struct {
	AcademicYear string                 `json:"academic_year"`
	Fees         models.ClassFeeSummary `json:"fees"`
	ByClass      []ClassCollection      `json:"by_class"`
	Payroll      models.PayrollSummary  `json:"payroll"`
	Alerts       FinanceAlerts          `json:"alerts"`
}
