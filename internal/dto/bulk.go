package dto

import "github.com/noah-isme/school-finance-api/internal/bulk"

// BulkActivateStudentsRequest activates the listed student accounts; an
// empty list means all currently inactive students.
type BulkActivateStudentsRequest struct {
	StudentIDs []string `json:"student_ids"`
}

// BulkGenerateFeesRequest creates fee records for every class in the year
// from each class's fee structure.
type BulkGenerateFeesRequest struct {
	AcademicYear string `json:"academic_year" validate:"required"`
	FeeType      string `json:"fee_type" validate:"required"`
}

// BulkSetUserActiveRequest flips the active flag on many user accounts.
type BulkSetUserActiveRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1"`
	Active  bool     `json:"active"`
}

// BulkOutcomeResponse surfaces the per-item accounting of one bulk run.
type BulkOutcomeResponse struct {
	Outcome bulk.Outcome `json:"outcome"`
}
