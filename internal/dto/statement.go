package dto

import "github.com/noah-isme/school-finance-api/internal/models"

// StatementRequest queues an asynchronous statement export.
type StatementRequest struct {
	Type         models.StatementType   `json:"type" validate:"required"`
	ClassID      string                 `json:"class_id"`
	AcademicYear string                 `json:"academic_year"`
	Format       models.StatementFormat `json:"format" validate:"required"`
}

// StatementJobResponse acknowledges a queued export.
type StatementJobResponse struct {
	ID       string                 `json:"id"`
	Status   models.StatementStatus `json:"status"`
	Progress int                    `json:"progress"`
}

// StatementStatusResponse reports job progress and, once finished, the
// signed download URL.
type StatementStatusResponse struct {
	ID        string                 `json:"id"`
	Status    models.StatementStatus `json:"status"`
	Progress  int                    `json:"progress"`
	ResultURL *string                `json:"result_url,omitempty"`
	Error     *string                `json:"error,omitempty"`
}
