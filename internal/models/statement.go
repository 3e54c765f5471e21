package models

import "time"

// StatementType identifies what a statement export covers.
type StatementType string

const (
	StatementClassFees       StatementType = "class_fees"
	StatementPayrollRegister StatementType = "payroll_register"
)

// StatementFormat is the rendered artifact type.
type StatementFormat string

const (
	StatementFormatCSV StatementFormat = "csv"
	StatementFormatPDF StatementFormat = "pdf"
)

// StatementStatus tracks the lifecycle of an export job.
type StatementStatus string

const (
	StatementQueued     StatementStatus = "queued"
	StatementProcessing StatementStatus = "processing"
	StatementFinished   StatementStatus = "finished"
	StatementFailed     StatementStatus = "failed"
)

// StatementParams narrows what the statement covers.
type StatementParams struct {
	ClassID      string          `json:"class_id,omitempty"`
	AcademicYear string          `json:"academic_year,omitempty"`
	Format       StatementFormat `json:"format"`
}

// StatementJob is a persisted asynchronous export request.
type StatementJob struct {
	ID           string          `db:"id" json:"id"`
	Type         StatementType   `db:"type" json:"type"`
	Status       StatementStatus `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ClassID      *string         `db:"class_id" json:"class_id,omitempty"`
	AcademicYear *string         `db:"academic_year" json:"academic_year,omitempty"`
	Format       StatementFormat `db:"format" json:"format"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
}
