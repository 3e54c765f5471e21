package models

import "time"

// Student represents an enrolled student record.
type Student struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	ClassID      string    `db:"class_id" json:"class_id"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures filtering options for listing students.
type StudentFilter struct {
	ClassID  string
	Active   *bool
	Search   string
	Page     int
	PageSize int
}
