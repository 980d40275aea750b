package models

import "time"

// EnrollmentStatus values for school and section enrollments.
const (
	EnrollmentStatusActive    = "ACTIVE"
	EnrollmentStatusWithdrawn = "WITHDRAWN"
	EnrollmentStatusCompleted = "COMPLETED"
)

// Enrollment links a student to a school.
type Enrollment struct {
	ID         string     `db:"id" json:"id"`
	StudentID  string     `db:"student_id" json:"student_id"`
	SchoolID   string     `db:"school_id" json:"school_id"`
	EntryDate  time.Time  `db:"entry_date" json:"entry_date"`
	ExitDate   *time.Time `db:"exit_date" json:"exit_date,omitempty"`
	GradeLevel string     `db:"grade_level" json:"grade_level"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`

	// Joined for sync and display.
	SchoolNumber int `db:"school_number" json:"school_number,omitempty"`
}

// SectionEnrollment links a student to a course section.
type SectionEnrollment struct {
	ID              string     `db:"id" json:"id"`
	StudentID       string     `db:"student_id" json:"student_id"`
	SectionID       string     `db:"section_id" json:"section_id"`
	BeginDate       time.Time  `db:"begin_date" json:"begin_date"`
	EndDate         *time.Time `db:"end_date" json:"end_date,omitempty"`
	Status          string     `db:"status" json:"status"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`

	// Joined for sync and display.
	StudentUniqueID string `db:"student_unique_id" json:"student_unique_id,omitempty"`
	StudentName     string `db:"student_name" json:"student_name,omitempty"`
}

// EnrollmentFilter scopes enrollment listings.
type EnrollmentFilter struct {
	StudentID string
	SchoolID  string
	SectionID string
	Status    string
	Page      int
	PageSize  int
}
