package models

import "time"

// AttendanceCode enumerates daily attendance outcomes.
type AttendanceCode string

const (
	AttendancePresent AttendanceCode = "PRESENT"
	AttendanceAbsent  AttendanceCode = "ABSENT"
	AttendanceTardy   AttendanceCode = "TARDY"
	AttendanceExcused AttendanceCode = "EXCUSED"
)

// AttendanceEvent records one student's attendance for a date, optionally
// scoped to a section.
type AttendanceEvent struct {
	ID        string         `db:"id" json:"id"`
	StudentID string         `db:"student_id" json:"student_id"`
	SectionID *string        `db:"section_id" json:"section_id,omitempty"`
	Date      time.Time      `db:"date" json:"date"`
	Code      AttendanceCode `db:"code" json:"code"`
	Notes     *string        `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// AttendanceSummary aggregates counts per code for a student.
type AttendanceSummary struct {
	StudentID string `json:"student_id"`
	Present   int    `db:"present" json:"present"`
	Absent    int    `db:"absent" json:"absent"`
	Tardy     int    `db:"tardy" json:"tardy"`
	Excused   int    `db:"excused" json:"excused"`
}

// AttendanceFilter scopes attendance listings.
type AttendanceFilter struct {
	StudentID string
	SectionID string
	Code      AttendanceCode
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
