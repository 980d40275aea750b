package models

import "time"

// CourseSection represents a scheduled class of a course within a term.
type CourseSection struct {
	ID                string    `db:"id" json:"id"`
	SectionIdentifier string    `db:"section_identifier" json:"section_identifier"`
	CourseID          string    `db:"course_id" json:"course_id"`
	SchoolID          string    `db:"school_id" json:"school_id"`
	TermID            string    `db:"term_id" json:"term_id"`
	TeacherID         *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Period            *int      `db:"period" json:"period,omitempty"`
	Room              *string   `db:"room" json:"room,omitempty"`
	MaxSeats          int       `db:"max_seats" json:"max_seats"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail joins the course, school and term fields the schedule and the
// sync mappers need.
type SectionDetail struct {
	CourseSection
	CourseCode   string              `db:"course_code" json:"course_code"`
	CourseName   string              `db:"course_name" json:"course_name"`
	SchoolNumber int                 `db:"school_number" json:"school_number"`
	SessionName  string              `db:"session_name" json:"session_name"`
	TermStart    time.Time           `db:"term_start" json:"term_start"`
	TermEnd      time.Time           `db:"term_end" json:"term_end"`
	Enrollments  []SectionEnrollment `json:"enrollments,omitempty"`
}

// SectionFilter encapsulates search parameters for listing sections.
type SectionFilter struct {
	CourseID  string
	SchoolID  string
	TermID    string
	TeacherID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
