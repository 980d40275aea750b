package models

import "time"

// Course represents a course offering owned by a school.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Credits     float64   `db:"credits" json:"credits"`
	Department  string    `db:"department" json:"department"`
	SchoolID    string    `db:"school_id" json:"school_id"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail joins the owning school's identifying fields.
type CourseDetail struct {
	Course
	SchoolNumber int    `db:"school_number" json:"school_number"`
	SchoolName   string `db:"school_name" json:"school_name"`
}

// CourseFilter encapsulates search parameters for listing courses.
type CourseFilter struct {
	Search     string
	SchoolID   string
	Department string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
