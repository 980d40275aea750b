package models

import "time"

// Term models an academic session (e.g. "Fall Semester").
// SchoolYear follows the Ed-Fi convention of naming the year the session ends in.
type Term struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	SchoolYear int       `db:"school_year" json:"school_year"`
	StartDate  time.Time `db:"start_date" json:"start_date"`
	EndDate    time.Time `db:"end_date" json:"end_date"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// GradingPeriod divides a term into graded intervals.
type GradingPeriod struct {
	ID        string    `db:"id" json:"id"`
	TermID    string    `db:"term_id" json:"term_id"`
	Name      string    `db:"name" json:"name"`
	Sequence  int       `db:"sequence" json:"sequence"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TermFilter defines filters supported by term list endpoints.
type TermFilter struct {
	SchoolYear int
	IsActive   *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
