package models

import "time"

// GradeType classifies a grade entry.
type GradeType string

const (
	GradeTypeGradingPeriod GradeType = "GRADING_PERIOD"
	GradeTypeSemester      GradeType = "SEMESTER"
	GradeTypeFinal         GradeType = "FINAL"
)

// Grade represents a grade a student earned in a section for a grading period.
type Grade struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	SectionID       string    `db:"section_id" json:"section_id"`
	GradingPeriodID string    `db:"grading_period_id" json:"grading_period_id"`
	NumericGrade    *float64  `db:"numeric_grade" json:"numeric_grade,omitempty"`
	LetterGrade     *string   `db:"letter_grade" json:"letter_grade,omitempty"`
	Type            GradeType `db:"type" json:"type"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// GradeDetail joins the natural-key fields the Ed-Fi grade mapper requires:
// the student-section association tuple plus grading period metadata.
type GradeDetail struct {
	Grade
	StudentUniqueID       string    `db:"student_unique_id" json:"student_unique_id"`
	SectionIdentifier     string    `db:"section_identifier" json:"section_identifier"`
	CourseCode            string    `db:"course_code" json:"course_code"`
	SchoolNumber          int       `db:"school_number" json:"school_number"`
	SessionName           string    `db:"session_name" json:"session_name"`
	SectionBeginDate      time.Time `db:"section_begin_date" json:"section_begin_date"`
	GradingPeriodName     string    `db:"grading_period_name" json:"grading_period_name"`
	GradingPeriodSequence int       `db:"grading_period_sequence" json:"grading_period_sequence"`
}

// GradeFilter scopes grade listings.
type GradeFilter struct {
	StudentID       string
	SectionID       string
	GradingPeriodID string
	Type            GradeType
	Page            int
	PageSize        int
}
