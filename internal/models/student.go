package models

import "time"

// Student represents a learner registered in the district.
// StudentUniqueID is the stable identifier shared with the Ed-Fi ODS.
type Student struct {
	ID              string    `db:"id" json:"id"`
	StudentUniqueID string    `db:"student_unique_id" json:"student_unique_id"`
	FirstName       string    `db:"first_name" json:"first_name"`
	MiddleName      *string   `db:"middle_name" json:"middle_name,omitempty"`
	LastSurname     string    `db:"last_surname" json:"last_surname"`
	BirthDate       time.Time `db:"birth_date" json:"birth_date"`
	Sex             string    `db:"sex" json:"sex"`
	GradeLevel      string    `db:"grade_level" json:"grade_level"`
	Email           *string   `db:"email" json:"email,omitempty"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	Street          *string   `db:"street" json:"street,omitempty"`
	City            *string   `db:"city" json:"city,omitempty"`
	State           *string   `db:"state" json:"state,omitempty"`
	PostalCode      *string   `db:"postal_code" json:"postal_code,omitempty"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	SchoolID   string
	GradeLevel string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// StudentDetail contains student information with school enrollment context.
type StudentDetail struct {
	Student
	Enrollments []Enrollment `json:"enrollments,omitempty"`
}

// CurrentEnrollment returns the active school enrollment when present.
func (d *StudentDetail) CurrentEnrollment() *Enrollment {
	for i := range d.Enrollments {
		if d.Enrollments[i].Status == EnrollmentStatusActive {
			return &d.Enrollments[i]
		}
	}
	return nil
}
