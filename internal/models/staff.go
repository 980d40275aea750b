package models

import "time"

// Staff represents an employee (teacher, counselor, administrator).
type Staff struct {
	ID            string    `db:"id" json:"id"`
	StaffUniqueID string    `db:"staff_unique_id" json:"staff_unique_id"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastSurname   string    `db:"last_surname" json:"last_surname"`
	Email         string    `db:"email" json:"email"`
	Phone         *string   `db:"phone" json:"phone,omitempty"`
	Position      string    `db:"position" json:"position"`
	SchoolID      *string   `db:"school_id" json:"school_id,omitempty"`
	HireDate      time.Time `db:"hire_date" json:"hire_date"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StaffFilter encapsulates search parameters for listing staff.
type StaffFilter struct {
	Search    string
	SchoolID  string
	Position  string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
