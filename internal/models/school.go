package models

import "time"

// SchoolType classifies a school by the grade band it serves.
type SchoolType string

const (
	SchoolTypeElementary SchoolType = "ELEMENTARY"
	SchoolTypeMiddle     SchoolType = "MIDDLE"
	SchoolTypeHigh       SchoolType = "HIGH"
)

// School represents a campus within the district.
// SchoolNumber is the stable numeric identifier used as the Ed-Fi schoolId.
type School struct {
	ID           string     `db:"id" json:"id"`
	SchoolNumber int        `db:"school_number" json:"school_number"`
	Name         string     `db:"name" json:"name"`
	Type         SchoolType `db:"type" json:"type"`
	Street       string     `db:"street" json:"street"`
	City         string     `db:"city" json:"city"`
	State        string     `db:"state" json:"state"`
	PostalCode   string     `db:"postal_code" json:"postal_code"`
	Phone        string     `db:"phone" json:"phone"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// SchoolFilter encapsulates search parameters for listing schools.
type SchoolFilter struct {
	Search    string
	Type      SchoolType
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
