package models

import "time"

// DisciplineIncident records a behavior incident and the action taken.
type DisciplineIncident struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	Date        time.Time `db:"date" json:"date"`
	Behavior    string    `db:"behavior" json:"behavior"`
	Description *string   `db:"description" json:"description,omitempty"`
	ActionTaken *string   `db:"action_taken" json:"action_taken,omitempty"`
	ReportedBy  string    `db:"reported_by" json:"reported_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DisciplineFilter scopes incident listings.
type DisciplineFilter struct {
	StudentID string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
