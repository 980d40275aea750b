package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/sis-api/internal/models"
)

// EnrollmentRepository manages school and section enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindActiveForStudent fetches the student's active school enrollment.
func (r *EnrollmentRepository) FindActiveForStudent(ctx context.Context, studentID string) (*models.Enrollment, error) {
	const query = `SELECT e.id, e.student_id, e.school_id, e.entry_date, e.exit_date, e.grade_level, e.status,
        e.created_at, e.updated_at, sc.school_number
        FROM enrollments e JOIN schools sc ON sc.id = e.school_id
        WHERE e.student_id = $1 AND e.status = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Enroll creates an active school enrollment, withdrawing any existing one
// first so a student belongs to a single school at a time.
func (r *EnrollmentRepository) Enroll(ctx context.Context, enrollment *models.Enrollment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enroll: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const withdraw = `UPDATE enrollments SET status = $2, exit_date = $3, updated_at = $3
        WHERE student_id = $1 AND status = $4`
	if _, err := tx.ExecContext(ctx, withdraw, enrollment.StudentID, models.EnrollmentStatusWithdrawn, now, models.EnrollmentStatusActive); err != nil {
		return fmt.Errorf("withdraw previous enrollment: %w", err)
	}

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	enrollment.Status = models.EnrollmentStatusActive
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	const insert = `INSERT INTO enrollments (id, student_id, school_id, entry_date, grade_level, status, created_at, updated_at)
        VALUES (:id, :student_id, :school_id, :entry_date, :grade_level, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return tx.Commit()
}

// Withdraw closes a student's active school enrollment.
func (r *EnrollmentRepository) Withdraw(ctx context.Context, enrollmentID string, exitDate time.Time) error {
	const query = `UPDATE enrollments SET status = $2, exit_date = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, enrollmentID, models.EnrollmentStatusWithdrawn, exitDate, time.Now().UTC()); err != nil {
		return fmt.Errorf("withdraw enrollment: %w", err)
	}
	return nil
}

// AddToSection enrolls a student into a section.
func (r *EnrollmentRepository) AddToSection(ctx context.Context, enrollment *models.SectionEnrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	enrollment.Status = models.EnrollmentStatusActive
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	const query = `INSERT INTO section_enrollments (id, student_id, section_id, begin_date, status, created_at, updated_at)
        VALUES (:id, :student_id, :section_id, :begin_date, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("add section enrollment: %w", err)
	}
	return nil
}

// ExistsInSection checks whether a student already has an active seat in a section.
func (r *EnrollmentRepository) ExistsInSection(ctx context.Context, studentID, sectionID string) (bool, error) {
	const query = `SELECT 1 FROM section_enrollments WHERE student_id = $1 AND section_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, sectionID, models.EnrollmentStatusActive); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check section enrollment: %w", err)
	}
	return true, nil
}

// DropFromSection ends a student's section enrollment.
func (r *EnrollmentRepository) DropFromSection(ctx context.Context, enrollmentID string, endDate time.Time) error {
	const query = `UPDATE section_enrollments SET status = $2, end_date = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, enrollmentID, models.EnrollmentStatusWithdrawn, endDate, time.Now().UTC()); err != nil {
		return fmt.Errorf("drop section enrollment: %w", err)
	}
	return nil
}

// FindSectionEnrollment fetches one section enrollment by ID.
func (r *EnrollmentRepository) FindSectionEnrollment(ctx context.Context, id string) (*models.SectionEnrollment, error) {
	const query = `SELECT se.id, se.student_id, se.section_id, se.begin_date, se.end_date, se.status,
        se.created_at, se.updated_at, s.student_unique_id,
        s.first_name || ' ' || s.last_surname AS student_name
        FROM section_enrollments se JOIN students s ON s.id = se.student_id
        WHERE se.id = $1`
	var enrollment models.SectionEnrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListForStudent returns a student's section enrollments.
func (r *EnrollmentRepository) ListForStudent(ctx context.Context, studentID string) ([]models.SectionEnrollment, error) {
	const query = `SELECT se.id, se.student_id, se.section_id, se.begin_date, se.end_date, se.status,
        se.created_at, se.updated_at, s.student_unique_id,
        s.first_name || ' ' || s.last_surname AS student_name
        FROM section_enrollments se JOIN students s ON s.id = se.student_id
        WHERE se.student_id = $1 ORDER BY se.begin_date DESC`
	var enrollments []models.SectionEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student section enrollments: %w", err)
	}
	return enrollments, nil
}
