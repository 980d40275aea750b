package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/sis-api/internal/models"
)

const gradeDetailColumns = `g.id, g.student_id, g.section_id, g.grading_period_id, g.numeric_grade, g.letter_grade,
        g.type, g.created_at, g.updated_at,
        s.student_unique_id, cs.section_identifier, c.code AS course_code, sc.school_number,
        t.name AS session_name, t.start_date AS section_begin_date,
        gp.name AS grading_period_name, gp.sequence AS grading_period_sequence`

const gradeDetailJoins = `FROM grades g
        JOIN students s ON s.id = g.student_id
        JOIN course_sections cs ON cs.id = g.section_id
        JOIN courses c ON c.id = cs.course_id
        JOIN schools sc ON sc.id = cs.school_id
        JOIN terms t ON t.id = cs.term_id
        JOIN grading_periods gp ON gp.id = g.grading_period_id`

// GradeRepository manages persistence for grades.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// List returns grade details matching the filter.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("g.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("g.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.GradingPeriodID != "" {
		conditions = append(conditions, fmt.Sprintf("g.grading_period_id = $%d", len(args)+1))
		args = append(args, filter.GradingPeriodID)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("g.type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}

	where := strings.Join(conditions, " AND ")
	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY gp.sequence, cs.section_identifier LIMIT %d OFFSET %d",
		gradeDetailColumns, gradeDetailJoins, where, size, offset)

	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list grades: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", gradeDetailJoins, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count grades: %w", err)
	}
	return grades, total, nil
}

// FindByID fetches one grade with its natural-key context.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.GradeDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE g.id = $1", gradeDetailColumns, gradeDetailJoins)
	var grade models.GradeDetail
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		return nil, err
	}
	return &grade, nil
}

// ListDetails returns every grade of active terms, for bulk synchronization.
func (r *GradeRepository) ListDetails(ctx context.Context) ([]models.GradeDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE t.is_active = true ORDER BY s.student_unique_id, gp.sequence",
		gradeDetailColumns, gradeDetailJoins)
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query); err != nil {
		return nil, fmt.Errorf("list grade details: %w", err)
	}
	return grades, nil
}

// Upsert creates or updates the grade keyed by student, section and period.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, student_id, section_id, grading_period_id, numeric_grade, letter_grade, type, created_at, updated_at)
        VALUES (:id, :student_id, :section_id, :grading_period_id, :numeric_grade, :letter_grade, :type, :created_at, :updated_at)
        ON CONFLICT (student_id, section_id, grading_period_id, type)
        DO UPDATE SET numeric_grade = EXCLUDED.numeric_grade, letter_grade = EXCLUDED.letter_grade, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// Delete removes a grade.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM grades WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return nil
}
