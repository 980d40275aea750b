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

const sectionDetailColumns = `cs.id, cs.section_identifier, cs.course_id, cs.school_id, cs.term_id, cs.teacher_id,
        cs.period, cs.room, cs.max_seats, cs.created_at, cs.updated_at,
        c.code AS course_code, c.name AS course_name, sc.school_number, t.name AS session_name,
        t.start_date AS term_start, t.end_date AS term_end`

const sectionDetailJoins = `FROM course_sections cs
        JOIN courses c ON c.id = cs.course_id
        JOIN schools sc ON sc.id = cs.school_id
        JOIN terms t ON t.id = cs.term_id`

// SectionRepository manages persistence for course sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs a SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns sections with joined context matching the filter.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}

	where := strings.Join(conditions, " AND ")
	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY cs.section_identifier ASC LIMIT %d OFFSET %d",
		sectionDetailColumns, sectionDetailJoins, where, size, offset)

	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", sectionDetailJoins, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

// FindByID fetches one section with its roster.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE cs.id = $1", sectionDetailColumns, sectionDetailJoins)
	var section models.SectionDetail
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}

	roster, err := r.rosterFor(ctx, id)
	if err != nil {
		return nil, err
	}
	section.Enrollments = roster
	return &section, nil
}

// ListDetailsForActiveTerm returns every section of active terms with rosters,
// for bulk synchronization.
func (r *SectionRepository) ListDetailsForActiveTerm(ctx context.Context) ([]models.SectionDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE t.is_active = true ORDER BY cs.section_identifier", sectionDetailColumns, sectionDetailJoins)
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query); err != nil {
		return nil, fmt.Errorf("list sections for active term: %w", err)
	}

	for i := range sections {
		roster, err := r.rosterFor(ctx, sections[i].ID)
		if err != nil {
			return nil, err
		}
		sections[i].Enrollments = roster
	}
	return sections, nil
}

func (r *SectionRepository) rosterFor(ctx context.Context, sectionID string) ([]models.SectionEnrollment, error) {
	const query = `SELECT se.id, se.student_id, se.section_id, se.begin_date, se.end_date, se.status,
        se.created_at, se.updated_at, s.student_unique_id,
        s.first_name || ' ' || s.last_surname AS student_name
        FROM section_enrollments se JOIN students s ON s.id = se.student_id
        WHERE se.section_id = $1 ORDER BY s.last_surname, s.first_name`
	var roster []models.SectionEnrollment
	if err := r.db.SelectContext(ctx, &roster, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section roster: %w", err)
	}
	return roster, nil
}

// Create inserts a new section.
func (r *SectionRepository) Create(ctx context.Context, section *models.CourseSection) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	const query = `INSERT INTO course_sections (id, section_identifier, course_id, school_id, term_id, teacher_id, period, room, max_seats, created_at, updated_at)
        VALUES (:id, :section_identifier, :course_id, :school_id, :term_id, :teacher_id, :period, :room, :max_seats, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update modifies an existing section.
func (r *SectionRepository) Update(ctx context.Context, section *models.CourseSection) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE course_sections SET section_identifier = :section_identifier, course_id = :course_id,
        school_id = :school_id, term_id = :term_id, teacher_id = :teacher_id, period = :period, room = :room,
        max_seats = :max_seats, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// Delete removes a section.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM course_sections WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}

// CountActiveSeats returns the active roster size of a section.
func (r *SectionRepository) CountActiveSeats(ctx context.Context, sectionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM section_enrollments WHERE section_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sectionID, models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("count active seats: %w", err)
	}
	return count, nil
}
