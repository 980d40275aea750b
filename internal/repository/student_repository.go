package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/sis-api/internal/models"
)

const studentColumns = `s.id, s.student_unique_id, s.first_name, s.middle_name, s.last_surname, s.birth_date,
        s.sex, s.grade_level, s.email, s.phone, s.street, s.city, s.state, s.postal_code, s.active, s.created_at, s.updated_at`

// StudentRepository manages persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the filter.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students s"
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.SchoolID != "" {
		base += " JOIN enrollments e ON e.student_id = s.id AND e.status = $1"
		args = append(args, models.EnrollmentStatusActive)
		conditions = append(conditions, fmt.Sprintf("e.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.GradeLevel != "" {
		conditions = append(conditions, fmt.Sprintf("s.grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name) LIKE $%d OR LOWER(s.last_surname) LIKE $%d OR LOWER(s.student_unique_id) LIKE $%d)",
			len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"last_surname":      "s.last_surname",
		"student_unique_id": "s.student_unique_id",
		"grade_level":       "s.grade_level",
		"created_at":        "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.last_surname"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		studentColumns, base, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(DISTINCT s.id) %s", base)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches one student with their school enrollments.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.id = $1", studentColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail.Student, query, id); err != nil {
		return nil, err
	}

	enrollments, err := r.enrollmentsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Enrollments = enrollments
	return &detail, nil
}

// ListDetails returns every active student with enrollments attached, for
// bulk synchronization.
func (r *StudentRepository) ListDetails(ctx context.Context) ([]models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.active = true ORDER BY s.student_unique_id", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list student details: %w", err)
	}

	details := make([]models.StudentDetail, len(students))
	for i, student := range students {
		enrollments, err := r.enrollmentsFor(ctx, student.ID)
		if err != nil {
			return nil, err
		}
		details[i] = models.StudentDetail{Student: student, Enrollments: enrollments}
	}
	return details, nil
}

func (r *StudentRepository) enrollmentsFor(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	const query = `SELECT e.id, e.student_id, e.school_id, e.entry_date, e.exit_date, e.grade_level, e.status,
        e.created_at, e.updated_at, sc.school_number
        FROM enrollments e JOIN schools sc ON sc.id = e.school_id
        WHERE e.student_id = $1 ORDER BY e.entry_date DESC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments for student: %w", err)
	}
	return enrollments, nil
}

// ExistsByUniqueID checks whether a student unique ID is already taken.
func (r *StudentRepository) ExistsByUniqueID(ctx context.Context, uniqueID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE student_unique_id = $1"
	args := []interface{}{uniqueID}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student unique id: %w", err)
	}
	return true, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, student_unique_id, first_name, middle_name, last_surname, birth_date,
        sex, grade_level, email, phone, street, city, state, postal_code, active, created_at, updated_at)
        VALUES (:id, :student_unique_id, :first_name, :middle_name, :last_surname, :birth_date,
        :sex, :grade_level, :email, :phone, :street, :city, :state, :postal_code, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET student_unique_id = :student_unique_id, first_name = :first_name,
        middle_name = :middle_name, last_surname = :last_surname, birth_date = :birth_date, sex = :sex,
        grade_level = :grade_level, email = :email, phone = :phone, street = :street, city = :city,
        state = :state, postal_code = :postal_code, active = :active, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Deactivate marks a student inactive.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE students SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}
