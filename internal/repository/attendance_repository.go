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

// AttendanceRepository manages persistence for attendance events.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Record upserts one attendance event keyed by student, section and date.
func (r *AttendanceRepository) Record(ctx context.Context, event *models.AttendanceEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	const query = `INSERT INTO attendance_events (id, student_id, section_id, date, code, notes, created_at, updated_at)
        VALUES (:id, :student_id, :section_id, :date, :code, :notes, :created_at, :updated_at)
        ON CONFLICT (student_id, section_id, date)
        DO UPDATE SET code = EXCLUDED.code, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}
	return nil
}

// List returns attendance events matching the filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.Code != "" {
		conditions = append(conditions, fmt.Sprintf("code = $%d", len(args)+1))
		args = append(args, filter.Code)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	where := strings.Join(conditions, " AND ")
	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, student_id, section_id, date, code, notes, created_at, updated_at
        FROM attendance_events WHERE %s ORDER BY date DESC LIMIT %d OFFSET %d`, where, size, offset)

	var events []models.AttendanceEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance_events WHERE %s", where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return events, total, nil
}

// Summary aggregates per-code counts for a student in a date range.
func (r *AttendanceRepository) Summary(ctx context.Context, studentID string, from, to *time.Time) (*models.AttendanceSummary, error) {
	conditions := []string{"student_id = $1"}
	args := []interface{}{studentID}
	if from != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *from)
	}
	if to != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *to)
	}

	query := fmt.Sprintf(`SELECT
        COUNT(*) FILTER (WHERE code = 'PRESENT') AS present,
        COUNT(*) FILTER (WHERE code = 'ABSENT') AS absent,
        COUNT(*) FILTER (WHERE code = 'TARDY') AS tardy,
        COUNT(*) FILTER (WHERE code = 'EXCUSED') AS excused
        FROM attendance_events WHERE %s`, strings.Join(conditions, " AND "))

	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, args...); err != nil {
		return nil, fmt.Errorf("attendance summary: %w", err)
	}
	summary.StudentID = studentID
	return &summary, nil
}
