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

// DisciplineRepository manages persistence for discipline incidents.
type DisciplineRepository struct {
	db *sqlx.DB
}

// NewDisciplineRepository constructs a DisciplineRepository.
func NewDisciplineRepository(db *sqlx.DB) *DisciplineRepository {
	return &DisciplineRepository{db: db}
}

// List returns incidents matching the filter.
func (r *DisciplineRepository) List(ctx context.Context, filter models.DisciplineFilter) ([]models.DisciplineIncident, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
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

	query := fmt.Sprintf(`SELECT id, student_id, date, behavior, description, action_taken, reported_by, created_at, updated_at
        FROM discipline_incidents WHERE %s ORDER BY date DESC LIMIT %d OFFSET %d`, where, size, offset)

	var incidents []models.DisciplineIncident
	if err := r.db.SelectContext(ctx, &incidents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list discipline incidents: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM discipline_incidents WHERE %s", where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count discipline incidents: %w", err)
	}
	return incidents, total, nil
}

// FindByID fetches one incident.
func (r *DisciplineRepository) FindByID(ctx context.Context, id string) (*models.DisciplineIncident, error) {
	const query = `SELECT id, student_id, date, behavior, description, action_taken, reported_by, created_at, updated_at
        FROM discipline_incidents WHERE id = $1`
	var incident models.DisciplineIncident
	if err := r.db.GetContext(ctx, &incident, query, id); err != nil {
		return nil, err
	}
	return &incident, nil
}

// Create inserts a new incident.
func (r *DisciplineRepository) Create(ctx context.Context, incident *models.DisciplineIncident) error {
	if incident.ID == "" {
		incident.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	incident.CreatedAt = now
	incident.UpdatedAt = now
	const query = `INSERT INTO discipline_incidents (id, student_id, date, behavior, description, action_taken, reported_by, created_at, updated_at)
        VALUES (:id, :student_id, :date, :behavior, :description, :action_taken, :reported_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("create discipline incident: %w", err)
	}
	return nil
}

// Update modifies an existing incident.
func (r *DisciplineRepository) Update(ctx context.Context, incident *models.DisciplineIncident) error {
	incident.UpdatedAt = time.Now().UTC()
	const query = `UPDATE discipline_incidents SET date = :date, behavior = :behavior, description = :description,
        action_taken = :action_taken, reported_by = :reported_by, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, incident); err != nil {
		return fmt.Errorf("update discipline incident: %w", err)
	}
	return nil
}

// Delete removes an incident.
func (r *DisciplineRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM discipline_incidents WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete discipline incident: %w", err)
	}
	return nil
}
