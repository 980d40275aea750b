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

// TermRepository manages persistence for terms and grading periods.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository constructs a TermRepository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// List returns terms matching the filter.
func (r *TermRepository) List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.SchoolYear != 0 {
		conditions = append(conditions, fmt.Sprintf("school_year = $%d", len(args)+1))
		args = append(args, filter.SchoolYear)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}

	where := strings.Join(conditions, " AND ")
	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, name, school_year, start_date, end_date, is_active, created_at, updated_at
        FROM terms WHERE %s ORDER BY start_date DESC LIMIT %d OFFSET %d`, where, size, offset)

	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list terms: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM terms WHERE %s", where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count terms: %w", err)
	}
	return terms, total, nil
}

// FindByID fetches one term.
func (r *TermRepository) FindByID(ctx context.Context, id string) (*models.Term, error) {
	const query = `SELECT id, name, school_year, start_date, end_date, is_active, created_at, updated_at
        FROM terms WHERE id = $1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// FindActive fetches the currently active term.
func (r *TermRepository) FindActive(ctx context.Context) (*models.Term, error) {
	const query = `SELECT id, name, school_year, start_date, end_date, is_active, created_at, updated_at
        FROM terms WHERE is_active = true ORDER BY start_date DESC LIMIT 1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query); err != nil {
		return nil, err
	}
	return &term, nil
}

// Create inserts a new term.
func (r *TermRepository) Create(ctx context.Context, term *models.Term) error {
	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	term.CreatedAt = now
	term.UpdatedAt = now
	const query = `INSERT INTO terms (id, name, school_year, start_date, end_date, is_active, created_at, updated_at)
        VALUES (:id, :name, :school_year, :start_date, :end_date, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}

// Update modifies an existing term.
func (r *TermRepository) Update(ctx context.Context, term *models.Term) error {
	term.UpdatedAt = time.Now().UTC()
	const query = `UPDATE terms SET name = :name, school_year = :school_year, start_date = :start_date,
        end_date = :end_date, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("update term: %w", err)
	}
	return nil
}

// Activate marks one term active and deactivates the others.
func (r *TermRepository) Activate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate term: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE terms SET is_active = false, updated_at = $1 WHERE is_active = true`, now); err != nil {
		return fmt.Errorf("deactivate terms: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE terms SET is_active = true, updated_at = $2 WHERE id = $1`, id, now); err != nil {
		return fmt.Errorf("activate term: %w", err)
	}
	return tx.Commit()
}

// ListGradingPeriods returns the grading periods of a term in sequence order.
func (r *TermRepository) ListGradingPeriods(ctx context.Context, termID string) ([]models.GradingPeriod, error) {
	const query = `SELECT id, term_id, name, sequence, start_date, end_date, created_at
        FROM grading_periods WHERE term_id = $1 ORDER BY sequence`
	var periods []models.GradingPeriod
	if err := r.db.SelectContext(ctx, &periods, query, termID); err != nil {
		return nil, fmt.Errorf("list grading periods: %w", err)
	}
	return periods, nil
}

// CreateGradingPeriod inserts one grading period.
func (r *TermRepository) CreateGradingPeriod(ctx context.Context, period *models.GradingPeriod) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	if period.CreatedAt.IsZero() {
		period.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO grading_periods (id, term_id, name, sequence, start_date, end_date, created_at)
        VALUES (:id, :term_id, :name, :sequence, :start_date, :end_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("create grading period: %w", err)
	}
	return nil
}
