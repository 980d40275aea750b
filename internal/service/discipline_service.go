package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edustack/sis-api/internal/models"
	appErrors "github.com/edustack/sis-api/pkg/errors"
)

type disciplineRepository interface {
	List(ctx context.Context, filter models.DisciplineFilter) ([]models.DisciplineIncident, int, error)
	FindByID(ctx context.Context, id string) (*models.DisciplineIncident, error)
	Create(ctx context.Context, incident *models.DisciplineIncident) error
	Update(ctx context.Context, incident *models.DisciplineIncident) error
	Delete(ctx context.Context, id string) error
}

// DisciplineRequest holds payload for incident records.
type DisciplineRequest struct {
	StudentID   string    `json:"student_id" validate:"required,uuid4"`
	Date        time.Time `json:"date" validate:"required"`
	Behavior    string    `json:"behavior" validate:"required"`
	Description *string   `json:"description"`
	ActionTaken *string   `json:"action_taken"`
	ReportedBy  string    `json:"reported_by" validate:"required"`
}

// DisciplineService handles behavior incident records.
type DisciplineService struct {
	repo      disciplineRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDisciplineService constructs the discipline service.
func NewDisciplineService(repo disciplineRepository, validate *validator.Validate, logger *zap.Logger) *DisciplineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DisciplineService{repo: repo, validator: validate, logger: logger}
}

// List returns incidents and pagination metadata.
func (s *DisciplineService) List(ctx context.Context, filter models.DisciplineFilter) ([]models.DisciplineIncident, *models.Pagination, error) {
	incidents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list incidents")
	}
	return incidents, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one incident.
func (s *DisciplineService) Get(ctx context.Context, id string) (*models.DisciplineIncident, error) {
	incident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}
	return incident, nil
}

// Create records a new incident.
func (s *DisciplineService) Create(ctx context.Context, req DisciplineRequest) (*models.DisciplineIncident, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid incident payload")
	}
	incident := &models.DisciplineIncident{
		StudentID:   req.StudentID,
		Date:        req.Date,
		Behavior:    req.Behavior,
		Description: req.Description,
		ActionTaken: req.ActionTaken,
		ReportedBy:  req.ReportedBy,
	}
	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create incident")
	}
	return incident, nil
}

// Update modifies an existing incident.
func (s *DisciplineService) Update(ctx context.Context, id string, req DisciplineRequest) (*models.DisciplineIncident, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid incident payload")
	}
	incident, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}

	incident.StudentID = req.StudentID
	incident.Date = req.Date
	incident.Behavior = req.Behavior
	incident.Description = req.Description
	incident.ActionTaken = req.ActionTaken
	incident.ReportedBy = req.ReportedBy
	if err := s.repo.Update(ctx, incident); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update incident")
	}
	return incident, nil
}

// Delete removes an incident.
func (s *DisciplineService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "incident not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load incident")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete incident")
	}
	return nil
}
