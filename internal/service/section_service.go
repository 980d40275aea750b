package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edustack/sis-api/internal/models"
	appErrors "github.com/edustack/sis-api/pkg/errors"
)

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
	Create(ctx context.Context, section *models.CourseSection) error
	Update(ctx context.Context, section *models.CourseSection) error
	Delete(ctx context.Context, id string) error
	CountActiveSeats(ctx context.Context, sectionID string) (int, error)
}

// SectionRequest holds payload for creating and updating sections.
type SectionRequest struct {
	SectionIdentifier string  `json:"section_identifier" validate:"required"`
	CourseID          string  `json:"course_id" validate:"required,uuid4"`
	SchoolID          string  `json:"school_id" validate:"required,uuid4"`
	TermID            string  `json:"term_id" validate:"required,uuid4"`
	TeacherID         *string `json:"teacher_id" validate:"omitempty,uuid4"`
	Period            *int    `json:"period" validate:"omitempty,gte=1"`
	Room              *string `json:"room"`
	MaxSeats          int     `json:"max_seats" validate:"required,gt=0"`
}

// SectionService handles course-section use-cases.
type SectionService struct {
	repo      sectionRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService constructs the section service.
func NewSectionService(repo sectionRepository, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, validator: validate, logger: logger}
}

// List returns sections and pagination metadata.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one section with its roster.
func (s *SectionService) Get(ctx context.Context, id string) (*models.SectionDetail, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// Create schedules a new section.
func (s *SectionService) Create(ctx context.Context, req SectionRequest) (*models.CourseSection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	section := &models.CourseSection{
		SectionIdentifier: req.SectionIdentifier,
		CourseID:          req.CourseID,
		SchoolID:          req.SchoolID,
		TermID:            req.TermID,
		TeacherID:         req.TeacherID,
		Period:            req.Period,
		Room:              req.Room,
		MaxSeats:          req.MaxSeats,
	}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

// Update modifies an existing section. MaxSeats cannot drop below the number
// of currently enrolled students.
func (s *SectionService) Update(ctx context.Context, id string, req SectionRequest) (*models.CourseSection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	seats, err := s.repo.CountActiveSeats(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrolled students")
	}
	if req.MaxSeats < seats {
		return nil, appErrors.Clone(appErrors.ErrConflict, "max seats is below current enrollment")
	}

	section := detail.CourseSection
	section.SectionIdentifier = req.SectionIdentifier
	section.CourseID = req.CourseID
	section.SchoolID = req.SchoolID
	section.TermID = req.TermID
	section.TeacherID = req.TeacherID
	section.Period = req.Period
	section.Room = req.Room
	section.MaxSeats = req.MaxSeats
	if err := s.repo.Update(ctx, &section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	return &section, nil
}

// Delete removes a section. Sections with enrolled students cannot be removed.
func (s *SectionService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	seats, err := s.repo.CountActiveSeats(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrolled students")
	}
	if seats > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "section still has enrolled students")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}
	return nil
}
