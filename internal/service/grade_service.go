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

type gradeRepository interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.GradeDetail, error)
	Upsert(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, id string) error
}

// GradeRequest holds payload for recording grades. A grade needs at least one
// of the numeric and letter components.
type GradeRequest struct {
	StudentID       string           `json:"student_id" validate:"required,uuid4"`
	SectionID       string           `json:"section_id" validate:"required,uuid4"`
	GradingPeriodID string           `json:"grading_period_id" validate:"required,uuid4"`
	NumericGrade    *float64         `json:"numeric_grade" validate:"omitempty,gte=0,lte=100"`
	LetterGrade     *string          `json:"letter_grade"`
	Type            models.GradeType `json:"type" validate:"required,oneof=GRADING_PERIOD SEMESTER FINAL"`
}

// GradeService handles grade recording and retrieval.
type GradeService struct {
	repo      gradeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs the grade service.
func NewGradeService(repo gradeRepository, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, validator: validate, logger: logger}
}

// List returns grades and pagination metadata.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.GradeDetail, *models.Pagination, error) {
	grades, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns one grade with its natural-key context.
func (s *GradeService) Get(ctx context.Context, id string) (*models.GradeDetail, error) {
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return grade, nil
}

// Record upserts a grade keyed on student, section, grading period and type.
// Re-submitting the same key overwrites the previous entry.
func (s *GradeService) Record(ctx context.Context, req GradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if req.NumericGrade == nil && req.LetterGrade == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a numeric or letter grade is required")
	}

	grade := &models.Grade{
		StudentID:       req.StudentID,
		SectionID:       req.SectionID,
		GradingPeriodID: req.GradingPeriodID,
		NumericGrade:    req.NumericGrade,
		LetterGrade:     req.LetterGrade,
		Type:            req.Type,
	}
	if err := s.repo.Upsert(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}
	return grade, nil
}

// Delete removes a grade.
func (s *GradeService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}
	return nil
}
