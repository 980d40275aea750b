package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edustack/sis-api/internal/models"
	appErrors "github.com/edustack/sis-api/pkg/errors"
)

type attendanceRepository interface {
	Record(ctx context.Context, event *models.AttendanceEvent) error
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, int, error)
	Summary(ctx context.Context, studentID string, from, to *time.Time) (*models.AttendanceSummary, error)
}

// AttendanceRequest records one attendance event.
type AttendanceRequest struct {
	StudentID string                `json:"student_id" validate:"required,uuid4"`
	SectionID *string               `json:"section_id" validate:"omitempty,uuid4"`
	Date      time.Time             `json:"date" validate:"required"`
	Code      models.AttendanceCode `json:"code" validate:"required,oneof=PRESENT ABSENT TARDY EXCUSED"`
	Notes     *string               `json:"notes"`
}

// AttendanceService handles attendance recording and reporting.
type AttendanceService struct {
	repo      attendanceRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(repo attendanceRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, validator: validate, logger: logger}
}

// Record upserts an attendance event. Re-recording the same student, section
// and date overwrites the earlier code.
func (s *AttendanceService) Record(ctx context.Context, req AttendanceRequest) (*models.AttendanceEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	event := &models.AttendanceEvent{
		StudentID: req.StudentID,
		SectionID: req.SectionID,
		Date:      req.Date,
		Code:      req.Code,
		Notes:     req.Notes,
	}
	if err := s.repo.Record(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	return event, nil
}

// List returns attendance events and pagination metadata.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, *models.Pagination, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return events, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Summary aggregates a student's attendance counts over an optional window.
func (s *AttendanceService) Summary(ctx context.Context, studentID string, from, to *time.Time) (*models.AttendanceSummary, error) {
	summary, err := s.repo.Summary(ctx, studentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	summary.StudentID = studentID
	return summary, nil
}
