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

type enrollmentRepository interface {
	FindActiveForStudent(ctx context.Context, studentID string) (*models.Enrollment, error)
	Enroll(ctx context.Context, enrollment *models.Enrollment) error
	Withdraw(ctx context.Context, enrollmentID string, exitDate time.Time) error
	AddToSection(ctx context.Context, enrollment *models.SectionEnrollment) error
	ExistsInSection(ctx context.Context, studentID, sectionID string) (bool, error)
	DropFromSection(ctx context.Context, enrollmentID string, endDate time.Time) error
	FindSectionEnrollment(ctx context.Context, id string) (*models.SectionEnrollment, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.SectionEnrollment, error)
}

type enrollmentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type enrollmentSectionRepository interface {
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
	CountActiveSeats(ctx context.Context, sectionID string) (int, error)
}

// EnrollRequest enrolls a student into a school.
type EnrollRequest struct {
	StudentID  string    `json:"student_id" validate:"required,uuid4"`
	SchoolID   string    `json:"school_id" validate:"required,uuid4"`
	EntryDate  time.Time `json:"entry_date" validate:"required"`
	GradeLevel string    `json:"grade_level" validate:"required"`
}

// SectionEnrollRequest adds a student to a course section.
type SectionEnrollRequest struct {
	StudentID string    `json:"student_id" validate:"required,uuid4"`
	SectionID string    `json:"section_id" validate:"required,uuid4"`
	BeginDate time.Time `json:"begin_date" validate:"required"`
}

// EnrollmentService manages school and section enrollments.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  enrollmentStudentRepository
	sections  enrollmentSectionRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, students enrollmentStudentRepository, sections enrollmentSectionRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, sections: sections, validator: validate, logger: logger}
}

// Enroll places a student in a school. A student holds at most one active
// school enrollment, so any existing one is withdrawn first.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	enrollment := &models.Enrollment{
		StudentID:  req.StudentID,
		SchoolID:   req.SchoolID,
		EntryDate:  req.EntryDate,
		GradeLevel: req.GradeLevel,
		Status:     models.EnrollmentStatusActive,
	}
	if err := s.repo.Enroll(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return enrollment, nil
}

// Withdraw ends a student's active school enrollment.
func (s *EnrollmentService) Withdraw(ctx context.Context, studentID string, exitDate time.Time) error {
	enrollment, err := s.repo.FindActiveForStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student has no active enrollment")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.repo.Withdraw(ctx, enrollment.ID, exitDate); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw student")
	}
	return nil
}

// AddToSection enrolls a student in a course section, enforcing seat
// capacity and rejecting duplicate active enrollments.
func (s *EnrollmentService) AddToSection(ctx context.Context, req SectionEnrollRequest) (*models.SectionEnrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section enrollment payload")
	}
	section, err := s.sections.FindByID(ctx, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	exists, err := s.repo.ExistsInSection(ctx, req.StudentID, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section roster")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in this section")
	}
	seats, err := s.sections.CountActiveSeats(ctx, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrolled students")
	}
	if seats >= section.MaxSeats {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section is full")
	}

	enrollment := &models.SectionEnrollment{
		StudentID: req.StudentID,
		SectionID: req.SectionID,
		BeginDate: req.BeginDate,
		Status:    models.EnrollmentStatusActive,
	}
	if err := s.repo.AddToSection(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add student to section")
	}
	return enrollment, nil
}

// DropFromSection withdraws a student from a section.
func (s *EnrollmentService) DropFromSection(ctx context.Context, enrollmentID string, endDate time.Time) error {
	enrollment, err := s.repo.FindSectionEnrollment(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "section enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return appErrors.Clone(appErrors.ErrConflict, "section enrollment is not active")
	}
	if err := s.repo.DropFromSection(ctx, enrollmentID, endDate); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop student from section")
	}
	return nil
}

// ListForStudent returns a student's section enrollments.
func (s *EnrollmentService) ListForStudent(ctx context.Context, studentID string) ([]models.SectionEnrollment, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	enrollments, err := s.repo.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list section enrollments")
	}
	return enrollments, nil
}
