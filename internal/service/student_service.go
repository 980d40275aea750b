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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByUniqueID(ctx context.Context, uniqueID, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	StudentUniqueID string    `json:"student_unique_id" validate:"required"`
	FirstName       string    `json:"first_name" validate:"required"`
	MiddleName      *string   `json:"middle_name"`
	LastSurname     string    `json:"last_surname" validate:"required"`
	BirthDate       time.Time `json:"birth_date" validate:"required"`
	Sex             string    `json:"sex" validate:"required"`
	GradeLevel      string    `json:"grade_level" validate:"required"`
	Email           *string   `json:"email" validate:"omitempty,email"`
	Phone           *string   `json:"phone"`
	Street          *string   `json:"street"`
	City            *string   `json:"city"`
	State           *string   `json:"state"`
	PostalCode      *string   `json:"postal_code"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	StudentUniqueID string    `json:"student_unique_id" validate:"required"`
	FirstName       string    `json:"first_name" validate:"required"`
	MiddleName      *string   `json:"middle_name"`
	LastSurname     string    `json:"last_surname" validate:"required"`
	BirthDate       time.Time `json:"birth_date" validate:"required"`
	Sex             string    `json:"sex" validate:"required"`
	GradeLevel      string    `json:"grade_level" validate:"required"`
	Email           *string   `json:"email" validate:"omitempty,email"`
	Phone           *string   `json:"phone"`
	Street          *string   `json:"street"`
	City            *string   `json:"city"`
	State           *string   `json:"state"`
	PostalCode      *string   `json:"postal_code"`
	Active          bool      `json:"active"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns detailed student information with enrollments.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	exists, err := s.repo.ExistsByUniqueID(ctx, req.StudentUniqueID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student unique id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student unique id already used")
	}

	student := &models.Student{
		StudentUniqueID: req.StudentUniqueID,
		FirstName:       req.FirstName,
		MiddleName:      req.MiddleName,
		LastSurname:     req.LastSurname,
		BirthDate:       req.BirthDate,
		Sex:             req.Sex,
		GradeLevel:      req.GradeLevel,
		Email:           req.Email,
		Phone:           req.Phone,
		Street:          req.Street,
		City:            req.City,
		State:           req.State,
		PostalCode:      req.PostalCode,
		Active:          true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	exists, err := s.repo.ExistsByUniqueID(ctx, req.StudentUniqueID, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student unique id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student unique id already used")
	}

	student := detail.Student
	student.StudentUniqueID = req.StudentUniqueID
	student.FirstName = req.FirstName
	student.MiddleName = req.MiddleName
	student.LastSurname = req.LastSurname
	student.BirthDate = req.BirthDate
	student.Sex = req.Sex
	student.GradeLevel = req.GradeLevel
	student.Email = req.Email
	student.Phone = req.Phone
	student.Street = req.Street
	student.City = req.City
	student.State = req.State
	student.PostalCode = req.PostalCode
	student.Active = req.Active
	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return &student, nil
}

// Deactivate marks a student inactive.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}
