package repository

import (
	"context"

	"github.com/edustack/sis-api/internal/models"
)

// EdFiRepository composes the entity repositories behind the read surface the
// sync service consumes. Bulk listings are scoped to active records so
// deactivated rows never leave the district.
type EdFiRepository struct {
	schools  *SchoolRepository
	students *StudentRepository
	courses  *CourseRepository
	sections *SectionRepository
	grades   *GradeRepository
}

// NewEdFiRepository constructs an EdFiRepository.
func NewEdFiRepository(schools *SchoolRepository, students *StudentRepository, courses *CourseRepository, sections *SectionRepository, grades *GradeRepository) *EdFiRepository {
	return &EdFiRepository{
		schools:  schools,
		students: students,
		courses:  courses,
		sections: sections,
		grades:   grades,
	}
}

func (r *EdFiRepository) GetSchool(ctx context.Context, id string) (*models.School, error) {
	return r.schools.FindByID(ctx, id)
}

func (r *EdFiRepository) ListSchools(ctx context.Context) ([]models.School, error) {
	return r.schools.ListActive(ctx)
}

func (r *EdFiRepository) GetStudent(ctx context.Context, id string) (*models.StudentDetail, error) {
	return r.students.FindByID(ctx, id)
}

func (r *EdFiRepository) ListStudents(ctx context.Context) ([]models.StudentDetail, error) {
	return r.students.ListDetails(ctx)
}

func (r *EdFiRepository) GetCourse(ctx context.Context, id string) (*models.CourseDetail, error) {
	return r.courses.FindByID(ctx, id)
}

func (r *EdFiRepository) ListCourses(ctx context.Context) ([]models.CourseDetail, error) {
	return r.courses.ListActive(ctx)
}

func (r *EdFiRepository) GetSection(ctx context.Context, id string) (*models.SectionDetail, error) {
	return r.sections.FindByID(ctx, id)
}

func (r *EdFiRepository) ListSections(ctx context.Context) ([]models.SectionDetail, error) {
	return r.sections.ListDetailsForActiveTerm(ctx)
}

func (r *EdFiRepository) GetGrade(ctx context.Context, id string) (*models.GradeDetail, error) {
	return r.grades.FindByID(ctx, id)
}

func (r *EdFiRepository) ListGrades(ctx context.Context) ([]models.GradeDetail, error) {
	return r.grades.ListDetails(ctx)
}
