package edfi

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/edustack/sis-api/internal/models"
	appErrors "github.com/edustack/sis-api/pkg/errors"
)

// Outcome of a single entity sync.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeAlreadyExists Outcome = "already_exists"
	OutcomeFailed        Outcome = "failed"
)

// SyncResult reports what happened to one entity during a bulk sync.
type SyncResult struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// SyncReport aggregates per-stage results of a full sync. Stages that were
// skipped after an earlier stage failure stay nil.
type SyncReport struct {
	Schools  []SyncResult `json:"schools,omitempty"`
	Students []SyncResult `json:"students,omitempty"`
	Courses  []SyncResult `json:"courses,omitempty"`
	Sections []SyncResult `json:"sections,omitempty"`
	Grades   []SyncResult `json:"grades,omitempty"`
}

// Store supplies the local records the sync service pushes upstream.
type Store interface {
	GetSchool(ctx context.Context, id string) (*models.School, error)
	ListSchools(ctx context.Context) ([]models.School, error)
	GetStudent(ctx context.Context, id string) (*models.StudentDetail, error)
	ListStudents(ctx context.Context) ([]models.StudentDetail, error)
	GetCourse(ctx context.Context, id string) (*models.CourseDetail, error)
	ListCourses(ctx context.Context) ([]models.CourseDetail, error)
	GetSection(ctx context.Context, id string) (*models.SectionDetail, error)
	ListSections(ctx context.Context) ([]models.SectionDetail, error)
	GetGrade(ctx context.Context, id string) (*models.GradeDetail, error)
	ListGrades(ctx context.Context) ([]models.GradeDetail, error)
}

// SyncObserver records per-entity sync outcomes.
type SyncObserver interface {
	ObserveSyncOutcome(resource string, outcome string)
}

// Service pushes local records into the Ed-Fi ODS. Creates are idempotent:
// a 409 from the ODS means the resource already exists and is not an error.
type Service struct {
	store           Store
	client          *Client
	logger          *zap.Logger
	now             func() time.Time
	defaultSchoolID int
	observer        SyncObserver
}

// NewService constructs the sync service. now and observer may be nil.
func NewService(store Store, client *Client, defaultSchoolID int, logger *zap.Logger, now func() time.Time, observer SyncObserver) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:           store,
		client:          client,
		logger:          logger,
		now:             now,
		defaultSchoolID: defaultSchoolID,
		observer:        observer,
	}
}

// TestConnection verifies the ODS is reachable with the configured
// credentials. It reports reachability only and never returns an error.
func (s *Service) TestConnection(ctx context.Context) bool {
	query := url.Values{"limit": {"1"}}
	if err := s.client.Get(ctx, "schools", query, nil); err != nil {
		s.logger.Warn("ed-fi connection test failed", zap.Error(err))
		return false
	}
	return true
}

// SyncSchoolByID loads one school and pushes it upstream.
func (s *Service) SyncSchoolByID(ctx context.Context, id string) (Outcome, error) {
	school, err := s.store.GetSchool(ctx, id)
	if err != nil {
		return OutcomeFailed, err
	}
	return s.syncSchool(ctx, *school)
}

func (s *Service) syncSchool(ctx context.Context, school models.School) (Outcome, error) {
	res, err := MapSchool(school)
	if err != nil {
		return s.fail(ctx, "schools", school.ID, err)
	}
	return s.post(ctx, "schools", school.ID, res)
}

// SyncStudentByID loads one student and pushes it upstream together with its
// school association.
func (s *Service) SyncStudentByID(ctx context.Context, id string) (Outcome, error) {
	student, err := s.store.GetStudent(ctx, id)
	if err != nil {
		return OutcomeFailed, err
	}
	return s.syncStudent(ctx, *student)
}

// syncStudent attempts the school association before and after the student
// record itself. The first attempt fails with a reference error when the
// student is new; the second one lands once the student exists. Association
// errors never fail the student sync.
func (s *Service) syncStudent(ctx context.Context, student models.StudentDetail) (Outcome, error) {
	s.associateStudentSchool(ctx, student)

	res, err := MapStudent(student.Student)
	if err != nil {
		return s.fail(ctx, "students", student.ID, err)
	}

	outcome := OutcomeAlreadyExists
	if !s.studentExists(ctx, student.StudentUniqueID) {
		outcome, err = s.post(ctx, "students", student.ID, res)
		if err != nil {
			return outcome, err
		}
	} else {
		s.observe("students", OutcomeAlreadyExists)
	}

	s.associateStudentSchool(ctx, student)
	return outcome, nil
}

// studentExists looks the student up by natural key. Lookup failures are
// logged and treated as absent so the create path still runs.
func (s *Service) studentExists(ctx context.Context, studentUniqueID string) bool {
	query := url.Values{"studentUniqueId": {studentUniqueID}, "limit": {"1"}}
	var found []struct {
		StudentUniqueID string `json:"studentUniqueId"`
	}
	if err := s.client.Get(ctx, "students", query, &found); err != nil {
		s.logger.Warn("student existence check failed",
			zap.String("student_unique_id", studentUniqueID), zap.Error(err))
		return false
	}
	return len(found) > 0
}

func (s *Service) associateStudentSchool(ctx context.Context, student models.StudentDetail) {
	enrollment := student.CurrentEnrollment()
	if enrollment == nil {
		return
	}
	schoolNumber := enrollment.SchoolNumber
	if schoolNumber == 0 {
		schoolNumber = s.defaultSchoolID
	}

	assoc, err := MapStudentSchoolAssociation(student.StudentUniqueID, schoolNumber, enrollment.EntryDate, enrollment.GradeLevel)
	if err != nil {
		s.logger.Warn("student school association not mappable",
			zap.String("student_id", student.ID), zap.Error(err))
		return
	}

	err = s.client.Post(ctx, "studentSchoolAssociations", assoc)
	switch {
	case err == nil, IsConflict(err):
	case IsReferenceNotReady(err):
		s.logger.Debug("student school association deferred, student not in ods yet",
			zap.String("student_id", student.ID))
	default:
		s.logger.Warn("student school association failed",
			zap.String("student_id", student.ID), zap.Error(err))
	}
}

// SyncCourseByID loads one course and pushes it upstream.
func (s *Service) SyncCourseByID(ctx context.Context, id string) (Outcome, error) {
	course, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return OutcomeFailed, err
	}
	return s.syncCourse(ctx, *course)
}

func (s *Service) syncCourse(ctx context.Context, course models.CourseDetail) (Outcome, error) {
	return s.post(ctx, "courses", course.ID, MapCourse(course))
}

// SyncSectionByID loads one section and pushes it upstream together with its
// roster associations.
func (s *Service) SyncSectionByID(ctx context.Context, id string) (Outcome, error) {
	section, err := s.store.GetSection(ctx, id)
	if err != nil {
		return OutcomeFailed, err
	}
	return s.syncSection(ctx, *section)
}

// syncSection upserts the term's session, pushes the section and then one
// student-section association per active roster entry. Session and
// association errors are logged and do not fail the section sync; the
// session frequently pre-exists in the ODS.
func (s *Service) syncSection(ctx context.Context, section models.SectionDetail) (Outcome, error) {
	schoolYear := SchoolYearFor(s.now())

	if session, err := MapSession(section, schoolYear); err != nil {
		s.logger.Warn("session mapping skipped",
			zap.String("section_id", section.ID),
			zap.Error(err))
	} else if err := s.client.Post(ctx, "sessions", session); err != nil && !IsConflict(err) {
		s.logger.Warn("session upsert failed",
			zap.String("section_id", section.ID),
			zap.Error(err))
	}

	outcome, err := s.post(ctx, "sections", section.ID, MapSection(section, schoolYear))
	if err != nil {
		return outcome, err
	}

	for _, enrollment := range section.Enrollments {
		if enrollment.Status != models.EnrollmentStatusActive {
			continue
		}
		assoc := MapStudentSectionAssociation(enrollment, section, schoolYear)
		err := s.client.Post(ctx, "studentSectionAssociations", assoc)
		if err != nil && !IsConflict(err) {
			s.logger.Warn("student section association failed",
				zap.String("section_id", section.ID),
				zap.String("student_id", enrollment.StudentID),
				zap.Error(err))
		}
	}
	return outcome, nil
}

// SyncGradeByID loads one grade and pushes it upstream.
func (s *Service) SyncGradeByID(ctx context.Context, id string) (Outcome, error) {
	grade, err := s.store.GetGrade(ctx, id)
	if err != nil {
		return OutcomeFailed, err
	}
	return s.syncGrade(ctx, *grade)
}

func (s *Service) syncGrade(ctx context.Context, grade models.GradeDetail) (Outcome, error) {
	res, err := MapGrade(grade, SchoolYearFor(s.now()))
	if err != nil {
		return s.fail(ctx, "grades", grade.ID, err)
	}
	return s.post(ctx, "grades", grade.ID, res)
}

// SyncAllSchools pushes every school. A row failure is recorded in its result
// and does not stop the run; only a store listing failure aborts.
func (s *Service) SyncAllSchools(ctx context.Context) ([]SyncResult, error) {
	schools, err := s.store.ListSchools(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSyncFailed.Code, appErrors.ErrSyncFailed.Status, "list schools")
	}
	results := make([]SyncResult, 0, len(schools))
	for _, school := range schools {
		outcome, err := s.syncSchool(ctx, school)
		results = append(results, toResult(school.ID, outcome, err))
	}
	return results, nil
}

// SyncAllStudents pushes every student with their school associations.
func (s *Service) SyncAllStudents(ctx context.Context) ([]SyncResult, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSyncFailed.Code, appErrors.ErrSyncFailed.Status, "list students")
	}
	results := make([]SyncResult, 0, len(students))
	for _, student := range students {
		outcome, err := s.syncStudent(ctx, student)
		results = append(results, toResult(student.ID, outcome, err))
	}
	return results, nil
}

// SyncAllCourses pushes every course.
func (s *Service) SyncAllCourses(ctx context.Context) ([]SyncResult, error) {
	courses, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSyncFailed.Code, appErrors.ErrSyncFailed.Status, "list courses")
	}
	results := make([]SyncResult, 0, len(courses))
	for _, course := range courses {
		outcome, err := s.syncCourse(ctx, course)
		results = append(results, toResult(course.ID, outcome, err))
	}
	return results, nil
}

// SyncAllSections pushes every section with their rosters.
func (s *Service) SyncAllSections(ctx context.Context) ([]SyncResult, error) {
	sections, err := s.store.ListSections(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSyncFailed.Code, appErrors.ErrSyncFailed.Status, "list sections")
	}
	results := make([]SyncResult, 0, len(sections))
	for _, section := range sections {
		outcome, err := s.syncSection(ctx, section)
		results = append(results, toResult(section.ID, outcome, err))
	}
	return results, nil
}

// SyncAllGrades pushes every grade.
func (s *Service) SyncAllGrades(ctx context.Context) ([]SyncResult, error) {
	grades, err := s.store.ListGrades(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSyncFailed.Code, appErrors.ErrSyncFailed.Status, "list grades")
	}
	results := make([]SyncResult, 0, len(grades))
	for _, grade := range grades {
		outcome, err := s.syncGrade(ctx, grade)
		results = append(results, toResult(grade.ID, outcome, err))
	}
	return results, nil
}

// SyncAll runs every stage in dependency order. Schools must exist before
// students enroll in them, sections before grades reference them. A stage
// error aborts the remaining stages; the report keeps what completed.
func (s *Service) SyncAll(ctx context.Context) (*SyncReport, error) {
	report := &SyncReport{}
	var err error

	if report.Schools, err = s.SyncAllSchools(ctx); err != nil {
		return report, fmt.Errorf("schools stage: %w", err)
	}
	if report.Students, err = s.SyncAllStudents(ctx); err != nil {
		return report, fmt.Errorf("students stage: %w", err)
	}
	if report.Courses, err = s.SyncAllCourses(ctx); err != nil {
		return report, fmt.Errorf("courses stage: %w", err)
	}
	if report.Sections, err = s.SyncAllSections(ctx); err != nil {
		return report, fmt.Errorf("sections stage: %w", err)
	}
	if report.Grades, err = s.SyncAllGrades(ctx); err != nil {
		return report, fmt.Errorf("grades stage: %w", err)
	}
	return report, nil
}

// post creates the resource upstream, translating a 409 into the
// already-exists outcome.
func (s *Service) post(ctx context.Context, resource, id string, body interface{}) (Outcome, error) {
	err := s.client.Post(ctx, resource, body)
	switch {
	case err == nil:
		s.observe(resource, OutcomeCreated)
		return OutcomeCreated, nil
	case IsConflict(err):
		s.observe(resource, OutcomeAlreadyExists)
		return OutcomeAlreadyExists, nil
	default:
		return s.fail(ctx, resource, id, err)
	}
}

func (s *Service) fail(_ context.Context, resource, id string, err error) (Outcome, error) {
	s.observe(resource, OutcomeFailed)
	s.logger.Error("ed-fi sync failed",
		zap.String("resource", resource),
		zap.String("id", id),
		zap.Error(err))
	return OutcomeFailed, err
}

func (s *Service) observe(resource string, outcome Outcome) {
	if s.observer != nil {
		s.observer.ObserveSyncOutcome(resource, string(outcome))
	}
}

func toResult(id string, outcome Outcome, err error) SyncResult {
	result := SyncResult{ID: id, Outcome: outcome}
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
	}
	return result
}
