package edfi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/sis-api/internal/models"
)

type fakeStore struct {
	schools  []models.School
	students []models.StudentDetail
	courses  []models.CourseDetail
	sections []models.SectionDetail
	grades   []models.GradeDetail

	listErr map[string]error
}

func (f *fakeStore) stageErr(stage string) error {
	if f.listErr == nil {
		return nil
	}
	return f.listErr[stage]
}

func (f *fakeStore) GetSchool(_ context.Context, id string) (*models.School, error) {
	for i := range f.schools {
		if f.schools[i].ID == id {
			return &f.schools[i], nil
		}
	}
	return nil, errors.New("school not found")
}

func (f *fakeStore) ListSchools(context.Context) ([]models.School, error) {
	return f.schools, f.stageErr("schools")
}

func (f *fakeStore) GetStudent(_ context.Context, id string) (*models.StudentDetail, error) {
	for i := range f.students {
		if f.students[i].ID == id {
			return &f.students[i], nil
		}
	}
	return nil, errors.New("student not found")
}

func (f *fakeStore) ListStudents(context.Context) ([]models.StudentDetail, error) {
	return f.students, f.stageErr("students")
}

func (f *fakeStore) GetCourse(_ context.Context, id string) (*models.CourseDetail, error) {
	for i := range f.courses {
		if f.courses[i].ID == id {
			return &f.courses[i], nil
		}
	}
	return nil, errors.New("course not found")
}

func (f *fakeStore) ListCourses(context.Context) ([]models.CourseDetail, error) {
	return f.courses, f.stageErr("courses")
}

func (f *fakeStore) GetSection(_ context.Context, id string) (*models.SectionDetail, error) {
	for i := range f.sections {
		if f.sections[i].ID == id {
			return &f.sections[i], nil
		}
	}
	return nil, errors.New("section not found")
}

func (f *fakeStore) ListSections(context.Context) ([]models.SectionDetail, error) {
	return f.sections, f.stageErr("sections")
}

func (f *fakeStore) GetGrade(_ context.Context, id string) (*models.GradeDetail, error) {
	for i := range f.grades {
		if f.grades[i].ID == id {
			return &f.grades[i], nil
		}
	}
	return nil, errors.New("grade not found")
}

func (f *fakeStore) ListGrades(context.Context) ([]models.GradeDetail, error) {
	return f.grades, f.stageErr("grades")
}

// odsRecorder captures the resource path of each POST and lets tests force
// per-body responses.
type odsRecorder struct {
	mu    sync.Mutex
	posts []string

	// statusFor returns the status for a POST given its resource and body;
	// zero means 201.
	statusFor func(resource, body string) int

	// getBodyFor overrides the GET response body per resource; empty means
	// an empty collection.
	getBodyFor func(resource string) string
}

func (r *odsRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		resource := strings.TrimPrefix(req.URL.Path, dataPathPrefix+"/")
		if req.Method == http.MethodGet {
			body := "[]"
			if r.getBodyFor != nil {
				if b := r.getBodyFor(resource); b != "" {
					body = b
				}
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
			return
		}

		body, _ := io.ReadAll(req.Body)

		r.mu.Lock()
		r.posts = append(r.posts, resource)
		r.mu.Unlock()

		status := http.StatusCreated
		if r.statusFor != nil {
			if s := r.statusFor(resource, string(body)); s != 0 {
				status = s
			}
		}
		if status >= http.StatusBadRequest {
			http.Error(w, `{"message":"simulated failure"}`, status)
			return
		}
		w.WriteHeader(status)
	}
}

func (r *odsRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.posts...)
}

func newSyncService(t *testing.T, store *fakeStore, rec *odsRecorder) (*Service, func()) {
	t.Helper()
	env, cleanup := newTestEnv(t, rec.handler())
	now := func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }
	return NewService(store, env.client, 255901, nil, now, nil), cleanup
}

func testStudent(id, uniqueID string) models.StudentDetail {
	return models.StudentDetail{
		Student: models.Student{
			ID:              id,
			StudentUniqueID: uniqueID,
			FirstName:       "Test",
			LastSurname:     "Student",
			BirthDate:       time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC),
			Sex:             "F",
		},
	}
}

func TestSyncAllStudentsIsolatesRowFailures(t *testing.T) {
	store := &fakeStore{students: []models.StudentDetail{
		testStudent("st-1", "S-1"),
		testStudent("st-2", "S-2"),
		testStudent("st-3", "S-3"),
	}}
	rec := &odsRecorder{statusFor: func(resource, body string) int {
		if resource == "students" && strings.Contains(body, `"S-2"`) {
			return http.StatusInternalServerError
		}
		return 0
	}}
	svc, cleanup := newSyncService(t, store, rec)
	defer cleanup()

	results, err := svc.SyncAllStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, SyncResult{ID: "st-1", Outcome: OutcomeCreated}, results[0])
	assert.Equal(t, "st-2", results[1].ID)
	assert.Equal(t, OutcomeFailed, results[1].Outcome)
	assert.NotEmpty(t, results[1].Error)
	assert.Equal(t, SyncResult{ID: "st-3", Outcome: OutcomeCreated}, results[2])
}

func TestSyncTreatsConflictAsAlreadyExists(t *testing.T) {
	store := &fakeStore{schools: []models.School{{
		ID: "sch-1", SchoolNumber: 255901, Name: "Lincoln", Type: models.SchoolTypeHigh,
	}}}
	rec := &odsRecorder{statusFor: func(resource, body string) int {
		return http.StatusConflict
	}}
	svc, cleanup := newSyncService(t, store, rec)
	defer cleanup()

	outcome, err := svc.SyncSchoolByID(context.Background(), "sch-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyExists, outcome)

	// Replaying the same sync stays a no-op.
	outcome, err = svc.SyncSchoolByID(context.Background(), "sch-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyExists, outcome)
}

func TestSyncStudentAttemptsAssociationAroundCreate(t *testing.T) {
	student := testStudent("st-1", "S-1")
	student.Enrollments = []models.Enrollment{{
		StudentID:    "st-1",
		EntryDate:    time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
		GradeLevel:   "9",
		Status:       models.EnrollmentStatusActive,
		SchoolNumber: 255901,
	}}
	store := &fakeStore{students: []models.StudentDetail{student}}

	rec := &odsRecorder{}
	seen := false
	rec.statusFor = func(resource, body string) int {
		// The first association attempt fails because the student is not
		// in the ODS yet; the post-create attempt succeeds.
		if resource == "studentSchoolAssociations" && !seen {
			seen = true
			return http.StatusBadRequest
		}
		return 0
	}
	svc, cleanup := newSyncService(t, store, rec)
	defer cleanup()

	outcome, err := svc.SyncStudentByID(context.Background(), "st-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	assert.Equal(t, []string{
		"studentSchoolAssociations",
		"students",
		"studentSchoolAssociations",
	}, rec.recorded())
}

func TestSyncStudentAlreadyInODSSkipsCreate(t *testing.T) {
	store := &fakeStore{students: []models.StudentDetail{testStudent("st-1", "S-1")}}
	rec := &odsRecorder{getBodyFor: func(resource string) string {
		if resource == "students" {
			return `[{"studentUniqueId":"S-1"}]`
		}
		return ""
	}}
	svc, cleanup := newSyncService(t, store, rec)
	defer cleanup()

	outcome, err := svc.SyncStudentByID(context.Background(), "st-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyExists, outcome)
	// No student POST when the natural key is already present upstream.
	assert.Empty(t, rec.recorded())
}

func TestSyncStudentWithoutEnrollmentSkipsAssociation(t *testing.T) {
	store := &fakeStore{students: []models.StudentDetail{testStudent("st-1", "S-1")}}
	rec := &odsRecorder{}
	svc, cleanup := newSyncService(t, store, rec)
	defer cleanup()

	outcome, err := svc.SyncStudentByID(context.Background(), "st-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, []string{"students"}, rec.recorded())
}

func TestSyncSectionPushesActiveRosterOnly(t *testing.T) {
	section := models.SectionDetail{
		CourseSection: models.CourseSection{ID: "sec-1", SectionIdentifier: "ALG-1-01"},
		CourseCode:    "ALG-1",
		SchoolNumber:  255901,
		SessionName:   "Fall 2026",
		Enrollments: []models.SectionEnrollment{
			{StudentID: "st-1", StudentUniqueID: "S-1", Status: models.EnrollmentStatusActive,
				BeginDate: time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)},
			{StudentID: "st-2", StudentUniqueID: "S-2", Status: models.EnrollmentStatusWithdrawn,
				BeginDate: time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)},
			{StudentID: "st-3", StudentUniqueID: "S-3", Status: models.EnrollmentStatusActive,
				BeginDate: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		},
	}
	store := &fakeStore{sections: []models.SectionDetail{section}}
	rec := &odsRecorder{}
	svc, cleanup := newSyncService(t, store, rec)
	defer cleanup()

	outcome, err := svc.SyncSectionByID(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	assert.Equal(t, []string{
		"sessions",
		"sections",
		"studentSectionAssociations",
		"studentSectionAssociations",
	}, rec.recorded())
}

func TestSyncSectionSkipsSessionWithUnmappedName(t *testing.T) {
	store := &fakeStore{sections: []models.SectionDetail{{
		CourseSection: models.CourseSection{ID: "sec-1", SectionIdentifier: "ALG-1-01"},
		CourseCode:    "ALG-1",
		SchoolNumber:  255901,
		SessionName:   "Intersession 2026",
	}}}
	rec := &odsRecorder{}
	svc, cleanup := newSyncService(t, store, rec)
	defer cleanup()

	outcome, err := svc.SyncSectionByID(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	assert.Equal(t, []string{"sections"}, rec.recorded())
}

func TestSyncSectionToleratesSessionConflict(t *testing.T) {
	store := &fakeStore{sections: []models.SectionDetail{{
		CourseSection: models.CourseSection{ID: "sec-1", SectionIdentifier: "ALG-1-01"},
		CourseCode:    "ALG-1",
		SchoolNumber:  255901,
		SessionName:   "Fall 2026",
	}}}
	rec := &odsRecorder{}
	rec.statusFor = func(resource, _ string) int {
		if resource == "sessions" {
			return http.StatusConflict
		}
		return 0
	}
	svc, cleanup := newSyncService(t, store, rec)
	defer cleanup()

	outcome, err := svc.SyncSectionByID(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)

	assert.Equal(t, []string{"sessions", "sections"}, rec.recorded())
}

func TestSyncAllRunsStagesInDependencyOrder(t *testing.T) {
	store := &fakeStore{
		schools: []models.School{{ID: "sch-1", SchoolNumber: 255901, Name: "Lincoln", Type: models.SchoolTypeHigh}},
		students: []models.StudentDetail{
			testStudent("st-1", "S-1"),
		},
		courses: []models.CourseDetail{{
			Course:       models.Course{ID: "c-1", Code: "ALG-1", Name: "Algebra I"},
			SchoolNumber: 255901,
		}},
		sections: []models.SectionDetail{{
			CourseSection: models.CourseSection{ID: "sec-1", SectionIdentifier: "ALG-1-01"},
			CourseCode:    "ALG-1", SchoolNumber: 255901, SessionName: "Fall 2026",
		}},
		grades: []models.GradeDetail{{
			Grade:             models.Grade{ID: "g-1", Type: models.GradeTypeFinal},
			StudentUniqueID:   "S-1",
			SectionIdentifier: "ALG-1-01",
			CourseCode:        "ALG-1",
			SchoolNumber:      255901,
			SessionName:       "Fall 2026",
			SectionBeginDate:  time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
			GradingPeriodName: "End of Year",
		}},
	}
	rec := &odsRecorder{}
	svc, cleanup := newSyncService(t, store, rec)
	defer cleanup()

	report, err := svc.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"schools", "students", "courses", "sessions", "sections", "grades"}, rec.recorded())
	assert.Len(t, report.Schools, 1)
	assert.Len(t, report.Students, 1)
	assert.Len(t, report.Courses, 1)
	assert.Len(t, report.Sections, 1)
	assert.Len(t, report.Grades, 1)
}

func TestSyncAllAbortsRemainingStagesOnStageError(t *testing.T) {
	store := &fakeStore{
		schools:  []models.School{{ID: "sch-1", SchoolNumber: 255901, Name: "Lincoln", Type: models.SchoolTypeHigh}},
		students: []models.StudentDetail{testStudent("st-1", "S-1")},
		listErr:  map[string]error{"courses": errors.New("db gone")},
	}
	rec := &odsRecorder{}
	svc, cleanup := newSyncService(t, store, rec)
	defer cleanup()

	report, err := svc.SyncAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "courses stage")

	assert.Len(t, report.Schools, 1)
	assert.Len(t, report.Students, 1)
	assert.Nil(t, report.Courses)
	assert.Nil(t, report.Sections)
	assert.Nil(t, report.Grades)
}

func TestTestConnection(t *testing.T) {
	rec := &odsRecorder{}
	env, cleanup := newTestEnv(t, rec.handler())
	defer cleanup()

	svc := NewService(&fakeStore{}, env.client, 255901, nil, nil, nil)
	assert.True(t, svc.TestConnection(context.Background()))
}

func TestTestConnectionUnreachable(t *testing.T) {
	rec := &odsRecorder{}
	env, cleanup := newTestEnv(t, rec.handler())
	cleanup() // tear the servers down before calling

	svc := NewService(&fakeStore{}, env.client, 255901, nil, nil, nil)
	assert.False(t, svc.TestConnection(context.Background()))
}
