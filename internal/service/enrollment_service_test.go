package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/sis-api/internal/models"
	appErrors "github.com/edustack/sis-api/pkg/errors"
)

type fakeEnrollmentRepo struct {
	active    map[string]*models.Enrollment
	inSection map[string]bool
	added     []*models.SectionEnrollment
}

func (f *fakeEnrollmentRepo) FindActiveForStudent(_ context.Context, studentID string) (*models.Enrollment, error) {
	e, ok := f.active[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return e, nil
}

func (f *fakeEnrollmentRepo) Enroll(_ context.Context, enrollment *models.Enrollment) error {
	if f.active == nil {
		f.active = map[string]*models.Enrollment{}
	}
	enrollment.ID = "enr-new"
	f.active[enrollment.StudentID] = enrollment
	return nil
}

func (f *fakeEnrollmentRepo) Withdraw(_ context.Context, enrollmentID string, _ time.Time) error {
	for id, e := range f.active {
		if e.ID == enrollmentID {
			delete(f.active, id)
		}
	}
	return nil
}

func (f *fakeEnrollmentRepo) AddToSection(_ context.Context, enrollment *models.SectionEnrollment) error {
	enrollment.ID = "se-new"
	f.added = append(f.added, enrollment)
	return nil
}

func (f *fakeEnrollmentRepo) ExistsInSection(_ context.Context, studentID, sectionID string) (bool, error) {
	return f.inSection[studentID+"/"+sectionID], nil
}

func (f *fakeEnrollmentRepo) DropFromSection(_ context.Context, _ string, _ time.Time) error {
	return nil
}

func (f *fakeEnrollmentRepo) FindSectionEnrollment(_ context.Context, _ string) (*models.SectionEnrollment, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentRepo) ListForStudent(_ context.Context, _ string) ([]models.SectionEnrollment, error) {
	return nil, nil
}

type fakeStudentLookup struct {
	known map[string]bool
}

func (f *fakeStudentLookup) FindByID(_ context.Context, id string) (*models.StudentDetail, error) {
	if !f.known[id] {
		return nil, sql.ErrNoRows
	}
	return &models.StudentDetail{Student: models.Student{ID: id}}, nil
}

type fakeSectionLookup struct {
	section *models.SectionDetail
	seats   int
}

func (f *fakeSectionLookup) FindByID(_ context.Context, id string) (*models.SectionDetail, error) {
	if f.section == nil || f.section.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.section, nil
}

func (f *fakeSectionLookup) CountActiveSeats(_ context.Context, _ string) (int, error) {
	return f.seats, nil
}

const (
	testStudentID = "6f1b9a50-0d9c-4f34-9f0a-2b7c8a1d3e45"
	testSectionID = "9c2d7e61-1e0d-4a45-8b1b-3c8d9b2e4f56"
	testSchoolID  = "1a3c5e72-2f1e-4b56-9c2c-4d9e0c3f5a67"
)

func newEnrollmentFixture(maxSeats, takenSeats int) (*EnrollmentService, *fakeEnrollmentRepo, *fakeSectionLookup) {
	repo := &fakeEnrollmentRepo{active: map[string]*models.Enrollment{}, inSection: map[string]bool{}}
	students := &fakeStudentLookup{known: map[string]bool{testStudentID: true}}
	sections := &fakeSectionLookup{
		section: &models.SectionDetail{CourseSection: models.CourseSection{ID: testSectionID, MaxSeats: maxSeats}},
		seats:   takenSeats,
	}
	svc := NewEnrollmentService(repo, students, sections, nil, nil)
	return svc, repo, sections
}

func TestEnrollWithdrawsPriorActiveEnrollment(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(30, 0)

	first, err := svc.Enroll(context.Background(), EnrollRequest{
		StudentID:  testStudentID,
		SchoolID:   testSchoolID,
		EntryDate:  time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC),
		GradeLevel: "9",
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, first.Status)
	assert.Equal(t, first, repo.active[testStudentID])
}

func TestAddToSectionEnforcesCapacity(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(2, 2)

	_, err := svc.AddToSection(context.Background(), SectionEnrollRequest{
		StudentID: testStudentID,
		SectionID: testSectionID,
		BeginDate: time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.added)
}

func TestAddToSectionRejectsDuplicate(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(30, 1)
	repo.inSection[testStudentID+"/"+testSectionID] = true

	_, err := svc.AddToSection(context.Background(), SectionEnrollRequest{
		StudentID: testStudentID,
		SectionID: testSectionID,
		BeginDate: time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAddToSectionSucceedsWithFreeSeat(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture(30, 12)

	enrollment, err := svc.AddToSection(context.Background(), SectionEnrollRequest{
		StudentID: testStudentID,
		SectionID: testSectionID,
		BeginDate: time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.Len(t, repo.added, 1)
}

func TestWithdrawWithoutActiveEnrollment(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(30, 0)

	err := svc.Withdraw(context.Background(), testStudentID, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
