package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/sis-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_unique_id", "first_name", "middle_name", "last_surname", "birth_date",
		"sex", "grade_level", "email", "phone", "street", "city", "state", "postal_code",
		"active", "created_at", "updated_at",
	})
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := studentRows().
		AddRow("st-1", "S-1", "Ada", nil, "Nguyen", time.Now(), "F", "9",
			nil, nil, nil, nil, nil, nil, true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT .* FROM students s WHERE 1=1 ORDER BY s.last_surname ASC LIMIT 20 OFFSET 0").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(DISTINCT s.id\) FROM students s WHERE 1=1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDLoadsEnrollments(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT .* FROM students s WHERE s.id = \\$1").
		WithArgs("st-1").
		WillReturnRows(studentRows().
			AddRow("st-1", "S-1", "Ada", nil, "Nguyen", time.Now(), "F", "9",
				nil, nil, nil, nil, nil, nil, true, time.Now(), time.Now()))

	enrollmentRows := sqlmock.NewRows([]string{
		"id", "student_id", "school_id", "entry_date", "exit_date", "grade_level", "status",
		"created_at", "updated_at", "school_number",
	}).AddRow("en-1", "st-1", "sch-1", time.Now(), nil, "9", models.EnrollmentStatusActive,
		time.Now(), time.Now(), 255901)
	mock.ExpectQuery("SELECT .* FROM enrollments e JOIN schools sc").
		WithArgs("st-1").
		WillReturnRows(enrollmentRows)

	detail, err := repo.FindByID(context.Background(), "st-1")
	require.NoError(t, err)
	require.Len(t, detail.Enrollments, 1)
	assert.Equal(t, 255901, detail.Enrollments[0].SchoolNumber)
	require.NotNil(t, detail.CurrentEnrollment())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{
		StudentUniqueID: "S-1",
		FirstName:       "Ada",
		LastSurname:     "Nguyen",
		BirthDate:       time.Date(2012, 4, 9, 0, 0, 0, 0, time.UTC),
		Sex:             "F",
		GradeLevel:      "9",
		Active:          true,
	}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
