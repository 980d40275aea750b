package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/sis-api/internal/models"
)

func gradeDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_id", "section_id", "grading_period_id", "numeric_grade", "letter_grade",
		"type", "created_at", "updated_at",
		"student_unique_id", "section_identifier", "course_code", "school_number",
		"session_name", "section_begin_date", "grading_period_name", "grading_period_sequence",
	})
}

func TestGradeRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	rows := gradeDetailRows().AddRow(
		"g-1", "st-1", "sec-1", "gp-1", 92.5, "A-",
		models.GradeTypeGradingPeriod, time.Now(), time.Now(),
		"S-1", "ALG-1-01", "ALG-1", 255901,
		"Fall 2026", time.Now(), "First Quarter", 1)
	mock.ExpectQuery("SELECT .* FROM grades g").
		WithArgs("g-1").
		WillReturnRows(rows)

	grade, err := repo.FindByID(context.Background(), "g-1")
	require.NoError(t, err)
	assert.Equal(t, "S-1", grade.StudentUniqueID)
	assert.Equal(t, "ALG-1-01", grade.SectionIdentifier)
	assert.Equal(t, 1, grade.GradingPeriodSequence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("INSERT INTO grades").
		WillReturnResult(sqlmock.NewResult(1, 1))

	numeric := 88.0
	grade := &models.Grade{
		StudentID:       "st-1",
		SectionID:       "sec-1",
		GradingPeriodID: "gp-1",
		NumericGrade:    &numeric,
		Type:            models.GradeTypeGradingPeriod,
	}
	err := repo.Upsert(context.Background(), grade)
	require.NoError(t, err)
	assert.NotEmpty(t, grade.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
