package edfi

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/sis-api/internal/models"
)

func strPtr(s string) *string { return &s }

func TestSchoolYearFor(t *testing.T) {
	tests := []struct {
		date time.Time
		want int
	}{
		{time.Date(2026, time.July, 31, 23, 59, 0, 0, time.UTC), 2026},
		{time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), 2027},
		{time.Date(2026, time.December, 15, 0, 0, 0, 0, time.UTC), 2027},
		{time.Date(2027, time.January, 5, 0, 0, 0, 0, time.UTC), 2027},
		{time.Date(2027, time.June, 1, 0, 0, 0, 0, time.UTC), 2027},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SchoolYearFor(tt.date), "date %s", tt.date)
	}
}

func TestMapStudentOmitsEmptyContactArrays(t *testing.T) {
	student := models.Student{
		StudentUniqueID: "S-100",
		FirstName:       "Ada",
		LastSurname:     "Nguyen",
		BirthDate:       time.Date(2012, 4, 9, 0, 0, 0, 0, time.UTC),
		Sex:             "F",
	}

	res, err := MapStudent(student)
	require.NoError(t, err)

	payload, err := json.Marshal(res)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &raw))

	// Absent source data means absent keys, not empty arrays.
	assert.NotContains(t, raw, "addresses")
	assert.NotContains(t, raw, "electronicMails")
	assert.NotContains(t, raw, "telephones")
	assert.NotContains(t, raw, "middleName")

	assert.Equal(t, "2012-04-09", res.BirthDate)
	assert.Equal(t, "uri://ed-fi.org/SexDescriptor#Female", res.BirthSexDescriptor)
}

func TestMapStudentPopulatesContactArrays(t *testing.T) {
	student := models.Student{
		StudentUniqueID: "S-101",
		FirstName:       "Leo",
		MiddleName:      strPtr("James"),
		LastSurname:     "Ortiz",
		BirthDate:       time.Date(2011, 11, 2, 0, 0, 0, 0, time.UTC),
		Sex:             "M",
		Email:           strPtr("leo@example.org"),
		Phone:           strPtr("555-0100"),
		Street:          strPtr("12 Oak St"),
		City:            strPtr("Springfield"),
		State:           strPtr("TX"),
		PostalCode:      strPtr("75001"),
	}

	res, err := MapStudent(student)
	require.NoError(t, err)

	require.Len(t, res.Addresses, 1)
	assert.Equal(t, "12 Oak St", res.Addresses[0].StreetNumberName)
	assert.Equal(t, "uri://ed-fi.org/StateAbbreviationDescriptor#TX", res.Addresses[0].StateAbbreviation)

	require.Len(t, res.ElectronicMails, 1)
	assert.Equal(t, "leo@example.org", res.ElectronicMails[0].ElectronicMailAddress)

	require.Len(t, res.Telephones, 1)
	assert.Equal(t, "555-0100", res.Telephones[0].TelephoneNumber)
	assert.Equal(t, "James", res.MiddleName)
}

func TestMapStudentUnmappedSex(t *testing.T) {
	_, err := MapStudent(models.Student{
		StudentUniqueID: "S-102",
		FirstName:       "Sam",
		LastSurname:     "Ray",
		BirthDate:       time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC),
		Sex:             "unknown",
	})
	assert.Error(t, err)
}

func TestMapSchool(t *testing.T) {
	school := models.School{
		ID:           "sch-1",
		SchoolNumber: 255901,
		Name:         "Lincoln High School",
		Type:         models.SchoolTypeHigh,
		Street:       "1 Campus Way",
		City:         "Austin",
		State:        "TX",
		PostalCode:   "78701",
		Phone:        "555-0199",
	}

	res, err := MapSchool(school)
	require.NoError(t, err)

	assert.Equal(t, 255901, res.SchoolID)
	assert.Equal(t, "Lincoln High School", res.NameOfInstitution)
	assert.Equal(t, "uri://ed-fi.org/SchoolCategoryDescriptor#High School", res.SchoolCategoryDescriptor)
	require.Len(t, res.EducationOrganizationCategories, 1)
	assert.Equal(t, "uri://ed-fi.org/EducationOrganizationCategoryDescriptor#School",
		res.EducationOrganizationCategories[0].EducationOrganizationCategoryDescriptor)
	require.Len(t, res.GradeLevels, 4)
	assert.Equal(t, "uri://ed-fi.org/GradeLevelDescriptor#Ninth grade", res.GradeLevels[0].GradeLevelDescriptor)
	require.Len(t, res.Addresses, 1)
	require.Len(t, res.InstitutionTelephones, 1)
}

func TestMapCourseAlwaysSinglePart(t *testing.T) {
	res := MapCourse(models.CourseDetail{
		Course: models.Course{
			Code:        "ALG-1",
			Name:        "Algebra I",
			Description: strPtr("First-year algebra"),
		},
		SchoolNumber: 255901,
	})

	assert.Equal(t, 1, res.NumberOfParts)
	assert.Equal(t, "ALG-1", res.CourseCode)
	assert.Equal(t, "First-year algebra", res.CourseDescription)
	assert.Equal(t, 255901, res.EducationOrganizationReference.SchoolID)
}

func TestMapSection(t *testing.T) {
	sec := models.SectionDetail{
		CourseSection: models.CourseSection{SectionIdentifier: "ALG-1-01"},
		CourseCode:    "ALG-1",
		SchoolNumber:  255901,
		SessionName:   "Fall 2026",
	}

	res := MapSection(sec, 2027)
	assert.Equal(t, "ALG-1-01", res.SectionIdentifier)
	assert.Equal(t, courseOfferingReference{
		LocalCourseCode: "ALG-1",
		SchoolID:        255901,
		SchoolYear:      2027,
		SessionName:     "Fall 2026",
	}, res.CourseOfferingReference)
}

func TestMapSession(t *testing.T) {
	sec := models.SectionDetail{
		SchoolNumber: 255901,
		SessionName:  "Fall 2026",
		TermStart:    time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
		TermEnd:      time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
	}

	res, err := MapSession(sec, 2027)
	require.NoError(t, err)
	assert.Equal(t, "Fall 2026", res.SessionName)
	assert.Equal(t, 255901, res.SchoolReference.SchoolID)
	assert.Equal(t, 2027, res.SchoolYearTypeReference.SchoolYear)
	assert.Equal(t, "uri://ed-fi.org/TermDescriptor#Fall Semester", res.TermDescriptor)
	assert.Equal(t, "2026-08-17", res.BeginDate)
	assert.Equal(t, "2026-08-28", res.EndDate)
	// Two full weeks, weekends excluded.
	assert.Equal(t, 10, res.TotalInstructionalDays)
}

func TestMapSessionRejectsUnmappedName(t *testing.T) {
	sec := models.SectionDetail{SchoolNumber: 255901, SessionName: "Intersession 2026"}

	_, err := MapSession(sec, 2027)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Intersession 2026")
}

func TestMapGradeDefaultsPeriodSequence(t *testing.T) {
	numeric := 92.5
	grade := models.GradeDetail{
		Grade: models.Grade{
			NumericGrade: &numeric,
			LetterGrade:  strPtr("A-"),
			Type:         models.GradeTypeGradingPeriod,
		},
		StudentUniqueID:   "S-100",
		SectionIdentifier: "ALG-1-01",
		CourseCode:        "ALG-1",
		SchoolNumber:      255901,
		SessionName:       "Fall 2026",
		SectionBeginDate:  time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
		GradingPeriodName: "First Quarter",
		// Sequence left at zero falls back to 1.
	}

	res, err := MapGrade(grade, 2027)
	require.NoError(t, err)

	assert.Equal(t, 1, res.GradingPeriodReference.PeriodSequence)
	assert.Equal(t, "uri://ed-fi.org/GradingPeriodDescriptor#First Quarter", res.GradingPeriodReference.GradingPeriodDescriptor)
	assert.Equal(t, "uri://ed-fi.org/GradeTypeDescriptor#Grading Period", res.GradeTypeDescriptor)
	assert.Equal(t, "A-", res.LetterGradeEarned)
	require.NotNil(t, res.NumericGradeEarned)
	assert.Equal(t, 92.5, *res.NumericGradeEarned)

	assert.Equal(t, studentSectionAssociationReference{
		BeginDate:         "2026-08-17",
		LocalCourseCode:   "ALG-1",
		SchoolID:          255901,
		SchoolYear:        2027,
		SectionIdentifier: "ALG-1-01",
		SessionName:       "Fall 2026",
		StudentUniqueID:   "S-100",
	}, res.StudentSectionAssociationReference)
}

func TestMapGradeKeepsStoredSequence(t *testing.T) {
	grade := models.GradeDetail{
		Grade:                 models.Grade{Type: models.GradeTypeSemester},
		StudentUniqueID:       "S-100",
		SectionIdentifier:     "ALG-1-01",
		CourseCode:            "ALG-1",
		SchoolNumber:          255901,
		SessionName:           "Fall 2026",
		SectionBeginDate:      time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
		GradingPeriodName:     "Second Quarter",
		GradingPeriodSequence: 2,
	}

	res, err := MapGrade(grade, 2027)
	require.NoError(t, err)
	assert.Equal(t, 2, res.GradingPeriodReference.PeriodSequence)
}

func TestMapStudentSchoolAssociation(t *testing.T) {
	res, err := MapStudentSchoolAssociation("S-100", 255901, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), "9")
	require.NoError(t, err)

	assert.Equal(t, "S-100", res.StudentReference.StudentUniqueID)
	assert.Equal(t, 255901, res.SchoolReference.SchoolID)
	assert.Equal(t, "2026-08-17", res.EntryDate)
	assert.Equal(t, "uri://ed-fi.org/GradeLevelDescriptor#Ninth grade", res.EntryGradeLevelDescriptor)

	_, err = MapStudentSchoolAssociation("S-100", 255901, time.Now(), "college")
	assert.Error(t, err)
}
