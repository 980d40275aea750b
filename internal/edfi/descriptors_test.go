package edfi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/sis-api/internal/models"
)

func TestSexDescriptor(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "M", want: "uri://ed-fi.org/SexDescriptor#Male"},
		{in: "female", want: "uri://ed-fi.org/SexDescriptor#Female"},
		{in: " Male ", want: "uri://ed-fi.org/SexDescriptor#Male"},
		{in: "X", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := SexDescriptor(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestGradeLevelDescriptorsBySchoolType(t *testing.T) {
	elem := GradeLevelDescriptors(models.SchoolTypeElementary)
	require.Len(t, elem, 6)
	assert.Equal(t, "uri://ed-fi.org/GradeLevelDescriptor#Kindergarten", elem[0])
	assert.Equal(t, "uri://ed-fi.org/GradeLevelDescriptor#Fifth grade", elem[5])

	assert.Len(t, GradeLevelDescriptors(models.SchoolTypeMiddle), 3)
	assert.Len(t, GradeLevelDescriptors(models.SchoolTypeHigh), 4)
	assert.Empty(t, GradeLevelDescriptors(models.SchoolType("VOCATIONAL")))
}

func TestGradeLevelDescriptor(t *testing.T) {
	got, err := GradeLevelDescriptor("K")
	require.NoError(t, err)
	assert.Equal(t, "uri://ed-fi.org/GradeLevelDescriptor#Kindergarten", got)

	got, err = GradeLevelDescriptor("10")
	require.NoError(t, err)
	assert.Equal(t, "uri://ed-fi.org/GradeLevelDescriptor#Tenth grade", got)

	_, err = GradeLevelDescriptor("13")
	assert.Error(t, err)
}

func TestSchoolCategoryDescriptor(t *testing.T) {
	got, err := SchoolCategoryDescriptor(models.SchoolTypeHigh)
	require.NoError(t, err)
	assert.Equal(t, "uri://ed-fi.org/SchoolCategoryDescriptor#High School", got)

	_, err = SchoolCategoryDescriptor(models.SchoolType("PRESCHOOL"))
	assert.Error(t, err)
}

func TestGradingPeriodDescriptor(t *testing.T) {
	got, err := GradingPeriodDescriptor("First Quarter")
	require.NoError(t, err)
	assert.Equal(t, "uri://ed-fi.org/GradingPeriodDescriptor#First Quarter", got)

	got, err = GradingPeriodDescriptor("end of year")
	require.NoError(t, err)
	assert.Equal(t, "uri://ed-fi.org/GradingPeriodDescriptor#End of Year", got)

	_, err = GradingPeriodDescriptor("Trimester 1")
	assert.Error(t, err)
}

func TestGradeTypeDescriptor(t *testing.T) {
	got, err := GradeTypeDescriptor(models.GradeTypeFinal)
	require.NoError(t, err)
	assert.Equal(t, "uri://ed-fi.org/GradeTypeDescriptor#Final", got)

	_, err = GradeTypeDescriptor(models.GradeType("MIDTERM"))
	assert.Error(t, err)
}

func TestTermDescriptor(t *testing.T) {
	got, err := TermDescriptor("Fall 2026")
	require.NoError(t, err)
	assert.Equal(t, "uri://ed-fi.org/TermDescriptor#Fall Semester", got)

	got, err = TermDescriptor("2026 Spring Session")
	require.NoError(t, err)
	assert.Equal(t, "uri://ed-fi.org/TermDescriptor#Spring Semester", got)

	_, err = TermDescriptor("Intersession")
	assert.Error(t, err)
}
