package edfi

import (
	"fmt"
	"strings"

	"github.com/edustack/sis-api/internal/models"
)

// Descriptor URIs follow the Ed-Fi convention
// uri://ed-fi.org/<Kind>Descriptor#<Value>. Local values are translated
// through fixed tables; an unmapped value is an error rather than a
// silently malformed URI.

const descriptorNamespace = "uri://ed-fi.org"

func descriptorURI(kind, value string) string {
	return fmt.Sprintf("%s/%sDescriptor#%s", descriptorNamespace, kind, value)
}

var sexDescriptorValues = map[string]string{
	"M":      "Male",
	"MALE":   "Male",
	"F":      "Female",
	"FEMALE": "Female",
}

// SexDescriptor translates a local sex code into its descriptor URI.
func SexDescriptor(sex string) (string, error) {
	value, ok := sexDescriptorValues[strings.ToUpper(strings.TrimSpace(sex))]
	if !ok {
		return "", fmt.Errorf("unmapped sex value %q", sex)
	}
	return descriptorURI("Sex", value), nil
}

var gradeLevelsByType = map[models.SchoolType][]string{
	models.SchoolTypeElementary: {
		"Kindergarten", "First grade", "Second grade", "Third grade",
		"Fourth grade", "Fifth grade",
	},
	models.SchoolTypeMiddle: {"Sixth grade", "Seventh grade", "Eighth grade"},
	models.SchoolTypeHigh:   {"Ninth grade", "Tenth grade", "Eleventh grade", "Twelfth grade"},
}

// GradeLevelDescriptors returns the descriptor URIs for every grade level a
// school of the given type serves. Unknown types yield an empty list.
func GradeLevelDescriptors(t models.SchoolType) []string {
	levels, ok := gradeLevelsByType[t]
	if !ok {
		return nil
	}
	uris := make([]string, len(levels))
	for i, level := range levels {
		uris[i] = descriptorURI("GradeLevel", level)
	}
	return uris
}

var gradeLevelValues = map[string]string{
	"K":  "Kindergarten",
	"KG": "Kindergarten",
	"1":  "First grade",
	"2":  "Second grade",
	"3":  "Third grade",
	"4":  "Fourth grade",
	"5":  "Fifth grade",
	"6":  "Sixth grade",
	"7":  "Seventh grade",
	"8":  "Eighth grade",
	"9":  "Ninth grade",
	"10": "Tenth grade",
	"11": "Eleventh grade",
	"12": "Twelfth grade",
}

// GradeLevelDescriptor translates a single local grade level code.
func GradeLevelDescriptor(level string) (string, error) {
	value, ok := gradeLevelValues[strings.ToUpper(strings.TrimSpace(level))]
	if !ok {
		return "", fmt.Errorf("unmapped grade level %q", level)
	}
	return descriptorURI("GradeLevel", value), nil
}

var schoolCategoryValues = map[models.SchoolType]string{
	models.SchoolTypeElementary: "Elementary School",
	models.SchoolTypeMiddle:     "Middle School",
	models.SchoolTypeHigh:       "High School",
}

// SchoolCategoryDescriptor translates the school type into its category URI.
func SchoolCategoryDescriptor(t models.SchoolType) (string, error) {
	value, ok := schoolCategoryValues[t]
	if !ok {
		return "", fmt.Errorf("unmapped school type %q", t)
	}
	return descriptorURI("SchoolCategory", value), nil
}

// EducationOrganizationCategoryDescriptor is fixed: every synced organization
// is a school.
func EducationOrganizationCategoryDescriptor() string {
	return descriptorURI("EducationOrganizationCategory", "School")
}

// AddressTypeDescriptor values used by the mappers.
var (
	addressTypeHome     = descriptorURI("AddressType", "Home")
	addressTypePhysical = descriptorURI("AddressType", "Physical")
	emailTypeHome       = descriptorURI("ElectronicMailType", "Home/Personal")
	phoneTypeHome       = descriptorURI("TelephoneNumberType", "Home")
	phoneTypeMain       = descriptorURI("InstitutionTelephoneNumberType", "Main")
)

var gradingPeriodValues = map[string]string{
	"FIRST QUARTER":   "First Quarter",
	"SECOND QUARTER":  "Second Quarter",
	"THIRD QUARTER":   "Third Quarter",
	"FOURTH QUARTER":  "Fourth Quarter",
	"FIRST SEMESTER":  "First Semester",
	"SECOND SEMESTER": "Second Semester",
	"END OF YEAR":     "End of Year",
}

// GradingPeriodDescriptor translates a local grading period name.
func GradingPeriodDescriptor(name string) (string, error) {
	value, ok := gradingPeriodValues[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unmapped grading period %q", name)
	}
	return descriptorURI("GradingPeriod", value), nil
}

var gradeTypeValues = map[models.GradeType]string{
	models.GradeTypeGradingPeriod: "Grading Period",
	models.GradeTypeSemester:      "Semester",
	models.GradeTypeFinal:         "Final",
}

// GradeTypeDescriptor translates a local grade type.
func GradeTypeDescriptor(t models.GradeType) (string, error) {
	value, ok := gradeTypeValues[t]
	if !ok {
		return "", fmt.Errorf("unmapped grade type %q", t)
	}
	return descriptorURI("GradeType", value), nil
}

var termValues = map[string]string{
	"FALL":   "Fall Semester",
	"SPRING": "Spring Semester",
	"SUMMER": "Summer Semester",
	"YEAR":   "Year Round",
}

// TermDescriptor derives the session's term descriptor from its name.
func TermDescriptor(sessionName string) (string, error) {
	upper := strings.ToUpper(sessionName)
	for key, value := range termValues {
		if strings.Contains(upper, key) {
			return descriptorURI("Term", value), nil
		}
	}
	return "", fmt.Errorf("unmapped session name %q", sessionName)
}
