package edfi

import (
	"time"

	"github.com/edustack/sis-api/internal/models"
)

const dateLayout = "2006-01-02"

// Reference types mirror the natural-key shapes of the ODS resources.

type schoolReference struct {
	SchoolID int `json:"schoolId"`
}

type studentReference struct {
	StudentUniqueID string `json:"studentUniqueId"`
}

type courseOfferingReference struct {
	LocalCourseCode string `json:"localCourseCode"`
	SchoolID        int    `json:"schoolId"`
	SchoolYear      int    `json:"schoolYear"`
	SessionName     string `json:"sessionName"`
}

type sectionReference struct {
	LocalCourseCode   string `json:"localCourseCode"`
	SchoolID          int    `json:"schoolId"`
	SchoolYear        int    `json:"schoolYear"`
	SectionIdentifier string `json:"sectionIdentifier"`
	SessionName       string `json:"sessionName"`
}

type studentSectionAssociationReference struct {
	BeginDate         string `json:"beginDate"`
	LocalCourseCode   string `json:"localCourseCode"`
	SchoolID          int    `json:"schoolId"`
	SchoolYear        int    `json:"schoolYear"`
	SectionIdentifier string `json:"sectionIdentifier"`
	SessionName       string `json:"sessionName"`
	StudentUniqueID   string `json:"studentUniqueId"`
}

type gradingPeriodReference struct {
	GradingPeriodDescriptor string `json:"gradingPeriodDescriptor"`
	PeriodSequence          int    `json:"periodSequence"`
	SchoolID                int    `json:"schoolId"`
	SchoolYear              int    `json:"schoolYear"`
}

type educationOrganizationCategory struct {
	EducationOrganizationCategoryDescriptor string `json:"educationOrganizationCategoryDescriptor"`
}

type schoolGradeLevel struct {
	GradeLevelDescriptor string `json:"gradeLevelDescriptor"`
}

type addressItem struct {
	AddressTypeDescriptor string `json:"addressTypeDescriptor"`
	StreetNumberName      string `json:"streetNumberName"`
	City                  string `json:"city"`
	StateAbbreviation     string `json:"stateAbbreviationDescriptor,omitempty"`
	PostalCode            string `json:"postalCode"`
}

type electronicMailItem struct {
	ElectronicMailTypeDescriptor string `json:"electronicMailTypeDescriptor"`
	ElectronicMailAddress        string `json:"electronicMailAddress"`
}

type telephoneItem struct {
	TelephoneNumberTypeDescriptor string `json:"telephoneNumberTypeDescriptor"`
	TelephoneNumber               string `json:"telephoneNumber"`
}

type institutionTelephoneItem struct {
	InstitutionTelephoneNumberTypeDescriptor string `json:"institutionTelephoneNumberTypeDescriptor"`
	TelephoneNumber                          string `json:"telephoneNumber"`
}

// SchoolResource is the ed-fi.org schools collection shape.
type SchoolResource struct {
	SchoolID                        int                             `json:"schoolId"`
	NameOfInstitution               string                          `json:"nameOfInstitution"`
	SchoolCategoryDescriptor        string                          `json:"schoolCategoryDescriptor"`
	EducationOrganizationCategories []educationOrganizationCategory `json:"educationOrganizationCategories"`
	GradeLevels                     []schoolGradeLevel              `json:"gradeLevels"`
	Addresses                       []addressItem                   `json:"addresses,omitempty"`
	InstitutionTelephones           []institutionTelephoneItem      `json:"institutionTelephones,omitempty"`
}

// StudentResource is the ed-fi.org students collection shape. Optional
// contact arrays are omitted entirely when the source has no data.
type StudentResource struct {
	StudentUniqueID    string               `json:"studentUniqueId"`
	FirstName          string               `json:"firstName"`
	MiddleName         string               `json:"middleName,omitempty"`
	LastSurname        string               `json:"lastSurname"`
	BirthDate          string               `json:"birthDate"`
	BirthSexDescriptor string               `json:"birthSexDescriptor,omitempty"`
	Addresses          []addressItem        `json:"addresses,omitempty"`
	ElectronicMails    []electronicMailItem `json:"electronicMails,omitempty"`
	Telephones         []telephoneItem      `json:"telephones,omitempty"`
}

// CourseResource is the ed-fi.org courses collection shape. Multi-part
// courses are not modeled; numberOfParts is always 1.
type CourseResource struct {
	CourseCode                     string          `json:"courseCode"`
	CourseTitle                    string          `json:"courseTitle"`
	CourseDescription              string          `json:"courseDescription,omitempty"`
	NumberOfParts                  int             `json:"numberOfParts"`
	EducationOrganizationReference schoolReference `json:"educationOrganizationReference"`
}

// SectionResource is the ed-fi.org sections collection shape.
type SectionResource struct {
	SectionIdentifier       string                  `json:"sectionIdentifier"`
	CourseOfferingReference courseOfferingReference `json:"courseOfferingReference"`
}

type schoolYearTypeReference struct {
	SchoolYear int `json:"schoolYear"`
}

// SessionResource carries the term window a section's course offering
// belongs to.
type SessionResource struct {
	SessionName             string                  `json:"sessionName"`
	SchoolReference         schoolReference         `json:"schoolReference"`
	SchoolYearTypeReference schoolYearTypeReference `json:"schoolYearTypeReference"`
	TermDescriptor          string                  `json:"termDescriptor"`
	BeginDate               string                  `json:"beginDate"`
	EndDate                 string                  `json:"endDate"`
	TotalInstructionalDays  int                     `json:"totalInstructionalDays"`
}

// StudentSchoolAssociationResource links a student to a school.
type StudentSchoolAssociationResource struct {
	StudentReference          studentReference `json:"studentReference"`
	SchoolReference           schoolReference  `json:"schoolReference"`
	EntryDate                 string           `json:"entryDate"`
	EntryGradeLevelDescriptor string           `json:"entryGradeLevelDescriptor"`
}

// StudentSectionAssociationResource links a student to a section.
type StudentSectionAssociationResource struct {
	StudentReference studentReference `json:"studentReference"`
	SectionReference sectionReference `json:"sectionReference"`
	BeginDate        string           `json:"beginDate"`
}

// GradeResource is the ed-fi.org grades collection shape.
type GradeResource struct {
	GradeTypeDescriptor                string                             `json:"gradeTypeDescriptor"`
	NumericGradeEarned                 *float64                           `json:"numericGradeEarned,omitempty"`
	LetterGradeEarned                  string                             `json:"letterGradeEarned,omitempty"`
	GradingPeriodReference             gradingPeriodReference             `json:"gradingPeriodReference"`
	StudentSectionAssociationReference studentSectionAssociationReference `json:"studentSectionAssociationReference"`
}

// SchoolYearFor computes the Ed-Fi school year for a given instant: the
// academic calendar starts in August, so August onward belongs to the year
// ending next calendar year.
func SchoolYearFor(now time.Time) int {
	if now.Month() >= time.August {
		return now.Year() + 1
	}
	return now.Year()
}

// MapSchool translates a local school into its ODS resource.
func MapSchool(s models.School) (*SchoolResource, error) {
	category, err := SchoolCategoryDescriptor(s.Type)
	if err != nil {
		return nil, err
	}

	levels := GradeLevelDescriptors(s.Type)
	gradeLevels := make([]schoolGradeLevel, len(levels))
	for i, uri := range levels {
		gradeLevels[i] = schoolGradeLevel{GradeLevelDescriptor: uri}
	}

	res := &SchoolResource{
		SchoolID:                 s.SchoolNumber,
		NameOfInstitution:        s.Name,
		SchoolCategoryDescriptor: category,
		EducationOrganizationCategories: []educationOrganizationCategory{
			{EducationOrganizationCategoryDescriptor: EducationOrganizationCategoryDescriptor()},
		},
		GradeLevels: gradeLevels,
	}

	if s.Street != "" {
		res.Addresses = []addressItem{{
			AddressTypeDescriptor: addressTypePhysical,
			StreetNumberName:      s.Street,
			City:                  s.City,
			StateAbbreviation:     stateDescriptor(s.State),
			PostalCode:            s.PostalCode,
		}}
	}
	if s.Phone != "" {
		res.InstitutionTelephones = []institutionTelephoneItem{{
			InstitutionTelephoneNumberTypeDescriptor: phoneTypeMain,
			TelephoneNumber:                          s.Phone,
		}}
	}
	return res, nil
}

// MapStudent translates a local student into its ODS resource. Contact
// arrays are only populated when the source field is present.
func MapStudent(s models.Student) (*StudentResource, error) {
	res := &StudentResource{
		StudentUniqueID: s.StudentUniqueID,
		FirstName:       s.FirstName,
		LastSurname:     s.LastSurname,
		BirthDate:       s.BirthDate.Format(dateLayout),
	}
	if s.MiddleName != nil {
		res.MiddleName = *s.MiddleName
	}
	if s.Sex != "" {
		sex, err := SexDescriptor(s.Sex)
		if err != nil {
			return nil, err
		}
		res.BirthSexDescriptor = sex
	}
	if s.Street != nil && *s.Street != "" {
		addr := addressItem{
			AddressTypeDescriptor: addressTypeHome,
			StreetNumberName:      *s.Street,
		}
		if s.City != nil {
			addr.City = *s.City
		}
		if s.State != nil {
			addr.StateAbbreviation = stateDescriptor(*s.State)
		}
		if s.PostalCode != nil {
			addr.PostalCode = *s.PostalCode
		}
		res.Addresses = []addressItem{addr}
	}
	if s.Email != nil && *s.Email != "" {
		res.ElectronicMails = []electronicMailItem{{
			ElectronicMailTypeDescriptor: emailTypeHome,
			ElectronicMailAddress:        *s.Email,
		}}
	}
	if s.Phone != nil && *s.Phone != "" {
		res.Telephones = []telephoneItem{{
			TelephoneNumberTypeDescriptor: phoneTypeHome,
			TelephoneNumber:               *s.Phone,
		}}
	}
	return res, nil
}

// MapStudentSchoolAssociation builds the student-school link resource.
func MapStudentSchoolAssociation(studentUniqueID string, schoolNumber int, entryDate time.Time, gradeLevel string) (*StudentSchoolAssociationResource, error) {
	levelURI, err := GradeLevelDescriptor(gradeLevel)
	if err != nil {
		return nil, err
	}
	return &StudentSchoolAssociationResource{
		StudentReference:          studentReference{StudentUniqueID: studentUniqueID},
		SchoolReference:           schoolReference{SchoolID: schoolNumber},
		EntryDate:                 entryDate.Format(dateLayout),
		EntryGradeLevelDescriptor: levelURI,
	}, nil
}

// MapCourse translates a local course into its ODS resource.
func MapCourse(c models.CourseDetail) *CourseResource {
	res := &CourseResource{
		CourseCode:                     c.Code,
		CourseTitle:                    c.Name,
		NumberOfParts:                  1,
		EducationOrganizationReference: schoolReference{SchoolID: c.SchoolNumber},
	}
	if c.Description != nil {
		res.CourseDescription = *c.Description
	}
	return res
}

// MapSession translates a section's term window into its ODS session
// resource. The term descriptor is derived from the session name and an
// unmapped name is an error.
func MapSession(sec models.SectionDetail, schoolYear int) (*SessionResource, error) {
	termURI, err := TermDescriptor(sec.SessionName)
	if err != nil {
		return nil, err
	}
	return &SessionResource{
		SessionName:             sec.SessionName,
		SchoolReference:         schoolReference{SchoolID: sec.SchoolNumber},
		SchoolYearTypeReference: schoolYearTypeReference{SchoolYear: schoolYear},
		TermDescriptor:          termURI,
		BeginDate:               sec.TermStart.Format(dateLayout),
		EndDate:                 sec.TermEnd.Format(dateLayout),
		TotalInstructionalDays:  instructionalDays(sec.TermStart, sec.TermEnd),
	}, nil
}

// instructionalDays counts the weekdays in the term window, inclusive.
func instructionalDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}

// MapSection translates a local course section into its ODS resource using
// the computed school year.
func MapSection(sec models.SectionDetail, schoolYear int) *SectionResource {
	return &SectionResource{
		SectionIdentifier: sec.SectionIdentifier,
		CourseOfferingReference: courseOfferingReference{
			LocalCourseCode: sec.CourseCode,
			SchoolID:        sec.SchoolNumber,
			SchoolYear:      schoolYear,
			SessionName:     sec.SessionName,
		},
	}
}

// MapStudentSectionAssociation builds the student-section link resource.
func MapStudentSectionAssociation(enr models.SectionEnrollment, sec models.SectionDetail, schoolYear int) *StudentSectionAssociationResource {
	return &StudentSectionAssociationResource{
		StudentReference: studentReference{StudentUniqueID: enr.StudentUniqueID},
		SectionReference: sectionReference{
			LocalCourseCode:   sec.CourseCode,
			SchoolID:          sec.SchoolNumber,
			SchoolYear:        schoolYear,
			SectionIdentifier: sec.SectionIdentifier,
			SessionName:       sec.SessionName,
		},
		BeginDate: enr.BeginDate.Format(dateLayout),
	}
}

// MapGrade translates a local grade into its ODS resource. The composite key
// references the student-section association by its natural key tuple.
func MapGrade(g models.GradeDetail, schoolYear int) (*GradeResource, error) {
	gradeType, err := GradeTypeDescriptor(g.Type)
	if err != nil {
		return nil, err
	}
	periodURI, err := GradingPeriodDescriptor(g.GradingPeriodName)
	if err != nil {
		return nil, err
	}

	sequence := g.GradingPeriodSequence
	if sequence <= 0 {
		sequence = 1
	}

	res := &GradeResource{
		GradeTypeDescriptor: gradeType,
		NumericGradeEarned:  g.NumericGrade,
		GradingPeriodReference: gradingPeriodReference{
			GradingPeriodDescriptor: periodURI,
			PeriodSequence:          sequence,
			SchoolID:                g.SchoolNumber,
			SchoolYear:              schoolYear,
		},
		StudentSectionAssociationReference: studentSectionAssociationReference{
			BeginDate:         g.SectionBeginDate.Format(dateLayout),
			LocalCourseCode:   g.CourseCode,
			SchoolID:          g.SchoolNumber,
			SchoolYear:        schoolYear,
			SectionIdentifier: g.SectionIdentifier,
			SessionName:       g.SessionName,
			StudentUniqueID:   g.StudentUniqueID,
		},
	}
	if g.LetterGrade != nil {
		res.LetterGradeEarned = *g.LetterGrade
	}
	return res, nil
}

func stateDescriptor(state string) string {
	if state == "" {
		return ""
	}
	return descriptorURI("StateAbbreviation", state)
}
