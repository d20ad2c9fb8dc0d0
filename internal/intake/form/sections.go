package form

const (
	FirstSection = 1
	LastSection  = 9
	SectionCount = LastSection
)

type section struct {
	title string
	// layout is every field shown in the section, in display order.
	layout []Field
	// gated are the fields validated before leaving the section.
	gated []Field
}

var sections = [SectionCount]section{
	{
		title:  "Personal Information",
		layout: []Field{FieldFullName, FieldEmail, FieldPhone, FieldDateOfBirth, FieldGender},
		gated:  []Field{FieldFullName, FieldEmail, FieldPhone, FieldDateOfBirth},
	},
	{
		title: "Location & Accessibility",
		layout: []Field{FieldCurrentLocation, FieldDistanceFromUyo, FieldCanAttendInPerson,
			FieldInPersonExplanation, FieldAccommodationPlan},
		gated: []Field{FieldCurrentLocation, FieldDistanceFromUyo, FieldCanAttendInPerson},
	},
	{
		title: "Technical Background",
		layout: []Field{FieldHasLaptop, FieldInternetAccess, FieldProgrammingExperience,
			FieldCodingProjects, FieldBlockchainFamiliarity},
		gated: []Field{FieldHasLaptop, FieldInternetAccess, FieldProgrammingExperience, FieldBlockchainFamiliarity},
	},
	{
		title:  "Commitment Assessment",
		layout: []Field{FieldCanCommitTime, FieldWorkStudyStatus, FieldWeekdayAvailability, FieldLogisticsUnderstanding},
		gated:  []Field{FieldCanCommitTime, FieldWorkStudyStatus, FieldWeekdayAvailability, FieldLogisticsUnderstanding},
	},
	{
		title:  "Motivation & Goals",
		layout: []Field{FieldWhyWeb3, FieldWhatToBuild, FieldLearningStyle, FieldGroupProjectExperience},
		gated:  []Field{FieldWhyWeb3, FieldWhatToBuild, FieldLearningStyle},
	},
	{
		title: "Communication & Background",
		layout: []Field{FieldEnglishProficiency, FieldWillingToMentor, FieldEducationLevel,
			FieldFieldOfStudy, FieldCurrentProfession},
		gated: []Field{FieldEnglishProficiency},
	},
	{
		title:  "Program Discovery",
		layout: []Field{FieldHowDidYouHear, FieldOtherSource, FieldReferrerName},
		gated:  []Field{FieldHowDidYouHear},
	},
	{
		title: "Final Screening",
		layout: []Field{FieldAppliedToOthers, FieldWhyChainspace, FieldBiggestChallenge, FieldFallBehindStrategy,
			FieldCodeOfConductAgreement, FieldCommitmentStatement, FieldInformationAccuracy},
		gated: []Field{FieldBiggestChallenge, FieldFallBehindStrategy,
			FieldCodeOfConductAgreement, FieldCommitmentStatement, FieldInformationAccuracy},
	},
	{
		title: "Optional Information",
		layout: []Field{FieldUniqueAboutYou, FieldSpecialCircumstances, FieldGithubProfile,
			FieldLinkedinProfile, FieldPersonalProjects},
	},
}

func ValidSection(n int) bool {
	return n >= FirstSection && n <= LastSection
}

// SectionFields returns the fields validated when advancing from section n.
// Section 9 has none.
func SectionFields(n int) []Field {
	if !ValidSection(n) {
		return nil
	}
	return append([]Field(nil), sections[n-1].gated...)
}

// SectionLayout returns every field displayed in section n, conditional
// fields included.
func SectionLayout(n int) []Field {
	if !ValidSection(n) {
		return nil
	}
	return append([]Field(nil), sections[n-1].layout...)
}

func SectionTitle(n int) string {
	if !ValidSection(n) {
		return ""
	}
	return sections[n-1].title
}

// SectionOf returns the section a field is displayed in, or 0.
func SectionOf(f Field) int {
	for i, s := range sections {
		for _, candidate := range s.layout {
			if candidate == f {
				return i + 1
			}
		}
	}
	return 0
}

// AllFields lists every draft field in display order.
func AllFields() []Field {
	var out []Field
	for _, s := range sections {
		out = append(out, s.layout...)
	}
	return out
}

// Progress is the completion percentage shown for section n.
func Progress(n int) float64 {
	if n < FirstSection {
		n = FirstSection
	}
	if n > LastSection {
		n = LastSection
	}
	return float64(n) / float64(SectionCount) * 100
}
