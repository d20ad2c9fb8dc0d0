// internal/intake/form/draft.go
package form

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownField   = errors.New("UNKNOWN_FIELD")
	ErrWrongValueType = errors.New("WRONG_VALUE_TYPE")
	ErrMalformedDraft = errors.New("DRAFT_PARSE_FAILED")
)

// Field is the camelCase key of a draft attribute. The same keys are used in
// the persisted draft JSON and in API payloads.
type Field string

const (
	// Section 1: Personal Information
	FieldFullName    Field = "fullName"
	FieldEmail       Field = "email"
	FieldPhone       Field = "phone"
	FieldDateOfBirth Field = "dateOfBirth"
	FieldGender      Field = "gender"

	// Section 2: Location & Accessibility
	FieldCurrentLocation     Field = "currentLocation"
	FieldDistanceFromUyo     Field = "distanceFromUyo"
	FieldCanAttendInPerson   Field = "canAttendInPerson"
	FieldInPersonExplanation Field = "inPersonExplanation"
	FieldAccommodationPlan   Field = "accommodationPlan"

	// Section 3: Technical Background
	FieldHasLaptop             Field = "hasLaptop"
	FieldInternetAccess        Field = "internetAccess"
	FieldProgrammingExperience Field = "programmingExperience"
	FieldCodingProjects        Field = "codingProjects"
	FieldBlockchainFamiliarity Field = "blockchainFamiliarity"

	// Section 4: Commitment Assessment
	FieldCanCommitTime          Field = "canCommitTime"
	FieldWorkStudyStatus        Field = "workStudyStatus"
	FieldWeekdayAvailability    Field = "weekdayAvailability"
	FieldLogisticsUnderstanding Field = "logisticsUnderstanding"

	// Section 5: Motivation & Goals
	FieldWhyWeb3                Field = "whyWeb3"
	FieldWhatToBuild            Field = "whatToBuild"
	FieldLearningStyle          Field = "learningStyle"
	FieldGroupProjectExperience Field = "groupProjectExperience"

	// Section 6: Communication & Background
	FieldEnglishProficiency Field = "englishProficiency"
	FieldWillingToMentor    Field = "willingToMentor"
	FieldEducationLevel     Field = "educationLevel"
	FieldFieldOfStudy       Field = "fieldOfStudy"
	FieldCurrentProfession  Field = "currentProfession"

	// Section 7: Program Discovery
	FieldHowDidYouHear Field = "howDidYouHear"
	FieldOtherSource   Field = "otherSource"
	FieldReferrerName  Field = "referrerName"

	// Section 8: Final Screening
	FieldAppliedToOthers        Field = "appliedToOthers"
	FieldWhyChainspace          Field = "whyChainspace"
	FieldBiggestChallenge       Field = "biggestChallenge"
	FieldFallBehindStrategy     Field = "fallBehindStrategy"
	FieldCodeOfConductAgreement Field = "codeOfConductAgreement"
	FieldCommitmentStatement    Field = "commitmentStatement"
	FieldInformationAccuracy    Field = "informationAccuracy"

	// Section 9: Optional Information
	FieldUniqueAboutYou       Field = "uniqueAboutYou"
	FieldSpecialCircumstances Field = "specialCircumstances"
	FieldGithubProfile        Field = "githubProfile"
	FieldLinkedinProfile      Field = "linkedinProfile"
	FieldPersonalProjects     Field = "personalProjects"
)

// Draft is the in-progress application. It carries no identity; the
// application id is assigned at submission time.
type Draft struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`

	CurrentLocation     string `json:"currentLocation"`
	DistanceFromUyo     string `json:"distanceFromUyo"`
	CanAttendInPerson   string `json:"canAttendInPerson"`
	InPersonExplanation string `json:"inPersonExplanation"`
	AccommodationPlan   string `json:"accommodationPlan"`

	HasLaptop             string `json:"hasLaptop"`
	InternetAccess        string `json:"internetAccess"`
	ProgrammingExperience string `json:"programmingExperience"`
	CodingProjects        string `json:"codingProjects"`
	BlockchainFamiliarity string `json:"blockchainFamiliarity"`

	CanCommitTime          string `json:"canCommitTime"`
	WorkStudyStatus        string `json:"workStudyStatus"`
	WeekdayAvailability    string `json:"weekdayAvailability"`
	LogisticsUnderstanding bool   `json:"logisticsUnderstanding"`

	WhyWeb3                string   `json:"whyWeb3"`
	WhatToBuild            string   `json:"whatToBuild"`
	LearningStyle          []string `json:"learningStyle"`
	GroupProjectExperience string   `json:"groupProjectExperience"`

	EnglishProficiency string `json:"englishProficiency"`
	WillingToMentor    string `json:"willingToMentor"`
	EducationLevel     string `json:"educationLevel"`
	FieldOfStudy       string `json:"fieldOfStudy"`
	CurrentProfession  string `json:"currentProfession"`

	HowDidYouHear string `json:"howDidYouHear"`
	OtherSource   string `json:"otherSource"`
	ReferrerName  string `json:"referrerName"`

	AppliedToOthers        string `json:"appliedToOthers"`
	WhyChainspace          string `json:"whyChainspace"`
	BiggestChallenge       string `json:"biggestChallenge"`
	FallBehindStrategy     string `json:"fallBehindStrategy"`
	CodeOfConductAgreement bool   `json:"codeOfConductAgreement"`
	CommitmentStatement    bool   `json:"commitmentStatement"`
	InformationAccuracy    bool   `json:"informationAccuracy"`

	UniqueAboutYou       string `json:"uniqueAboutYou"`
	SpecialCircumstances string `json:"specialCircumstances"`
	GithubProfile        string `json:"githubProfile"`
	LinkedinProfile      string `json:"linkedinProfile"`
	PersonalProjects     string `json:"personalProjects"`
}

// NewDraft returns an empty draft with the form defaults applied.
func NewDraft() *Draft {
	return &Draft{LearningStyle: []string{}}
}

// Clone returns a deep copy.
func (d *Draft) Clone() *Draft {
	c := *d
	c.LearningStyle = append([]string{}, d.LearningStyle...)
	return &c
}

func (d *Draft) stringRef(f Field) *string {
	switch f {
	case FieldFullName:
		return &d.FullName
	case FieldEmail:
		return &d.Email
	case FieldPhone:
		return &d.Phone
	case FieldDateOfBirth:
		return &d.DateOfBirth
	case FieldGender:
		return &d.Gender
	case FieldCurrentLocation:
		return &d.CurrentLocation
	case FieldDistanceFromUyo:
		return &d.DistanceFromUyo
	case FieldCanAttendInPerson:
		return &d.CanAttendInPerson
	case FieldInPersonExplanation:
		return &d.InPersonExplanation
	case FieldAccommodationPlan:
		return &d.AccommodationPlan
	case FieldHasLaptop:
		return &d.HasLaptop
	case FieldInternetAccess:
		return &d.InternetAccess
	case FieldProgrammingExperience:
		return &d.ProgrammingExperience
	case FieldCodingProjects:
		return &d.CodingProjects
	case FieldBlockchainFamiliarity:
		return &d.BlockchainFamiliarity
	case FieldCanCommitTime:
		return &d.CanCommitTime
	case FieldWorkStudyStatus:
		return &d.WorkStudyStatus
	case FieldWeekdayAvailability:
		return &d.WeekdayAvailability
	case FieldWhyWeb3:
		return &d.WhyWeb3
	case FieldWhatToBuild:
		return &d.WhatToBuild
	case FieldGroupProjectExperience:
		return &d.GroupProjectExperience
	case FieldEnglishProficiency:
		return &d.EnglishProficiency
	case FieldWillingToMentor:
		return &d.WillingToMentor
	case FieldEducationLevel:
		return &d.EducationLevel
	case FieldFieldOfStudy:
		return &d.FieldOfStudy
	case FieldCurrentProfession:
		return &d.CurrentProfession
	case FieldHowDidYouHear:
		return &d.HowDidYouHear
	case FieldOtherSource:
		return &d.OtherSource
	case FieldReferrerName:
		return &d.ReferrerName
	case FieldAppliedToOthers:
		return &d.AppliedToOthers
	case FieldWhyChainspace:
		return &d.WhyChainspace
	case FieldBiggestChallenge:
		return &d.BiggestChallenge
	case FieldFallBehindStrategy:
		return &d.FallBehindStrategy
	case FieldUniqueAboutYou:
		return &d.UniqueAboutYou
	case FieldSpecialCircumstances:
		return &d.SpecialCircumstances
	case FieldGithubProfile:
		return &d.GithubProfile
	case FieldLinkedinProfile:
		return &d.LinkedinProfile
	case FieldPersonalProjects:
		return &d.PersonalProjects
	}
	return nil
}

func (d *Draft) boolRef(f Field) *bool {
	switch f {
	case FieldLogisticsUnderstanding:
		return &d.LogisticsUnderstanding
	case FieldCodeOfConductAgreement:
		return &d.CodeOfConductAgreement
	case FieldCommitmentStatement:
		return &d.CommitmentStatement
	case FieldInformationAccuracy:
		return &d.InformationAccuracy
	}
	return nil
}

// Set assigns one field from a decoded JSON value (string, bool, []string or
// []interface{} of strings).
func (d *Draft) Set(f Field, value interface{}) error {
	if p := d.stringRef(f); p != nil {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s expects a string, got %T", ErrWrongValueType, f, value)
		}
		*p = s
		return nil
	}
	if p := d.boolRef(f); p != nil {
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s expects a boolean, got %T", ErrWrongValueType, f, value)
		}
		*p = b
		return nil
	}
	if f == FieldLearningStyle {
		tags, err := toStrings(value)
		if err != nil {
			return fmt.Errorf("%w: %s %v", ErrWrongValueType, f, err)
		}
		d.LearningStyle = tags
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownField, f)
}

// Get returns the current value of a field.
func (d *Draft) Get(f Field) (interface{}, bool) {
	if p := d.stringRef(f); p != nil {
		return *p, true
	}
	if p := d.boolRef(f); p != nil {
		return *p, true
	}
	if f == FieldLearningStyle {
		return append([]string{}, d.LearningStyle...), true
	}
	return nil, false
}

func toStrings(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return append([]string{}, v...), nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d is %T, not a string", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expects a list of strings, got %T", value)
}

// Decode rebuilds a draft from its persisted JSON form. Keys are applied one
// at a time onto the defaults; null values, unknown keys and values of the
// wrong type are skipped and reported in skipped.
func Decode(data []byte) (draft *Draft, skipped []Field, err error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedDraft, err)
	}

	draft = NewDraft()
	for key, msg := range raw {
		if len(msg) == 0 || bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			continue
		}
		var value interface{}
		if err := json.Unmarshal(msg, &value); err != nil {
			skipped = append(skipped, Field(key))
			continue
		}
		if err := draft.Set(Field(key), value); err != nil {
			skipped = append(skipped, Field(key))
		}
	}
	return draft, skipped, nil
}

// Encode serializes the draft in the shape Decode accepts.
func Encode(d *Draft) ([]byte, error) {
	return json.Marshal(d)
}
