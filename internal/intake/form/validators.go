package form

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var phoneRegex = regexp.MustCompile(`^(\+234\d{10}|\d{11})$`)

const (
	MinimumAge = 18

	WhyWeb3Min          = 150
	WhyWeb3Max          = 300
	WhatToBuildMin      = 100
	WhatToBuildMax      = 200
	BiggestChallengeMax = 100
)

// dateLayouts are tried in order when parsing a birth date.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// Validator evaluates the per-field rules against a draft. The clock is
// injected so age checks are reproducible.
type Validator struct {
	now func() time.Time
}

func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// rules returns the declared rule list for a field. Optional fields have an
// empty list and always pass.
func (v *Validator) rules(f Field) []validation.Rule {
	switch f {
	case FieldFullName:
		return []validation.Rule{
			validation.Required.Error("Full name must contain at least 2 characters"),
			validation.RuneLength(2, 0).Error("Full name must contain at least 2 characters"),
		}
	case FieldEmail:
		return []validation.Rule{
			validation.Required.Error("Invalid email format"),
			is.EmailFormat.Error("Invalid email format"),
		}
	case FieldPhone:
		return []validation.Rule{
			validation.Required.Error("Phone must be either +234XXXXXXXXXX or 11 digits"),
			validation.Match(phoneRegex).Error("Phone must be either +234XXXXXXXXXX or 11 digits"),
		}
	case FieldDateOfBirth:
		return []validation.Rule{
			validation.Required.Error("Date of birth is required"),
			validation.By(v.adult),
		}
	case FieldCurrentLocation:
		return required("Current location is required")
	case FieldDistanceFromUyo:
		return required("Distance from Uyo is required")
	case FieldCanAttendInPerson:
		return required("Please specify if you can attend in-person")
	case FieldHasLaptop:
		return required("Please specify if you have a laptop")
	case FieldInternetAccess:
		return required("Internet access information is required")
	case FieldProgrammingExperience:
		return required("Programming experience level is required")
	case FieldBlockchainFamiliarity:
		return required("Blockchain familiarity level is required")
	case FieldCanCommitTime:
		return required("Time commitment confirmation is required")
	case FieldWorkStudyStatus:
		return required("Work/study status is required")
	case FieldWeekdayAvailability:
		return required("Weekday availability is required")
	case FieldLogisticsUnderstanding:
		return accepted("You must acknowledge the logistics understanding")
	case FieldWhyWeb3:
		return bounded(WhyWeb3Min, WhyWeb3Max)
	case FieldWhatToBuild:
		return bounded(WhatToBuildMin, WhatToBuildMax)
	case FieldLearningStyle:
		return required("Please select at least one learning style")
	case FieldEnglishProficiency:
		return required("English proficiency level is required")
	case FieldHowDidYouHear:
		return required("Please specify how you heard about us")
	case FieldBiggestChallenge:
		return []validation.Rule{
			validation.Required.Error("Please specify your biggest expected challenge"),
			validation.RuneLength(0, BiggestChallengeMax).Error("Maximum 100 characters"),
		}
	case FieldFallBehindStrategy:
		return required("Please select a strategy")
	case FieldCodeOfConductAgreement:
		return accepted("You must agree to the code of conduct")
	case FieldCommitmentStatement:
		return accepted("You must acknowledge the commitment statement")
	case FieldInformationAccuracy:
		return accepted("You must confirm information accuracy")
	case FieldGithubProfile, FieldLinkedinProfile, FieldPersonalProjects:
		// empty string means "not provided"; the url rule skips empty values
		return []validation.Rule{is.RequestURL.Error("Invalid url")}
	}
	return nil
}

func required(message string) []validation.Rule {
	return []validation.Rule{validation.Required.Error(message)}
}

// accepted requires a boolean acknowledgment to be true. Required treats
// false as empty.
func accepted(message string) []validation.Rule {
	return []validation.Rule{validation.Required.ErrorObject(validation.NewError(CodeNotAccepted, message))}
}

func bounded(min, max int) []validation.Rule {
	short := "Please provide at least " + strconv.Itoa(min) + " characters"
	return []validation.Rule{
		validation.Required.Error(short),
		validation.RuneLength(min, 0).Error(short),
		validation.RuneLength(0, max).Error("Maximum " + strconv.Itoa(max) + " characters"),
	}
}

func (v *Validator) adult(value interface{}) error {
	s, _ := value.(string)
	birth, ok := ParseDate(s)
	if !ok {
		return validation.NewError(CodeInvalidFormat, "Invalid date of birth")
	}
	if Age(birth, v.now()) < MinimumAge {
		return validation.NewError(CodeUnderage, "Must be 18 years or older")
	}
	return nil
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Age is the number of whole years between birth and now, counting the
// birthday itself as completed.
func Age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}

// ValidateField runs one field's rules and returns nil when it passes.
func (v *Validator) ValidateField(d *Draft, f Field) *FieldError {
	rules := v.rules(f)
	if len(rules) == 0 {
		return nil
	}
	value, ok := d.Get(f)
	if !ok {
		return nil
	}
	err := validation.Validate(value, rules...)
	if err == nil {
		return nil
	}
	fe := &FieldError{Field: f, Code: CodeInvalidFormat, Message: err.Error()}
	if verr, ok := err.(validation.Error); ok {
		fe.Code = translateCode(verr.Code())
		fe.Message = verr.Message()
	}
	return fe
}

// ValidateFields runs the rules of each listed field in order.
func (v *Validator) ValidateFields(d *Draft, fields []Field) ValidationErrors {
	var errs ValidationErrors
	for _, f := range fields {
		if fe := v.ValidateField(d, f); fe != nil {
			errs = append(errs, *fe)
		}
	}
	return errs
}

// ValidateSection validates only the fields declared for the section.
func (v *Validator) ValidateSection(d *Draft, section int) ValidationErrors {
	return v.ValidateFields(d, SectionFields(section))
}

// ValidateAll validates the full schema regardless of the current section.
func (v *Validator) ValidateAll(d *Draft) ValidationErrors {
	return v.ValidateFields(d, AllFields())
}

func translateCode(code string) string {
	switch {
	case code == "validation_required":
		return CodeMissingRequired
	case code == "validation_length_too_short":
		return CodeBelowMinimum
	case code == "validation_length_too_long":
		return CodeAboveMaximum
	case code == "validation_match_invalid", strings.HasPrefix(code, "validation_is_"):
		return CodeInvalidFormat
	}
	return code
}
