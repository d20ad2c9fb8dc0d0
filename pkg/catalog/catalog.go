package catalog

import (
	"encoding/json"
	"os"

	"chainspace-intake/internal/common/validation"
	"chainspace-intake/internal/intake/form"
)

const Version = "1.0.0"

type entry struct {
	label     string
	kind      Kind
	options   []Option
	minLength int
	maxLength int
	showWhen  string
}

var yesNo = []Option{{"yes", "Yes"}, {"no", "No"}}

var entries = map[form.Field]entry{
	form.FieldFullName:    {label: "Full Name", kind: KindText, minLength: 2},
	form.FieldEmail:       {label: "Email Address", kind: KindEmail},
	form.FieldPhone:       {label: "Phone Number", kind: KindPhone},
	form.FieldDateOfBirth: {label: "Date of Birth", kind: KindDate},
	form.FieldGender: {label: "Gender", kind: KindSelect, options: []Option{
		{"male", "Male"}, {"female", "Female"}, {"prefer-not-to-say", "Prefer not to say"}, {"other", "Other"},
	}},

	form.FieldCurrentLocation: {label: "Current Location", kind: KindText},
	form.FieldDistanceFromUyo: {label: "Distance from Uyo", kind: KindSelect, options: []Option{
		{"within-uyo", "Within Uyo"}, {"1-2-hours", "1-2 hours travel"}, {"2-4-hours", "2-4 hours travel"},
		{"4-plus-hours", "4+ hours travel"}, {"will-relocate", "Will relocate to Uyo"},
	}},
	form.FieldCanAttendInPerson: {label: "Can you attend in-person classes in Uyo?", kind: KindRadio, options: yesNo},
	form.FieldInPersonExplanation: {label: "Please explain why you can't attend in-person", kind: KindTextarea,
		showWhen: "canAttendInPerson == no"},
	form.FieldAccommodationPlan: {label: "Accommodation Plan", kind: KindSelect, showWhen: "canAttendInPerson == no",
		options: []Option{
			{"friends-family", "Stay with friends/family"}, {"rent", "Will rent accommodation"},
			{"hotel", "Hotel/lodging"}, {"planning", "Still planning"}, {"other", "Other"},
		}},

	form.FieldHasLaptop: {label: "Do you own a functional laptop?", kind: KindRadio, options: yesNo},
	form.FieldInternetAccess: {label: "Internet Access", kind: KindSelect, options: []Option{
		{"reliable-home", "Reliable home internet"}, {"mobile-only", "Mobile data only"},
		{"workspace", "Will use workspace internet"}, {"uncertain", "Uncertain/Need support"},
	}},
	form.FieldProgrammingExperience: {label: "Programming Experience", kind: KindSelect, options: []Option{
		{"beginner", "Complete beginner (never coded)"}, {"tutorials", "Tried online tutorials (HTML/CSS basics)"},
		{"some-js", "Some JavaScript/Python experience"}, {"small-projects", "Built small projects before"},
		{"professional", "Professional developer"},
	}},
	form.FieldCodingProjects: {label: "What have you built?", kind: KindTextarea,
		showWhen: "programmingExperience != beginner"},
	form.FieldBlockchainFamiliarity: {label: "Blockchain/Crypto Familiarity", kind: KindSelect, options: []Option{
		{"never-heard", "Never heard of it"}, {"basics", "Know the basics (Bitcoin, etc.)"},
		{"use-wallets", "Use crypto wallets/DeFi"}, {"technical", "Some technical understanding"},
		{"built-projects", "Built blockchain projects"},
	}},

	form.FieldCanCommitTime: {label: "Can you commit 21+ hours per week for 3 months?", kind: KindRadio, options: yesNo},
	form.FieldWorkStudyStatus: {label: "Current Work/Study Status", kind: KindSelect, options: []Option{
		{"unemployed", "Unemployed/Available full-time"}, {"part-time", "Part-time work (flexible schedule)"},
		{"full-time-flexible", "Full-time work (evenings free)"}, {"student", "Student (manageable schedule)"},
		{"full-time-demanding", "Full-time with demanding schedule"},
	}},
	form.FieldWeekdayAvailability: {label: "Mon/Wed/Fri 5:00 PM Availability", kind: KindSelect, options: []Option{
		{"always", "Always available"}, {"mostly", "Mostly available"},
		{"sometimes", "Sometimes conflicted"}, {"not-available", "Not available"},
	}},
	form.FieldLogisticsUnderstanding: {label: "I understand ₦20,000 covers workspace access, internet, power, materials, and ID card only",
		kind: KindCheckbox},

	form.FieldWhyWeb3: {label: "Why do you want to learn Web3 development?", kind: KindTextarea,
		minLength: form.WhyWeb3Min, maxLength: form.WhyWeb3Max},
	form.FieldWhatToBuild: {label: "What do you hope to build after this program?", kind: KindTextarea,
		minLength: form.WhatToBuildMin, maxLength: form.WhatToBuildMax},
	form.FieldLearningStyle: {label: "How do you learn best? (Select all that apply)", kind: KindMulti, options: []Option{
		{"hands-on", "Hands-on coding practice"}, {"lectures", "Structured lectures and notes"},
		{"group", "Group discussions and collaboration"}, {"independent", "Independent research and exploration"},
		{"mix", "Mix of all approaches"},
	}},
	form.FieldGroupProjectExperience: {label: "Experience with group projects?", kind: KindTextarea},

	form.FieldEnglishProficiency: {label: "English Proficiency Level", kind: KindSelect, options: []Option{
		{"fluent", "Fluent"}, {"good", "Good"}, {"basic", "Basic"}, {"need-support", "Need support"},
	}},
	form.FieldWillingToMentor: {label: "Willing to mentor future cohorts?", kind: KindRadio, options: yesNo},
	form.FieldEducationLevel: {label: "Highest Education Level", kind: KindSelect, options: []Option{
		{"no-formal", "No formal education"}, {"ssce", "SSCE/WAEC"}, {"ond", "OND"}, {"hnd", "HND"},
		{"bachelors", "Bachelor's Degree"}, {"masters", "Master's Degree"}, {"other", "Other"},
	}},
	form.FieldFieldOfStudy:      {label: "Field of Study", kind: KindText},
	form.FieldCurrentProfession: {label: "Current Profession/Industry", kind: KindText},

	form.FieldHowDidYouHear: {label: "How did you hear about ChainspaceHQ?", kind: KindSelect, options: []Option{
		{"instagram", "Social media (Instagram)"}, {"twitter", "Social media (Twitter)"},
		{"facebook", "Social media (Facebook)"}, {"linkedin", "Social media (LinkedIn)"},
		{"referral", "Friend/colleague referral"}, {"graduate", "Previous cohort graduate"},
		{"search", "Online search"}, {"event", "Event/conference"},
		{"whatsapp", "WhatsApp group/community"}, {"other", "Other"},
	}},
	form.FieldOtherSource:  {label: "Please specify", kind: KindText, showWhen: "howDidYouHear == other"},
	form.FieldReferrerName: {label: "Referrer's name (if applicable)", kind: KindText},

	form.FieldAppliedToOthers: {label: "Applied to other coding programs?", kind: KindRadio, options: yesNo},
	form.FieldWhyChainspace: {label: "Which ones and why ChainspaceHQ?", kind: KindTextarea,
		showWhen: "appliedToOthers == yes"},
	form.FieldBiggestChallenge: {label: "Biggest challenge you expect?", kind: KindTextarea,
		maxLength: form.BiggestChallengeMax},
	form.FieldFallBehindStrategy: {label: "What will you do if you fall behind?", kind: KindSelect, options: []Option{
		{"extra-help", "Seek extra help from mentors"}, {"study-groups", "Form study groups with peers"},
		{"more-time", "Dedicate more personal time"}, {"drop-out", "Consider dropping out"},
		{"other-strategy", "Other strategy"},
	}},
	form.FieldCodeOfConductAgreement: {label: "I agree to maintain professional behavior, attend regularly, and contribute positively",
		kind: KindCheckbox},
	form.FieldCommitmentStatement: {label: "I understand this is an intensive 3-month program requiring significant time and effort",
		kind: KindCheckbox},
	form.FieldInformationAccuracy: {label: "All information provided is accurate and truthful", kind: KindCheckbox},

	form.FieldUniqueAboutYou:       {label: "Tell us something unique about yourself", kind: KindTextarea},
	form.FieldSpecialCircumstances: {label: "Special circumstances we should know?", kind: KindTextarea},
	form.FieldGithubProfile:        {label: "GitHub Profile", kind: KindURL},
	form.FieldLinkedinProfile:      {label: "LinkedIn Profile", kind: KindURL},
	form.FieldPersonalProjects:     {label: "Personal Projects/Websites", kind: KindURL},
}

// Default builds the catalog from the form's section layout.
func Default() *Catalog {
	c := &Catalog{Version: Version, Title: "ChainspaceHQ Bootcamp Application"}
	for n := form.FirstSection; n <= form.LastSection; n++ {
		gated := make(map[form.Field]bool)
		for _, f := range form.SectionFields(n) {
			gated[f] = true
		}
		s := Section{Index: n, Title: form.SectionTitle(n), Progress: form.Progress(n)}
		for _, f := range form.SectionLayout(n) {
			e := entries[f]
			s.Fields = append(s.Fields, FieldSpec{
				Key:       string(f),
				Label:     e.label,
				Kind:      e.kind,
				Required:  gated[f],
				Options:   e.options,
				MinLength: e.minLength,
				MaxLength: e.maxLength,
				ShowWhen:  e.showWhen,
			})
		}
		c.Sections = append(c.Sections, s)
	}
	return c
}

// Field looks up one field's description.
func (c *Catalog) Field(key string) (FieldSpec, bool) {
	for _, s := range c.Sections {
		for _, f := range s.Fields {
			if f.Key == key {
				return f, true
			}
		}
	}
	return FieldSpec{}, false
}

// HasOption reports whether value is one of the declared options of a
// select, radio or multi-select field.
func (c *Catalog) HasOption(key, value string) bool {
	f, ok := c.Field(key)
	if !ok {
		return false
	}
	for _, o := range f.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// DraftSchema is the JSON Schema of a (partial) draft payload: every key
// optional, values typed, no unknown keys.
func (c *Catalog) DraftSchema() validation.JSONSchema {
	props := make(map[string]validation.Property)
	for _, s := range c.Sections {
		for _, f := range s.Fields {
			p := validation.Property{Type: "string", Description: f.Label}
			switch f.Kind {
			case KindCheckbox:
				p.Type = "boolean"
			case KindMulti:
				p.Type = "array"
				p.Items = &validation.Property{Type: "string"}
			}
			props[f.Key] = p
		}
	}
	return validation.JSONSchema{
		Title:                "ApplicationDraft",
		Type:                 "object",
		Properties:           props,
		AdditionalProperties: validation.Bool(false),
	}
}

func (c *Catalog) WriteFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Catalog
	err = json.Unmarshal(data, &c)
	return &c, err
}
