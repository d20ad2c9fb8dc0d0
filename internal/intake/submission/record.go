package submission

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"

	"chainspace-intake/internal/intake/form"
	"chainspace-intake/internal/models"
)

const (
	idPrefix     = "CS"
	suffixLength = 9
	suffixChars  = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var applicationIDPattern = regexp.MustCompile(`^CS-\d+-[a-z0-9]{9}$`)

// NewApplicationID returns CS-<unix millis>-<9 lowercase alphanumerics>.
// Ids are not guaranteed unique and are never used as a primary key.
func NewApplicationID(at time.Time) string {
	return newApplicationID(at, rand.IntN)
}

func newApplicationID(at time.Time, intn func(int) int) string {
	suffix := make([]byte, suffixLength)
	for i := range suffix {
		suffix[i] = suffixChars[intn(len(suffixChars))]
	}
	return fmt.Sprintf("%s-%d-%s", idPrefix, at.UnixMilli(), suffix)
}

// IsApplicationID reports whether id has the generated shape.
func IsApplicationID(id string) bool {
	return applicationIDPattern.MatchString(id)
}

// NewRecord maps a validated draft onto the storage row. Optional answers
// left empty become nil so they are written as null. can_pay_logistics
// mirrors canCommitTime.
func NewRecord(d *form.Draft, applicationID string, submittedAt time.Time) *models.ApplicationRow {
	learningStyle := append([]string{}, d.LearningStyle...)

	return &models.ApplicationRow{
		ApplicationID: applicationID,
		FullName:      d.FullName,
		Email:         d.Email,
		Phone:         d.Phone,
		DateOfBirth:   d.DateOfBirth,
		Gender:        optional(d.Gender),

		CurrentLocation:     d.CurrentLocation,
		DistanceFromUyo:     d.DistanceFromUyo,
		CanAttendInPerson:   d.CanAttendInPerson,
		InPersonExplanation: optional(d.InPersonExplanation),
		AccommodationPlan:   optional(d.AccommodationPlan),

		HasLaptop:             d.HasLaptop,
		InternetAccess:        d.InternetAccess,
		ProgrammingExperience: d.ProgrammingExperience,
		CodingProjects:        optional(d.CodingProjects),
		BlockchainFamiliarity: d.BlockchainFamiliarity,

		CanCommitTime:          d.CanCommitTime,
		WorkStudyStatus:        d.WorkStudyStatus,
		WeekdayAvailability:    d.WeekdayAvailability,
		CanPayLogistics:        d.CanCommitTime,
		LogisticsUnderstanding: d.LogisticsUnderstanding,

		WhyWeb3:                d.WhyWeb3,
		WhatToBuild:            d.WhatToBuild,
		GroupProjectExperience: optional(d.GroupProjectExperience),
		EnglishProficiency:     d.EnglishProficiency,
		LearningStyle:          learningStyle,
		WillingToMentor:        optional(d.WillingToMentor),
		FieldOfStudy:           optional(d.FieldOfStudy),
		EducationLevel:         optional(d.EducationLevel),
		CurrentProfession:      optional(d.CurrentProfession),

		HowDidYouHear: d.HowDidYouHear,
		OtherSource:   optional(d.OtherSource),
		ReferrerName:  optional(d.ReferrerName),

		AppliedToOthers:    optional(d.AppliedToOthers),
		BiggestChallenge:   d.BiggestChallenge,
		FallBehindStrategy: d.FallBehindStrategy,
		WhyChainspace:      optional(d.WhyChainspace),

		UniqueAboutYou:       optional(d.UniqueAboutYou),
		SpecialCircumstances: optional(d.SpecialCircumstances),
		GithubProfile:        optional(d.GithubProfile),
		LinkedinProfile:      optional(d.LinkedinProfile),
		PersonalProjects:     optional(d.PersonalProjects),

		CodeOfConductAgreement: d.CodeOfConductAgreement,
		CommitmentStatement:    d.CommitmentStatement,
		InformationAccuracy:    d.InformationAccuracy,

		SubmittedAt: submittedAt.UTC(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
