package models

import (
	"time"

	"chainspace-intake/internal/intake/form"
)

const StatusSubmitted = "submitted"

// ApplicationRow is the row inserted into the storage collaborator's
// "applications" table. Optional answers left empty are nil and serialize as
// null. Columns such as status, cohort_id and created_at are owned by the
// collaborator and never set here.
type ApplicationRow struct {
	ApplicationID string  `json:"application_id" db:"application_id"`
	FullName      string  `json:"full_name" db:"full_name"`
	Email         string  `json:"email" db:"email"`
	Phone         string  `json:"phone" db:"phone"`
	DateOfBirth   string  `json:"date_of_birth" db:"date_of_birth"`
	Gender        *string `json:"gender" db:"gender"`

	CurrentLocation     string  `json:"current_location" db:"current_location"`
	DistanceFromUyo     string  `json:"distance_from_uyo" db:"distance_from_uyo"`
	CanAttendInPerson   string  `json:"can_attend_in_person" db:"can_attend_in_person"`
	InPersonExplanation *string `json:"in_person_explanation" db:"in_person_explanation"`
	AccommodationPlan   *string `json:"accommodation_plan" db:"accommodation_plan"`

	HasLaptop             string  `json:"has_laptop" db:"has_laptop"`
	InternetAccess        string  `json:"internet_access" db:"internet_access"`
	ProgrammingExperience string  `json:"programming_experience" db:"programming_experience"`
	CodingProjects        *string `json:"coding_projects" db:"coding_projects"`
	BlockchainFamiliarity string  `json:"blockchain_familiarity" db:"blockchain_familiarity"`

	CanCommitTime          string `json:"can_commit_time" db:"can_commit_time"`
	WorkStudyStatus        string `json:"work_study_status" db:"work_study_status"`
	WeekdayAvailability    string `json:"weekday_availability" db:"weekday_availability"`
	CanPayLogistics        string `json:"can_pay_logistics" db:"can_pay_logistics"`
	LogisticsUnderstanding bool   `json:"logistics_understanding" db:"logistics_understanding"`

	WhyWeb3                string   `json:"why_web3" db:"why_web3"`
	WhatToBuild            string   `json:"what_to_build" db:"what_to_build"`
	GroupProjectExperience *string  `json:"group_project_experience" db:"group_project_experience"`
	EnglishProficiency     string   `json:"english_proficiency" db:"english_proficiency"`
	LearningStyle          []string `json:"learning_style" db:"learning_style"`
	WillingToMentor        *string  `json:"willing_to_mentor" db:"willing_to_mentor"`
	FieldOfStudy           *string  `json:"field_of_study" db:"field_of_study"`
	EducationLevel         *string  `json:"education_level" db:"education_level"`
	CurrentProfession      *string  `json:"current_profession" db:"current_profession"`

	HowDidYouHear string  `json:"how_did_you_hear" db:"how_did_you_hear"`
	OtherSource   *string `json:"other_source" db:"other_source"`
	ReferrerName  *string `json:"referrer_name" db:"referrer_name"`

	AppliedToOthers    *string `json:"applied_to_others" db:"applied_to_others"`
	BiggestChallenge   string  `json:"biggest_challenge" db:"biggest_challenge"`
	FallBehindStrategy string  `json:"fall_behind_strategy" db:"fall_behind_strategy"`
	WhyChainspace      *string `json:"why_chainspace" db:"why_chainspace"`

	UniqueAboutYou       *string `json:"unique_about_you" db:"unique_about_you"`
	SpecialCircumstances *string `json:"special_circumstances" db:"special_circumstances"`
	GithubProfile        *string `json:"github_profile" db:"github_profile"`
	LinkedinProfile      *string `json:"linkedin_profile" db:"linkedin_profile"`
	PersonalProjects     *string `json:"personal_projects" db:"personal_projects"`

	CodeOfConductAgreement bool `json:"code_of_conduct_agreement" db:"code_of_conduct_agreement"`
	CommitmentStatement    bool `json:"commitment_statement" db:"commitment_statement"`
	InformationAccuracy    bool `json:"information_accuracy" db:"information_accuracy"`

	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
}

// Receipt is the local snapshot kept after a successful submission. It is
// informational only; the storage collaborator holds the authoritative row.
type Receipt struct {
	form.Draft
	ApplicationID string    `json:"applicationId"`
	SubmittedAt   time.Time `json:"submittedAt"`
	Status        string    `json:"status"`
}

func NewReceipt(d *form.Draft, applicationID string, submittedAt time.Time) *Receipt {
	return &Receipt{
		Draft:         *d.Clone(),
		ApplicationID: applicationID,
		SubmittedAt:   submittedAt,
		Status:        StatusSubmitted,
	}
}
