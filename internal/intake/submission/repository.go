package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chainspace-intake/internal/models"
)

var ErrStorageInsertFailed = errors.New("STORAGE_INSERT_FAILED")

// Repository inserts submitted rows into the storage collaborator.
type Repository interface {
	Insert(ctx context.Context, row *models.ApplicationRow) error
	Name() string
}

// PostgresRepository writes rows straight into the applications table.
type PostgresRepository struct {
	db    *sql.DB
	table string
}

func NewPostgresRepository(db *sql.DB, table string) *PostgresRepository {
	if table == "" {
		table = "applications"
	}
	return &PostgresRepository{db: db, table: table}
}

func (r *PostgresRepository) Name() string { return "postgres" }

func (r *PostgresRepository) Insert(ctx context.Context, row *models.ApplicationRow) error {
	columns, values, err := rowColumns(row)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInsertFailed, err)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInsertFailed, err)
	}
	return nil
}

// rowColumns flattens a row into column names and driver values in a fixed
// order. learning_style is stored as a JSON array.
func rowColumns(row *models.ApplicationRow) ([]string, []interface{}, error) {
	learningStyle, err := json.Marshal(row.LearningStyle)
	if err != nil {
		return nil, nil, fmt.Errorf("encode learning_style: %w", err)
	}

	pairs := []struct {
		column string
		value  interface{}
	}{
		{"application_id", row.ApplicationID},
		{"full_name", row.FullName},
		{"email", row.Email},
		{"phone", row.Phone},
		{"date_of_birth", row.DateOfBirth},
		{"gender", row.Gender},
		{"current_location", row.CurrentLocation},
		{"distance_from_uyo", row.DistanceFromUyo},
		{"can_attend_in_person", row.CanAttendInPerson},
		{"in_person_explanation", row.InPersonExplanation},
		{"accommodation_plan", row.AccommodationPlan},
		{"has_laptop", row.HasLaptop},
		{"internet_access", row.InternetAccess},
		{"programming_experience", row.ProgrammingExperience},
		{"coding_projects", row.CodingProjects},
		{"blockchain_familiarity", row.BlockchainFamiliarity},
		{"can_commit_time", row.CanCommitTime},
		{"work_study_status", row.WorkStudyStatus},
		{"weekday_availability", row.WeekdayAvailability},
		{"can_pay_logistics", row.CanPayLogistics},
		{"logistics_understanding", row.LogisticsUnderstanding},
		{"why_web3", row.WhyWeb3},
		{"what_to_build", row.WhatToBuild},
		{"group_project_experience", row.GroupProjectExperience},
		{"english_proficiency", row.EnglishProficiency},
		{"learning_style", string(learningStyle)},
		{"willing_to_mentor", row.WillingToMentor},
		{"field_of_study", row.FieldOfStudy},
		{"education_level", row.EducationLevel},
		{"current_profession", row.CurrentProfession},
		{"how_did_you_hear", row.HowDidYouHear},
		{"other_source", row.OtherSource},
		{"referrer_name", row.ReferrerName},
		{"applied_to_others", row.AppliedToOthers},
		{"biggest_challenge", row.BiggestChallenge},
		{"fall_behind_strategy", row.FallBehindStrategy},
		{"why_chainspace", row.WhyChainspace},
		{"unique_about_you", row.UniqueAboutYou},
		{"special_circumstances", row.SpecialCircumstances},
		{"github_profile", row.GithubProfile},
		{"linkedin_profile", row.LinkedinProfile},
		{"personal_projects", row.PersonalProjects},
		{"code_of_conduct_agreement", row.CodeOfConductAgreement},
		{"commitment_statement", row.CommitmentStatement},
		{"information_accuracy", row.InformationAccuracy},
		{"submitted_at", row.SubmittedAt},
	}

	columns := make([]string, len(pairs))
	values := make([]interface{}, len(pairs))
	for i, p := range pairs {
		columns[i] = p.column
		values[i] = nullable(p.value)
	}
	return columns, values, nil
}

func nullable(v interface{}) interface{} {
	if s, ok := v.(*string); ok {
		if s == nil {
			return nil
		}
		return *s
	}
	return v
}
