package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chainspace-intake/internal/common/config"

	_ "github.com/lib/pq"
)

// ApplicationsTableDDL creates the storage collaborator's table for local
// development and end-to-end runs. Production owns its own schema.
const ApplicationsTableDDL = `
CREATE TABLE IF NOT EXISTS applications (
	id                        UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	application_id            TEXT NOT NULL UNIQUE,
	full_name                 TEXT NOT NULL,
	email                     TEXT NOT NULL,
	phone                     TEXT NOT NULL,
	date_of_birth             TEXT NOT NULL,
	gender                    TEXT,
	current_location          TEXT NOT NULL,
	distance_from_uyo         TEXT NOT NULL,
	can_attend_in_person      TEXT NOT NULL,
	in_person_explanation     TEXT,
	accommodation_plan        TEXT,
	has_laptop                TEXT NOT NULL,
	internet_access           TEXT NOT NULL,
	programming_experience    TEXT NOT NULL,
	coding_projects           TEXT,
	blockchain_familiarity    TEXT NOT NULL,
	can_commit_time           TEXT NOT NULL,
	work_study_status         TEXT NOT NULL,
	weekday_availability      TEXT NOT NULL,
	can_pay_logistics         TEXT NOT NULL,
	logistics_understanding   BOOLEAN NOT NULL,
	why_web3                  TEXT NOT NULL,
	what_to_build             TEXT NOT NULL,
	group_project_experience  TEXT,
	english_proficiency       TEXT NOT NULL,
	learning_style            JSONB NOT NULL DEFAULT '[]',
	willing_to_mentor         TEXT,
	field_of_study            TEXT,
	education_level           TEXT,
	current_profession        TEXT,
	how_did_you_hear          TEXT NOT NULL,
	other_source              TEXT,
	referrer_name             TEXT,
	applied_to_others         TEXT,
	biggest_challenge         TEXT NOT NULL,
	fall_behind_strategy      TEXT NOT NULL,
	why_chainspace            TEXT,
	unique_about_you          TEXT,
	special_circumstances     TEXT,
	github_profile            TEXT,
	linkedin_profile          TEXT,
	personal_projects         TEXT,
	code_of_conduct_agreement BOOLEAN NOT NULL,
	commitment_statement      BOOLEAN NOT NULL,
	information_accuracy      BOOLEAN NOT NULL,
	cohort_id                 UUID,
	status                    TEXT DEFAULT 'pending',
	reviewer_notes            TEXT,
	reviewed_at               TIMESTAMPTZ,
	submitted_at              TIMESTAMPTZ NOT NULL,
	created_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at                TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// NewPostgresFromDB wraps an existing handle, e.g. a sqlmock connection.
func NewPostgresFromDB(db *sql.DB) *PostgresClient {
	return &PostgresClient{DB: db}
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

func (c *PostgresClient) EnsureApplicationsTable(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, ApplicationsTableDDL); err != nil {
		return fmt.Errorf("create applications table: %w", err)
	}
	return nil
}

func (c *PostgresClient) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.DB.ExecContext(ctx, query, args...)
}

func (c *PostgresClient) GetDB() *sql.DB {
	return c.DB
}
