package submission

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	commonhttp "chainspace-intake/internal/common/http"
	"chainspace-intake/internal/intake/form"
	"chainspace-intake/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var submittedAt = time.Date(2026, 10, 19, 8, 15, 0, 0, time.UTC)

func validDraft() *form.Draft {
	d := form.NewDraft()
	d.FullName = "Ada Okon"
	d.Email = "ada@example.com"
	d.Phone = "+2348012345678"
	d.DateOfBirth = "1999-04-12"
	d.CurrentLocation = "uyo"
	d.DistanceFromUyo = "less-than-30min"
	d.CanAttendInPerson = "yes"
	d.HasLaptop = "yes"
	d.InternetAccess = "reliable"
	d.ProgrammingExperience = "beginner"
	d.BlockchainFamiliarity = "heard-of-it"
	d.CanCommitTime = "yes"
	d.WorkStudyStatus = "student"
	d.WeekdayAvailability = "all-weekdays"
	d.LogisticsUnderstanding = true
	d.WhyWeb3 = strings.Repeat("w", 160)
	d.WhatToBuild = strings.Repeat("b", 120)
	d.LearningStyle = []string{"hands-on"}
	d.EnglishProficiency = "fluent"
	d.HowDidYouHear = "twitter"
	d.BiggestChallenge = "Time management"
	d.FallBehindStrategy = "ask-for-help"
	d.CodeOfConductAgreement = true
	d.CommitmentStatement = true
	d.InformationAccuracy = true
	return d
}

func TestNewApplicationID(t *testing.T) {
	id := NewApplicationID(submittedAt)
	assert.True(t, IsApplicationID(id), id)
	assert.True(t, strings.HasPrefix(id, "CS-1792397700000-"), id)

	fixed := newApplicationID(submittedAt, func(int) int { return 0 })
	assert.Equal(t, "CS-1792397700000-aaaaaaaaa", fixed)

	last := newApplicationID(submittedAt, func(n int) int { return n - 1 })
	assert.Equal(t, "CS-1792397700000-999999999", last)

	assert.NotEqual(t, NewApplicationID(submittedAt), NewApplicationID(submittedAt))
}

func TestIsApplicationID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"CS-1760000000000-abc123xyz", true},
		{"CS-1-aaaaaaaaa", true},
		{"CS-1760000000000-ABC123XYZ", false},
		{"CS-1760000000000-abc123xy", false},
		{"CS--abc123xyz", false},
		{"XX-1760000000000-abc123xyz", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsApplicationID(tt.id))
		})
	}
}

func TestNewRecord(t *testing.T) {
	d := validDraft()
	d.InPersonExplanation = ""
	d.GithubProfile = "https://github.com/ada"
	d.CanCommitTime = "maybe"

	row := NewRecord(d, "CS-1-abcdefghi", submittedAt.In(time.FixedZone("WAT", 3600)))

	assert.Equal(t, "CS-1-abcdefghi", row.ApplicationID)
	assert.Equal(t, "Ada Okon", row.FullName)
	assert.Equal(t, "maybe", row.CanCommitTime)
	assert.Equal(t, "maybe", row.CanPayLogistics, "can_pay_logistics mirrors can_commit_time")
	assert.Nil(t, row.InPersonExplanation)
	assert.Nil(t, row.Gender)
	assert.Nil(t, row.PersonalProjects)
	require.NotNil(t, row.GithubProfile)
	assert.Equal(t, "https://github.com/ada", *row.GithubProfile)
	assert.Equal(t, time.UTC, row.SubmittedAt.Location())

	row.LearningStyle[0] = "changed"
	assert.Equal(t, "hands-on", d.LearningStyle[0], "row must not alias the draft")

	raw, err := json.Marshal(row)
	require.NoError(t, err)
	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &generic))

	value, present := generic["linkedin_profile"]
	assert.True(t, present, "empty optional fields are written, not omitted")
	assert.Nil(t, value)
	assert.Equal(t, "Ada Okon", generic["full_name"])
	assert.NotContains(t, generic, "status")
	assert.NotContains(t, generic, "cohort_id")
}

func expectedArgs(overrides map[int]driver.Value) []driver.Value {
	args := make([]driver.Value, 46)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	for i, v := range overrides {
		args[i] = v
	}
	return args
}

func TestPostgresRepository_Insert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	row := NewRecord(validDraft(), "CS-1-abcdefghi", submittedAt)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO applications (application_id, full_name, email")).
		WithArgs(expectedArgs(map[int]driver.Value{
			0:  "CS-1-abcdefghi",
			5:  nil,
			9:  nil,
			19: "yes",
			20: true,
			25: `["hands-on"]`,
			45: submittedAt,
		})...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db, "")
	assert.Equal(t, "postgres", repo.Name())
	require.NoError(t, repo.Insert(context.Background(), row))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_InsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO applications").
		WillReturnError(errors.New(`duplicate key value violates unique constraint "applications_application_id_key"`))

	err = NewPostgresRepository(db, "applications").
		Insert(context.Background(), NewRecord(validDraft(), "CS-1-abcdefghi", submittedAt))
	assert.ErrorIs(t, err, ErrStorageInsertFailed)
	assert.Contains(t, err.Error(), "duplicate key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRESTRepository_Insert(t *testing.T) {
	var (
		gotPath    string
		gotHeaders http.Header
		gotRows    []map[string]interface{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotRows)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	repo := NewRESTRepository(commonhttp.NewClientWith(server.Client()), server.URL+"/", "anon-key", "")
	err := repo.Insert(context.Background(), NewRecord(validDraft(), "CS-1-abcdefghi", submittedAt))
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/applications", gotPath)
	assert.Equal(t, "anon-key", gotHeaders.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", gotHeaders.Get("Authorization"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	require.Len(t, gotRows, 1)
	assert.Equal(t, "CS-1-abcdefghi", gotRows[0]["application_id"])
	assert.Equal(t, "yes", gotRows[0]["can_pay_logistics"])
	assert.Nil(t, gotRows[0]["gender"])
}

func TestRESTRepository_InsertErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		contains string
	}{
		{"api error object", http.StatusBadRequest, `{"code":"23502","message":"null value in column \"phone\""}`, `null value in column "phone"`},
		{"plain text", http.StatusServiceUnavailable, "upstream down", "upstream down"},
		{"unauthorized", http.StatusUnauthorized, `{"message":"Invalid API key"}`, "Invalid API key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			repo := NewRESTRepository(commonhttp.NewClientWith(server.Client()), server.URL, "k", "applications")
			err := repo.Insert(context.Background(), NewRecord(validDraft(), "CS-1-abcdefghi", submittedAt))
			assert.ErrorIs(t, err, ErrStorageInsertFailed)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestRESTRepository_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := NewRESTRepository(nil, url, "", "").
		Insert(context.Background(), NewRecord(validDraft(), "CS-1-abcdefghi", submittedAt))
	assert.ErrorIs(t, err, ErrStorageInsertFailed)
}

type mockRepository struct {
	mu       sync.Mutex
	rows     []*models.ApplicationRow
	InsertFn func(ctx context.Context, row *models.ApplicationRow) error
}

func (m *mockRepository) Name() string { return "mock" }

func (m *mockRepository) Insert(ctx context.Context, row *models.ApplicationRow) error {
	m.mu.Lock()
	m.rows = append(m.rows, row)
	m.mu.Unlock()
	if m.InsertFn != nil {
		return m.InsertFn(ctx, row)
	}
	return nil
}

type mockDispatcher struct {
	mu         sync.Mutex
	DispatchFn func(ctx context.Context, row *models.ApplicationRow) []models.FollowupOutcome
	calls      []string
}

func (m *mockDispatcher) Dispatch(ctx context.Context, row *models.ApplicationRow) []models.FollowupOutcome {
	m.mu.Lock()
	m.calls = append(m.calls, row.ApplicationID)
	m.mu.Unlock()
	if m.DispatchFn != nil {
		return m.DispatchFn(ctx, row)
	}
	return nil
}

func TestService_Submit(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &mockRepository{}
	followups := &mockDispatcher{}
	svc := NewService(repo,
		WithFollowups(followups),
		WithClock(func() time.Time { return submittedAt }),
		WithTimeouts(time.Second, time.Second),
	)

	result, err := svc.Submit(context.Background(), validDraft())
	require.NoError(t, err)
	svc.Wait()

	assert.True(t, IsApplicationID(result.ApplicationID), result.ApplicationID)
	assert.True(t, strings.HasPrefix(result.ApplicationID, "CS-1792397700000-"))
	assert.Equal(t, submittedAt, result.SubmittedAt)
	require.Len(t, repo.rows, 1)
	assert.Equal(t, result.ApplicationID, repo.rows[0].ApplicationID)
	assert.Equal(t, []string{result.ApplicationID}, followups.calls)
}

func TestService_SubmitFailureSkipsFollowups(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := &mockRepository{InsertFn: func(context.Context, *models.ApplicationRow) error {
		return errors.New("STORAGE_INSERT_FAILED: connection reset")
	}}
	followups := &mockDispatcher{}
	svc := NewService(repo, WithFollowups(followups))

	result, err := svc.Submit(context.Background(), validDraft())
	svc.Wait()

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, followups.calls)
}

func TestService_EachAttemptGetsNewID(t *testing.T) {
	repo := &mockRepository{}
	svc := NewService(repo)

	first, err := svc.Submit(context.Background(), validDraft())
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), validDraft())
	require.NoError(t, err)

	assert.NotEqual(t, first.ApplicationID, second.ApplicationID)
	assert.Len(t, repo.rows, 2)
}

func TestService_SubmitTimeout(t *testing.T) {
	repo := &mockRepository{InsertFn: func(ctx context.Context, _ *models.ApplicationRow) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	svc := NewService(repo, WithTimeouts(20*time.Millisecond, 0))

	_, err := svc.Submit(context.Background(), validDraft())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_FollowupsOutliveRequestContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	followups := &mockDispatcher{DispatchFn: func(ctx context.Context, _ *models.ApplicationRow) []models.FollowupOutcome {
		close(started)
		assert.NoError(t, ctx.Err())
		return nil
	}}
	svc := NewService(&mockRepository{}, WithFollowups(followups))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.Submit(ctx, validDraft())
	cancel()
	require.NoError(t, err)

	<-started
	svc.Wait()
}
