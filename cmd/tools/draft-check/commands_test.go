package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 8, 15, 0, 0, time.UTC) }

func completeDraft() map[string]interface{} {
	return map[string]interface{}{
		"fullName":               "Ada Okon",
		"email":                  "ada@example.com",
		"phone":                  "08012345678",
		"dateOfBirth":            "2000-01-15",
		"currentLocation":        "Uyo",
		"distanceFromUyo":        "within-uyo",
		"canAttendInPerson":      "yes",
		"hasLaptop":              "yes",
		"internetAccess":         "reliable-home",
		"programmingExperience":  "beginner",
		"blockchainFamiliarity":  "basics",
		"canCommitTime":          "yes",
		"workStudyStatus":        "student",
		"weekdayAvailability":    "always",
		"logisticsUnderstanding": true,
		"whyWeb3":                strings.Repeat("w", 200),
		"whatToBuild":            strings.Repeat("b", 150),
		"learningStyle":          []string{"hands-on"},
		"englishProficiency":     "fluent",
		"howDidYouHear":          "twitter",
		"biggestChallenge":       "Time management",
		"fallBehindStrategy":     "study-groups",
		"codeOfConductAgreement": true,
		"commitmentStatement":    true,
		"informationAccuracy":    true,
	}
}

func writeDraft(t *testing.T, draft map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(draft)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "draft.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out, fixedNow)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate_CompleteDraft(t *testing.T) {
	out, err := run(t, "validate", writeDraft(t, completeDraft()))
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)
}

func TestValidate_ReportsFieldErrors(t *testing.T) {
	draft := completeDraft()
	draft["dateOfBirth"] = "2010-01-01"
	draft["codeOfConductAgreement"] = false

	out, err := run(t, "validate", writeDraft(t, draft))
	require.Error(t, err)
	assert.ErrorIs(t, err, errDraftInvalid)
	assert.Contains(t, out, "dateOfBirth")
	assert.Contains(t, out, "codeOfConductAgreement")
}

func TestValidate_SingleSection(t *testing.T) {
	draft := completeDraft()
	draft["whyWeb3"] = "too short"
	path := writeDraft(t, draft)

	out, err := run(t, "validate", "--section", "1", path)
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out)

	out, err = run(t, "validate", "--section", "5", path)
	require.Error(t, err)
	assert.Contains(t, out, "whyWeb3")

	_, err = run(t, "validate", "--section", "10", path)
	assert.ErrorContains(t, err, "out of range")
}

func TestValidate_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))

	_, err := run(t, "validate", path)
	assert.Error(t, err)
}

func TestRow_MapsDraft(t *testing.T) {
	out, err := run(t, "row", "--id", "CS-1792397700000-abcdefghi", writeDraft(t, completeDraft()))
	require.NoError(t, err)

	var row map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &row))
	assert.Equal(t, "CS-1792397700000-abcdefghi", row["application_id"])
	assert.Equal(t, "yes", row["can_pay_logistics"])
	assert.Nil(t, row["gender"])
}

func TestRow_GeneratesID(t *testing.T) {
	out, err := run(t, "row", writeDraft(t, completeDraft()))
	require.NoError(t, err)
	assert.Contains(t, out, `"application_id": "CS-1792397700000-`)

	_, err = run(t, "row", "--id", "not-an-id", writeDraft(t, completeDraft()))
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	out, err := run(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, `"fullName"`)

	out, err = run(t, "catalog", "--schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"additionalProperties": false`)

	path := filepath.Join(t.TempDir(), "catalog.json")
	out, err = run(t, "catalog", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote ")
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestValidate_WarnsOnUnlistedOptions(t *testing.T) {
	draft := completeDraft()
	draft["howDidYouHear"] = "carrier-pigeon"
	draft["learningStyle"] = []string{"hands-on", "osmosis"}

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, fixedNow)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"validate", writeDraft(t, draft)})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "OK\n", out.String())
	assert.Contains(t, errOut.String(), `howDidYouHear: "carrier-pigeon" is not a listed option`)
	assert.Contains(t, errOut.String(), `learningStyle: "osmosis"`)
	assert.NotContains(t, errOut.String(), "hands-on")
}

func TestValidate_ExplainsSkippedKeys(t *testing.T) {
	draft := completeDraft()
	draft["informationAccuracy"] = "true"
	draft["favouriteColour"] = "teal"

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, fixedNow)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"validate", writeDraft(t, draft)})

	err := cmd.Execute()
	assert.ErrorIs(t, err, errDraftInvalid, "the skipped agreement is left unset")
	assert.Contains(t, errOut.String(), `skipped key "informationAccuracy": Invalid type`)
	assert.Contains(t, errOut.String(), `skipped key "favouriteColour": Additional property favouriteColour is not allowed`)
}
