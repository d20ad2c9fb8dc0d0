package followup

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"chainspace-intake/internal/models"
)

// ProcessStarter starts a BPMN process instance and returns its key.
type ProcessStarter interface {
	StartProcess(ctx context.Context, bpmnProcessID string, variables interface{}) (int64, error)
}

// ReviewVariables seed the application-review process.
type ReviewVariables struct {
	ApplicationID         string   `json:"applicationId"`
	FullName              string   `json:"fullName"`
	Email                 string   `json:"email"`
	CanAttendInPerson     string   `json:"canAttendInPerson"`
	ProgrammingExperience string   `json:"programmingExperience"`
	BlockchainFamiliarity string   `json:"blockchainFamiliarity"`
	LearningStyle         []string `json:"learningStyle"`
	SubmittedAt           string   `json:"submittedAt"`
}

// ReviewProcess hands each application to the admissions review workflow.
type ReviewProcess struct {
	starter   ProcessStarter
	processID string
	enabled   bool
}

func NewReviewProcess(starter ProcessStarter, processID string, enabled bool) *ReviewProcess {
	return &ReviewProcess{starter: starter, processID: processID, enabled: enabled}
}

func (r *ReviewProcess) Action() string { return ActionReviewProcess }

func (r *ReviewProcess) Run(ctx context.Context, row *models.ApplicationRow) (string, error) {
	if !r.enabled || r.starter == nil {
		return "", ErrDisabled
	}

	key, err := r.starter.StartProcess(ctx, r.processID, ReviewVariables{
		ApplicationID:         row.ApplicationID,
		FullName:              row.FullName,
		Email:                 row.Email,
		CanAttendInPerson:     row.CanAttendInPerson,
		ProgrammingExperience: row.ProgrammingExperience,
		BlockchainFamiliarity: row.BlockchainFamiliarity,
		LearningStyle:         row.LearningStyle,
		SubmittedAt:           row.SubmittedAt.Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("start %s: %w", r.processID, err)
	}
	return strconv.FormatInt(key, 10), nil
}
