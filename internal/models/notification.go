package models

import "time"

const (
	FollowupStatusSent     = "sent"
	FollowupStatusFailed   = "failed"
	FollowupStatusDisabled = "disabled"
)

// FollowupOutcome records one best-effort action taken after a submission
// (confirmation e-mail, staff alert, search index, review process).
type FollowupOutcome struct {
	Action        string    `json:"action"`
	ApplicationID string    `json:"applicationId"`
	Status        string    `json:"status"`
	Reference     string    `json:"reference,omitempty"`
	Error         string    `json:"error,omitempty"`
	CompletedAt   time.Time `json:"completedAt"`
}
