package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ErrorCode string

const (
	// Applicant input
	ErrCodeFieldValidationFailed ErrorCode = "FIELD_VALIDATION_FAILED"
	ErrCodeInvalidPayload        ErrorCode = "INVALID_PAYLOAD"
	ErrCodeDraftParseFailed      ErrorCode = "DRAFT_PARSE_FAILED"

	// Wizard state
	ErrCodeSubmissionInProgress ErrorCode = "SUBMISSION_IN_PROGRESS"
	ErrCodeSectionNotFinal      ErrorCode = "SECTION_NOT_FINAL"
	ErrCodeSessionNotFound      ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionClosed        ErrorCode = "SESSION_CLOSED"
	ErrCodeReceiptNotFound      ErrorCode = "RECEIPT_NOT_FOUND"

	// Storage collaborator and follow-ups
	ErrCodeSubmissionFailed    ErrorCode = "SUBMISSION_FAILED"
	ErrCodeStorageInsertFailed ErrorCode = "STORAGE_INSERT_FAILED"
	ErrCodeDraftStoreFailed    ErrorCode = "DRAFT_STORE_FAILED"
	ErrCodeFollowupFailed      ErrorCode = "FOLLOWUP_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidPayloadError(details string) *StandardError {
	return newError(ErrCodeInvalidPayload, "Request payload is malformed", details, false)
}

func NewSectionNotFinalError(section int) *StandardError {
	return newError(ErrCodeSectionNotFinal, "Submission is only available on the last section",
		fmt.Sprintf("section: %d", section), false)
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Application session not found",
		fmt.Sprintf("sessionId: %s", sessionID), false)
}

func NewReceiptNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeReceiptNotFound, "No submitted application for this session",
		fmt.Sprintf("sessionId: %s", sessionID), false)
}

func NewSubmissionFailedError(err error) *StandardError {
	return newError(ErrCodeSubmissionFailed, "There was an error submitting your application. Please try again.",
		err.Error(), true)
}

func NewFollowupFailedError(action string, err error) *StandardError {
	return newError(ErrCodeFollowupFailed, "Post-submission action failed",
		fmt.Sprintf("action: %s, error: %s", action, err.Error()), true)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

var knownCodes = map[ErrorCode]bool{
	ErrCodeFieldValidationFailed: true,
	ErrCodeInvalidPayload:        true,
	ErrCodeDraftParseFailed:      true,
	ErrCodeSubmissionInProgress:  true,
	ErrCodeSectionNotFinal:       true,
	ErrCodeSessionNotFound:       true,
	ErrCodeSessionClosed:         true,
	ErrCodeReceiptNotFound:       true,
	ErrCodeSubmissionFailed:      true,
	ErrCodeStorageInsertFailed:   true,
	ErrCodeDraftStoreFailed:      true,
	ErrCodeFollowupFailed:        true,
}

// Normalize turns any error into a StandardError. Package sentinels are
// declared as errors.New("<CODE>"), so a known code anywhere in the wrap
// chain selects the code.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	code := findCode(err)
	if code == "" {
		code = ErrCodeInternal
	}
	return newError(code, defaultMessage(code), err.Error(), IsRetryableErrorCode(code))
}

func findCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if code := ErrorCode(err.Error()); knownCodes[code] {
		return code
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return findCode(u.Unwrap())
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if code := findCode(inner); code != "" {
				return code
			}
		}
	}
	return ""
}

func defaultMessage(code ErrorCode) string {
	switch code {
	case ErrCodeFieldValidationFailed:
		return "One or more fields are invalid"
	case ErrCodeInvalidPayload, ErrCodeDraftParseFailed:
		return "Request payload is malformed"
	case ErrCodeSubmissionInProgress:
		return "A submission is already in progress"
	case ErrCodeSectionNotFinal:
		return "Submission is only available on the last section"
	case ErrCodeSessionNotFound:
		return "Application session not found"
	case ErrCodeReceiptNotFound:
		return "No submitted application for this session"
	case ErrCodeSessionClosed:
		return "Application session is closed"
	case ErrCodeSubmissionFailed, ErrCodeStorageInsertFailed:
		return "There was an error submitting your application. Please try again."
	}
	return "Unexpected error"
}

// HTTPStatus maps an error code to the status used by the intake API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeFieldValidationFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeInvalidPayload, ErrCodeDraftParseFailed:
		return http.StatusBadRequest
	case ErrCodeSubmissionInProgress, ErrCodeSectionNotFinal, ErrCodeSessionClosed:
		return http.StatusConflict
	case ErrCodeSessionNotFound, ErrCodeReceiptNotFound:
		return http.StatusNotFound
	case ErrCodeSubmissionFailed, ErrCodeStorageInsertFailed:
		return http.StatusBadGateway
	case ErrCodeDraftStoreFailed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSubmissionFailed,
		ErrCodeStorageInsertFailed,
		ErrCodeDraftStoreFailed,
		ErrCodeFollowupFailed:
		return 3
	case ErrCodeSubmissionInProgress:
		return 1
	default:
		return 0
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PAYLOAD") || strings.Contains(codeStr, "PARSE"):
		return "VALIDATION"
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "SECTION") || strings.Contains(codeStr, "PROGRESS"):
		return "WIZARD"
	case strings.Contains(codeStr, "STORAGE") || strings.Contains(codeStr, "SUBMISSION") || strings.Contains(codeStr, "STORE"):
		return "STORAGE"
	case strings.Contains(codeStr, "FOLLOWUP"):
		return "FOLLOWUP"
	default:
		return "OTHER"
	}
}
