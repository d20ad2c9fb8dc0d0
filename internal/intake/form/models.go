package form

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CodeMissingRequired = "MISSING_REQUIRED"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeBelowMinimum    = "BELOW_MINIMUM"
	CodeAboveMaximum    = "ABOVE_MAXIMUM"
	CodeUnderage        = "UNDERAGE"
	CodeNotAccepted     = "NOT_ACCEPTED"
)

var ErrFieldValidationFailed = errors.New("FIELD_VALIDATION_FAILED")

type FieldError struct {
	Field   Field  `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is the ordered set of field failures for one validation
// pass. A nil or empty value means the pass succeeded.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return fmt.Sprintf("%s: %s", ErrFieldValidationFailed, strings.Join(parts, "; "))
}

func (v ValidationErrors) Unwrap() error {
	return ErrFieldValidationFailed
}

// ByField indexes messages by field key, the shape rendered inline next to
// each input.
func (v ValidationErrors) ByField() map[Field]string {
	out := make(map[Field]string, len(v))
	for _, e := range v {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

func (v ValidationErrors) Has(f Field) bool {
	for _, e := range v {
		if e.Field == f {
			return true
		}
	}
	return false
}

// Err returns nil for an empty set so callers can use the usual err != nil check.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
