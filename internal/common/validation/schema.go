package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/xeipuuv/gojsonschema"
)

type JSONSchema struct {
	Schema               string              `json:"$schema,omitempty"`
	Title                string              `json:"title,omitempty"`
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties *bool               `json:"additionalProperties,omitempty"`
	MinProperties        *int                `json:"minProperties,omitempty"`
}

type Property struct {
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Default     interface{} `json:"default,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	Pattern     *string     `json:"pattern,omitempty"`
	MinLength   *int        `json:"minLength,omitempty"`
	MaxLength   *int        `json:"maxLength,omitempty"`
	Items       *Property   `json:"items,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator holds a compiled schema so documents can be checked repeatedly.
type Validator struct {
	schema *gojsonschema.Schema
}

func Compile(schema JSONSchema) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks a decoded JSON document (map, slice, scalar) or raw JSON
// bytes against the compiled schema.
func (v *Validator) Validate(doc interface{}) (*ValidationResult, error) {
	var loader gojsonschema.JSONLoader
	switch d := doc.(type) {
	case []byte:
		loader = gojsonschema.NewBytesLoader(d)
	case json.RawMessage:
		loader = gojsonschema.NewBytesLoader(d)
	default:
		loader = gojsonschema.NewGoLoader(d)
	}

	result, err := v.schema.Validate(loader)
	if err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, re := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(re),
			Message: re.Description(),
			Code:    codeOf(re.Type()),
		})
	}
	return out, nil
}

// ValidateDocument compiles the schema and validates one document.
func ValidateDocument(doc interface{}, schema JSONSchema) (*ValidationResult, error) {
	v, err := Compile(schema)
	if err != nil {
		return nil, err
	}
	return v.Validate(doc)
}

func fieldOf(re gojsonschema.ResultError) string {
	if prop, ok := re.Details()["property"].(string); ok && prop != "" {
		return prop
	}
	return strings.TrimPrefix(re.Field(), "(root).")
}

func codeOf(errType string) string {
	switch errType {
	case "invalid_type":
		return "INVALID_TYPE"
	case "additional_property_not_allowed":
		return "EXTRA_FIELD"
	case "required":
		return "REQUIRED_FIELD_MISSING"
	case "string_gte":
		return "MIN_LENGTH_VIOLATION"
	case "string_lte":
		return "MAX_LENGTH_VIOLATION"
	case "enum":
		return "INVALID_ENUM_VALUE"
	}
	return strings.ToUpper(errType)
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

func ValidateEmail(email string) bool {
	return govalidator.IsEmail(email)
}

func ValidateURL(url string) bool {
	return govalidator.IsRequestURL(url)
}

func Bool(b bool) *bool { return &b }
