package domain

// APIError is an RFC 7807 problem document returned by the /api/v1 surface
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// WebhookError is the flat error body used by the inbound webhook routes,
// which external form builders and automation tools already parse.
type WebhookError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ValidationMessages maps validator tags to user-friendly messages
var ValidationMessages = map[string]string{
	"required":         "This field is required",
	"required_without": "Either this field or its alternative is required",
	"email":            "Must be a valid email address",
	"max":              "Exceeds maximum length",
	"min":              "Below minimum length",
	"gte":              "Must be greater than or equal to minimum value",
	"lte":              "Must be less than or equal to maximum value",
	"uuid":             "Must be a valid UUID",
	"oneof":            "Must be one of the allowed values",
	"alphanum":         "Must contain only alphanumeric characters",
	"hexcolor":         "Must be a hex color such as #1F2937",
	"datetime":         "Must be a date in YYYY-MM-DD format",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Validation failed: " + tag
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeConflict     = "conflict"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeUnavailable  = "service_unavailable"
	ErrorTypeInternal     = "internal_error"
)
