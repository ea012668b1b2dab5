package apierrors

import (
	"fmt"
	"net/http"
	"strings"
)

// ValidationError reports one or more field-level problems with a
// build or task payload.
type ValidationError struct {
	Resource    string
	Message     string
	FieldErrors map[string]string
}

// NewValidationError constructs a ValidationError with no field errors
// yet attached.
func NewValidationError(resource, message string) *ValidationError {
	return &ValidationError{
		Resource:    resource,
		Message:     message,
		FieldErrors: make(map[string]string),
	}
}

// AddFieldError attaches or overwrites the error for a single field.
func (e *ValidationError) AddFieldError(field, message string) {
	e.FieldErrors[field] = message
}

func (e *ValidationError) Error() string {
	if len(e.FieldErrors) == 0 {
		return fmt.Sprintf("%s: %s", e.Resource, e.Message)
	}
	parts := make([]string, 0, len(e.FieldErrors))
	for field, msg := range e.FieldErrors {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return fmt.Sprintf("%s: %s (fields: %s)", e.Resource, e.Message, strings.Join(parts, "; "))
}

// ToRFC7807 converts the error to its wire representation.
func (e *ValidationError) ToRFC7807() *RFC7807Problem {
	return &RFC7807Problem{
		Type:     problemBase + "validation-error",
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   e.Message,
		Instance: "/" + e.Resource,
		Extensions: map[string]interface{}{
			"resource":     e.Resource,
			"field_errors": e.FieldErrors,
		},
	}
}
