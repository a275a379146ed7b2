package errors

import (
	"errors"
	"fmt"
	"strings"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates a structural rule was violated
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainBusinessRuleError indicates a business rule violation
	DomainBusinessRuleError DomainErrorType = "BUSINESS_RULE_ERROR"

	// DomainNotFoundError indicates an element was not found
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainConflictError indicates a conflict with existing state
	DomainConflictError DomainErrorType = "CONFLICT"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type    DomainErrorType        `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// WithCause returns a copy of the error wrapping cause
func (e *DomainError) WithCause(cause error) *DomainError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// WithDetail returns a copy of the error carrying an extra detail.
// Copying keeps the shared sentinels below free of per-call state.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	clone := &DomainError{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: make(map[string]interface{}, len(e.Details)+1),
		Cause:   e.Cause,
	}
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	clone.Details[key] = value
	return clone
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Ontology graph errors
var (
	ErrElementNotFound = NewDomainError(
		DomainNotFoundError,
		"ELEMENT_NOT_FOUND",
		"The referenced node or edge does not exist",
	)

	ErrDuplicateID = NewDomainError(
		DomainConflictError,
		"DUPLICATE_ELEMENT_ID",
		"An element with this id already exists",
	)

	ErrImportedElement = NewDomainError(
		DomainBusinessRuleError,
		"IMPORTED_ELEMENT",
		"Imported elements are read-only in this editor",
	)

	ErrInvalidEndpoint = NewDomainError(
		DomainValidationError,
		"INVALID_EDGE_ENDPOINT",
		"The edge endpoints do not satisfy the edge type rules",
	)

	ErrInvalidMultiplicity = NewDomainError(
		DomainValidationError,
		"INVALID_MULTIPLICITY",
		"Minimum count must not exceed maximum count",
	)

	ErrInvalidNodeKind = NewDomainError(
		DomainValidationError,
		"INVALID_NODE_KIND",
		"Unknown node kind",
	)

	ErrInvalidOwner = NewDomainError(
		DomainValidationError,
		"INVALID_OWNER",
		"A data property must be owned by a class",
	)

	ErrInvalidPatch = NewDomainError(
		DomainValidationError,
		"INVALID_PATCH",
		"The attribute patch does not apply to this element",
	)
)

// IsDomainValidation reports whether err is a structural validation rejection.
func IsDomainValidation(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == DomainValidationError
	}
	var verrs *ValidationErrors
	return errors.As(err, &verrs)
}

// ValidationErrors aggregates multiple validation errors
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]*DomainError, 0),
	}
}

// Add adds a validation error
func (v *ValidationErrors) Add(field string, message string) {
	err := NewDomainError(DomainValidationError, "FIELD_VALIDATION_ERROR", message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

// AddError adds a pre-existing domain error
func (v *ValidationErrors) AddError(err *DomainError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(messages, "; "))
}

// ToMap converts validation errors to a map for JSON serialization
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)

	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}
		result[field] = append(result[field], err.Message)
	}

	return result
}
