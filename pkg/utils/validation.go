// Package utils holds small helpers shared by the API and the editor.
package utils

import (
	"strings"

	pkgerrors "ontograph/pkg/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct checks a struct's validate tags. Failures come back as a
// Validation AppError whose message lists every field.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.NewValidationError("invalid request").WithCause(err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	fields := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := formatFieldError(fe)
		msgs = append(msgs, msg)
		fields[lowerFirst(fe.Field())] = msg
	}
	return pkgerrors.NewValidationError(strings.Join(msgs, "; ")).
		WithDetails(map[string]interface{}{"fields": fields}).
		WithCause(err)
}

func formatFieldError(e validator.FieldError) string {
	field := lowerFirst(e.Field())
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + e.Param() + " characters"
	case "max":
		return field + " must be at most " + e.Param() + " characters"
	case "oneof":
		return field + " must be one of: " + e.Param()
	default:
		return field + " is invalid"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
