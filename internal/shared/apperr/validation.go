package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidation adapts a go-playground/validator error into a
// VALIDATION_FAILED application error with per-field context. Non-validator
// errors become BAD_REQUEST (typically a malformed body).
func FromValidation(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return BadRequest("Request body is malformed").WithCause(err)
	}

	fields := make(map[string]any, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		fields[name] = ruleMessage(fe)
		names = append(names, name)
	}

	msg := fmt.Sprintf("Validation failed for: %s", strings.Join(names, ", "))
	ae := ValidationFailed(msg).WithCause(err)
	for k, v := range fields {
		ae.With(k, v)
	}
	return ae
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
