package services

import (
	"errors"
	"fmt"
)

// ErrUnknownResource is returned for a resource name the dashboard cannot load
var ErrUnknownResource = errors.New("unknown dashboard resource")

// ErrUnknownUser is returned when neither the token nor the profile names
// the user notification flags belong to
var ErrUnknownUser = errors.New("cannot identify user")

// ValidationError rejects user input before anything is sent upstream
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err carries a ValidationError
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
