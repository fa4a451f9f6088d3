package posts

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the operation needs an authenticated caller.
	ErrUnauthorized = errors.New("not authorized")

	ErrNotFound = errors.New("post not found")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s is required", e.Field)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}
