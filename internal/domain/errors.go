package domain

import (
	"errors"
	"fmt"
)

// ErrValidation marks a request body that failed schema validation.
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
