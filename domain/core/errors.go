package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Data errors
	ErrInvalidData = errors.New("invalid data")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid workflow configuration")

	// Unsupported choices
	ErrUnsupportedMethod   = errors.New("unsupported distribution method")
	ErrUnsupportedOperator = errors.New("unsupported criteria operator")
)

// Error constructors with context
func NewInvalidDataError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidData, reason)
}

func NewConfigurationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

func NewUnsupportedMethodError(method string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
}

func NewUnsupportedOperatorError(op string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
}

// Error checking helpers
func IsDataError(err error) bool {
	return errors.Is(err, ErrInvalidData)
}

func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsInputError reports whether err was caused by caller-supplied input rather
// than an internal failure.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidData) ||
		errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrUnsupportedMethod) ||
		errors.Is(err, ErrUnsupportedOperator)
}
