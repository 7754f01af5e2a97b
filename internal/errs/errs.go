// Package errs defines the error taxonomy shared by all pipeline components.
//
// Errors are sentinel-based so callers can classify with errors.Is without
// depending on concrete types:
//
//	ErrValidation: bad input, empty recognition results, retry limit exceeded
//	ErrNotFound: unknown entity id
//	ErrConflict: state-incompatible operation
//	ErrIntegration: external engine unreachable or returned malformed data
//	ErrInternal: anything unexpected
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrIntegration = errors.New("integration error")
	ErrInternal    = errors.New("internal error")
)

// Validationf wraps a formatted message with ErrValidation.
func Validationf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, a...))
}

// NotFoundf wraps a formatted message with ErrNotFound.
func NotFoundf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, a...))
}

// Conflictf wraps a formatted message with ErrConflict.
func Conflictf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, a...))
}

// Integrationf wraps a formatted message with ErrIntegration.
func Integrationf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrIntegration, fmt.Sprintf(format, a...))
}

// Integration wraps an underlying engine error with ErrIntegration while
// preserving the cause for errors.Is/As chains.
func Integration(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIntegration, op, err)
}

// Internalf wraps a formatted message with ErrInternal.
func Internalf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, a...))
}
