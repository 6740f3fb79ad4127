// Package apperr defines the error taxonomy shared by every layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateKeyword  = errors.New("duplicate keyword")
	ErrMalformedTable    = errors.New("malformed table")
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrRevisionConflict  = errors.New("revision conflict")
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrValidation)
	ErrForbidden         = errors.New("forbidden")
)

// ConflictError reports a stale revision token on a remote write.
type ConflictError struct {
	Path             string
	ExpectedRevision string
	CurrentRevision  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("revision conflict on %s: expected %s, current %s",
		e.Path, shortRev(e.ExpectedRevision), shortRev(e.CurrentRevision))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrRevisionConflict
}

// Validationf returns an ErrValidation-wrapped error with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Retryable reports whether re-issuing the operation may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrRevisionConflict) || errors.Is(err, ErrRemoteUnavailable)
}

func shortRev(rev string) string {
	if rev == "" {
		return "<none>"
	}
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
