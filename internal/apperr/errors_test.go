package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConflictErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("put: %w", &ConflictError{Path: "data/keywords.csv", ExpectedRevision: "abc", CurrentRevision: "def"})
	if !errors.Is(err, ErrRevisionConflict) {
		t.Fatal("wrapped ConflictError should match ErrRevisionConflict")
	}
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.CurrentRevision != "def" {
		t.Errorf("errors.As = %+v", ce)
	}
	if !Retryable(err) {
		t.Error("conflict should be retryable")
	}
}

func TestInvalidTransitionIsValidation(t *testing.T) {
	if !errors.Is(ErrInvalidTransition, ErrValidation) {
		t.Error("ErrInvalidTransition should wrap ErrValidation")
	}
	err := Validationf("unknown stage %q", "XOFU")
	if !errors.Is(err, ErrValidation) || !strings.Contains(err.Error(), "XOFU") {
		t.Errorf("Validationf = %v", err)
	}
	if Retryable(err) {
		t.Error("validation errors are not retryable")
	}
}
