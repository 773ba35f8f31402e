package model

import (
	"errors"
	"fmt"
)

// ValidationError reports input rejected locally, before any remote call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err (or any error in its chain) is a
// ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// Invalidf builds a ValidationError with a formatted message.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Validation errors shared across components.
var (
	ErrEmptyTitle     = &ValidationError{Message: "task title is required"}
	ErrEmptyBatch     = &ValidationError{Message: "no tasks provided"}
	ErrNoFeedback     = &ValidationError{Message: "mark at least one task before submitting feedback"}
	ErrReorderBlocked = &ValidationError{Message: "tasks can only be reordered in the active view"}
)
