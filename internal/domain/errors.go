package domain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrForbidden         = errors.New("permission denied")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("record was modified concurrently")
	ErrInvalidTransition = errors.New("invalid stage transition")
)

type InvalidTransitionError struct {
	From Stage
	To   Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move review from %q to %q", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func (e *InvalidTransitionError) Allowed() []Stage {
	return e.From.AllowedNext()
}

// FieldError carries per-field messages, keyed by the JSON field name.
type FieldError struct {
	Fields map[string]string
}

func NewFieldError(field, msg string) *FieldError {
	return &FieldError{Fields: map[string]string{field: msg}}
}

func (e *FieldError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}
