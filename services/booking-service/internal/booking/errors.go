package booking

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidReference = errors.New("invalid staff or service")
	ErrSlotUnavailable  = errors.New("selected time is no longer available")
	ErrSlugTaken        = errors.New("slug already in use")
	ErrForbidden        = errors.New("forbidden")
)

// NotFoundError names what was missing while still matching ErrNotFound.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return e.What + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(what string) error { return &NotFoundError{What: what} }

// ValidationError carries per-field messages for a 400 response.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func FieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// ValidateID rejects identifiers that are not UUIDs before they reach the store.
func ValidateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return FieldError(field, "invalid id")
	}
	return nil
}

// ErrInvalidTransition is returned when an appointment cannot move to the requested status.
var ErrInvalidTransition = errors.New("status change not allowed")
