package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrValidation matches every FieldErrors value.
	ErrValidation = errors.New("validation failed")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountExists      = errors.New("an account with this email already exists")
	ErrUnauthenticated    = errors.New("not authenticated")
)

// FieldErrors maps a form field to its validation message.
type FieldErrors map[string]string

// Error joins the field messages, sorted by field name.
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

// Is matches ErrValidation.
func (fe FieldErrors) Is(target error) bool {
	return target == ErrValidation
}

// orNil returns nil for an empty map so callers can return it as an error.
func (fe FieldErrors) orNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}
