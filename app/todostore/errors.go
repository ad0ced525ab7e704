package todostore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")

	ErrNotFound           = errors.New("todo not found")
	ErrUnknownParent      = errors.New("parent todo not found")
	ErrBusy               = errors.New("another request for this task is still running")
	ErrUnauthorized       = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountExists      = errors.New("an account with this email already exists")
)

// ValidationError is raised locally, before any backend call, or returned by
// a backend that rejected the input.
type ValidationError struct {
	Field   string
	Message string
	Fields  map[string]string
}

// Error returns the user-facing message.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RequestError is a recoverable backend failure. The intent can be retried.
type RequestError struct {
	Op  string
	Err error
}

// Error names the failed intent and its cause.
func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the backend error.
func (e *RequestError) Unwrap() error { return e.Err }

// CascadeError reports a cascade delete in which some requests failed.
// Requests not listed in Failed may or may not have been applied.
type CascadeError struct {
	Requested []string
	Failed    map[string]error
	// Reload is set when refreshing the collection afterwards failed too.
	Reload error
}

// Error reports how many deletions of the cascade failed.
func (e *CascadeError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	msg := fmt.Sprintf("delete: %d of %d requests failed (%s)", len(e.Failed), len(e.Requested), strings.Join(ids, ", "))
	if e.Reload != nil {
		msg += fmt.Sprintf("; reload: %v", e.Reload)
	}
	return msg
}

// Unwrap exposes the individual failures to errors.Is / errors.As.
func (e *CascadeError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed)+1)
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	if e.Reload != nil {
		errs = append(errs, e.Reload)
	}
	return errs
}
