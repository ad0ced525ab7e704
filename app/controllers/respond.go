package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"nestodo/app/middleware"
	"nestodo/app/repository"
	"nestodo/app/services"
)

// Request timeouts.
const (
	ListTimeout   = 5 * time.Second
	CreateTimeout = 3 * time.Second
	UpdateTimeout = 3 * time.Second
	DeleteTimeout = 2 * time.Second
	AuthTimeout   = 5 * time.Second
)

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload", nil)
		return false
	}
	return true
}

// writeServiceError maps service and repository errors onto API responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fe services.FieldErrors
	switch {
	case errors.As(err, &fe):
		middleware.WriteError(w, http.StatusBadRequest, "validation", "Validation failed", fe)
	case errors.Is(err, services.ErrInvalidCredentials):
		middleware.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
	case errors.Is(err, services.ErrUnauthenticated):
		middleware.WriteError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required", nil)
	case errors.Is(err, services.ErrAccountExists):
		middleware.WriteError(w, http.StatusConflict, "account_exists", "An account with this email already exists", nil)
	case errors.Is(err, repository.ErrTodoNotFound):
		middleware.WriteError(w, http.StatusNotFound, "todo_not_found", "Todo not found", nil)
	case errors.Is(err, repository.ErrParentNotFound):
		middleware.WriteError(w, http.StatusNotFound, "parent_not_found", "Parent todo not found", nil)
	case errors.Is(err, context.DeadlineExceeded):
		middleware.WriteError(w, http.StatusGatewayTimeout, "timeout", "Request timed out", nil)
	default:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		middleware.WriteError(w, http.StatusInternalServerError, "internal", "Internal server error", nil)
	}
}
