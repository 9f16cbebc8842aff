// Package server provides the HTTP API for the admin panel and the public
// job catalog.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/govjob-alerts/internal/admin"
)

// ErrEmailAlreadyExists indicates an admin account already uses the email.
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		exists  *ErrEmailAlreadyExists
		creds   *ErrInvalidCredentials
		invalid *ErrValidation
		formErr *admin.ValidationError
		inUse   *admin.CategoryInUseError
	)
	switch {
	case errors.As(err, &exists), errors.As(err, &inUse), errors.Is(err, admin.ErrCategoryExists):
		return http.StatusConflict
	case errors.As(err, &creds):
		return http.StatusUnauthorized
	case errors.Is(err, admin.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &invalid), errors.As(err, &formErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
