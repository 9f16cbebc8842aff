package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/govjob-alerts/internal/admin"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"email exists", &ErrEmailAlreadyExists{Email: "a@b.c"}, http.StatusConflict},
		{"bad credentials", &ErrInvalidCredentials{}, http.StatusUnauthorized},
		{"request validation", &ErrValidation{Field: "body", Message: "bad"}, http.StatusBadRequest},
		{"form validation", &admin.ValidationError{Problems: []string{"Job title is required"}}, http.StatusBadRequest},
		{"not found", fmt.Errorf("job 9: %w", admin.ErrNotFound), http.StatusNotFound},
		{"category exists", fmt.Errorf("category with ID 'ssc': %w", admin.ErrCategoryExists), http.StatusConflict},
		{"category in use", &admin.CategoryInUseError{CategoryID: "ssc", JobCount: 2}, http.StatusConflict},
		{"wrapped in use", fmt.Errorf("failed: %w", &admin.CategoryInUseError{CategoryID: "ssc", JobCount: 1}), http.StatusConflict},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
