package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// LoginRequest is an admin panel sign-in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateAdminRequest provisions an admin account from the CLI.
type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Admin is an admin account as returned by the API (no password hash).
type Admin struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse carries the admin and a bearer token.
type LoginResponse struct {
	Admin *Admin `json:"admin"`
	Token string `json:"token"`
}

// TestNotificationRequest sends an arbitrary notification to a topic.
type TestNotificationRequest struct {
	Topic string `json:"topic" validate:"required"`
	Title string `json:"title" validate:"required"`
	Body  string `json:"body" validate:"required"`
}

// Validate validates the LoginRequest using the validator.
func (r *LoginRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the CreateAdminRequest using the validator.
func (r *CreateAdminRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the TestNotificationRequest using the validator.
func (r *TestNotificationRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
