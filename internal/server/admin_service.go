package server

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/govjob-alerts/internal/admin"
	"github.com/jonathan/govjob-alerts/internal/config"
	"github.com/jonathan/govjob-alerts/internal/db"
	"github.com/jonathan/govjob-alerts/internal/types"
)

// AdminAccounts is the storage AuthService needs. *db.DB implements it.
type AdminAccounts interface {
	CreateAdmin(ctx context.Context, email, passwordHash string) (uuid.UUID, error)
	GetAdminByEmail(ctx context.Context, email string) (*db.Admin, error)
	AdminEmailExists(ctx context.Context, email string) (bool, error)
}

var (
	_ AdminAccounts = (*db.DB)(nil)
	_ admin.Store   = (*db.DB)(nil)
)

// AuthService provides admin account and login operations.
type AuthService struct {
	accounts       AdminAccounts
	passwordConfig *config.PasswordConfig
}

// NewAuthService creates a new AuthService with the given dependencies
func NewAuthService(accounts AdminAccounts, passwordConfig *config.PasswordConfig) *AuthService {
	return &AuthService{
		accounts:       accounts,
		passwordConfig: passwordConfig,
	}
}

func toTypesAdmin(a *db.Admin) *types.Admin {
	if a == nil {
		return nil
	}
	return &types.Admin{ID: a.ID, Email: a.Email, CreatedAt: a.CreatedAt}
}

// CreateAdmin provisions an admin account.
func (s *AuthService) CreateAdmin(ctx context.Context, req *types.CreateAdminRequest) (*types.Admin, error) {
	if err := req.Validate(); err != nil {
		return nil, &ErrValidation{Field: "request", Message: extractValidationErrors(err)}
	}
	if err := s.passwordConfig.CheckStrength(req.Password); err != nil {
		return nil, &ErrValidation{Field: "password", Message: err.Error()}
	}

	exists, err := s.accounts.AdminEmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, &ErrEmailAlreadyExists{Email: req.Email}
	}

	hash, err := s.passwordConfig.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.CreateAdmin(ctx, req.Email, hash); err != nil {
		return nil, err
	}

	created, err := s.accounts.GetAdminByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve created admin: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("created admin not found: %s", req.Email)
	}
	return toTypesAdmin(created), nil
}

// Login authenticates an admin. Unknown emails and wrong passwords return
// the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req *types.LoginRequest) (*types.Admin, error) {
	stored, err := s.accounts.GetAdminByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get admin by email: %w", err)
	}
	if stored == nil || !s.passwordConfig.VerifyPassword(req.Password, stored.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}
	return toTypesAdmin(stored), nil
}
