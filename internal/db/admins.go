package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Admin Methods
// -----------------------------------------------------------------------------

// CreateAdmin stores an admin account and returns its id.
func (db *DB) CreateAdmin(ctx context.Context, email, passwordHash string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO admins (email, password_hash)
		 VALUES ($1, $2)
		 RETURNING id`,
		normalizeEmail(email), passwordHash,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return id, nil
}

// GetAdminByEmail retrieves an admin by email, or nil if none exists.
func (db *DB) GetAdminByEmail(ctx context.Context, email string) (*Admin, error) {
	var a Admin
	err := db.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM admins WHERE email = $1`,
		normalizeEmail(email),
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &a, nil
}

// AdminEmailExists reports whether an admin already uses email.
func (db *DB) AdminEmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM admins WHERE email = $1)`,
		normalizeEmail(email),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check admin email: %w", err)
	}
	return exists, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
