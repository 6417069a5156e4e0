package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/logicore/internal/models"
)

// Sentinel errors for user store operations
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken in this organization")
)

// SSOProfile is the provider-supplied identity used to auto-provision users
// on first SSO login.
type SSOProfile struct {
	Email       string
	DisplayName string
	AvatarURL   *string
}

// UserStore defines the interface for user and password credential storage.
// Users are tenant-independent; credentials are per-organization.
type UserStore interface {
	// Create inserts a new user.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves an active user by ID.
	// Returns ErrUserNotFound if missing or soft-deleted.
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByEmail retrieves an active user by email.
	// Returns ErrUserNotFound if missing or soft-deleted.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// UpsertFromSSO finds the user matching the profile's email, creating
	// one when absent, and refreshes display name and avatar.
	UpsertFromSSO(ctx context.Context, profile SSOProfile) (*models.User, error)

	// CreateCredential adds a per-organization password credential.
	// Returns ErrUsernameTaken when the username exists in that organization.
	CreateCredential(ctx context.Context, cred *models.PasswordCredential) error

	// FindCredentials returns all credentials matching a username across
	// organizations. Login narrows the match by organization slug.
	FindCredentials(ctx context.Context, username string) ([]*models.PasswordCredential, error)
}
