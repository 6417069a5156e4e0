package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/logicore/internal/models"
)

// Sentinel errors for organization store operations
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrSlugTaken            = errors.New("organization slug already taken")
)

// OrganizationWithRole pairs an organization with the caller's membership
// role in it, for listing the organizations a user belongs to.
type OrganizationWithRole struct {
	Organization *models.Organization
	Role         string
}

// OrganizationStore defines the interface for organization storage.
// Soft-deleted organizations are invisible through every method.
type OrganizationStore interface {
	// Create provisions a new organization.
	// Returns ErrSlugTaken if the slug is already in use.
	Create(ctx context.Context, org *models.Organization) error

	// GetByID retrieves an organization by ID.
	// Returns ErrOrganizationNotFound if it doesn't exist or is soft-deleted.
	GetByID(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)

	// GetBySlug retrieves an organization by its unique slug.
	// Returns ErrOrganizationNotFound if it doesn't exist or is soft-deleted.
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// ListForUser returns the organizations the user is a member of, with
	// the user's role in each, ordered by creation time.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*OrganizationWithRole, error)

	// Update renames an organization and/or changes its slug.
	// Returns ErrOrganizationNotFound or ErrSlugTaken.
	Update(ctx context.Context, org *models.Organization) error
}
