package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/logicore/internal/models"
)

// Sentinel errors for membership store operations
var (
	ErrMembershipNotFound = errors.New("membership not found")
)

// Member is a membership joined with the member's user record, the shape
// the admin member list displays.
type Member struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
	Role        string
	JoinedAt    time.Time
}

// MembershipStore defines the interface for membership storage. The
// (user, org) pair is unique.
type MembershipStore interface {
	// Get retrieves the membership for a (user, org) pair.
	// Returns ErrMembershipNotFound if the user is not a member.
	Get(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error)

	// Upsert creates the membership or updates its role if it already
	// exists. Never produces a second row for the same pair.
	Upsert(ctx context.Context, m *models.Membership) error

	// SetRole changes the role of an existing membership.
	// Returns ErrMembershipNotFound if the user is not a member.
	SetRole(ctx context.Context, userID, orgID uuid.UUID, role string) error

	// Delete revokes a membership.
	// Returns ErrMembershipNotFound if the user is not a member.
	Delete(ctx context.Context, userID, orgID uuid.UUID) error

	// ListByOrg returns the members of an organization joined with their
	// user records, ordered by join time.
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Member, error)

	// CountAdmins returns the number of admin memberships in an
	// organization, used for last-admin guards.
	CountAdmins(ctx context.Context, orgID uuid.UUID) (int, error)
}
