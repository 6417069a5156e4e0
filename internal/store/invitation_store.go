package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/logicore/internal/models"
)

// Sentinel errors for invitation store operations
var (
	// ErrInvitationNotFound covers unknown, expired and already-used
	// tokens alike; the caller cannot distinguish them.
	ErrInvitationNotFound = errors.New("invalid or expired invitation")
)

// RedeemParams carries the invitee's chosen login details.
type RedeemParams struct {
	Token        string
	Username     string
	PasswordHash string
	DisplayName  string
}

// Redeemed is the result of accepting an invitation: the (possibly newly
// created) user and the membership granted by the invitation.
type Redeemed struct {
	User       *models.User
	Membership *models.Membership
	OrgID      uuid.UUID
}

// InvitationStore defines the interface for invitation storage.
type InvitationStore interface {
	// Create inserts a new invitation.
	Create(ctx context.Context, inv *models.Invitation) error

	// GetValidByToken returns the invitation for a token that has neither
	// expired nor been accepted. Returns ErrInvitationNotFound otherwise.
	GetValidByToken(ctx context.Context, token string) (*models.Invitation, error)

	// Redeem atomically accepts an invitation: creates the user if their
	// email is unknown, adds the password credential, creates or updates
	// the membership with the invited role, and marks the token used.
	// Returns ErrInvitationNotFound for an unusable token and
	// ErrUsernameTaken when the chosen username collides.
	Redeem(ctx context.Context, params RedeemParams) (*Redeemed, error)
}
