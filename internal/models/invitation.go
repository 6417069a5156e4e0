package models

import (
	"time"

	"github.com/google/uuid"
)

// Invitation lets an admin pre-approve an email address for membership.
// The token is single use and expires.
type Invitation struct {
	InvitationID uuid.UUID
	OrgID        uuid.UUID
	Email        string
	Role         string
	Token        string // base58 random, handed to the invitee out of band
	InvitedBy    uuid.UUID
	ExpiresAt    time.Time

	AcceptedBy *uuid.UUID
	AcceptedAt *time.Time

	CreatedAt time.Time
}

// IsExpired returns true if the invitation can no longer be accepted.
func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// IsAccepted returns true once the invitation has been used.
func (i *Invitation) IsAccepted() bool {
	return i.AcceptedAt != nil
}
