package models

import (
	"time"

	"github.com/google/uuid"
)

// Access request states. Pending is the only non-terminal state.
const (
	AccessRequestPending  = "pending"
	AccessRequestApproved = "approved"
	AccessRequestDeclined = "declined"
)

// AccessRequest records a user asking to join an organization they are not
// yet a member of. At most one pending request may exist per (user, org)
// pair; approved and declined are terminal.
type AccessRequest struct {
	RequestID uuid.UUID // UUIDv7
	OrgID     uuid.UUID
	UserID    uuid.UUID

	// Snapshot of the requester at request time, shown to the reviewing admin.
	Email       string
	DisplayName string
	AvatarURL   *string
	Provider    string

	Status string
	Role   *string // role granted on approval

	ReviewedBy *uuid.UUID
	ReviewedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal returns true once the request has been approved or declined.
func (r *AccessRequest) IsTerminal() bool {
	return r.Status != AccessRequestPending
}
