package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a person, independent of any tenant. One user may belong to zero
// or many organizations via Membership.
type User struct {
	UserID      uuid.UUID // UUIDv7
	Email       *string
	DisplayName string
	AvatarURL   *string
	Superadmin  bool

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// PasswordCredential is a per-organization username/password login for a user.
// The same user may hold different usernames in different organizations.
type PasswordCredential struct {
	CredentialID uuid.UUID
	UserID       uuid.UUID
	OrgID        uuid.UUID
	Username     string // unique within the organization
	PasswordHash string // bcrypt
	Enabled      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
