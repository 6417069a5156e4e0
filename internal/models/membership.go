package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership roles. Roles are per (user, organization) pair, not per user.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// ValidRole reports whether role is one of the recognised membership roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}

// Membership joins a User to an Organization. The (user, org) pair is unique.
// Created on registration, invitation acceptance or SSO auto-provisioning.
type Membership struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Role   string // RoleAdmin or RoleMember

	// IsDefault marks the organization a multi-org user lands in when no
	// explicit organization is requested.
	IsDefault bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin returns true if the membership carries the admin role.
func (m *Membership) IsAdmin() bool {
	return m.Role == RoleAdmin
}
