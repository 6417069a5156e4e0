// Package tenant defines the scope bound to a unit of work and the ownership
// policies that decide row visibility. The same two policies are mirrored by
// the additive row-level-security policies in the Postgres schema, so the
// in-memory stores and the database agree on what a given scope can see.
package tenant

import "github.com/google/uuid"

// Scope is the tenant/user context bound to a borrowed database connection
// for the lifetime of one unit of work. Either half may be unset; a zero
// Scope is unbound and must see no rows in forced-isolation tables.
type Scope struct {
	OrgID  uuid.UUID
	UserID uuid.UUID
}

// ForOrg returns a scope bound to an organization only.
func ForOrg(orgID uuid.UUID) Scope {
	return Scope{OrgID: orgID}
}

// ForUser returns a scope bound to an individual user only.
func ForUser(userID uuid.UUID) Scope {
	return Scope{UserID: userID}
}

// ForBoth returns a scope bound to both an organization and a user, the
// normal case for an authenticated request.
func ForBoth(orgID, userID uuid.UUID) Scope {
	return Scope{OrgID: orgID, UserID: userID}
}

// HasOrg reports whether the organization half of the scope is bound.
func (s Scope) HasOrg() bool {
	return s.OrgID != uuid.Nil
}

// HasUser reports whether the user half of the scope is bound.
func (s Scope) HasUser() bool {
	return s.UserID != uuid.Nil
}

// IsZero reports whether no scope is bound at all.
func (s Scope) IsZero() bool {
	return !s.HasOrg() && !s.HasUser()
}
