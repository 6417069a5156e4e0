// Package auth implements the authentication gateway that fronts every
// request. It verifies the identity token, resolves the request's tenant
// scope, and places the resulting identity on the context for the services
// behind it.
package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/wolfeidau/logicore/internal/tenant"
)

// Identity is the authenticated caller attached to the request context after
// the gateway has admitted a request.
type Identity struct {
	UserID uuid.UUID
	OrgID  uuid.UUID

	// OrgSlug is advisory display data carried in the token. Authorization
	// decisions use OrgID only.
	OrgSlug string

	// Handle is the login name the credential was issued under.
	Handle string

	// Role is the caller's role in OrgID, or empty when the membership has
	// not been resolved.
	Role string

	// Provider records how the identity was established: "token",
	// "anonymous" for the legacy fallback, or "public" on allow-listed
	// paths.
	Provider string
}

// Scope returns the tenant scope this identity binds on database
// connections.
func (i *Identity) Scope() tenant.Scope {
	return tenant.Scope{OrgID: i.OrgID, UserID: i.UserID}
}

// IsAnonymous reports whether the identity was admitted by the legacy
// default organization fallback rather than a verified token.
func (i *Identity) IsAnonymous() bool {
	return i.Provider == ProviderAnonymous
}

const (
	ProviderToken     = "token"
	ProviderAnonymous = "anonymous"
	ProviderPublic    = "public"
)

type contextKey int

const identityContextKey contextKey = iota

// IdentityFromContext extracts the authenticated identity from the request
// context. Returns nil if no identity is present.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityContextKey).(*Identity)
	return identity
}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
