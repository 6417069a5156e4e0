package auth

import (
	"context"
	"fmt"

	"connectrpc.com/connect"

	"github.com/wolfeidau/logicore/internal/models"
)

// RequireIdentity returns the authenticated identity from the context or an
// unauthenticated error. The legacy anonymous identity passes this check,
// callers that must not serve anonymous traffic use RequireUser.
func RequireIdentity(ctx context.Context) (*Identity, error) {
	identity := IdentityFromContext(ctx)
	if identity == nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("not authenticated"))
	}
	return identity, nil
}

// RequireUser returns the identity only when it belongs to a real
// authenticated user, rejecting the anonymous fallback identity.
func RequireUser(ctx context.Context) (*Identity, error) {
	identity, err := RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	if identity.IsAnonymous() {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("not authenticated"))
	}

	return identity, nil
}

// RequireAdmin returns the identity only when the caller holds the admin
// role in the organization their request is scoped to.
func RequireAdmin(ctx context.Context) (*Identity, error) {
	identity, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	if identity.Role != models.RoleAdmin {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("admin role required"))
	}

	return identity, nil
}
