package store

import (
	"context"
	"errors"

	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/tenant"
)

// Sentinel errors for SSO provider configuration storage
var (
	ErrSSOConfigNotFound = errors.New("sso provider configuration not found")
	ErrSSOConfigConflict = errors.New("external org id or client id already configured for another organization")
)

// SSOConfigStore defines the interface for SSO provider configuration.
//
// ResolveProvider and LookupForLogin are the system's two pre-authentication
// lookups: they run with NO tenant scope bound because the caller is mid
// OAuth redirect and the tenant is exactly what is being resolved. They are
// read-only and narrow. ResolveProvider never exposes the secret;
// LookupForLogin returns it encrypted, for the server-side code exchange
// only. Every other method requires the admin's bound scope.
type SSOConfigStore interface {
	// ResolveProvider finds the tenant configuration for a provider by a
	// single external org identifier. An exact external-id match wins; on a
	// miss the identifier is retried as an organization slug, also exact.
	// Returns ErrSSOConfigNotFound when neither matches, and never returns
	// the client secret.
	ResolveProvider(ctx context.Context, provider, externalOrgID string) (*models.ResolvedSSOProvider, error)

	// LookupForLogin is the companion lookup for the authorization code
	// exchange, keyed by the client id the provider redirected back with,
	// returning the encrypted secret and the owning org's id and slug.
	LookupForLogin(ctx context.Context, provider, clientID string) (*models.SSOLoginConfig, error)

	// Get returns the scoped organization's configuration for a provider.
	// Returns ErrSSOConfigNotFound when none exists.
	Get(ctx context.Context, scope tenant.Scope, provider string) (*models.SSOProviderConfig, error)

	// Upsert creates or updates the scoped organization's configuration
	// for a provider. An empty ClientSecretEncrypted on update leaves the
	// stored secret unchanged. Returns ErrSSOConfigConflict when the
	// external org id or client id is claimed by another organization.
	Upsert(ctx context.Context, scope tenant.Scope, cfg *models.SSOProviderConfig) error

	// Delete removes the scoped organization's configuration for a
	// provider. Missing configuration is not an error.
	Delete(ctx context.Context, scope tenant.Scope, provider string) error

	// List returns the scoped organization's configurations ordered by
	// provider.
	List(ctx context.Context, scope tenant.Scope) ([]*models.SSOProviderConfig, error)
}
