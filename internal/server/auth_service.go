// Package server implements the HTTP API: the login and SSO flows, identity
// and membership management, SSO settings administration and the access
// request workflow. Services are plain types returning connect coded errors,
// the HTTP layer in server.go translates those codes to statuses.
package server

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfeidau/logicore/internal/auth"
	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
	"github.com/wolfeidau/logicore/internal/telemetry"
	"github.com/wolfeidau/logicore/internal/token"
)

// errInvalidCredentials is the single error every login failure collapses
// to. Unknown usernames, wrong passwords, disabled credentials and missing
// memberships are indistinguishable to the caller.
var errInvalidCredentials = connect.NewError(connect.CodeUnauthenticated, errors.New("invalid credentials"))

// AuthService implements password login and token validation.
type AuthService struct {
	codec       *token.Codec
	users       store.UserStore
	orgs        store.OrganizationStore
	memberships store.MembershipStore
}

// NewAuthService creates the auth service.
func NewAuthService(codec *token.Codec, users store.UserStore, orgs store.OrganizationStore, memberships store.MembershipStore) *AuthService {
	return &AuthService{
		codec:       codec,
		users:       users,
		orgs:        orgs,
		memberships: memberships,
	}
}

// LoginRequest carries a password login attempt. OrgSlug is optional and
// narrows the credential search when the same username exists in several
// organizations.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	OrgSlug  string `json:"org_slug,omitempty"`
}

// TokenResponse is returned by every flow that ends in an issued token.
type TokenResponse struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	OrgID       uuid.UUID `json:"org_id"`
	OrgSlug     string    `json:"org_slug"`
	Role        string    `json:"role"`
}

// Login verifies a username and password and issues an identity token bound
// to the credential's organization.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	metrics := telemetry.GetMetrics()
	metrics.LoginAttemptsTotal.Add(ctx, 1)

	if req.Username == "" || req.Password == "" {
		metrics.LoginFailuresTotal.Add(ctx, 1)
		return nil, errInvalidCredentials
	}

	cred, org, err := s.matchCredential(ctx, req)
	if err != nil {
		metrics.LoginFailuresTotal.Add(ctx, 1)
		log.Warn().Str("username", req.Username).Msg("login failed")
		return nil, errInvalidCredentials
	}

	user, err := s.users.GetByID(ctx, cred.UserID)
	if err != nil {
		metrics.LoginFailuresTotal.Add(ctx, 1)
		return nil, errInvalidCredentials
	}

	membership, err := s.memberships.Get(ctx, cred.UserID, cred.OrgID)
	if err != nil {
		metrics.LoginFailuresTotal.Add(ctx, 1)
		return nil, errInvalidCredentials
	}

	return s.issue(ctx, user, req.Username, org, membership.Role)
}

// matchCredential finds the credential the password verifies against.
// Usernames are unique per organization, so without an org slug every
// candidate is tried.
func (s *AuthService) matchCredential(ctx context.Context, req *LoginRequest) (*models.PasswordCredential, *models.Organization, error) {
	candidates, err := s.users.FindCredentials(ctx, req.Username)
	if err != nil {
		return nil, nil, err
	}

	for _, cred := range candidates {
		org, err := s.orgs.GetByID(ctx, cred.OrgID)
		if err != nil {
			// credential of a deleted organization
			continue
		}
		if req.OrgSlug != "" && org.Slug != req.OrgSlug {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)) == nil {
			return cred, org, nil
		}
	}

	return nil, nil, errors.New("no matching credential")
}

// ValidateTokenResponse describes a verified token.
type ValidateTokenResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Handle    string    `json:"handle"`
	OrgID     uuid.UUID `json:"org_id"`
	OrgSlug   string    `json:"org_slug"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidateToken verifies a compact token and returns its claims. All
// verification failures produce the same error.
func (s *AuthService) ValidateToken(_ context.Context, compact string) (*ValidateTokenResponse, error) {
	claims, err := s.codec.Verify(compact)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid token"))
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid token"))
	}

	orgID, err := claims.Org()
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid token"))
	}

	return &ValidateTokenResponse{
		UserID:    userID,
		Handle:    claims.Handle,
		OrgID:     orgID,
		OrgSlug:   claims.OrgSlug,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SwitchOrganization issues a fresh token bound to another organization the
// caller is a member of. The old token stays valid until it expires, tokens
// are stateless.
func (s *AuthService) SwitchOrganization(ctx context.Context, orgID uuid.UUID) (*TokenResponse, error) {
	identity, err := auth.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	membership, err := s.memberships.Get(ctx, identity.UserID, orgID)
	if err != nil {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("not a member of organization"))
	}

	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("organization not found"))
	}

	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("user not found"))
	}

	telemetry.GetMetrics().OrgSwitchesTotal.Add(ctx, 1)

	return s.issue(ctx, user, identity.Handle, org, membership.Role)
}

func (s *AuthService) issue(ctx context.Context, user *models.User, handle string, org *models.Organization, role string) (*TokenResponse, error) {
	compact, expiresAt, err := s.codec.Issue(user.UserID, handle, org.OrgID, org.Slug, role)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	telemetry.GetMetrics().TokensIssuedTotal.Add(ctx, 1)

	log.Info().
		Str("user_id", user.UserID.String()).
		Str("org_id", org.OrgID.String()).
		Str("role", role).
		Msg("issued identity token")

	return &TokenResponse{
		Token:       compact,
		ExpiresAt:   expiresAt,
		UserID:      user.UserID,
		DisplayName: user.DisplayName,
		OrgID:       org.OrgID,
		OrgSlug:     org.Slug,
		Role:        role,
	}, nil
}
