package server

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/secrets"
	"github.com/wolfeidau/logicore/internal/store"
	"github.com/wolfeidau/logicore/internal/telemetry"
)

// SSOService implements the two pre-auth SSO lookups and the SSO login flow.
// Both lookups run before any authentication, they expose only what their
// step of the flow needs and nothing else.
type SSOService struct {
	ssoConfigs  store.SSOConfigStore
	users       store.UserStore
	orgs        store.OrganizationStore
	memberships store.MembershipStore
	requests    store.AccessRequestStore
	auth        *AuthService
	secretKey   string

	// exchange is swapped in tests to avoid calling the real provider.
	exchange func(ctx context.Context, provider *SSOProvider, cfg *oauth2.Config, code string) (*SSOProfile, error)
}

// NewSSOService creates the SSO service. secretKey is the key material the
// stored client secrets are encrypted under.
func NewSSOService(ssoConfigs store.SSOConfigStore, users store.UserStore, orgs store.OrganizationStore, memberships store.MembershipStore, requests store.AccessRequestStore, authService *AuthService, secretKey string) *SSOService {
	return &SSOService{
		ssoConfigs:  ssoConfigs,
		users:       users,
		orgs:        orgs,
		memberships: memberships,
		requests:    requests,
		auth:        authService,
		secretKey:   secretKey,
		exchange:    exchangeAndFetch,
	}
}

// ResolveProviderRequest identifies which organization's SSO configuration a
// login page should use. ExternalOrgID is the provider-side tenant
// identifier; callers that only know the organization by name pass its slug
// in the same field and the slug fallback picks it up.
type ResolveProviderRequest struct {
	Provider      string `json:"provider"`
	ExternalOrgID string `json:"external_org_id"`
}

// ResolveProviderResponse carries the public half of the configuration. The
// client secret is never part of this response.
type ResolveProviderResponse struct {
	ClientID         string  `json:"client_id"`
	OrganizationName string  `json:"organization_name"`
	AppID            *string `json:"app_id,omitempty"`
}

// ResolveProvider is the first pre-auth lookup: an exact external org id
// match wins, with the identifier retried as an organization slug on a miss.
func (s *SSOService) ResolveProvider(ctx context.Context, req *ResolveProviderRequest) (*ResolveProviderResponse, error) {
	if _, err := LookupSSOProvider(req.Provider); err != nil {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("no sso configuration found"))
	}

	resolved, err := s.ssoConfigs.ResolveProvider(ctx, req.Provider, req.ExternalOrgID)
	if err != nil {
		if errors.Is(err, store.ErrSSOConfigNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("no sso configuration found"))
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return &ResolveProviderResponse{
		ClientID:         resolved.ClientID,
		OrganizationName: resolved.OrganizationName,
		AppID:            resolved.AppID,
	}, nil
}

// SSOLoginRequest completes an SSO login with the authorization code the
// provider redirected back with.
type SSOLoginRequest struct {
	Provider    string `json:"provider"`
	ClientID    string `json:"client_id"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// SSOLoginResponse either carries an issued token for members or reports the
// access request state for everyone else.
type SSOLoginResponse struct {
	// Status is "ok" when Token is set, "access_requested" when a new access
	// request was filed, and "access_pending" when one already existed.
	Status string `json:"status"`

	Token *TokenResponse `json:"token,omitempty"`

	OrgID   uuid.UUID `json:"org_id,omitempty"`
	OrgSlug string    `json:"org_slug,omitempty"`
}

const (
	SSOLoginOK              = "ok"
	SSOLoginAccessRequested = "access_requested"
	SSOLoginAccessPending   = "access_pending"
)

// LoginWithSSO is the second pre-auth lookup plus the code exchange. Members
// of the resolved organization get a token. Verified non-members get an
// access request into the organization, deduplicated against an existing
// pending one.
func (s *SSOService) LoginWithSSO(ctx context.Context, req *SSOLoginRequest) (*SSOLoginResponse, error) {
	provider, err := LookupSSOProvider(req.Provider)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("sso login failed"))
	}

	loginCfg, err := s.ssoConfigs.LookupForLogin(ctx, req.Provider, req.ClientID)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("sso login failed"))
	}

	clientSecret, err := secrets.Decrypt(loginCfg.ClientSecretEncrypted, s.secretKey)
	if err != nil {
		log.Error().Err(err).Str("provider", req.Provider).Msg("failed to decrypt sso client secret")
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("sso login failed"))
	}

	oauthCfg := &oauth2.Config{
		ClientID:     loginCfg.ClientID,
		ClientSecret: clientSecret,
		Endpoint:     provider.Endpoint,
		RedirectURL:  req.RedirectURI,
	}

	profile, err := s.exchange(ctx, provider, oauthCfg, req.Code)
	if err != nil {
		log.Warn().Err(err).Str("provider", req.Provider).Msg("sso code exchange failed")
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("sso login failed"))
	}

	user, err := s.users.UpsertFromSSO(ctx, store.SSOProfile{
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	org, err := s.orgs.GetByID(ctx, loginCfg.OrgID)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("sso login failed"))
	}

	membership, err := s.memberships.Get(ctx, user.UserID, org.OrgID)
	if err == nil {
		telemetry.GetMetrics().SSOLoginsTotal.Add(ctx, 1)

		tokenResp, err := s.auth.issue(ctx, user, profile.Email, org, membership.Role)
		if err != nil {
			return nil, err
		}
		return &SSOLoginResponse{Status: SSOLoginOK, Token: tokenResp}, nil
	}

	return s.requestAccess(ctx, user, org, profile, req.Provider)
}

// requestAccess files an access request for a verified non-member, or
// reports the existing pending one.
func (s *SSOService) requestAccess(ctx context.Context, user *models.User, org *models.Organization, profile *SSOProfile, providerName string) (*SSOLoginResponse, error) {
	now := time.Now()
	req := &models.AccessRequest{
		RequestID:   uuid.New(),
		OrgID:       org.OrgID,
		UserID:      user.UserID,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
		Provider:    providerName,
		Status:      models.AccessRequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.requests.Create(ctx, req)
	if err != nil {
		if errors.Is(err, store.ErrDuplicatePending) {
			return &SSOLoginResponse{
				Status:  SSOLoginAccessPending,
				OrgID:   org.OrgID,
				OrgSlug: org.Slug,
			}, nil
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	telemetry.GetMetrics().AccessRequestsCreatedTotal.Add(ctx, 1)

	log.Info().
		Str("request_id", req.RequestID.String()).
		Str("org_id", org.OrgID.String()).
		Msg("created access request from sso login")

	return &SSOLoginResponse{
		Status:  SSOLoginAccessRequested,
		OrgID:   org.OrgID,
		OrgSlug: org.Slug,
	}, nil
}

// exchangeAndFetch performs the real OAuth code exchange and profile fetch.
func exchangeAndFetch(ctx context.Context, provider *SSOProvider, cfg *oauth2.Config, code string) (*SSOProfile, error) {
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return provider.FetchProfile(ctx, cfg.Client(ctx, tok))
}
