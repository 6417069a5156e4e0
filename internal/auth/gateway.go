package auth

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/logicore/internal/store"
	"github.com/wolfeidau/logicore/internal/telemetry"
	"github.com/wolfeidau/logicore/internal/token"
)

const (
	// IdentityTokenHeader carries the identity token. The Authorization
	// header is owned by the fronting proxy and is never read here.
	IdentityTokenHeader = "X-Identity-Token"

	// OrgHintHeader lets a caller address a different organization than the
	// one in their token. The hint is only honored after verifying the
	// caller is a member of that organization.
	OrgHintHeader = "X-Organization-Id"
)

// GatewayConfig configures the authentication gateway.
type GatewayConfig struct {
	Codec       *token.Codec
	Memberships store.MembershipStore
	PublicPaths *PublicPaths

	// DefaultOrgID enables the legacy fallback: requests without a token are
	// admitted as an anonymous member of this organization. Every such
	// admission is logged and counted. Zero disables the fallback and
	// unauthenticated requests are rejected.
	DefaultOrgID uuid.UUID
}

// Gateway is the authentication middleware fronting every request.
type Gateway struct {
	cfg GatewayConfig
}

// NewGateway creates the gateway middleware.
func NewGateway(cfg GatewayConfig) *Gateway {
	if cfg.PublicPaths == nil {
		cfg.PublicPaths = DefaultPublicPaths()
	}
	return &Gateway{cfg: cfg}
}

// Middleware returns the HTTP middleware. Requests on public paths pass
// through without an identity. All other requests must carry a valid token,
// or fall under the legacy default organization fallback when that is
// enabled. Every rejection is a generic 401, the response never explains
// which check failed.
func (g *Gateway) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			metrics := telemetry.GetMetrics()

			if g.cfg.PublicPaths.Contains(r.URL.Path) {
				metrics.PublicPathRequestsTotal.Add(ctx, 1)
				next.ServeHTTP(w, r)
				return
			}

			tokenString := r.Header.Get(IdentityTokenHeader)
			if tokenString == "" {
				identity, ok := g.legacyFallback(r)
				if !ok {
					metrics.AuthFailureTotal.Add(ctx, 1)
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
				return
			}

			claims, err := g.cfg.Codec.Verify(tokenString)
			if err != nil {
				// invalid, expired and forged tokens all land here
				log.Warn().Str("path", r.URL.Path).Msg("rejected identity token")
				metrics.AuthFailureTotal.Add(ctx, 1)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := g.identityFromClaims(r, claims)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("rejected request")
				metrics.AuthFailureTotal.Add(ctx, 1)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			metrics.AuthSuccessTotal.Add(ctx, 1)
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

// identityFromClaims builds the request identity, honoring the organization
// hint header when the caller is a member of the hinted organization.
func (g *Gateway) identityFromClaims(r *http.Request, claims *token.Claims) (*Identity, error) {
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	orgID, err := claims.Org()
	if err != nil {
		return nil, err
	}

	identity := &Identity{
		UserID:   userID,
		OrgID:    orgID,
		OrgSlug:  claims.OrgSlug,
		Handle:   claims.Handle,
		Role:     claims.Role,
		Provider: ProviderToken,
	}

	hint := r.Header.Get(OrgHintHeader)
	if hint == "" {
		return identity, nil
	}

	hintedOrg, err := uuid.Parse(hint)
	if err != nil {
		return nil, errors.New("malformed organization hint")
	}

	if hintedOrg == orgID {
		return identity, nil
	}

	membership, err := g.cfg.Memberships.Get(r.Context(), userID, hintedOrg)
	if err != nil {
		telemetry.GetMetrics().OrgHintRejectedTotal.Add(r.Context(), 1)
		log.Warn().
			Str("user_id", userID.String()).
			Str("hinted_org", hintedOrg.String()).
			Msg("organization hint rejected, caller is not a member")
		return nil, errors.New("not a member of hinted organization")
	}

	identity.OrgID = hintedOrg
	identity.OrgSlug = ""
	identity.Role = membership.Role
	return identity, nil
}

// legacyFallback admits a tokenless request as an anonymous member of the
// configured default organization. The anonymous identity never holds the
// admin role regardless of configuration.
func (g *Gateway) legacyFallback(r *http.Request) (*Identity, bool) {
	if g.cfg.DefaultOrgID == uuid.Nil {
		return nil, false
	}

	telemetry.GetMetrics().LegacyFallbackTotal.Add(r.Context(), 1)
	log.Warn().
		Str("path", r.URL.Path).
		Str("default_org", g.cfg.DefaultOrgID.String()).
		Msg("admitting unauthenticated request under legacy default organization fallback")

	return &Identity{
		OrgID:    g.cfg.DefaultOrgID,
		Provider: ProviderAnonymous,
	}, true
}
