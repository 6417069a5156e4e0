package server

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/wolfeidau/logicore/internal/models"
)

// stubExchange replaces the OAuth code exchange and returns a fixed profile.
func stubExchange(profile SSOProfile) func(ctx context.Context, provider *SSOProvider, cfg *oauth2.Config, code string) (*SSOProfile, error) {
	return func(_ context.Context, _ *SSOProvider, _ *oauth2.Config, _ string) (*SSOProfile, error) {
		return &profile, nil
	}
}

func seedSSOConfig(t *testing.T, f *fixture, admin *models.User, org *models.Organization, clientID, externalOrgID string) {
	t.Helper()

	_, err := f.ssoSettings.Upsert(asMember(admin, org, models.RoleAdmin), &UpsertSSOSettingsRequest{
		Provider:      "lineworks",
		ClientID:      clientID,
		ClientSecret:  "provider-client-secret",
		ExternalOrgID: externalOrgID,
		Enabled:       true,
	})
	require.NoError(t, err)
}

func TestResolveProvider(t *testing.T) {
	f := newFixture(t)

	org := f.seedOrg(t, "Acme", "acme")
	admin := f.seedUser(t, "admin@example.com", "Admin")
	f.join(t, admin, org, models.RoleAdmin)
	seedSSOConfig(t, f, admin, org, "client-acme", "works-acme")

	t.Run("by external org id", func(t *testing.T) {
		resp, err := f.sso.ResolveProvider(t.Context(), &ResolveProviderRequest{
			Provider:      "lineworks",
			ExternalOrgID: "works-acme",
		})
		require.NoError(t, err)
		require.Equal(t, "client-acme", resp.ClientID)
		require.Equal(t, "Acme", resp.OrganizationName)
	})

	t.Run("identifier retried as org slug", func(t *testing.T) {
		resp, err := f.sso.ResolveProvider(t.Context(), &ResolveProviderRequest{
			Provider:      "lineworks",
			ExternalOrgID: "acme",
		})
		require.NoError(t, err)
		require.Equal(t, "client-acme", resp.ClientID)
	})

	t.Run("slug fallback is whole-string equality only", func(t *testing.T) {
		for _, id := range []string{"acm", "acme-corp", "works-acm", "Acme"} {
			_, err := f.sso.ResolveProvider(t.Context(), &ResolveProviderRequest{
				Provider:      "lineworks",
				ExternalOrgID: id,
			})
			require.Error(t, err, "identifier %q must not resolve", id)
			require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
		}
	})

	t.Run("unknown provider name", func(t *testing.T) {
		_, err := f.sso.ResolveProvider(t.Context(), &ResolveProviderRequest{
			Provider:      "myspace",
			ExternalOrgID: "acme",
		})
		require.Error(t, err)
		require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})

	t.Run("no configuration", func(t *testing.T) {
		_, err := f.sso.ResolveProvider(t.Context(), &ResolveProviderRequest{
			Provider:      "lineworks",
			ExternalOrgID: "works-nowhere",
		})
		require.Error(t, err)
		require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})
}

func TestLoginWithSSO(t *testing.T) {
	f := newFixture(t)

	org := f.seedOrg(t, "Acme", "acme")
	admin := f.seedUser(t, "admin@example.com", "Admin")
	f.join(t, admin, org, models.RoleAdmin)
	seedSSOConfig(t, f, admin, org, "client-acme", "works-acme")

	t.Run("member gets a token", func(t *testing.T) {
		f.sso.exchange = stubExchange(SSOProfile{Email: "admin@example.com", DisplayName: "Admin"})

		resp, err := f.sso.LoginWithSSO(t.Context(), &SSOLoginRequest{
			Provider: "lineworks",
			ClientID: "client-acme",
			Code:     "auth-code",
		})
		require.NoError(t, err)
		require.Equal(t, SSOLoginOK, resp.Status)
		require.NotNil(t, resp.Token)
		require.Equal(t, org.OrgID, resp.Token.OrgID)
		require.Equal(t, models.RoleAdmin, resp.Token.Role)
	})

	t.Run("verified non-member files an access request", func(t *testing.T) {
		f.sso.exchange = stubExchange(SSOProfile{Email: "stranger@example.com", DisplayName: "Stranger"})

		resp, err := f.sso.LoginWithSSO(t.Context(), &SSOLoginRequest{
			Provider: "lineworks",
			ClientID: "client-acme",
			Code:     "auth-code",
		})
		require.NoError(t, err)
		require.Equal(t, SSOLoginAccessRequested, resp.Status)
		require.Nil(t, resp.Token)
		require.Equal(t, org.OrgID, resp.OrgID)
		require.Equal(t, "acme", resp.OrgSlug)

		// the request lands in the admin review queue
		queue, err := f.accessRequests.List(asMember(admin, org, models.RoleAdmin), models.AccessRequestPending)
		require.NoError(t, err)
		require.Len(t, queue, 1)
		require.Equal(t, "stranger@example.com", queue[0].Email)
	})

	t.Run("second login reports the pending request", func(t *testing.T) {
		f.sso.exchange = stubExchange(SSOProfile{Email: "stranger@example.com", DisplayName: "Stranger"})

		resp, err := f.sso.LoginWithSSO(t.Context(), &SSOLoginRequest{
			Provider: "lineworks",
			ClientID: "client-acme",
			Code:     "auth-code",
		})
		require.NoError(t, err)
		require.Equal(t, SSOLoginAccessPending, resp.Status)
		require.Nil(t, resp.Token)
	})

	t.Run("unknown client id", func(t *testing.T) {
		f.sso.exchange = stubExchange(SSOProfile{Email: "admin@example.com", DisplayName: "Admin"})

		_, err := f.sso.LoginWithSSO(t.Context(), &SSOLoginRequest{
			Provider: "lineworks",
			ClientID: "client-unknown",
			Code:     "auth-code",
		})
		require.Error(t, err)
		require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
		require.Contains(t, err.Error(), "sso login failed")
	})
}
