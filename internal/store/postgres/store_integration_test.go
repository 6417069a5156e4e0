//go:build integration

package postgres

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wolfeidau/logicore/internal/models"
	"github.com/wolfeidau/logicore/internal/store"
	"github.com/wolfeidau/logicore/internal/tenant"
)

// setupPool starts a postgres container, migrates it, and returns two pools:
// an admin pool connected as the superuser and an app pool connected as an
// unprivileged role. Row level security assertions must run on the app pool,
// superusers bypass RLS entirely.
func setupPool(t *testing.T, ctx context.Context) (*pgxpool.Pool, *pgxpool.Pool) {
	t.Helper()

	container, err := tcpostgres.Run(ctx, "postgres:18-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, &PoolConfig{ConnString: connString, MaxConns: 5, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))

	_, err = pool.Exec(ctx, `
		CREATE ROLE app LOGIN PASSWORD 'app';
		GRANT USAGE ON SCHEMA public TO app;
		GRANT SELECT, INSERT, UPDATE, DELETE ON ALL TABLES IN SCHEMA public TO app;
		GRANT EXECUTE ON ALL FUNCTIONS IN SCHEMA public TO app;
	`)
	require.NoError(t, err)

	appConnString := strings.Replace(connString, "test:test", "app:app", 1)
	appPool, err := NewPool(ctx, &PoolConfig{ConnString: appConnString, MaxConns: 5, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(appPool.Close)

	return pool, appPool
}

func seedOrgAndUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool, slug string) (uuid.UUID, uuid.UUID) {
	t.Helper()

	orgs := NewOrganizationStore(pool)
	users := NewUserStore(pool)

	now := time.Now()
	org := &models.Organization{
		OrgID:     uuid.New(),
		Name:      slug,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, orgs.Create(ctx, org))

	email := fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8])
	user := &models.User{
		UserID:      uuid.New(),
		Email:       &email,
		DisplayName: "Test User",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, users.Create(ctx, user))

	return org.OrgID, user.UserID
}

func TestIntegration_DocumentRowLevelSecurity(t *testing.T) {
	ctx := context.Background()
	pool, appPool := setupPool(t, ctx)

	orgA, alice := seedOrgAndUser(t, ctx, pool, "org-a")
	orgB, bob := seedOrgAndUser(t, ctx, pool, "org-b")

	docs := NewDocumentStore(appPool)

	now := time.Now()
	orgDoc := &models.Document{
		DocumentID:  uuid.New(),
		OwnerType:   tenant.OwnerOrganization,
		OrgID:       &orgA,
		Name:        "runbook",
		ContentType: "text/markdown",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, docs.Create(ctx, tenant.ForBoth(orgA, alice), orgDoc))

	personalDoc := &models.Document{
		DocumentID:  uuid.New(),
		OwnerType:   tenant.OwnerPersonal,
		UserID:      &alice,
		Name:        "scratch",
		ContentType: "text/markdown",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, docs.Create(ctx, tenant.ForBoth(orgA, alice), personalDoc))

	t.Run("org scope sees org documents", func(t *testing.T) {
		got, err := docs.Get(ctx, tenant.ForBoth(orgA, bob), orgDoc.DocumentID)
		require.NoError(t, err)
		require.Equal(t, "runbook", got.Name)
	})

	t.Run("other org sees nothing", func(t *testing.T) {
		_, err := docs.Get(ctx, tenant.ForBoth(orgB, bob), orgDoc.DocumentID)
		require.ErrorIs(t, err, store.ErrDocumentNotFound)
	})

	t.Run("personal documents hidden from other members of the org", func(t *testing.T) {
		list, err := docs.List(ctx, tenant.ForBoth(orgA, bob))
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, orgDoc.DocumentID, list[0].DocumentID)
	})

	t.Run("owner sees both", func(t *testing.T) {
		list, err := docs.List(ctx, tenant.ForBoth(orgA, alice))
		require.NoError(t, err)
		require.Len(t, list, 2)
	})

	t.Run("unbound scope fails empty", func(t *testing.T) {
		list, err := docs.List(ctx, tenant.Scope{})
		require.NoError(t, err)
		require.Empty(t, list)
	})

	t.Run("user-only scope hides org documents", func(t *testing.T) {
		list, err := docs.List(ctx, tenant.ForUser(alice))
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, personalDoc.DocumentID, list[0].DocumentID)
	})

	t.Run("insert outside the scope is rejected", func(t *testing.T) {
		rogue := &models.Document{
			DocumentID:  uuid.New(),
			OwnerType:   tenant.OwnerOrganization,
			OrgID:       &orgA,
			Name:        "rogue",
			ContentType: "text/markdown",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err := docs.Create(ctx, tenant.ForBoth(orgB, bob), rogue)
		require.Error(t, err)
	})
}

func TestIntegration_ScopeClearedOnRelease(t *testing.T) {
	ctx := context.Background()
	pool, appPool := setupPool(t, ctx)

	orgA, alice := seedOrgAndUser(t, ctx, pool, "org-a")

	// force every checkout through the same underlying connection
	single, err := NewPool(ctx, &PoolConfig{
		ConnString: appPool.Config().ConnString(),
		MaxConns:   1,
		MinConns:   1,
	})
	require.NoError(t, err)
	defer single.Close()

	conn, err := AcquireScoped(ctx, single, tenant.ForBoth(orgA, alice))
	require.NoError(t, err)
	conn.Release()

	// the next checkout of the same connection has no residual scope
	var current string
	require.NoError(t, single.QueryRow(ctx, `SELECT current_setting('app.current_org_id', true)`).Scan(&current))
	require.Empty(t, current)
}

func TestIntegration_SSODefinerLookups(t *testing.T) {
	ctx := context.Background()
	pool, appPool := setupPool(t, ctx)

	orgA, alice := seedOrgAndUser(t, ctx, pool, "acme")

	// the app role exercises the definer functions without elevated rights
	ssoConfigs := NewSSOConfigStore(appPool)
	appID := "app-100"
	require.NoError(t, ssoConfigs.Upsert(ctx, tenant.ForBoth(orgA, alice), &models.SSOProviderConfig{
		OrgID:                 orgA,
		Provider:              "lineworks",
		ClientID:              "client-acme",
		ClientSecretEncrypted: "sealed",
		ExternalOrgID:         "ext-acme",
		Enabled:               true,
		AppID:                 &appID,
	}))

	t.Run("resolve by external org id", func(t *testing.T) {
		resolved, err := ssoConfigs.ResolveProvider(ctx, "lineworks", "ext-acme")
		require.NoError(t, err)
		require.Equal(t, "client-acme", resolved.ClientID)
		require.Equal(t, "acme", resolved.OrganizationName)
	})

	t.Run("identifier retried as slug", func(t *testing.T) {
		resolved, err := ssoConfigs.ResolveProvider(ctx, "lineworks", "acme")
		require.NoError(t, err)
		require.Equal(t, "client-acme", resolved.ClientID)
	})

	t.Run("slug fallback is whole-string equality", func(t *testing.T) {
		for _, id := range []string{"acm", "acme-corp", "cme"} {
			_, err := ssoConfigs.ResolveProvider(ctx, "lineworks", id)
			require.ErrorIs(t, err, store.ErrSSOConfigNotFound, "identifier %q must not resolve", id)
		}
	})

	t.Run("lookup for login returns encrypted secret and org", func(t *testing.T) {
		cfg, err := ssoConfigs.LookupForLogin(ctx, "lineworks", "client-acme")
		require.NoError(t, err)
		require.Equal(t, "sealed", cfg.ClientSecretEncrypted)
		require.Equal(t, orgA, cfg.OrgID)
		require.Equal(t, "acme", cfg.OrgSlug)
	})

	t.Run("unknown client id", func(t *testing.T) {
		_, err := ssoConfigs.LookupForLogin(ctx, "lineworks", "nope")
		require.ErrorIs(t, err, store.ErrSSOConfigNotFound)
	})
}

func TestIntegration_AccessRequestConstraints(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPool(t, ctx)

	orgA, alice := seedOrgAndUser(t, ctx, pool, "org-a")
	_, bob := seedOrgAndUser(t, ctx, pool, "org-b")

	requests := NewAccessRequestStore(pool)

	now := time.Now()
	req := &models.AccessRequest{
		RequestID:   uuid.New(),
		OrgID:       orgA,
		UserID:      bob,
		Email:       "bob@example.com",
		DisplayName: "Bob",
		Provider:    "lineworks",
		Status:      models.AccessRequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, requests.Create(ctx, req))

	t.Run("duplicate pending rejected by partial index", func(t *testing.T) {
		dup := *req
		dup.RequestID = uuid.New()
		err := requests.Create(ctx, &dup)
		require.ErrorIs(t, err, store.ErrDuplicatePending)
	})

	t.Run("approve then approve again", func(t *testing.T) {
		scope := tenant.ForBoth(orgA, alice)

		updated, err := requests.Approve(ctx, scope, req.RequestID, models.RoleMember, alice)
		require.NoError(t, err)
		require.Equal(t, models.AccessRequestApproved, updated.Status)

		// the approval grants the membership in the same transaction
		m, err := NewMembershipStore(pool).Get(ctx, bob, orgA)
		require.NoError(t, err)
		require.Equal(t, models.RoleMember, m.Role)

		_, err = requests.Approve(ctx, scope, req.RequestID, models.RoleMember, alice)
		require.ErrorIs(t, err, store.ErrRequestNotPending)
	})

	t.Run("a new request is allowed after review", func(t *testing.T) {
		again := *req
		again.RequestID = uuid.New()
		require.NoError(t, requests.Create(ctx, &again))
	})
}

func TestIntegration_InvitationRedeem(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPool(t, ctx)

	orgA, alice := seedOrgAndUser(t, ctx, pool, "org-a")

	invitations := NewInvitationStore(pool)
	memberships := NewMembershipStore(pool)

	inv := &models.Invitation{
		InvitationID: uuid.New(),
		OrgID:        orgA,
		Email:        "newhire@example.com",
		Role:         models.RoleMember,
		Token:        uuid.NewString(),
		InvitedBy:    alice,
		ExpiresAt:    time.Now().Add(time.Hour),
		CreatedAt:    time.Now(),
	}
	require.NoError(t, invitations.Create(ctx, inv))

	redeemed, err := invitations.Redeem(ctx, store.RedeemParams{
		Token:        inv.Token,
		Username:     "newhire",
		PasswordHash: "$2a$10$hash",
		DisplayName:  "New Hire",
	})
	require.NoError(t, err)

	m, err := memberships.Get(ctx, redeemed.User.UserID, orgA)
	require.NoError(t, err)
	require.Equal(t, models.RoleMember, m.Role)
	require.True(t, m.IsDefault)

	_, err = invitations.Redeem(ctx, store.RedeemParams{Token: inv.Token, Username: "other"})
	require.ErrorIs(t, err, store.ErrInvitationNotFound)

	t.Run("existing account is reused across organizations", func(t *testing.T) {
		orgB, bob := seedOrgAndUser(t, ctx, pool, "org-b")

		// invite the already-provisioned user into a second organization
		secondInv := &models.Invitation{
			InvitationID: uuid.New(),
			OrgID:        orgB,
			Email:        "NewHire@example.com", // email match is case-insensitive
			Role:         models.RoleAdmin,
			Token:        uuid.NewString(),
			InvitedBy:    bob,
			ExpiresAt:    time.Now().Add(time.Hour),
			CreatedAt:    time.Now(),
		}
		require.NoError(t, invitations.Create(ctx, secondInv))

		again, err := invitations.Redeem(ctx, store.RedeemParams{
			Token:        secondInv.Token,
			Username:     "newhire-b",
			PasswordHash: "$2a$10$hash",
			DisplayName:  "New Hire",
		})
		require.NoError(t, err)
		require.Equal(t, redeemed.User.UserID, again.User.UserID)

		m, err := memberships.Get(ctx, redeemed.User.UserID, orgB)
		require.NoError(t, err)
		require.Equal(t, models.RoleAdmin, m.Role)

		// the first membership is untouched
		m, err = memberships.Get(ctx, redeemed.User.UserID, orgA)
		require.NoError(t, err)
		require.Equal(t, models.RoleMember, m.Role)
	})
}
