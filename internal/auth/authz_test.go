package auth

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/logicore/internal/models"
)

func TestRequireIdentity(t *testing.T) {
	t.Run("no identity", func(t *testing.T) {
		_, err := RequireIdentity(context.Background())
		require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("identity present", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), &Identity{UserID: uuid.New(), Provider: ProviderToken})
		identity, err := RequireIdentity(ctx)
		require.NoError(t, err)
		require.NotNil(t, identity)
	})

	t.Run("anonymous passes RequireIdentity", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), &Identity{OrgID: uuid.New(), Provider: ProviderAnonymous})
		_, err := RequireIdentity(ctx)
		require.NoError(t, err)
	})
}

func TestRequireUser(t *testing.T) {
	t.Run("anonymous rejected", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), &Identity{OrgID: uuid.New(), Provider: ProviderAnonymous})
		_, err := RequireUser(ctx)
		require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("token identity accepted", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), &Identity{UserID: uuid.New(), Provider: ProviderToken})
		_, err := RequireUser(ctx)
		require.NoError(t, err)
	})
}

func TestRequireAdmin(t *testing.T) {
	t.Run("member rejected", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), &Identity{
			UserID:   uuid.New(),
			Role:     models.RoleMember,
			Provider: ProviderToken,
		})
		_, err := RequireAdmin(ctx)
		require.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})

	t.Run("admin accepted", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), &Identity{
			UserID:   uuid.New(),
			Role:     models.RoleAdmin,
			Provider: ProviderToken,
		})
		identity, err := RequireAdmin(ctx)
		require.NoError(t, err)
		require.Equal(t, models.RoleAdmin, identity.Role)
	})

	t.Run("anonymous can never be admin", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), &Identity{
			OrgID:    uuid.New(),
			Role:     models.RoleAdmin,
			Provider: ProviderAnonymous,
		})
		_, err := RequireAdmin(ctx)
		require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})
}
